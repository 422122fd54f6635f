// Package policy implements the access decision function for note
// resources: ownership equality on the regular namespace, role check on
// the admin namespace. It answers allow/deny only; translating a deny
// into 401/403/404 is the caller's concern.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"

	"github.com/notely-dev/notely/internal/models"
)

//go:embed model.conf
var modelConf string

// Operation names an intended action on a resource. Operations prefixed
// with "admin:" form a separate namespace: they are decided purely on the
// actor's role and never consult ownership.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"

	OpAdminAccess Operation = "admin:access"
	OpAdminList   Operation = "admin:list"
	OpAdminRead   Operation = "admin:read"
	OpAdminCreate Operation = "admin:create"
	OpAdminUpdate Operation = "admin:update"
	OpAdminDelete Operation = "admin:delete"
)

// AdminNamespace reports whether the operation belongs to the admin
// namespace.
func (op Operation) AdminNamespace() bool {
	return strings.HasPrefix(string(op), "admin:")
}

// Actor is the subject of an authorization decision. The zero value is
// the anonymous actor, which is denied everywhere.
type Actor struct {
	ID            string
	Role          string
	Authenticated bool
}

// Anonymous returns the unauthenticated actor.
func Anonymous() Actor {
	return Actor{}
}

// ActorFor builds the decision subject for an authenticated account.
func ActorFor(u *models.User) Actor {
	return Actor{
		ID:            u.ID.String(),
		Role:          string(u.Role),
		Authenticated: true,
	}
}

// Owned is implemented by resources that have a single owning account.
// The policy can only evaluate resources that satisfy it.
type Owned interface {
	OwnerIdentity() uuid.UUID
}

// resourceAttrs is what the casbin matcher sees as r.obj.
type resourceAttrs struct {
	OwnerID string
}

// ErrUnevaluable indicates the policy was invoked against a resource type
// it was never meant to evaluate. This is a programming fault, not a deny.
var ErrUnevaluable = errors.New("policy: resource does not expose an owner")

var enforcer *casbin.Enforcer

// Init builds the casbin enforcer from the embedded ABAC model. There are
// no stored policy rows: the facts the matcher needs (role, ownership)
// live on the actor and resource themselves.
func Init(logger *slog.Logger) error {
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer = e
	logger.Info("Access policy enforcer initialized")
	return nil
}

// Authorize decides whether actor may perform op on resource.
//
// Regular-namespace operations require an authenticated actor whose ID
// equals the resource owner; everyone else is denied, admins included,
// since their access runs through the admin namespace. Admin-namespace
// operations require the admin role and ignore the resource entirely.
//
// A non-nil resource that does not implement Owned yields an error
// wrapping ErrUnevaluable.
func Authorize(actor Actor, resource any, op Operation) (bool, error) {
	if enforcer == nil {
		return false, errors.New("policy: enforcer not initialized")
	}

	attrs := resourceAttrs{}
	if !op.AdminNamespace() {
		owned, ok := resource.(Owned)
		if !ok {
			return false, fmt.Errorf("%w: %T", ErrUnevaluable, resource)
		}
		attrs.OwnerID = owned.OwnerIdentity().String()
	}

	return enforcer.Enforce(actor, attrs, string(op))
}
