package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notely-dev/notely/internal/auth"
	"github.com/notely-dev/notely/internal/models"
	"github.com/notely-dev/notely/internal/policy"
	"github.com/notely-dev/notely/internal/service"
)

// ErrorResponse is the standard error body. Fields carries per-field
// validation messages when present.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// currentUser returns the authenticated user placed in the context by the
// auth middleware. Routes using it must sit behind that middleware.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(auth.UserContextKey).(*models.User)
}

// requireAdminOp checks the caller against the specific admin-namespace
// operation a handler performs. The RequireAdmin middleware has already
// gated the route as a whole; this pins each handler to its own operation
// so it stays safe even if mounted without the middleware.
func requireAdminOp(c *gin.Context, op policy.Operation) bool {
	allowed, err := policy.Authorize(policy.ActorFor(currentUser(c)), nil, op)
	if err != nil {
		slog.Error("Admin policy check failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Admin access required"})
		return false
	}
	return true
}

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Fields: validationErr.Fields,
		})
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
		return
	}
	slog.Error("unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
