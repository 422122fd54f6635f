package service

import "github.com/google/uuid"

// CreateRequest holds parameters for creating a note.
type CreateRequest struct {
	Title   string
	Content string
}

// UpdateRequest holds parameters for updating a note. Nil fields are left
// untouched on a partial update; a full update requires both. Ownership is
// deliberately absent: it cannot be changed through any update.
type UpdateRequest struct {
	Title   *string
	Content *string
	Partial bool
}

// ListQuery holds the caller-supplied filter and ordering parameters for a
// note listing.
type ListQuery struct {
	Search   string     // case-insensitive substring match on title
	Ordering string     // "title" or "created_at", optionally "-" prefixed
	Owner    *uuid.UUID // admin-only narrowing to a single owner
}

// Scope bounds a query or mutation to the notes an actor may touch. It is
// always applied before search and ordering.
type Scope struct {
	all     bool
	ownerID uuid.UUID
}

// ScopeAll covers every note. Admin namespace only.
func ScopeAll() Scope {
	return Scope{all: true}
}

// ScopeOwner covers the notes owned by the given account.
func ScopeOwner(ownerID uuid.UUID) Scope {
	return Scope{ownerID: ownerID}
}
