package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/notely-dev/notely/internal/policy"
	"github.com/notely-dev/notely/internal/service"
)

// NoteHandler serves the regular (owner-scoped) note endpoints. Cross-owner
// access is reported as 404 so the existence of another user's note is
// never confirmed.
type NoteHandler struct {
	svc *service.NoteService
}

func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// noteID parses the id path parameter. A malformed value is reported the
// same way as a missing note.
func noteID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return uuid.Nil, false
	}
	return id, true
}

// authorizeNote runs the access policy for the current user against a
// loaded note. A deny on this namespace is masked as 404; an evaluation
// fault is a 500.
func (h *NoteHandler) authorizeNote(c *gin.Context, note policy.Owned, op policy.Operation) bool {
	allowed, err := policy.Authorize(policy.ActorFor(currentUser(c)), note, op)
	if err != nil {
		slog.Error("Policy evaluation failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return false
	}
	if !allowed {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return false
	}
	return true
}

// CreateNoteRequest is the body for creating a note. Ownership always
// comes from the authenticated caller, never from the payload.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the body for updating a note. Any owner or user
// field in the payload is accepted and discarded.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// ListNotes godoc
// @Summary List the caller's notes
// @Tags notes
// @Security BearerAuth
// @Produce json
// @Param search query string false "Case-insensitive title substring"
// @Param ordering query string false "title or created_at, optionally - prefixed"
// @Success 200 {array} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /notes [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	user := currentUser(c)

	notes, err := h.svc.List(service.ScopeOwner(user.ID), service.ListQuery{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notes)
}

// CreateNote godoc
// @Summary Create a note owned by the caller
// @Tags notes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param note body CreateNoteRequest true "Note details"
// @Success 201 {object} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /notes [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	user := currentUser(c)

	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	note, err := h.svc.Create(user.ID, service.CreateRequest{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

// GetNote godoc
// @Summary Get one of the caller's notes
// @Tags notes
// @Security BearerAuth
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /notes/{id} [get]
func (h *NoteHandler) GetNote(c *gin.Context) {
	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !h.authorizeNote(c, note, policy.OpRead) {
		return
	}

	c.JSON(http.StatusOK, note)
}

// UpdateNote godoc
// @Summary Replace one of the caller's notes
// @Tags notes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param note body UpdateNoteRequest true "Note details"
// @Success 200 {object} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /notes/{id} [put]
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	h.update(c, false)
}

// PatchNote godoc
// @Summary Partially update one of the caller's notes
// @Tags notes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param note body UpdateNoteRequest true "Fields to update"
// @Success 200 {object} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /notes/{id} [patch]
func (h *NoteHandler) PatchNote(c *gin.Context) {
	h.update(c, true)
}

func (h *NoteHandler) update(c *gin.Context, partial bool) {
	user := currentUser(c)

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !h.authorizeNote(c, note, policy.OpUpdate) {
		return
	}

	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// The mutation runs owner-scoped so the stored owner is re-checked at
	// write time.
	updated, err := h.svc.Update(id, service.ScopeOwner(user.ID), service.UpdateRequest{
		Title:   req.Title,
		Content: req.Content,
		Partial: partial,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteNote godoc
// @Summary Delete one of the caller's notes
// @Tags notes
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	user := currentUser(c)

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !h.authorizeNote(c, note, policy.OpDelete) {
		return
	}

	if err := h.svc.Delete(id, service.ScopeOwner(user.ID)); err != nil {
		// The note can vanish between the check and the delete.
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
			return
		}
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
