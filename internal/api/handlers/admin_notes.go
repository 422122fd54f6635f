package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/audit"
	"github.com/notely-dev/notely/internal/models"
	"github.com/notely-dev/notely/internal/policy"
	"github.com/notely-dev/notely/internal/service"
)

// AdminNoteHandler serves the admin namespace for notes: every operation
// spans all owners. Routes sit behind the RequireAdmin middleware, so a
// 403 (not a masked 404) is what non-admins see before reaching here.
type AdminNoteHandler struct {
	svc *service.NoteService
	db  *gorm.DB
}

func NewAdminNoteHandler(svc *service.NoteService, db *gorm.DB) *AdminNoteHandler {
	return &AdminNoteHandler{svc: svc, db: db}
}

// AdminCreateNoteRequest is the body for creating a note on behalf of a
// user. OwnerID defaults to the calling admin when absent.
type AdminCreateNoteRequest struct {
	Title   string     `json:"title"`
	Content string     `json:"content"`
	OwnerID *uuid.UUID `json:"owner_id"`
}

// ListNotes godoc
// @Summary List all notes across users (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param search query string false "Case-insensitive title substring"
// @Param ordering query string false "title or created_at, optionally - prefixed"
// @Param user query string false "Filter by owner account UUID"
// @Success 200 {array} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/notes [get]
func (h *AdminNoteHandler) ListNotes(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminList) {
		return
	}

	q := service.ListQuery{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}

	if raw := c.Query("user"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Fields: map[string]string{"user": "must be a valid account ID"},
			})
			return
		}
		q.Owner = &ownerID
	}

	notes, err := h.svc.List(service.ScopeAll(), q)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notes)
}

// CreateNote godoc
// @Summary Create a note for any user (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param note body AdminCreateNoteRequest true "Note details with optional target owner"
// @Success 201 {object} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/notes [post]
func (h *AdminNoteHandler) CreateNote(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminCreate) {
		return
	}
	admin := currentUser(c)

	var req AdminCreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ownerID := admin.ID
	if req.OwnerID != nil {
		var owner models.User
		if err := h.db.First(&owner, "id = ?", *req.OwnerID).Error; err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Fields: map[string]string{"owner_id": "unknown account"},
			})
			return
		}
		ownerID = owner.ID
	}

	note, err := h.svc.Create(ownerID, service.CreateRequest{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, admin.ID, audit.ActionAdminCreateNote, "note:"+note.ID.String(), map[string]interface{}{
		"owner_id": ownerID,
	})

	c.JSON(http.StatusCreated, note)
}

// GetNote godoc
// @Summary Get any user's note (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/notes/{id} [get]
func (h *AdminNoteHandler) GetNote(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminRead) {
		return
	}

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, note)
}

// UpdateNote godoc
// @Summary Replace any user's note (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param note body UpdateNoteRequest true "Note details; owner fields are ignored"
// @Success 200 {object} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/notes/{id} [put]
func (h *AdminNoteHandler) UpdateNote(c *gin.Context) {
	h.update(c, false)
}

// PatchNote godoc
// @Summary Partially update any user's note (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param note body UpdateNoteRequest true "Fields to update; owner fields are ignored"
// @Success 200 {object} models.Note
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/notes/{id} [patch]
func (h *AdminNoteHandler) PatchNote(c *gin.Context) {
	h.update(c, true)
}

func (h *AdminNoteHandler) update(c *gin.Context, partial bool) {
	if !requireAdminOp(c, policy.OpAdminUpdate) {
		return
	}
	admin := currentUser(c)

	id, ok := noteID(c)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	note, err := h.svc.Update(id, service.ScopeAll(), service.UpdateRequest{
		Title:   req.Title,
		Content: req.Content,
		Partial: partial,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, admin.ID, audit.ActionAdminUpdateNote, "note:"+note.ID.String(), nil)
	c.JSON(http.StatusOK, note)
}

// DeleteNote godoc
// @Summary Delete any user's note (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/notes/{id} [delete]
func (h *AdminNoteHandler) DeleteNote(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminDelete) {
		return
	}
	admin := currentUser(c)

	id, ok := noteID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(id, service.ScopeAll()); err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, admin.ID, audit.ActionAdminDeleteNote, "note:"+id.String(), nil)
	c.Status(http.StatusNoContent)
}
