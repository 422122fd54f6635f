package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/audit"
	"github.com/notely-dev/notely/internal/auth"
	"github.com/notely-dev/notely/internal/models"
	"github.com/notely-dev/notely/internal/policy"
	"github.com/notely-dev/notely/internal/service"
)

// AdminUserHandler serves account management for administrators. Deleting
// an account cascades to its notes at the database level.
type AdminUserHandler struct {
	db *gorm.DB
}

func NewAdminUserHandler(db *gorm.DB) *AdminUserHandler {
	return &AdminUserHandler{db: db}
}

// CreateUserRequest is the body for creating an account.
type CreateUserRequest struct {
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required"`
	Role     models.Role `json:"role"`
	IsActive *bool       `json:"is_active"`
}

// UpdateUserRequest is the body for updating an account. Nil fields are
// left untouched.
type UpdateUserRequest struct {
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
	Password *string      `json:"password"`
}

// userID parses the id path parameter for the user endpoints.
func userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

// ListUsers godoc
// @Summary List all accounts (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.User
// @Failure 403 {object} ErrorResponse
// @Router /admin/users [get]
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminList) {
		return
	}

	var users []models.User
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create an account (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "Account details"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users [post]
func (h *AdminUserHandler) CreateUser(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminCreate) {
		return
	}
	admin := currentUser(c)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleRegular
	}
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Fields: map[string]string{"role": "must be regular or admin"},
		})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to hash password"})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     active,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			handleServiceError(c, &service.ConflictError{Message: "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create user"})
		return
	}

	audit.LogAction(h.db, admin.ID, audit.ActionCreateUser, "user:"+user.ID.String(), map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	c.JSON(http.StatusCreated, user)
}

// GetUser godoc
// @Summary Get an account by ID (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminUserHandler) GetUser(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminRead) {
		return
	}

	id, ok := userID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Update an account's role, active flag, or password (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param user body UpdateUserRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [patch]
func (h *AdminUserHandler) UpdateUser(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminUpdate) {
		return
	}
	admin := currentUser(c)

	id, ok := userID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Role != nil {
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Fields: map[string]string{"role": "must be regular or admin"},
			})
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hashedPassword, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to hash password"})
			return
		}
		updates["password_hash"] = hashedPassword
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update user"})
			return
		}
		audit.LogAction(h.db, admin.ID, audit.ActionUpdateUser, "user:"+user.ID.String(), updatesForAudit(updates))

		if err := h.db.First(&user, "id = ?", id).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to reload user"})
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete an account and its notes (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminUserHandler) DeleteUser(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminDelete) {
		return
	}
	admin := currentUser(c)

	id, ok := userID(c)
	if !ok {
		return
	}

	// Can't delete yourself
	if id == admin.ID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	// Notes are removed explicitly so the behavior does not depend on the
	// driver enforcing the cascade.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", user.ID).Delete(&models.Note{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete user"})
		return
	}

	audit.LogAction(h.db, admin.ID, audit.ActionDeleteUser, "user:"+user.ID.String(), map[string]interface{}{
		"email": user.Email,
	})

	c.Status(http.StatusNoContent)
}

// ListAuditLogs godoc
// @Summary List audit logs (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param user_id query string false "Filter by user ID"
// @Param action query string false "Filter by action"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} ErrorResponse
// @Router /admin/audit-logs [get]
func (h *AdminUserHandler) ListAuditLogs(c *gin.Context) {
	if !requireAdminOp(c, policy.OpAdminRead) {
		return
	}

	query := h.db.Preload("User").Order("timestamp DESC").Limit(100)

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// updatesForAudit strips secrets from an updates map before logging it.
func updatesForAudit(updates map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range updates {
		if k == "password_hash" {
			out[k] = "(redacted)"
			continue
		}
		out[k] = v
	}
	return out
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// Both sqlite and postgres surface these as driver errors, not a gorm
// sentinel, so the message is inspected.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
