package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/models"
)

// LogAction records an audit log entry
func LogAction(db *gorm.DB, userID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now().UTC(),
	}

	return db.Create(&log).Error
}

// Audit actions constants
const (
	ActionCreateUser      = "create_user"
	ActionUpdateUser      = "update_user"
	ActionDeleteUser      = "delete_user"
	ActionAdminCreateNote = "admin_create_note"
	ActionAdminUpdateNote = "admin_update_note"
	ActionAdminDeleteNote = "admin_delete_note"
	ActionLogin           = "login"
)
