package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TitleMaxLength is the upper bound on a note title.
const TitleMaxLength = 200

// Note represents a plain-text note owned by exactly one user. Ownership
// never changes for the lifetime of the note; deleting the owner cascades
// to their notes at the database level.
type Note struct {
	ID        uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:text;not null;index;index:idx_notes_owner_created,priority:1" json:"owner_id"`
	Owner     User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Title     string    `gorm:"size:200;not null;index" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index;index:idx_notes_owner_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName ensures GORM uses the "notes" table
func (Note) TableName() string {
	return "notes"
}

// BeforeCreate hook to generate UUID
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// OwnerIdentity returns the owning account ID. It satisfies the resource
// contract the access policy evaluates against.
func (n *Note) OwnerIdentity() uuid.UUID {
	return n.OwnerID
}
