package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notely-dev/notely/internal/models"
)

// NoteService contains the business logic for note operations: scoped
// listing with search and ordering, and validated mutations.
type NoteService struct {
	db *gorm.DB
}

// New creates a new NoteService.
func New(db *gorm.DB) *NoteService {
	return &NoteService{db: db}
}

// orderableFields whitelists the columns a caller may order by. Anything
// else fails closed with a validation error rather than being silently
// ignored.
var orderableFields = map[string]string{
	"title":      "title",
	"created_at": "created_at",
}

func (s Scope) apply(tx *gorm.DB) *gorm.DB {
	if s.all {
		return tx
	}
	return tx.Where("owner_id = ?", s.ownerID)
}

// List returns the notes in scope, optionally narrowed by an owner filter
// and a title search, in the requested order (newest first by default).
// The scope is applied before search and ordering: a search never widens
// what an actor may see.
func (s *NoteService) List(scope Scope, q ListQuery) ([]models.Note, error) {
	order, err := resolveOrdering(q.Ordering)
	if err != nil {
		return nil, err
	}

	tx := scope.apply(s.db.Model(&models.Note{}))
	if q.Owner != nil {
		tx = tx.Where("owner_id = ?", *q.Owner)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		tx = tx.Where("LOWER(title) LIKE ? ESCAPE '\\'", pattern)
	}

	var notes []models.Note
	if err := tx.Preload("Owner").Order(order).Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns a single note by ID regardless of owner. Callers are
// responsible for the authorization decision on the result.
func (s *NoteService) Get(id uuid.UUID) (*models.Note, error) {
	var note models.Note
	if err := s.db.Preload("Owner").Where("id = ?", id).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &note, nil
}

// Create validates and stores a new note for the given owner.
func (s *NoteService) Create(ownerID uuid.UUID, req CreateRequest) (*models.Note, error) {
	if err := validateNote(&req.Title, &req.Content, false); err != nil {
		return nil, err
	}

	note := models.Note{
		OwnerID: ownerID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &note, nil
}

// Update validates and applies an update to the note with the given ID.
// The mutation is executed WHERE-scoped, so the stored owner is re-checked
// at write time rather than trusted from an earlier read; a cross-scope ID
// comes back as ErrNotFound.
func (s *NoteService) Update(id uuid.UUID, scope Scope, req UpdateRequest) (*models.Note, error) {
	if err := validateNote(req.Title, req.Content, req.Partial); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}

	if len(updates) > 0 {
		res := scope.apply(s.db.Model(&models.Note{})).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update note: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	var note models.Note
	if err := scope.apply(s.db.Preload("Owner")).Where("id = ?", id).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reload note: %w", err)
	}
	return &note, nil
}

// Delete removes the note with the given ID if it is in scope.
func (s *NoteService) Delete(id uuid.UUID, scope Scope) error {
	res := scope.apply(s.db).Where("id = ?", id).Delete(&models.Note{})
	if res.Error != nil {
		return fmt.Errorf("delete note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// resolveOrdering maps a caller-supplied ordering value onto a structured
// ORDER BY clause. The value is never interpolated into SQL.
func resolveOrdering(raw string) (clause.OrderByColumn, error) {
	field := raw
	desc := false

	switch {
	case raw == "":
		// Newest first by default.
		field = "created_at"
		desc = true
	case strings.HasPrefix(raw, "-"):
		field = raw[1:]
		desc = true
	}

	col, ok := orderableFields[field]
	if !ok {
		return clause.OrderByColumn{}, fieldError("ordering",
			fmt.Sprintf("cannot order by %q; valid fields are title, created_at", raw))
	}
	return clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}, nil
}

// escapeLike neutralizes LIKE wildcards in a search term so they match
// literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// validateNote checks title and content ahead of any mutation. On a full
// update (or create) both fields are required; on a partial update only
// supplied fields are checked. All failures for a call are reported
// together, keyed by field.
func validateNote(title, content *string, partial bool) error {
	fields := map[string]string{}

	switch {
	case title == nil && !partial:
		fields["title"] = "this field is required"
	case title != nil:
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			fields["title"] = "title cannot be blank"
		} else if utf8.RuneCountInString(trimmed) > models.TitleMaxLength {
			fields["title"] = fmt.Sprintf("title must be at most %d characters", models.TitleMaxLength)
		}
	}

	switch {
	case content == nil && !partial:
		fields["content"] = "this field is required"
	case content != nil:
		if strings.TrimSpace(*content) == "" {
			fields["content"] = "content cannot be blank"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
