package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/notely-dev/notely/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Note{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", Role: models.RoleRegular, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func createTestNote(t *testing.T, db *gorm.DB, ownerID uuid.UUID, title, content string) *models.Note {
	t.Helper()
	note := models.Note{OwnerID: ownerID, Title: title, Content: content}
	if err := db.Create(&note).Error; err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return &note
}

func strPtr(s string) *string { return &s }

func TestList_ScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	createTestNote(t, db, alice.ID, "Alice note", "a")
	createTestNote(t, db, bob.ID, "Bob note", "b")

	notes, err := svc.List(ScopeOwner(alice.ID), ListQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if notes[0].OwnerID != alice.ID {
		t.Errorf("expected alice's note, got owner %s", notes[0].OwnerID)
	}
}

// A search never widens what an actor can see: the same term matching
// another user's note stays invisible.
func TestList_SearchStaysInScope(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	createTestNote(t, db, alice.ID, "Grocery list", "milk")
	createTestNote(t, db, bob.ID, "Grocery budget", "rent")

	notes, err := svc.List(ScopeOwner(alice.ID), ListQuery{Search: "grocery"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if notes[0].Title != "Grocery list" {
		t.Errorf("unexpected note %q", notes[0].Title)
	}
}

func TestList_SearchCaseInsensitiveSubstring(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")
	createTestNote(t, db, alice.ID, "Meeting NOTES for Monday", "x")
	createTestNote(t, db, alice.ID, "Shopping", "notes about shopping live in the content only")

	notes, err := svc.List(ScopeOwner(alice.ID), ListQuery{Search: "notes"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 match on title only, got %d", len(notes))
	}
	if notes[0].Title != "Meeting NOTES for Monday" {
		t.Errorf("unexpected note %q", notes[0].Title)
	}
}

func TestList_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")
	createTestNote(t, db, alice.ID, "100% done", "x")
	createTestNote(t, db, alice.ID, "100 pages", "x")

	notes, err := svc.List(ScopeOwner(alice.ID), ListQuery{Search: "100%"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected %% to match literally, got %d notes", len(notes))
	}
	if notes[0].Title != "100% done" {
		t.Errorf("unexpected note %q", notes[0].Title)
	}
}

func TestList_Ordering(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")
	older := models.Note{OwnerID: alice.ID, Title: "banana", Content: "x", CreatedAt: time.Now().Add(-time.Hour)}
	if err := db.Create(&older).Error; err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	createTestNote(t, db, alice.ID, "apple", "x")

	// Default is newest first.
	notes, err := svc.List(ScopeOwner(alice.ID), ListQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if notes[0].Title != "apple" || notes[1].Title != "banana" {
		t.Errorf("default order wrong: %q, %q", notes[0].Title, notes[1].Title)
	}

	notes, err = svc.List(ScopeOwner(alice.ID), ListQuery{Ordering: "title"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if notes[0].Title != "apple" {
		t.Errorf("title order wrong: got %q first", notes[0].Title)
	}

	notes, err = svc.List(ScopeOwner(alice.ID), ListQuery{Ordering: "-title"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if notes[0].Title != "banana" {
		t.Errorf("-title order wrong: got %q first", notes[0].Title)
	}

	notes, err = svc.List(ScopeOwner(alice.ID), ListQuery{Ordering: "created_at"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if notes[0].Title != "banana" {
		t.Errorf("created_at order wrong: got %q first", notes[0].Title)
	}
}

func TestList_UnknownOrderingRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")

	_, err := svc.List(ScopeOwner(alice.ID), ListQuery{Ordering: "owner_id"})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := validationErr.Fields["ordering"]; !ok {
		t.Errorf("expected error keyed by ordering, got %v", validationErr.Fields)
	}
}

func TestList_OwnerFilter(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	createTestNote(t, db, alice.ID, "a", "x")
	createTestNote(t, db, bob.ID, "b", "x")

	notes, err := svc.List(ScopeAll(), ListQuery{Owner: &bob.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 || notes[0].OwnerID != bob.ID {
		t.Fatalf("owner filter not applied: %+v", notes)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")

	cases := []struct {
		name    string
		title   string
		content string
		fields  []string
	}{
		{"blank title", "   ", "content", []string{"title"}},
		{"blank content", "title", " \t ", []string{"content"}},
		{"both blank", "", "", []string{"title", "content"}},
		{"title too long", strings.Repeat("x", models.TitleMaxLength+1), "content", []string{"title"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(alice.ID, CreateRequest{Title: tc.title, Content: tc.content})
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			for _, f := range tc.fields {
				if _, ok := validationErr.Fields[f]; !ok {
					t.Errorf("expected error on field %q, got %v", f, validationErr.Fields)
				}
			}
			if len(validationErr.Fields) != len(tc.fields) {
				t.Errorf("unexpected extra field errors: %v", validationErr.Fields)
			}
		})
	}
}

func TestCreate_TitleAtMaxLength(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")

	note, err := svc.Create(alice.ID, CreateRequest{
		Title:   strings.Repeat("x", models.TitleMaxLength),
		Content: "content",
	})
	if err != nil {
		t.Fatalf("Create failed at the length bound: %v", err)
	}
	if note.ID == uuid.Nil {
		t.Error("note ID was not generated")
	}
}

func TestUpdate_Full(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")
	note := createTestNote(t, db, alice.ID, "old", "old content")

	updated, err := svc.Update(note.ID, ScopeOwner(alice.ID), UpdateRequest{
		Title:   strPtr("new"),
		Content: strPtr("new content"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "new" || updated.Content != "new content" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.OwnerID != alice.ID {
		t.Errorf("owner changed on update: %s", updated.OwnerID)
	}
}

func TestUpdate_FullRequiresBothFields(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")
	note := createTestNote(t, db, alice.ID, "old", "old content")

	_, err := svc.Update(note.ID, ScopeOwner(alice.ID), UpdateRequest{Title: strPtr("new")})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := validationErr.Fields["content"]; !ok {
		t.Errorf("expected content to be required, got %v", validationErr.Fields)
	}
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")
	note := createTestNote(t, db, alice.ID, "old", "old content")

	updated, err := svc.Update(note.ID, ScopeOwner(alice.ID), UpdateRequest{
		Title:   strPtr("new"),
		Partial: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "new" {
		t.Errorf("title not updated: %q", updated.Title)
	}
	if updated.Content != "old content" {
		t.Errorf("content should be untouched: %q", updated.Content)
	}
}

// A mutation scoped to one owner must not touch another owner's note, even
// with a valid ID in hand.
func TestUpdate_CrossScopeComesBackNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	note := createTestNote(t, db, bob.ID, "bob's", "content")

	_, err := svc.Update(note.ID, ScopeOwner(alice.ID), UpdateRequest{
		Title:   strPtr("hijacked"),
		Content: strPtr("x"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var reloaded models.Note
	if err := db.First(&reloaded, "id = ?", note.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Title != "bob's" {
		t.Errorf("cross-scope update leaked through: %q", reloaded.Title)
	}
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")
	note := createTestNote(t, db, alice.ID, "t", "c")

	if err := svc.Delete(note.ID, ScopeOwner(alice.ID)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("note should be gone, got %v", err)
	}
}

func TestDelete_CrossScopeComesBackNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	note := createTestNote(t, db, bob.ID, "t", "c")

	if err := svc.Delete(note.ID, ScopeOwner(alice.ID)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var count int64
	db.Model(&models.Note{}).Where("id = ?", note.ID).Count(&count)
	if count != 1 {
		t.Error("cross-scope delete removed the note")
	}
}

func TestGet_UnknownID(t *testing.T) {
	db := setupTestDB(t)
	svc := New(db)

	if _, err := svc.Get(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
