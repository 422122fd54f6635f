package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/notely-dev/notely/internal/api/middleware"
	"github.com/notely-dev/notely/internal/auth"
	"github.com/notely-dev/notely/internal/models"
	"github.com/notely-dev/notely/internal/policy"
	"github.com/notely-dev/notely/internal/service"
)

const testSecret = "test-secret"

type testEnv struct {
	db     *gorm.DB
	auth   *auth.BasicAuthenticator
	router *gin.Engine
}

// setupTestEnv builds an in-memory database and a router wired the same
// way as the production one: auth middleware on everything below /api,
// RequireAdmin on the admin subtree.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Note{}, &models.AuditLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	if err := policy.Init(slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("failed to initialize policy: %v", err)
	}

	authenticator := auth.NewBasicAuthenticator(db, testSecret)
	svc := service.New(db)
	noteHandler := NewNoteHandler(svc)
	adminNoteHandler := NewAdminNoteHandler(svc, db)
	adminUserHandler := NewAdminUserHandler(db)

	router := gin.New()
	public := router.Group("/api/v1")
	public.POST("/auth/login", Login(authenticator, db))

	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/auth/me", GetCurrentUser(authenticator))
		protected.GET("/notes", noteHandler.ListNotes)
		protected.POST("/notes", noteHandler.CreateNote)
		protected.GET("/notes/:id", noteHandler.GetNote)
		protected.PUT("/notes/:id", noteHandler.UpdateNote)
		protected.PATCH("/notes/:id", noteHandler.PatchNote)
		protected.DELETE("/notes/:id", noteHandler.DeleteNote)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/notes", adminNoteHandler.ListNotes)
			admin.POST("/notes", adminNoteHandler.CreateNote)
			admin.GET("/notes/:id", adminNoteHandler.GetNote)
			admin.PUT("/notes/:id", adminNoteHandler.UpdateNote)
			admin.PATCH("/notes/:id", adminNoteHandler.PatchNote)
			admin.DELETE("/notes/:id", adminNoteHandler.DeleteNote)

			admin.GET("/users", adminUserHandler.ListUsers)
			admin.POST("/users", adminUserHandler.CreateUser)
			admin.GET("/users/:id", adminUserHandler.GetUser)
			admin.PATCH("/users/:id", adminUserHandler.UpdateUser)
			admin.DELETE("/users/:id", adminUserHandler.DeleteUser)

			admin.GET("/audit-logs", adminUserHandler.ListAuditLogs)
		}
	}

	return &testEnv{db: db, auth: authenticator, router: router}
}

func (e *testEnv) createUser(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{Email: email, PasswordHash: hash, Role: role, IsActive: true}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	resp, err := e.auth.Login(email, "secret123")
	if err != nil {
		t.Fatalf("failed to login %s: %v", email, err)
	}
	return &user, resp.Token
}

func (e *testEnv) createNote(t *testing.T, ownerID uuid.UUID, title, content string) *models.Note {
	t.Helper()
	note := models.Note{OwnerID: ownerID, Title: title, Content: content}
	if err := e.db.Create(&note).Error; err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return &note
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeNote(t *testing.T, w *httptest.ResponseRecorder) models.Note {
	t.Helper()
	var note models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatalf("failed to decode note: %v (%s)", err, w.Body.String())
	}
	return note
}

func decodeNotes(t *testing.T, w *httptest.ResponseRecorder) []models.Note {
	t.Helper()
	var notes []models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &notes); err != nil {
		t.Fatalf("failed to decode notes: %v (%s)", err, w.Body.String())
	}
	return notes
}

func TestNotes_Unauthenticated(t *testing.T) {
	env := setupTestEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/notes"},
		{http.MethodPost, "/api/v1/notes"},
		{http.MethodGet, "/api/v1/notes/" + uuid.NewString()},
		{http.MethodDelete, "/api/v1/notes/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/admin/notes"},
	}

	for _, p := range paths {
		w := env.request(t, p.method, p.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestNotes_CreateAndGet(t *testing.T) {
	env := setupTestEnv(t)
	alice, token := env.createUser(t, "alice@example.com", models.RoleRegular)

	w := env.request(t, http.MethodPost, "/api/v1/notes", token, gin.H{
		"title":   "First note",
		"content": "hello",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeNote(t, w)
	if created.OwnerID != alice.ID {
		t.Errorf("note owned by %s, expected %s", created.OwnerID, alice.ID)
	}

	w = env.request(t, http.MethodGet, "/api/v1/notes/"+created.ID.String(), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decodeNote(t, w); got.Title != "First note" {
		t.Errorf("unexpected title %q", got.Title)
	}
}

func TestNotes_CreateValidation(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "alice@example.com", models.RoleRegular)

	w := env.request(t, http.MethodPost, "/api/v1/notes", token, gin.H{
		"title":   "   ",
		"content": "",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if _, ok := resp.Fields["title"]; !ok {
		t.Errorf("expected title field error, got %v", resp.Fields)
	}
	if _, ok := resp.Fields["content"]; !ok {
		t.Errorf("expected content field error, got %v", resp.Fields)
	}
}

// Cross-owner access on the regular namespace is reported as 404 in every
// case, so the existence of another user's note is never confirmed.
func TestNotes_CrossOwnerMaskedAsNotFound(t *testing.T) {
	env := setupTestEnv(t)
	bob, _ := env.createUser(t, "bob@example.com", models.RoleRegular)
	_, aliceToken := env.createUser(t, "alice@example.com", models.RoleRegular)
	note := env.createNote(t, bob.ID, "Bob's note", "private")

	cases := []struct{ method string; body any }{
		{http.MethodGet, nil},
		{http.MethodPut, gin.H{"title": "x", "content": "y"}},
		{http.MethodPatch, gin.H{"title": "x"}},
		{http.MethodDelete, nil},
	}

	for _, tc := range cases {
		w := env.request(t, tc.method, "/api/v1/notes/"+note.ID.String(), aliceToken, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404 for cross-owner access, got %d", tc.method, w.Code)
		}
	}

	// And the note is untouched.
	var reloaded models.Note
	if err := env.db.First(&reloaded, "id = ?", note.ID).Error; err != nil {
		t.Fatalf("note vanished: %v", err)
	}
	if reloaded.Title != "Bob's note" {
		t.Errorf("cross-owner write leaked through: %q", reloaded.Title)
	}
}

func TestNotes_MalformedIDTreatedAsNotFound(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "alice@example.com", models.RoleRegular)

	w := env.request(t, http.MethodGet, "/api/v1/notes/not-a-uuid", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestNotes_ListScopedWithSearchAndOrdering(t *testing.T) {
	env := setupTestEnv(t)
	alice, token := env.createUser(t, "alice@example.com", models.RoleRegular)
	bob, _ := env.createUser(t, "bob@example.com", models.RoleRegular)
	env.createNote(t, alice.ID, "beta ideas", "x")
	env.createNote(t, alice.ID, "alpha ideas", "x")
	env.createNote(t, bob.ID, "gamma ideas", "x")

	w := env.request(t, http.MethodGet, "/api/v1/notes?search=ideas&ordering=title", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	notes := decodeNotes(t, w)
	if len(notes) != 2 {
		t.Fatalf("expected alice's 2 notes, got %d", len(notes))
	}
	if notes[0].Title != "alpha ideas" || notes[1].Title != "beta ideas" {
		t.Errorf("wrong order: %q, %q", notes[0].Title, notes[1].Title)
	}
}

func TestNotes_UnknownOrderingRejected(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "alice@example.com", models.RoleRegular)

	w := env.request(t, http.MethodGet, "/api/v1/notes?ordering=password_hash", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestNotes_UpdateIgnoresOwnerField(t *testing.T) {
	env := setupTestEnv(t)
	alice, token := env.createUser(t, "alice@example.com", models.RoleRegular)
	bob, _ := env.createUser(t, "bob@example.com", models.RoleRegular)
	note := env.createNote(t, alice.ID, "mine", "content")

	w := env.request(t, http.MethodPut, "/api/v1/notes/"+note.ID.String(), token, gin.H{
		"title":    "renamed",
		"content":  "content",
		"owner_id": bob.ID.String(),
		"owner":    gin.H{"id": bob.ID.String()},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	updated := decodeNote(t, w)
	if updated.OwnerID != alice.ID {
		t.Errorf("owner changed to %s", updated.OwnerID)
	}
	if updated.Title != "renamed" {
		t.Errorf("title not updated: %q", updated.Title)
	}
}

func TestNotes_DeleteThenGone(t *testing.T) {
	env := setupTestEnv(t)
	alice, token := env.createUser(t, "alice@example.com", models.RoleRegular)
	note := env.createNote(t, alice.ID, "t", "c")

	w := env.request(t, http.MethodDelete, "/api/v1/notes/"+note.ID.String(), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = env.request(t, http.MethodGet, "/api/v1/notes/"+note.ID.String(), token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestLogin_EndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "alice@example.com", models.RoleRegular)

	w := env.request(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}

	w = env.request(t, http.MethodGet, "/api/v1/auth/me", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", w.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "alice@example.com", models.RoleRegular)

	w := env.request(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
