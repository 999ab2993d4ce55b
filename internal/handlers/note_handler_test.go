package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notu/backend/internal/middleware"
	"notu/backend/internal/models"
	"notu/backend/internal/repository"
	"notu/backend/internal/service"
	"notu/backend/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memNoteStore is a minimal in-memory NoteStore for driving the HTTP layer.
type memNoteStore struct {
	notes map[string]*models.Note
}

func (m *memNoteStore) owned(ownerID, id string) *models.Note {
	n, ok := m.notes[id]
	if !ok || n.UserID != ownerID {
		return nil
	}
	return n
}

func (m *memNoteStore) List(_ context.Context, ownerID string, state repository.State) ([]models.Note, error) {
	out := make([]models.Note, 0)
	for _, n := range m.notes {
		if n.UserID != ownerID {
			continue
		}
		switch state {
		case repository.StateTrashed:
			if !n.IsDeleted {
				continue
			}
		case repository.StateArchived:
			if n.IsDeleted || !n.IsArchived {
				continue
			}
		default:
			if n.IsDeleted || n.IsArchived {
				continue
			}
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *memNoteStore) Search(_ context.Context, ownerID, _ string) ([]models.Note, error) {
	return m.List(context.Background(), ownerID, repository.StateActive)
}

func (m *memNoteStore) Get(_ context.Context, ownerID, id string) (*models.Note, error) {
	n := m.owned(ownerID, id)
	if n == nil {
		return nil, repository.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (m *memNoteStore) Insert(_ context.Context, note *models.Note) error {
	note.ID = primitive.NewObjectID()
	stored := *note
	m.notes[note.ID.Hex()] = &stored
	return nil
}

func (m *memNoteStore) Replace(_ context.Context, ownerID, id string, upd repository.NoteUpdate) (*models.Note, error) {
	n := m.owned(ownerID, id)
	if n == nil {
		return nil, repository.ErrNotFound
	}
	if upd.Title != nil {
		n.Title = *upd.Title
	}
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.Color != nil {
		n.Color = *upd.Color
	}
	if upd.Images != nil {
		n.Images = *upd.Images
	}
	if upd.Date != nil {
		n.Date = *upd.Date
	}
	if upd.IsPinned != nil {
		n.IsPinned = *upd.IsPinned
	}
	if upd.IsArchived != nil {
		n.IsArchived = *upd.IsArchived
	}
	copied := *n
	return &copied, nil
}

func (m *memNoteStore) MarkTrashed(_ context.Context, ownerID, id string) (*models.Note, error) {
	n := m.owned(ownerID, id)
	if n == nil || n.IsDeleted {
		return nil, repository.ErrNotFound
	}
	now := time.Now()
	n.IsDeleted = true
	n.DeletedAt = &now
	copied := *n
	return &copied, nil
}

func (m *memNoteStore) Restore(_ context.Context, ownerID, id string) (*models.Note, error) {
	n := m.owned(ownerID, id)
	if n == nil || !n.IsDeleted {
		return nil, repository.ErrNotFound
	}
	n.IsDeleted = false
	n.IsArchived = false
	n.DeletedAt = nil
	copied := *n
	return &copied, nil
}

func (m *memNoteStore) Delete(_ context.Context, ownerID, id string) error {
	if m.owned(ownerID, id) == nil {
		return repository.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

type memImageStore struct {
	uploads int
	deleted []string
}

func (m *memImageStore) Upload(_ context.Context, r io.Reader, _ int64, _ string) (string, string, error) {
	io.Copy(io.Discard, r)
	m.uploads++
	publicID := fmt.Sprintf("notu/obj-%d", m.uploads)
	return "https://images.example.com/" + publicID, publicID, nil
}

func (m *memImageStore) Delete(_ context.Context, publicID string) error {
	m.deleted = append(m.deleted, publicID)
	return nil
}

type testEnv struct {
	router *gin.Engine
	store  *memNoteStore
	images *memImageStore
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memNoteStore{notes: map[string]*models.Note{}}
	images := &memImageStore{}
	svc := service.NewNoteService(store, images, nil)
	tokens := token.NewService("access", "refresh", time.Minute, time.Hour)

	signed, err := tokens.IssueAccessToken("user-1")
	require.NoError(t, err)

	router := gin.New()
	notes := router.Group("/api/notes").Use(middleware.AuthMiddleware(tokens))
	{
		notes.GET("", ListNotes(svc))
		notes.POST("", CreateNote(svc))
		notes.GET("/:id", GetNote(svc))
		notes.PUT("/:id", UpdateNote(svc))
		notes.DELETE("/:id", DeleteNote(svc))
		notes.POST("/:id/restore", RestoreNote(svc))
		notes.DELETE("/trash/empty", EmptyTrash(svc))
		notes.POST("/upload", UploadImage(svc))
	}

	return &testEnv{router: router, store: store, images: images, token: signed}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateNoteScenario(t *testing.T) {
	env := newTestEnv(t)
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))

	w := env.do(t, http.MethodPost, "/api/notes", gin.H{
		"title":   "Groceries",
		"content": "milk, eggs",
		"images":  []gin.H{{"id": "img-1", "url": inline}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var note models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &note))
	assert.Equal(t, "Groceries", note.Title)
	assert.False(t, note.IsDeleted)
	assert.False(t, note.IsArchived)
	require.Len(t, note.Images, 1)
	assert.NotEqual(t, inline, note.Images[0].URL)
	assert.NotEmpty(t, note.Images[0].PublicID)
}

func TestUpdateEmptiesImageList(t *testing.T) {
	env := newTestEnv(t)

	id := primitive.NewObjectID()
	env.store.notes[id.Hex()] = &models.Note{
		ID: id, UserID: "user-1", Title: "with image",
		Images: []models.Image{{ID: "a", URL: "u", PublicID: "notu/imgA"}},
	}

	w := env.do(t, http.MethodPut, "/api/notes/"+id.Hex(), gin.H{"images": []gin.H{}})
	require.Equal(t, http.StatusOK, w.Code)

	var note models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &note))
	assert.Empty(t, note.Images)
	assert.Equal(t, []string{"notu/imgA"}, env.images.deleted)
}

func TestSoftDeleteThenListFilters(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/notes", gin.H{"title": "Doomed"})
	require.Equal(t, http.StatusCreated, w.Code)
	var note models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &note))

	// Soft delete: no permanent flag.
	w = env.do(t, http.MethodDelete, "/api/notes/"+note.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var trashed []models.Note
	w = env.do(t, http.MethodGet, "/api/notes?deleted=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trashed))
	require.Len(t, trashed, 1)
	assert.Equal(t, note.ID, trashed[0].ID)

	var active []models.Note
	w = env.do(t, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Empty(t, active)
}

func TestPermanentDeleteRemovesObjects(t *testing.T) {
	env := newTestEnv(t)

	id := primitive.NewObjectID()
	env.store.notes[id.Hex()] = &models.Note{
		ID: id, UserID: "user-1",
		Images: []models.Image{{ID: "a", URL: "u", PublicID: "notu/a"}, {ID: "b", URL: "u", PublicID: "notu/b"}},
	}

	w := env.do(t, http.MethodDelete, "/api/notes/"+id.Hex()+"?permanent=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"notu/a", "notu/b"}, env.images.deleted)
	assert.Empty(t, env.store.notes)
}

func TestRestoreArchivedNoteIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	id := primitive.NewObjectID()
	env.store.notes[id.Hex()] = &models.Note{ID: id, UserID: "user-1", IsArchived: true}

	w := env.do(t, http.MethodPost, "/api/notes/"+id.Hex()+"/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Note not found")
}

func TestForeignNoteReadsAsNotFound(t *testing.T) {
	env := newTestEnv(t)

	id := primitive.NewObjectID()
	env.store.notes[id.Hex()] = &models.Note{ID: id, UserID: "someone-else", Title: "secret"}

	w := env.do(t, http.MethodGet, "/api/notes/"+id.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmptyTrashEndpoint(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	for i := 0; i < 2; i++ {
		id := primitive.NewObjectID()
		env.store.notes[id.Hex()] = &models.Note{ID: id, UserID: "user-1", IsDeleted: true, DeletedAt: &now}
	}
	keep := primitive.NewObjectID()
	env.store.notes[keep.Hex()] = &models.Note{ID: keep, UserID: "user-1"}

	w := env.do(t, http.MethodDelete, "/api/notes/trash/empty", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"purged":2`)
	assert.Len(t, env.store.notes, 1)
}

func TestUploadEndpointReturnsDescriptor(t *testing.T) {
	env := newTestEnv(t)
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("standalone"))

	w := env.do(t, http.MethodPost, "/api/notes/upload", gin.H{"image": inline})
	require.Equal(t, http.StatusOK, w.Code)

	var img models.Image
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &img))
	assert.NotEmpty(t, img.ID)
	assert.NotEmpty(t, img.URL)
	assert.NotEmpty(t, img.PublicID)
}

func TestUploadEndpointRejectsNonDataURI(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/notes/upload", gin.H{"image": "https://example.com/x.png"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
