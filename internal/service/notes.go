package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"notu/backend/internal/models"
	"notu/backend/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultTitle = "Tanpa Judul"
	defaultColor = "#E9D5FF"
)

// NoteStore is the durable home of note records. The Mongo implementation
// lives in internal/repository; tests swap in a fake.
type NoteStore interface {
	List(ctx context.Context, ownerID string, state repository.State) ([]models.Note, error)
	Search(ctx context.Context, ownerID, query string) ([]models.Note, error)
	Get(ctx context.Context, ownerID, id string) (*models.Note, error)
	Insert(ctx context.Context, note *models.Note) error
	Replace(ctx context.Context, ownerID, id string, upd repository.NoteUpdate) (*models.Note, error)
	MarkTrashed(ctx context.Context, ownerID, id string) (*models.Note, error)
	Restore(ctx context.Context, ownerID, id string) (*models.Note, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// ImageStore is the external object store holding attachment payloads.
// Upload must fail loudly; Delete of a missing object must succeed.
type ImageStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, contentType string) (url, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

// UploadTracker records standalone uploads until a note claims them. It is
// advisory bookkeeping: failures are logged, never surfaced to the caller.
type UploadTracker interface {
	Track(ctx context.Context, publicID string) error
	Clear(ctx context.Context, publicIDs ...string) error
}

// NoteService is the lifecycle engine: it owns the visibility state machine
// and keeps the repository's image references consistent with the objects
// held in the external store.
type NoteService struct {
	notes   NoteStore
	images  ImageStore
	pending UploadTracker
}

func NewNoteService(notes NoteStore, images ImageStore, pending UploadTracker) *NoteService {
	return &NoteService{notes: notes, images: images, pending: pending}
}

// ImageInput is one caller-supplied attachment entry. A data: URL is an
// inline payload to upload now; anything else is an already-hosted image
// passed through unchanged.
type ImageInput struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type CreateNoteInput struct {
	Title    string
	Content  string
	Color    string
	Images   []ImageInput
	IsPinned bool
}

// UpdateNoteInput uses pointer fields so an omitted field can be told apart
// from an explicitly cleared one. Omitted fields are left unchanged.
type UpdateNoteInput struct {
	Title      *string
	Content    *string
	Color      *string
	Images     *[]ImageInput
	Date       *time.Time
	IsPinned   *bool
	IsArchived *bool
}

func (s *NoteService) List(ctx context.Context, ownerID string, state repository.State) ([]models.Note, error) {
	return s.notes.List(ctx, ownerID, state)
}

func (s *NoteService) Search(ctx context.Context, ownerID, query string) ([]models.Note, error) {
	return s.notes.Search(ctx, ownerID, query)
}

func (s *NoteService) Get(ctx context.Context, ownerID, id string) (*models.Note, error) {
	return s.notes.Get(ctx, ownerID, id)
}

// Create resolves the attachment set and persists a new active note. If any
// upload fails the whole create fails and nothing is persisted; siblings
// uploaded before the failure are not cleaned up here (the pending-upload
// sweep reclaims what it can).
func (s *NoteService) Create(ctx context.Context, ownerID string, in CreateNoteInput) (*models.Note, error) {
	images, err := s.resolveImages(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultTitle
	}
	color := in.Color
	if color == "" {
		color = defaultColor
	}

	now := time.Now()
	note := &models.Note{
		Title:     title,
		Content:   in.Content,
		Color:     color,
		Images:    images,
		Date:      now,
		UserID:    ownerID,
		IsPinned:  in.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.notes.Insert(ctx, note); err != nil {
		log.Printf("[NoteService] Insert failed after %d upload(s); objects left for the sweep: %v", len(images), err)
		return nil, err
	}

	s.clearPending(ctx, images)
	return note, nil
}

// Update loads the note, resolves the new attachment set, deletes the
// remote objects of attachments the new list dropped, then commits every
// provided field in one atomic document update.
func (s *NoteService) Update(ctx context.Context, ownerID, id string, in UpdateNoteInput) (*models.Note, error) {
	existing, err := s.notes.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	upd := repository.NoteUpdate{
		Content:    in.Content,
		Color:      in.Color,
		IsPinned:   in.IsPinned,
		IsArchived: in.IsArchived,
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			title = defaultTitle
		}
		upd.Title = &title
	}

	var resolved []models.Image
	if in.Images != nil {
		resolved, err = s.resolveImages(ctx, *in.Images)
		if err != nil {
			return nil, err
		}

		// Attachments present before but absent (by id) from the new list
		// lose their remote object before the reference is dropped. A
		// failed delete is accepted and logged, not rolled back.
		kept := make(map[string]bool, len(resolved))
		for _, img := range resolved {
			kept[img.ID] = true
		}
		for _, img := range existing.Images {
			if kept[img.ID] || img.PublicID == "" {
				continue
			}
			if err := s.images.Delete(ctx, img.PublicID); err != nil {
				log.Printf("[NoteService] Could not delete removed image %s: %v", img.PublicID, err)
			}
		}
		upd.Images = &resolved
	}

	// An edit always refreshes the display date unless the caller set one.
	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	upd.Date = &date

	note, err := s.notes.Replace(ctx, ownerID, id, upd)
	if err != nil {
		return nil, err
	}

	s.clearPending(ctx, resolved)
	return note, nil
}

// Trash soft-deletes the note. Trashing an already-trashed note is a no-op
// success.
func (s *NoteService) Trash(ctx context.Context, ownerID, id string) (*models.Note, error) {
	note, err := s.notes.MarkTrashed(ctx, ownerID, id)
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// Either the note is gone or it is already trashed.
	existing, getErr := s.notes.Get(ctx, ownerID, id)
	if getErr == nil && existing.IsDeleted {
		return existing, nil
	}
	return nil, repository.ErrNotFound
}

// Restore brings a trashed note back to the active state. It is not a
// generic undelete: a note that is not currently trashed is ErrNotFound.
func (s *NoteService) Restore(ctx context.Context, ownerID, id string) (*models.Note, error) {
	return s.notes.Restore(ctx, ownerID, id)
}

// PurgeOne permanently deletes the note and every attached remote object.
// Allowed from any state. Object deletes are best-effort; the record goes
// regardless.
func (s *NoteService) PurgeOne(ctx context.Context, ownerID, id string) error {
	note, err := s.notes.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	s.deleteImages(ctx, note.Images)
	return s.notes.Delete(ctx, ownerID, id)
}

// EmptyTrash purges every trashed note for the owner. Individual failures
// do not stop the batch; it returns how many note records were removed.
func (s *NoteService) EmptyTrash(ctx context.Context, ownerID string) (int, error) {
	trashed, err := s.notes.List(ctx, ownerID, repository.StateTrashed)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, note := range trashed {
		s.deleteImages(ctx, note.Images)
		if err := s.notes.Delete(ctx, ownerID, note.ID.Hex()); err != nil {
			log.Printf("[NoteService] Could not delete trashed note %s: %v", note.ID.Hex(), err)
			continue
		}
		purged++
	}
	return purged, nil
}

// UploadStandalone stores a single image that is not yet attached to any
// note and returns the descriptor the client embeds in a later create or
// update call.
func (s *NoteService) UploadStandalone(ctx context.Context, r io.Reader, size int64, contentType string) (*models.Image, error) {
	url, publicID, err := s.images.Upload(ctx, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if s.pending != nil {
		if err := s.pending.Track(ctx, publicID); err != nil {
			log.Printf("[NoteService] Could not track pending upload %s: %v", publicID, err)
		}
	}

	return &models.Image{ID: uuid.NewString(), URL: url, PublicID: publicID}, nil
}

// UploadInline uploads a base64 data-URI payload, for the body-based upload
// endpoint.
func (s *NoteService) UploadInline(ctx context.Context, dataURI string) (*models.Image, error) {
	contentType, data, err := decodeDataURI(dataURI)
	if err != nil {
		return nil, err
	}
	return s.UploadStandalone(ctx, bytes.NewReader(data), int64(len(data)), contentType)
}

// resolveImages classifies each entry by payload shape: inline data URIs
// are uploaded now, already-hosted entries pass through unchanged. Caller
// order is preserved and uploads run one at a time to keep the remote store
// from being hammered by a single request.
func (s *NoteService) resolveImages(ctx context.Context, inputs []ImageInput) ([]models.Image, error) {
	images := make([]models.Image, 0, len(inputs))
	for _, in := range inputs {
		if !strings.HasPrefix(in.URL, "data:") {
			if in.URL == "" {
				return nil, validationf("image entry missing url")
			}
			id := in.ID
			if id == "" {
				id = uuid.NewString()
			}
			images = append(images, models.Image{ID: id, URL: in.URL, PublicID: in.PublicID})
			continue
		}

		contentType, data, err := decodeDataURI(in.URL)
		if err != nil {
			return nil, err
		}
		url, publicID, err := s.images.Upload(ctx, bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		images = append(images, models.Image{ID: id, URL: url, PublicID: publicID})
	}
	return images, nil
}

func (s *NoteService) deleteImages(ctx context.Context, images []models.Image) {
	for _, img := range images {
		if img.PublicID == "" {
			continue
		}
		if err := s.images.Delete(ctx, img.PublicID); err != nil {
			log.Printf("[NoteService] Could not delete image %s: %v", img.PublicID, err)
		}
	}
}

func (s *NoteService) clearPending(ctx context.Context, images []models.Image) {
	if s.pending == nil || len(images) == 0 {
		return
	}
	ids := make([]string, 0, len(images))
	for _, img := range images {
		if img.PublicID != "" {
			ids = append(ids, img.PublicID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := s.pending.Clear(ctx, ids...); err != nil {
		log.Printf("[NoteService] Could not clear pending uploads: %v", err)
	}
}
