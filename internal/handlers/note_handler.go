package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"notu/backend/internal/middleware"
	"notu/backend/internal/repository"
	"notu/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError maps service/repository failures onto the JSON error envelope.
// Not-found and not-owned are deliberately the same response.
func writeError(c *gin.Context, err error, fallback string) {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	default:
		log.Printf("[NoteHandler] %s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// ListNotes returns the caller's notes in one visibility state, selected by
// the archived/deleted query flags.
func ListNotes(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c.Request.Context())
		state := repository.StateFromFlags(c.Query("archived") == "true", c.Query("deleted") == "true")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		notes, err := svc.List(ctx, userID, state)
		if err != nil {
			writeError(c, err, "Failed to fetch notes")
			return
		}
		c.JSON(http.StatusOK, notes)
	}
}

// SearchNotes matches title or content, excluding trashed notes.
func SearchNotes(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusOK, []gin.H{})
			return
		}
		userID := middleware.UserID(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		notes, err := svc.Search(ctx, userID, query)
		if err != nil {
			writeError(c, err, "Failed to search notes")
			return
		}
		c.JSON(http.StatusOK, notes)
	}
}

func GetNote(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		note, err := svc.Get(ctx, userID, c.Param("id"))
		if err != nil {
			writeError(c, err, "Failed to fetch note")
			return
		}
		c.JSON(http.StatusOK, note)
	}
}

type CreateNotePayload struct {
	Title    string               `json:"title"`
	Content  string               `json:"content"`
	Color    string               `json:"color"`
	Images   []service.ImageInput `json:"images"`
	IsPinned bool                 `json:"isPinned"`
}

func CreateNote(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload CreateNotePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
			return
		}
		userID := middleware.UserID(c.Request.Context())

		// Longer deadline: creates may push several inline payloads to the
		// object store one at a time.
		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		note, err := svc.Create(ctx, userID, service.CreateNoteInput{
			Title:    payload.Title,
			Content:  payload.Content,
			Color:    payload.Color,
			Images:   payload.Images,
			IsPinned: payload.IsPinned,
		})
		if err != nil {
			writeError(c, err, "Failed to create note")
			return
		}
		c.JSON(http.StatusCreated, note)
	}
}

type UpdateNotePayload struct {
	Title      *string               `json:"title"`
	Content    *string               `json:"content"`
	Color      *string               `json:"color"`
	Images     *[]service.ImageInput `json:"images"`
	Date       *time.Time            `json:"date"`
	IsPinned   *bool                 `json:"isPinned"`
	IsArchived *bool                 `json:"isArchived"`
}

func UpdateNote(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload UpdateNotePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
			return
		}
		userID := middleware.UserID(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		note, err := svc.Update(ctx, userID, c.Param("id"), service.UpdateNoteInput{
			Title:      payload.Title,
			Content:    payload.Content,
			Color:      payload.Color,
			Images:     payload.Images,
			Date:       payload.Date,
			IsPinned:   payload.IsPinned,
			IsArchived: payload.IsArchived,
		})
		if err != nil {
			writeError(c, err, "Failed to update note")
			return
		}
		c.JSON(http.StatusOK, note)
	}
}

// DeleteNote soft-deletes by default; ?permanent=true purges the note and
// its remote objects for good.
func DeleteNote(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		if c.Query("permanent") == "true" {
			if err := svc.PurgeOne(ctx, userID, c.Param("id")); err != nil {
				writeError(c, err, "Failed to delete note")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Note deleted successfully"})
			return
		}

		note, err := svc.Trash(ctx, userID, c.Param("id"))
		if err != nil {
			writeError(c, err, "Failed to delete note")
			return
		}
		c.JSON(http.StatusOK, note)
	}
}

func RestoreNote(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		note, err := svc.Restore(ctx, userID, c.Param("id"))
		if err != nil {
			writeError(c, err, "Failed to restore note")
			return
		}
		c.JSON(http.StatusOK, note)
	}
}

func EmptyTrash(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		purged, err := svc.EmptyTrash(ctx, userID)
		if err != nil {
			writeError(c, err, "Failed to empty trash")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Trash emptied", "purged": purged})
	}
}

type UploadPayload struct {
	Image string `json:"image" binding:"required"`
}

// UploadImage takes an inline base64 data-URI payload and returns the image
// descriptor for the client to embed in a later create or update.
func UploadImage(svc *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload UploadPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		image, err := svc.UploadInline(ctx, payload.Image)
		if err != nil {
			writeError(c, err, "Failed to upload image")
			return
		}
		c.JSON(http.StatusOK, image)
	}
}

// UploadImageFile takes a raw multipart file upload.
func UploadImageFile(svc *service.NoteService, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing form data"})
			return
		}
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
			return
		}
		defer file.Close()

		if header.Size > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		image, err := svc.UploadStandalone(ctx, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(c, err, "Failed to upload image")
			return
		}
		c.JSON(http.StatusOK, image)
	}
}
