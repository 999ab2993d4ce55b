package repository

import (
	"context"
	"errors"
	"time"

	"notu/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// State is one of the three mutually exclusive visibility states a note
// derives from its lifecycle flags.
type State string

const (
	StateActive   State = "active"
	StateArchived State = "archived"
	StateTrashed  State = "trashed"
)

// StateFromFlags maps the list query flags to a visibility state. The
// deleted flag wins: a trashed note's archived flag is irrelevant.
func StateFromFlags(archived, deleted bool) State {
	switch {
	case deleted:
		return StateTrashed
	case archived:
		return StateArchived
	default:
		return StateActive
	}
}

// NoteUpdate carries the replacement values for an edit. Nil fields were
// omitted by the caller and are left unchanged, which keeps "field omitted"
// and "field explicitly cleared" distinguishable.
type NoteUpdate struct {
	Title      *string
	Content    *string
	Color      *string
	Images     *[]models.Image
	Date       *time.Time
	IsPinned   *bool
	IsArchived *bool
}

type NoteRepository struct {
	col *mongo.Collection
}

func NewNoteRepository(db *mongo.Database) *NoteRepository {
	return &NoteRepository{col: db.Collection("notes")}
}

func (r *NoteRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isDeleted", Value: 1}, {Key: "isArchived", Value: 1}},
	})
	return err
}

func stateFilter(ownerID string, state State) bson.M {
	filter := bson.M{"userId": ownerID}
	switch state {
	case StateTrashed:
		filter["isDeleted"] = true
	case StateArchived:
		filter["isDeleted"] = false
		filter["isArchived"] = true
	default:
		filter["isDeleted"] = false
		filter["isArchived"] = false
	}
	return filter
}

// List returns the owner's notes in the given state, pinned notes first,
// then newest display date first.
func (r *NoteRepository) List(ctx context.Context, ownerID string, state State) ([]models.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "isPinned", Value: -1}, {Key: "date", Value: -1}})
	cursor, err := r.col.Find(ctx, stateFilter(ownerID, state), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notes []models.Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = make([]models.Note, 0)
	}
	return notes, nil
}

// Search matches title or content case-insensitively, excluding trashed
// notes, newest first.
func (r *NoteRepository) Search(ctx context.Context, ownerID, query string) ([]models.Note, error) {
	pattern := bson.M{"$regex": query, "$options": "i"}
	filter := bson.M{
		"userId":    ownerID,
		"isDeleted": false,
		"$or":       []bson.M{{"title": pattern}, {"content": pattern}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "isPinned", Value: -1}, {Key: "date", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notes []models.Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = make([]models.Note, 0)
	}
	return notes, nil
}

func ownerFilter(ownerID, id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return bson.M{"_id": oid, "userId": ownerID}, nil
}

// Get returns the note only when it exists and belongs to ownerID. A note
// owned by someone else comes back as ErrNotFound, never as forbidden.
func (r *NoteRepository) Get(ctx context.Context, ownerID, id string) (*models.Note, error) {
	filter, err := ownerFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	var note models.Note
	if err := r.col.FindOne(ctx, filter).Decode(&note); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepository) Insert(ctx context.Context, note *models.Note) error {
	res, err := r.col.InsertOne(ctx, note)
	if err != nil {
		return err
	}
	note.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Replace applies the provided fields in a single atomic document update and
// returns the post-update note.
func (r *NoteRepository) Replace(ctx context.Context, ownerID, id string, upd NoteUpdate) (*models.Note, error) {
	filter, err := ownerFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Color != nil {
		set["color"] = *upd.Color
	}
	if upd.Images != nil {
		set["images"] = *upd.Images
	}
	if upd.Date != nil {
		set["date"] = *upd.Date
	}
	if upd.IsPinned != nil {
		set["isPinned"] = *upd.IsPinned
	}
	if upd.IsArchived != nil {
		set["isArchived"] = *upd.IsArchived
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var note models.Note
	err = r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&note)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// MarkTrashed flips a not-yet-trashed note into the trash and stamps
// deletedAt. ErrNotFound covers the already-trashed case too; the service
// distinguishes it to keep Trash idempotent.
func (r *NoteRepository) MarkTrashed(ctx context.Context, ownerID, id string) (*models.Note, error) {
	filter, err := ownerFilter(ownerID, id)
	if err != nil {
		return nil, err
	}
	filter["isDeleted"] = false

	now := time.Now()
	update := bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": now, "updatedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var note models.Note
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&note)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// Restore brings a trashed note back, but only a note that is currently
// trashed; restoring anything else is ErrNotFound. The archived flag is
// cleared as well: a restored note always lands active, whatever its
// pre-trash state was.
func (r *NoteRepository) Restore(ctx context.Context, ownerID, id string) (*models.Note, error) {
	filter, err := ownerFilter(ownerID, id)
	if err != nil {
		return nil, err
	}
	filter["isDeleted"] = true

	update := bson.M{
		"$set":   bson.M{"isDeleted": false, "isArchived": false, "updatedAt": time.Now()},
		"$unset": bson.M{"deletedAt": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var note models.Note
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&note)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepository) Delete(ctx context.Context, ownerID, id string) error {
	filter, err := ownerFilter(ownerID, id)
	if err != nil {
		return err
	}

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
