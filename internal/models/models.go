package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	Name         string             `bson:"name" json:"name"`
	RefreshToken string             `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Image is an attachment embedded in a Note. ID is assigned by the client
// (or generated server-side on upload) and stays stable across edits so the
// service can diff attachment sets. PublicID is the object store key needed
// to delete the remote object; it is distinct from the public URL.
type Image struct {
	ID       string `bson:"id" json:"id"`
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

// Note visibility is derived from two flags: active (both false), archived
// (isArchived set, isDeleted clear), trashed (isDeleted set, archived flag
// ignored). isPinned is orthogonal and valid in any state.
type Note struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Content    string             `bson:"content" json:"content"`
	Color      string             `bson:"color" json:"color"`
	Images     []Image            `bson:"images" json:"images"`
	Date       time.Time          `bson:"date" json:"date"`
	UserID     string             `bson:"userId" json:"userId"`
	IsPinned   bool               `bson:"isPinned" json:"isPinned"`
	IsArchived bool               `bson:"isArchived" json:"isArchived"`
	IsDeleted  bool               `bson:"isDeleted" json:"isDeleted"`
	DeletedAt  *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
