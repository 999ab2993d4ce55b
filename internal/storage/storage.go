package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore adapts a MinIO bucket as the remote home of note attachments.
// Put returns the object key ("publicId") needed to delete the object later,
// plus the public URL clients embed in notes.
type ImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

func NewImageStore(opts Options) (*ImageStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MinIO client: %w", err)
	}

	store := &ImageStore{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: opts.PublicURL,
	}
	log.Printf("[ImageStore] Initialized (endpoint: %s, bucket: %s)", opts.Endpoint, opts.Bucket)
	return store, nil
}

// EnsureBucket creates the bucket if it does not exist yet. Called once at
// startup, not per request.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("could not check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("could not create bucket %s: %w", s.bucket, err)
	}
	log.Printf("[ImageStore] Created bucket %s", s.bucket)
	return nil
}

// Upload stores the payload under a fresh object key and returns the public
// URL and the key. It never returns an empty result without an error.
func (s *ImageStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (string, string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectName := fmt.Sprintf("notu/%s_%s", time.Now().Format("20060102150405"), uuid.NewString())

	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", "", fmt.Errorf("could not upload object: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName)
	return url, objectName, nil
}

// Delete removes the object behind publicID. Deleting an object that is
// already gone counts as success so repeated cleanup attempts stay safe.
func (s *ImageStore) Delete(ctx context.Context, publicID string) error {
	err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("could not delete object %s: %w", publicID, err)
	}
	return nil
}
