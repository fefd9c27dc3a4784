// Package blob persists the current collection as a single compressed object, on local disk or
// in an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sheetview/domain/sheet"
	apperrors "sheetview/internal/errors"
	"sheetview/internal/snapshot"
	"sheetview/ports"
)

// ErrNotFound is returned when a key has no object
var ErrNotFound = errors.New("blob not found")

// StorageProvider names a blob backend
type StorageProvider string

const (
	StorageLocal StorageProvider = "local"
	StorageS3    StorageProvider = "s3"
)

// BlobStore is the minimal object API the snapshot store needs.
// It lets the same store run against local disk and MinIO/S3.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Provider() StorageProvider
}

// SnapshotStore implements ports.RecordStore on top of a BlobStore
type SnapshotStore struct {
	blobs BlobStore
	key   string
}

var _ ports.RecordStore = (*SnapshotStore)(nil)

// NewSnapshotStore stores the collection under ports.SnapshotKey
func NewSnapshotStore(blobs BlobStore) *SnapshotStore {
	return &SnapshotStore{blobs: blobs, key: ports.SnapshotKey + ".json.zst"}
}

// Save overwrites the stored snapshot
func (s *SnapshotStore) Save(ctx context.Context, c *sheet.Collection) error {
	data, err := snapshot.Encode(c)
	if err != nil {
		return apperrors.PersistenceError("save", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		return apperrors.PersistenceError("save", err)
	}
	log.Printf("[BlobStore] saved %d records to %s (%s, %d bytes)", c.Len(), s.key, s.blobs.Provider(), len(data))
	return nil
}

// Load returns the stored snapshot, or nil when there is none
func (s *SnapshotStore) Load(ctx context.Context) (*sheet.Collection, error) {
	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.PersistenceError("load", err)
	}
	c, err := snapshot.Decode(data)
	if err != nil {
		return nil, apperrors.PersistenceError("load", fmt.Errorf("%s: %w", s.key, err))
	}
	return c, nil
}

// Clear deletes the stored snapshot
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.blobs.Delete(ctx, s.key); err != nil {
		return apperrors.PersistenceError("clear", err)
	}
	return nil
}
