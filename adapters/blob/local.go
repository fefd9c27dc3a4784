package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBlobStore keeps objects as files under a base directory, using S3-style keys
type LocalBlobStore struct {
	basePath string
}

// NewLocalBlobStore creates the base directory if needed
func NewLocalBlobStore(basePath string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalBlobStore{basePath: basePath}, nil
}

// Provider returns the storage provider type
func (lbs *LocalBlobStore) Provider() StorageProvider {
	return StorageLocal
}

// Put writes the object through a temp file and rename so readers never see a partial write
func (lbs *LocalBlobStore) Put(ctx context.Context, key string, data []byte) error {
	filePath := lbs.keyToPath(key)
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file into place %s: %w", filePath, err)
	}
	return nil
}

// Get reads an object
func (lbs *LocalBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(lbs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object; a missing object is not an error
func (lbs *LocalBlobStore) Delete(ctx context.Context, key string) error {
	filePath := lbs.keyToPath(key)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// Exists checks if an object exists
func (lbs *LocalBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(lbs.keyToPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check file existence: %w", err)
}

// keyToPath converts an S3-style key to a filesystem path
func (lbs *LocalBlobStore) keyToPath(key string) string {
	return filepath.Join(lbs.basePath, filepath.FromSlash(key))
}
