package ports

import (
	"context"

	"sheetview/domain/sheet"
)

// SnapshotKey is the single key the current collection is stored under
const SnapshotKey = "currentData"

// RecordStore persists the most recently loaded collection so it survives a restart
type RecordStore interface {
	// Save overwrites the stored collection
	Save(ctx context.Context, c *sheet.Collection) error
	// Load returns the stored collection, or nil when nothing was saved
	Load(ctx context.Context) (*sheet.Collection, error)
	// Clear removes the stored collection. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
