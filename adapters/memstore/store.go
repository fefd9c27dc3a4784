// Package memstore is a process-local RecordStore for tests and the CLI
package memstore

import (
	"context"
	"sync"

	"sheetview/domain/sheet"
	"sheetview/ports"
)

// Store keeps a deep copy of the last saved collection
type Store struct {
	mu   sync.RWMutex
	data *sheet.Collection
}

var _ ports.RecordStore = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Save(ctx context.Context, c *sheet.Collection) error {
	if c == nil {
		c = &sheet.Collection{Records: []sheet.Record{}}
	}
	cp := c.Clone()
	s.mu.Lock()
	s.data = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(ctx context.Context) (*sheet.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone(), nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
