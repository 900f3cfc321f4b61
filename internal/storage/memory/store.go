package memory

import (
	"context"
	"sort"
	"sync"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Store is an in-memory implementation of storage.BatchStore.
type Store struct {
	mu      sync.RWMutex
	data    map[model.Kind]map[string][]byte
	cursors map[string]uint64
}

func NewStore() *Store {
	return &Store{
		data:    make(map[model.Kind]map[string][]byte),
		cursors: make(map[string]uint64),
	}
}

func (s *Store) Load(_ context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	s.mu.RLock()
	data, ok := s.data[kind][id]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, storage.DecodeRecord(data, dst)
}

func (s *Store) Save(_ context.Context, e model.Entity) error {
	rec, err := storage.EncodeRecord(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.put(rec)
	s.mu.Unlock()
	return nil
}

func (s *Store) Commit(_ context.Context, records []storage.Record, cursor *storage.Cursor) error {
	for _, rec := range records {
		if rec.Kind == "" || rec.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.put(rec)
	}
	if cursor != nil {
		s.cursors[cursor.Name] = cursor.Block
	}
	return nil
}

func (s *Store) LoadCursor(_ context.Context, name string) (storage.Cursor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.cursors[name]
	return storage.Cursor{Name: name, Block: block}, ok, nil
}

// ListIDs returns the keys of every stored entity of a kind, sorted.
func (s *Store) ListIDs(_ context.Context, kind model.Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data[kind]))
	for id := range s.data[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of stored entities of a kind.
func (s *Store) Count(kind model.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[kind])
}

func (s *Store) put(rec storage.Record) {
	byID, ok := s.data[rec.Kind]
	if !ok {
		byID = make(map[string][]byte)
		s.data[rec.Kind] = byID
	}
	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	byID[rec.ID] = data
}
