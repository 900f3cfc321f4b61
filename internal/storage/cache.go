package storage

import (
	"context"
	"fmt"

	"vaultScope/internal/model"
)

type cacheKey struct {
	kind model.Kind
	id   string
}

// Cache buffers entity writes in memory until Flush. Reads see pending writes.
// Loaded values are decoded from bytes so callers never share a struct.
type Cache struct {
	backend BatchStore
	entries map[cacheKey][]byte
	dirty   []cacheKey
	isDirty map[cacheKey]bool
}

func NewCache(backend BatchStore) *Cache {
	return &Cache{
		backend: backend,
		entries: make(map[cacheKey][]byte),
		isDirty: make(map[cacheKey]bool),
	}
}

func (c *Cache) Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	key := cacheKey{kind: kind, id: id}
	if data, ok := c.entries[key]; ok {
		return true, DecodeRecord(data, dst)
	}

	found, err := c.backend.Load(ctx, kind, id, dst)
	if err != nil || !found {
		return found, err
	}
	rec, err := EncodeRecord(dst)
	if err != nil {
		return false, err
	}
	c.entries[key] = rec.Data
	return true, nil
}

func (c *Cache) Save(_ context.Context, e model.Entity) error {
	rec, err := EncodeRecord(e)
	if err != nil {
		return err
	}
	key := cacheKey{kind: rec.Kind, id: rec.ID}
	c.entries[key] = rec.Data
	if !c.isDirty[key] {
		c.isDirty[key] = true
		c.dirty = append(c.dirty, key)
	}
	return nil
}

// LoadCursor reads a committed cursor from the backend.
func (c *Cache) LoadCursor(ctx context.Context, name string) (Cursor, bool, error) {
	return c.backend.LoadCursor(ctx, name)
}

// Pending returns the number of entities written since the last flush.
func (c *Cache) Pending() int {
	return len(c.dirty)
}

// Flush commits every pending write and the cursor in one backend call.
func (c *Cache) Flush(ctx context.Context, cursor *Cursor) error {
	records := make([]Record, 0, len(c.dirty))
	for _, key := range c.dirty {
		records = append(records, Record{Kind: key.kind, ID: key.id, Data: c.entries[key]})
	}
	if err := c.backend.Commit(ctx, records, cursor); err != nil {
		return fmt.Errorf("commit %d records: %w", len(records), err)
	}
	c.dirty = c.dirty[:0]
	c.isDirty = make(map[cacheKey]bool)
	return nil
}

// Reset drops all cached reads and pending writes.
func (c *Cache) Reset() {
	c.entries = make(map[cacheKey][]byte)
	c.dirty = nil
	c.isDirty = make(map[cacheKey]bool)
}
