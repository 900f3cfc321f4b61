package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vaultScope/internal/model"
)

// ErrInvalidInput is returned for entities without a kind or key.
var ErrInvalidInput = errors.New("invalid input")

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

// EntityStore loads and saves entities by kind and key.
type EntityStore interface {
	// Load decodes the stored entity into dst and reports whether it existed.
	Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error)
	Save(ctx context.Context, e model.Entity) error
}

// Record is an encoded entity.
type Record struct {
	Kind model.Kind
	ID   string
	Data []byte
}

// Cursor is the last fully committed block of a named run.
type Cursor struct {
	Name  string
	Block uint64
}

// BatchStore is an EntityStore that can commit many records and a cursor atomically.
type BatchStore interface {
	EntityStore
	Commit(ctx context.Context, records []Record, cursor *Cursor) error
	LoadCursor(ctx context.Context, name string) (Cursor, bool, error)
	ListIDs(ctx context.Context, kind model.Kind) ([]string, error)
}

// EncodeRecord serializes an entity.
func EncodeRecord(e model.Entity) (Record, error) {
	if e == nil || e.EntityKind() == "" || e.EntityID() == "" {
		return Record{}, ErrInvalidInput
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return Record{Kind: e.EntityKind(), ID: e.EntityID(), Data: data}, nil
}

// DecodeRecord deserializes stored entity data into dst.
func DecodeRecord(data []byte, dst model.Entity) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", dst.EntityKind(), err)
	}
	return nil
}
