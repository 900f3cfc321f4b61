package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

const upsertEntitySQL = `
	INSERT INTO entities (kind, id, data, created_at, updated_at)
	VALUES ($1, $2, $3, now(), now())
	ON CONFLICT (kind, id)
	DO UPDATE SET data = EXCLUDED.data, updated_at = now()
`

const upsertStateSQL = `
	INSERT INTO indexer_state (name, last_processed_block, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (name) DO UPDATE
	SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
`

// Store persists entities as JSONB rows keyed by (kind, id).
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ApplyMigrations executes every .sql file in dir in name order.
func (s *Store) ApplyMigrations(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return files, nil
}

func (s *Store) Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE kind=$1 AND id=$2`, string(kind), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, storage.DecodeRecord(data, dst)
}

func (s *Store) Save(ctx context.Context, e model.Entity) error {
	rec, err := storage.EncodeRecord(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertEntitySQL, string(rec.Kind), rec.ID, rec.Data)
	return err
}

// Commit upserts records and the cursor inside one transaction.
func (s *Store) Commit(ctx context.Context, records []storage.Record, cursor *storage.Cursor) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(records) > 0 {
		batch := &pgx.Batch{}
		for _, rec := range records {
			if rec.Kind == "" || rec.ID == "" {
				return storage.ErrInvalidInput
			}
			batch.Queue(upsertEntitySQL, string(rec.Kind), rec.ID, rec.Data)
		}

		br := tx.SendBatch(ctx, batch)
		for range records {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	if cursor != nil {
		if cursor.Name == "" {
			return fmt.Errorf("state name required")
		}
		if _, err := tx.Exec(ctx, upsertStateSQL, cursor.Name, int64(cursor.Block)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// LoadCursor returns last_processed_block for a name.
func (s *Store) LoadCursor(ctx context.Context, name string) (storage.Cursor, bool, error) {
	if name == "" {
		return storage.Cursor{}, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Cursor{}, false, nil
		}
		return storage.Cursor{}, false, err
	}
	return storage.Cursor{Name: name, Block: uint64(block)}, true, nil
}

func (s *Store) ListIDs(ctx context.Context, kind model.Kind) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM entities WHERE kind=$1 ORDER BY id`, string(kind))
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return ids, nil
}
