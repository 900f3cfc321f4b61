package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/contracts"
	"vaultScope/internal/mapping"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// replayFlushEvents is how many handled events a replay buffers before it
// commits at the next block boundary.
const replayFlushEvents = 5000

// ReplayStats counts the outcome of a replay.
type ReplayStats struct {
	Total     int
	Handled   int
	Skipped   int
	Failed    int
	LastBlock uint64
}

// Replayer applies an archived LogRecord JSONL to the entity store in file order.
type Replayer struct {
	decoder    *contracts.Decoder
	handlers   *mapping.Handlers
	cache      *storage.Cache
	cursorName string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewReplayer(decoder *contracts.Decoder, handlers *mapping.Handlers, cache *storage.Cache, cursorName string, logger *zap.Logger, m *metrics.Metrics) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		decoder:    decoder,
		handlers:   handlers,
		cache:      cache,
		cursorName: cursorName,
		logger:     logger,
		metrics:    m,
	}
}

// Run reads records from in and reports every undecodable line to onError.
// Entities are committed at block boundaries and once more at the end.
// Records at or below the committed cursor block are skipped, so replaying
// the same archive twice applies it once. Records that do not advance past
// the last one seen, as left by a batch archived twice, are skipped too.
func (r *Replayer) Run(ctx context.Context, in io.Reader, onError func(model.DecodeError) error) (ReplayStats, error) {
	var stats ReplayStats
	var resumeAfter uint64
	if r.cursorName != "" {
		cursor, ok, err := r.cache.LoadCursor(ctx, r.cursorName)
		if err != nil {
			return stats, fmt.Errorf("load cursor: %w", err)
		}
		if ok {
			resumeAfter = cursor.Block
			r.logger.Info("replay resume", zap.Uint64("after_block", resumeAfter))
		}
	}

	var last *model.LogRecord
	sinceFlush := 0
	batchStart := time.Now()
	fail := func(decodeErr model.DecodeError) error {
		stats.Failed++
		r.metrics.DecodeError(decodeErr.Stage)
		if onError == nil {
			return nil
		}
		return onError(decodeErr)
	}

	err := storage.ScanLines(in, func(line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fail(model.DecodeError{Stage: model.StageJSON, Error: err.Error()})
		}
		if len(record.Topics) == 0 {
			return fail(model.NewDecodeError(record, model.StageTopics, fmt.Errorf("missing topic0")))
		}
		if record.Removed || !r.decoder.CanDecode(record.Topic0()) ||
			(resumeAfter > 0 && record.BlockNumber <= resumeAfter) ||
			(last != nil && !record.After(*last)) {
			stats.Skipped++
			return nil
		}
		last = &record

		if record.BlockNumber != stats.LastBlock && sinceFlush >= replayFlushEvents {
			if err := r.flush(ctx, stats.LastBlock, batchStart); err != nil {
				return err
			}
			sinceFlush = 0
			batchStart = time.Now()
		}

		event, err := r.decoder.Decode(record)
		if err != nil {
			return fail(model.NewDecodeError(record, model.StageDecode, err))
		}
		applied, err := r.handlers.Dispatch(ctx, event)
		if err != nil {
			return err
		}
		if !applied {
			stats.Skipped++
		} else {
			stats.Handled++
		}
		stats.LastBlock = record.BlockNumber
		sinceFlush++
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := r.flush(ctx, stats.LastBlock, batchStart); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Replayer) flush(ctx context.Context, block uint64, started time.Time) error {
	pending := r.cache.Pending()
	var cursor *storage.Cursor
	if block > 0 && r.cursorName != "" {
		cursor = &storage.Cursor{Name: r.cursorName, Block: block}
	}
	if err := r.cache.Flush(ctx, cursor); err != nil {
		return err
	}
	r.metrics.Committed(pending, block, time.Since(started).Seconds())
	r.logger.Info("replay commit", zap.Int("entities", pending), zap.Uint64("block", block))
	return nil
}
