package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"vaultScope/internal/contracts"
	"vaultScope/internal/mapping"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Chain is the subset of the RPC client the runner needs.
type Chain interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	TransactionFrom(ctx context.Context, hash common.Hash) (common.Address, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	ForgetTransactions()
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock     uint64
	ToBlock       uint64
	Confirmations uint64
	// Addresses are watched from the first block: vault, fee contracts,
	// factories and hooks. Pools are added as they register.
	Addresses    []common.Address
	BatchSize    uint64
	CursorName   string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner streams logs from the chain, maps them to entities and commits
// each block range together with the cursor.
type Runner struct {
	cfg      RunConfig
	chain    Chain
	decoder  *contracts.Decoder
	handlers *mapping.Handlers
	store    storage.BatchStore
	cache    *storage.Cache
	archive  storage.Storage
	logger   *zap.Logger
	metrics  *metrics.Metrics

	backoff Backoff
	topics  []common.Hash
	pools   map[common.Address]struct{}
	seen    map[string]struct{}
	chainID uint64
}

// NewRunner builds a Runner. The handlers must write through cache, and
// cache must flush to store. archive may be nil.
func NewRunner(
	cfg RunConfig,
	chainClient Chain,
	decoder *contracts.Decoder,
	handlers *mapping.Handlers,
	store storage.BatchStore,
	cache *storage.Cache,
	archive storage.Storage,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CursorName == "" {
		cfg.CursorName = "default"
	}
	return &Runner{
		cfg:      cfg,
		chain:    chainClient,
		decoder:  decoder,
		handlers: handlers,
		store:    store,
		cache:    cache,
		archive:  archive,
		logger:   logger,
		metrics:  m,
		backoff:  Backoff{Retries: cfg.MaxRetries, Delay: cfg.RetryBackoff},
		pools:    make(map[common.Address]struct{}),
		seen:     make(map[string]struct{}),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.decoder == nil || r.handlers == nil {
		return fmt.Errorf("decoder and handlers are required")
	}
	if r.store == nil || r.cache == nil {
		return fmt.Errorf("store and cache are required")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	r.chainID = chainID.Uint64()
	r.topics = r.decoder.Topics()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		if latest < r.cfg.Confirmations {
			r.logger.Info("nothing to sync", zap.Uint64("latest", latest), zap.Uint64("confirmations", r.cfg.Confirmations))
			return nil
		}
		to = latest - r.cfg.Confirmations
	}

	cursor, ok, err := r.store.LoadCursor(ctx, r.cfg.CursorName)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if ok && cursor.Block >= from {
		from = cursor.Block + 1
		r.logger.Info("resume from cursor", zap.String("cursor", cursor.Name), zap.Uint64("last_committed", cursor.Block), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	if err := r.loadPools(ctx); err != nil {
		return err
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.processRange(ctx, blockRange); err != nil {
			r.cache.Reset()
			clear(r.seen)
			return fmt.Errorf("blocks %d-%d: %w", blockRange.From, blockRange.To, err)
		}
	}

	return nil
}

func (r *Runner) loadPools(ctx context.Context) error {
	ids, err := r.store.ListIDs(ctx, model.KindPool)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	for _, id := range ids {
		if !common.IsHexAddress(id) {
			continue
		}
		r.pools[common.HexToAddress(id)] = struct{}{}
	}
	if len(ids) > 0 {
		r.logger.Info("watching known pools", zap.Int("pools", len(r.pools)))
	}
	return nil
}

func (r *Runner) watched() []common.Address {
	addresses := make([]common.Address, 0, len(r.cfg.Addresses)+len(r.pools))
	addresses = append(addresses, r.cfg.Addresses...)
	for pool := range r.pools {
		addresses = append(addresses, pool)
	}
	return addresses
}

func (r *Runner) processRange(ctx context.Context, blockRange BlockRange) error {
	start := time.Now()
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, r.watched())
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}
	sortLogs(logs)

	ingestedAt := time.Now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	handled := 0
	for i := 0; i < len(logs); i++ {
		log := logs[i]
		if log.Removed || r.isDuplicate(log) {
			continue
		}
		if len(log.Topics) == 0 || !r.decoder.CanDecode(log.Topics[0].Hex()) {
			continue
		}

		ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		from, err := r.txFromWithRetry(ctx, log.TxHash)
		if err != nil {
			return fmt.Errorf("tx sender %s: %w", log.TxHash.Hex(), err)
		}
		record := buildLogRecord(r.chainID, log, ts, from, ingestedAt)
		records = append(records, record)

		event, err := r.decoder.Decode(record)
		if err != nil {
			r.metrics.DecodeError(model.StageDecode)
			r.logger.Warn("decode failed", zap.Error(err), zap.String("tx", record.TxHash), zap.Uint64("log_index", record.LogIndex))
			continue
		}
		applied, err := r.handlers.Dispatch(ctx, event)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}
		handled++

		pool, ok := registeredPool(event)
		if !ok {
			continue
		}
		if _, known := r.pools[pool]; known {
			continue
		}
		r.pools[pool] = struct{}{}
		r.metrics.PoolDiscovered()
		r.logger.Info("pool discovered", zap.String("pool", pool.Hex()), zap.Uint64("block", log.BlockNumber))

		extra, err := r.filterLogsWithRetry(ctx, log.BlockNumber, blockRange.To, []common.Address{pool})
		if err != nil {
			return fmt.Errorf("filter logs for pool %s: %w", pool.Hex(), err)
		}
		logs = mergeAfter(logs, i, extra)
	}

	if r.archive != nil {
		if err := r.archive.PutLogBatch(records); err != nil {
			return fmt.Errorf("archive logs: %w", err)
		}
	}

	pending := r.cache.Pending()
	if err := r.cache.Flush(ctx, &storage.Cursor{Name: r.cfg.CursorName, Block: blockRange.To}); err != nil {
		return err
	}
	r.chain.ForgetTransactions()
	// Batches never overlap, so duplicates only matter within one.
	clear(r.seen)
	r.metrics.Committed(pending, blockRange.To, time.Since(start).Seconds())

	r.logger.Info("batch complete",
		zap.Int("logs", len(records)),
		zap.Int("events", handled),
		zap.Int("entities", pending),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
		zap.Uint64("blocks", blockRange.Blocks()),
	)
	return nil
}

// registeredPool returns the pool a registration event adds to the watch set.
func registeredPool(event model.Event) (common.Address, bool) {
	switch ev := event.(type) {
	case model.PoolRegisteredEvent:
		return ev.Pool, true
	case model.TokensRegisteredEvent:
		return model.PoolAddressFromID(ev.PoolID), true
	}
	return common.Address{}, false
}

func sortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logBefore(logs[i], logs[j])
	})
}

func logBefore(a, b types.Log) bool {
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.Index < b.Index
}

// mergeAfter inserts the extra logs that sort after logs[pos] into the
// unprocessed tail, keeping (block, logIndex) order.
func mergeAfter(logs []types.Log, pos int, extra []types.Log) []types.Log {
	current := logs[pos]
	tail := make([]types.Log, 0, len(logs)-pos-1+len(extra))
	tail = append(tail, logs[pos+1:]...)
	for _, log := range extra {
		if logBefore(current, log) {
			tail = append(tail, log)
		}
	}
	sortLogs(tail)

	out := make([]types.Log, 0, pos+1+len(tail))
	out = append(out, logs[:pos+1]...)
	return append(out, tail...)
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address) ([]types.Log, error) {
	var logs []types.Log
	err := r.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, r.topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) txFromWithRetry(ctx context.Context, hash common.Hash) (common.Address, error) {
	var from common.Address
	err := r.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		from, err = r.chain.TransactionFrom(ctx, hash)
		if err != nil {
			r.logger.Warn("tx sender fetch failed", zap.Error(err), zap.String("tx", hash.Hex()))
		}
		return err
	})
	return from, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := model.LogKey(log.BlockNumber, log.TxHash.Hex(), uint64(log.Index))
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
