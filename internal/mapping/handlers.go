package mapping

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/contracts"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// ChainReader is the chain state the handlers read while mapping. Methods
// return an error wrapping contracts.ErrReverted when the contract rejected
// the call; any other error is a transport failure.
type ChainReader interface {
	TokenMeta(ctx context.Context, block uint64, token common.Address) (model.TokenMeta, error)
	ProtocolFeeController(ctx context.Context, block uint64, vault common.Address) (common.Address, error)
	StaticSwapFeePercentage(ctx context.Context, block uint64, vault, pool common.Address) (*big.Int, error)
	AggregateYieldFeeAmount(ctx context.Context, block uint64, vault, pool, token common.Address) (*big.Int, error)
	Authorizer(ctx context.Context, block uint64, vault common.Address) (common.Address, error)
	ProtocolFeesCollector(ctx context.Context, block uint64, vault common.Address) (common.Address, error)
	SwapFeePercentage(ctx context.Context, block uint64, target common.Address) (*big.Int, error)
	FlashLoanFeePercentage(ctx context.Context, block uint64, collector common.Address) (*big.Int, error)
	ActualSupply(ctx context.Context, block uint64, pool common.Address) (*big.Int, error)
	Asset(ctx context.Context, block uint64, wrapped common.Address) (common.Address, error)
	MaxSurgeFeePercentage(ctx context.Context, block uint64, hook, pool common.Address) (*big.Int, error)
	SurgeThresholdPercentage(ctx context.Context, block uint64, hook, pool common.Address) (*big.Int, error)
	RateProviders(ctx context.Context, block uint64, pool common.Address) ([]common.Address, error)
	NormalizedWeights(ctx context.Context, block uint64, pool common.Address) ([]*big.Int, error)
	AmplificationParameter(ctx context.Context, block uint64, pool common.Address) (*big.Int, *big.Int, error)
	Gyro2SqrtPrices(ctx context.Context, block uint64, pool common.Address) (*big.Int, *big.Int, error)
	ECLPParams(ctx context.Context, block uint64, pool common.Address) (contracts.ECLPParams, error)
}

// FactoryInfo labels a pool factory.
type FactoryInfo struct {
	Type    string
	Version int
}

// Config wires the handlers to one vault deployment.
type Config struct {
	Variant Variant
	Vault   common.Address
	// FeesCollector is used when the v2 vault cannot report its collector.
	FeesCollector common.Address
	// Factories maps factory addresses to their pool type.
	Factories map[common.Address]FactoryInfo
}

// Handlers apply decoded events to the entity store. They are not safe for
// concurrent use.
type Handlers struct {
	cfg     Config
	store   storage.EntityStore
	reader  ChainReader
	logger  *zap.Logger
	metrics *metrics.Metrics

	// dropped is set while dispatching an event that was not applied.
	dropped bool
}

func New(cfg Config, store storage.EntityStore, reader ChainReader, logger *zap.Logger, m *metrics.Metrics) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Factories == nil {
		cfg.Factories = make(map[common.Address]FactoryInfo)
	}
	return &Handlers{
		cfg:     cfg,
		store:   store,
		reader:  reader,
		logger:  logger,
		metrics: m,
	}
}

// Variant returns the active handler configuration.
func (h *Handlers) Variant() Variant {
	return h.cfg.Variant
}

// Dispatch routes one event to its handler and reports whether it was
// applied. Skipped events return false with a nil error; only store and
// transport failures are returned.
func (h *Handlers) Dispatch(ctx context.Context, event model.Event) (bool, error) {
	h.dropped = false
	var err error
	switch ev := event.(type) {
	case model.PoolRegisteredEvent:
		err = h.handlePoolRegistered(ctx, ev)
	case model.TokensRegisteredEvent:
		err = h.handleTokensRegistered(ctx, ev)
	case model.LiquidityChangedEvent:
		err = h.handleLiquidityChanged(ctx, ev)
	case model.PoolBalanceChangedEvent:
		err = h.handlePoolBalanceChanged(ctx, ev)
	case model.SwapEvent:
		if h.cfg.Variant.Version == 2 {
			err = h.handleSwapV2(ctx, ev)
		} else {
			err = h.handleSwap(ctx, ev)
		}
	case model.SwapFeePercentageChangedEvent:
		err = h.handleSwapFeePercentageChanged(ctx, ev)
	case model.PoolPausedStateChangedEvent:
		err = h.handlePoolPausedStateChanged(ctx, ev)
	case model.VaultPausedStateChangedEvent:
		err = h.handleVaultPausedStateChanged(ctx, ev)
	case model.AuthorizerChangedEvent:
		err = h.handleAuthorizerChanged(ctx, ev)
	case model.ProtocolFeeChangedEvent:
		err = h.handleProtocolFeeChanged(ctx, ev)
	case model.ProtocolFeeCollectedEvent:
		err = h.handleProtocolFeeCollected(ctx, ev)
	case model.ProtocolFeesWithdrawnEvent:
		err = h.handleProtocolFeesWithdrawn(ctx, ev)
	case model.BufferLiquidityChangedEvent:
		err = h.withBuffers(ev, func() error { return h.handleBufferLiquidityChanged(ctx, ev) })
	case model.WrapEvent:
		err = h.withBuffers(ev, func() error { return h.handleWrap(ctx, ev) })
	case model.UnwrapEvent:
		err = h.withBuffers(ev, func() error { return h.handleUnwrap(ctx, ev) })
	case model.BufferSharesChangedEvent:
		err = h.withBuffers(ev, func() error { return h.handleBufferSharesChanged(ctx, ev) })
	case model.TransferEvent:
		err = h.handleTransfer(ctx, ev)
	case model.PoolCreatedEvent:
		err = h.handlePoolCreated(ctx, ev)
	case model.StableSurgeHookRegisteredEvent:
		err = h.handleStableSurgeHookRegistered(ctx, ev)
	default:
		return false, fmt.Errorf("no handler for %T", event)
	}
	if err != nil {
		meta := event.Metadata()
		return false, fmt.Errorf("%s at block %d log %d: %w", event.EventName(), meta.BlockNumber, meta.LogIndex, err)
	}
	if h.dropped {
		return false, nil
	}
	h.metrics.Handled(event.EventName())
	return true, nil
}

func (h *Handlers) withBuffers(event model.Event, fn func() error) error {
	if !h.cfg.Variant.HasBuffers {
		h.gated(event)
		return nil
	}
	return fn()
}

// gated drops an event the active variant does not map.
func (h *Handlers) gated(event model.Event) {
	h.dropped = true
	h.metrics.Skipped(event.EventName(), "variant")
}

// skip logs a dropped event. The derived graph simply misses it.
func (h *Handlers) skip(event model.Event, reason string, fields ...zap.Field) {
	meta := event.Metadata()
	base := []zap.Field{
		zap.String("event", event.EventName()),
		zap.String("reason", reason),
		zap.String("tx", meta.TxHash.Hex()),
		zap.Uint64("block", meta.BlockNumber),
	}
	h.dropped = true
	h.logger.Warn("event skipped", append(base, fields...)...)
	h.metrics.Skipped(event.EventName(), reason)
}

// readFailed decides whether a failed chain read falls back to a default
// (nil) or aborts the handler.
func (h *Handlers) readFailed(method string, target common.Address, err error) error {
	if errors.Is(err, contracts.ErrReverted) {
		h.logger.Debug("contract read reverted",
			zap.String("method", method),
			zap.String("target", target.Hex()),
			zap.Error(err),
		)
		h.metrics.ReadFailed(method)
		return nil
	}
	return fmt.Errorf("%s on %s: %w", method, target.Hex(), err)
}
