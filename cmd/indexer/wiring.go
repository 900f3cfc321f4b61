package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/config"
	"vaultScope/internal/contracts"
	"vaultScope/internal/indexer"
	"vaultScope/internal/mapping"
	"vaultScope/internal/metrics"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/memory"
	"vaultScope/internal/storage/postgres"
)

// deployment is the parsed contract set of one vault deployment.
type deployment struct {
	variant       mapping.Variant
	vault         common.Address
	feeController common.Address
	feesCollector common.Address
	factories     map[common.Address]mapping.FactoryInfo
	surgeHooks    []common.Address
}

func parseDeployment(cfg config.Deployment) (deployment, error) {
	variant, err := mapping.ParseVariant(cfg.Variant)
	if err != nil {
		return deployment{}, err
	}
	factories, err := mapping.ParseFactories(cfg.Factories)
	if err != nil {
		return deployment{}, err
	}
	hooks, err := indexer.ParseAddresses(cfg.SurgeHooks)
	if err != nil {
		return deployment{}, err
	}

	d := deployment{
		variant:    variant,
		factories:  factories,
		surgeHooks: hooks,
	}
	slots := []struct {
		input string
		dst   *common.Address
	}{
		{cfg.Vault, &d.vault},
		{cfg.FeeController, &d.feeController},
		{cfg.FeesCollector, &d.feesCollector},
	}
	for _, slot := range slots {
		parsed, err := indexer.ParseAddresses([]string{slot.input})
		if err != nil {
			return deployment{}, err
		}
		if len(parsed) == 1 {
			*slot.dst = parsed[0]
		}
	}
	if d.vault == (common.Address{}) {
		return deployment{}, fmt.Errorf("vault address is required")
	}
	return d, nil
}

// resolveFeeContracts reads the fee controller (v3) or fees collector (v2)
// from the vault when it is not configured.
func (d *deployment) resolveFeeContracts(ctx context.Context, reader *contracts.Reader, logger *zap.Logger) {
	if d.variant.Version == 2 {
		if d.feesCollector != (common.Address{}) {
			return
		}
		collector, err := reader.ProtocolFeesCollector(ctx, 0, d.vault)
		if err != nil {
			logger.Warn("fees collector lookup failed, collector events are not watched", zap.Error(err))
			return
		}
		d.feesCollector = collector
		logger.Info("fees collector resolved", zap.String("fees_collector", collector.Hex()))
		return
	}

	if d.feeController != (common.Address{}) {
		return
	}
	controller, err := reader.ProtocolFeeController(ctx, 0, d.vault)
	if err != nil {
		logger.Warn("fee controller lookup failed, fee controller events are not watched", zap.Error(err))
		return
	}
	d.feeController = controller
	logger.Info("fee controller resolved", zap.String("fee_controller", controller.Hex()))
}

// addresses returns every contract watched from the first block.
func (d deployment) addresses() []common.Address {
	seen := make(map[common.Address]struct{})
	var out []common.Address
	add := func(addr common.Address) {
		if addr == (common.Address{}) {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	add(d.vault)
	add(d.feeController)
	add(d.feesCollector)
	for addr := range d.factories {
		add(addr)
	}
	for _, hook := range d.surgeHooks {
		add(hook)
	}
	return out
}

func (d deployment) handlerConfig() mapping.Config {
	return mapping.Config{
		Variant:       d.variant,
		Vault:         d.vault,
		FeesCollector: d.feesCollector,
		Factories:     d.factories,
	}
}

func (d deployment) decoder() (*contracts.Decoder, error) {
	return contracts.NewDecoder(contracts.DecoderConfig{Vault: d.vault, FeesCollector: d.feesCollector})
}

// openStore returns the configured entity store and its close func.
func openStore(ctx context.Context, cfg config.Store, logger *zap.Logger) (storage.BatchStore, func(), error) {
	switch cfg.Kind {
	case "", "memory":
		logger.Warn("using in-memory entity store, entities are lost on exit")
		return memory.NewStore(), func() {}, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		applied, err := store.ApplyMigrations(ctx, cfg.Migrations)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied", zap.Strings("files", applied))
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Kind)
	}
}

// newHandlers wires the handlers to reader through a retrying decorator.
func newHandlers(d deployment, store storage.EntityStore, reader mapping.ChainReader, retries int, backoff time.Duration, logger *zap.Logger, m *metrics.Metrics) *mapping.Handlers {
	retrying := indexer.NewRetryingReader(reader, retries, backoff, logger.Named("reads"))
	return mapping.New(d.handlerConfig(), store, retrying, logger.Named("mapping"), m)
}
