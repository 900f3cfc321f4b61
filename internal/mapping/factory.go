package mapping

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/contracts"
	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

const (
	FactoryTypeWeighted    = "Weighted"
	FactoryTypeStable      = "Stable"
	FactoryTypeStableSurge = "StableSurge"
	FactoryTypeGyro2       = "Gyro2"
	FactoryTypeGyroE       = "GyroE"
)

// Gyro derived parameters are 38-decimal fixed point.
const gyroDerivedDecimals uint8 = 38

// ParseFactories reads "address=type:version" entries. The version defaults to 1.
func ParseFactories(entries []string) (map[common.Address]FactoryInfo, error) {
	out := make(map[common.Address]FactoryInfo, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		address, spec, ok := strings.Cut(entry, "=")
		address = strings.TrimSpace(address)
		if !ok || !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid factory %q: want address=type:version", entry)
		}

		typ, version, hasVersion := strings.Cut(strings.TrimSpace(spec), ":")
		info := FactoryInfo{Version: 1}
		switch strings.ToLower(typ) {
		case "weighted":
			info.Type = FactoryTypeWeighted
		case "stable":
			info.Type = FactoryTypeStable
		case "stablesurge", "stable-surge":
			info.Type = FactoryTypeStableSurge
		case "gyro2":
			info.Type = FactoryTypeGyro2
		case "gyroe", "gyro-e", "eclp":
			info.Type = FactoryTypeGyroE
		default:
			return nil, fmt.Errorf("invalid factory %q: unknown type %q", entry, typ)
		}
		if hasVersion {
			n, err := strconv.Atoi(version)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid factory %q: bad version %q", entry, version)
			}
			info.Version = n
		}
		out[common.HexToAddress(address)] = info
	}
	return out, nil
}

// handlePoolCreated records the factory of a pool and its type specific
// parameters. The emitter is the factory.
func (h *Handlers) handlePoolCreated(ctx context.Context, ev model.PoolCreatedEvent) error {
	meta := ev.Metadata()
	info, ok := h.cfg.Factories[meta.Address]
	if !ok {
		h.skip(ev, "factory_unknown", zap.String("factory", meta.Address.Hex()), zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	factory, err := h.getFactory(ctx, meta.Address, info)
	if err != nil {
		return err
	}
	if err := h.savePoolParams(ctx, meta.BlockNumber, factory.Type, ev.Pool, zeroAddress); err != nil {
		return err
	}
	return h.linkFactory(ctx, ev.Pool, factory)
}

// handleStableSurgeHookRegistered treats the hook registration as the
// creation of a stable surge pool. The emitter is the hook.
func (h *Handlers) handleStableSurgeHookRegistered(ctx context.Context, ev model.StableSurgeHookRegisteredEvent) error {
	if !h.cfg.Variant.HasHooks {
		h.gated(ev)
		return nil
	}
	meta := ev.Metadata()
	info, ok := h.cfg.Factories[ev.Factory]
	if !ok {
		info = FactoryInfo{Type: FactoryTypeStableSurge, Version: 1}
	}
	factory, err := h.getFactory(ctx, ev.Factory, info)
	if err != nil {
		return err
	}
	if _, err := h.getHook(ctx, meta.Address); err != nil {
		return err
	}
	if err := h.savePoolParams(ctx, meta.BlockNumber, FactoryTypeStableSurge, ev.Pool, meta.Address); err != nil {
		return err
	}
	return h.linkFactory(ctx, ev.Pool, factory)
}

func (h *Handlers) savePoolParams(ctx context.Context, block uint64, poolType string, pool, hook common.Address) error {
	var params model.Entity
	switch poolType {
	case FactoryTypeWeighted:
		weights, err := h.reader.NormalizedWeights(ctx, block, pool)
		if err != nil {
			if err := h.readFailed("getNormalizedWeights", pool, err); err != nil {
				return err
			}
		}
		scaled := make([]decimal.Decimal, 0, len(weights))
		for _, w := range weights {
			scaled = append(scaled, fixedpoint.ScaleDown(w, fixedpoint.Decimals))
		}
		params = &model.WeightedParams{ID: pool, Weights: scaled}
	case FactoryTypeStable:
		amp, err := h.amp(ctx, block, pool)
		if err != nil {
			return err
		}
		params = &model.StableParams{ID: pool, Amp: amp}
	case FactoryTypeStableSurge:
		amp, err := h.amp(ctx, block, pool)
		if err != nil {
			return err
		}
		surge := &model.StableSurgeParams{
			ID:                       pool,
			Amp:                      amp,
			MaxSurgeFeePercentage:    decimal.Zero,
			SurgeThresholdPercentage: decimal.Zero,
		}
		maxFee, err := h.reader.MaxSurgeFeePercentage(ctx, block, hook, pool)
		if err != nil {
			if err := h.readFailed("getMaxSurgeFeePercentage", hook, err); err != nil {
				return err
			}
		} else {
			surge.MaxSurgeFeePercentage = fixedpoint.ScaleDown(maxFee, fixedpoint.Decimals)
		}
		threshold, err := h.reader.SurgeThresholdPercentage(ctx, block, hook, pool)
		if err != nil {
			if err := h.readFailed("getSurgeThresholdPercentage", hook, err); err != nil {
				return err
			}
		} else {
			surge.SurgeThresholdPercentage = fixedpoint.ScaleDown(threshold, fixedpoint.Decimals)
		}
		params = surge
	case FactoryTypeGyro2:
		gyro := &model.Gyro2Params{ID: pool}
		sqrtAlpha, sqrtBeta, err := h.reader.Gyro2SqrtPrices(ctx, block, pool)
		if err != nil {
			if err := h.readFailed("getGyro2CLPPoolImmutableData", pool, err); err != nil {
				return err
			}
		} else {
			gyro.SqrtAlpha = fixedpoint.ScaleDown(sqrtAlpha, fixedpoint.Decimals)
			gyro.SqrtBeta = fixedpoint.ScaleDown(sqrtBeta, fixedpoint.Decimals)
		}
		params = gyro
	case FactoryTypeGyroE:
		eclp, err := h.reader.ECLPParams(ctx, block, pool)
		if err != nil {
			if err := h.readFailed("getECLPParams", pool, err); err != nil {
				return err
			}
			params = &model.GyroEParams{ID: pool}
			break
		}
		params = gyroEParams(pool, eclp)
	default:
		return nil
	}
	if err := h.store.Save(ctx, params); err != nil {
		return fmt.Errorf("save %s: %w", params.EntityKind(), err)
	}
	return nil
}

func gyroEParams(pool common.Address, raw contracts.ECLPParams) *model.GyroEParams {
	base := func(v *big.Int) decimal.Decimal { return fixedpoint.ScaleDown(v, fixedpoint.Decimals) }
	derived := func(v *big.Int) decimal.Decimal { return fixedpoint.ScaleDown(v, gyroDerivedDecimals) }
	return &model.GyroEParams{
		ID:        pool,
		Alpha:     base(raw.Alpha),
		Beta:      base(raw.Beta),
		C:         base(raw.C),
		S:         base(raw.S),
		Lambda:    base(raw.Lambda),
		TauAlphaX: derived(raw.TauAlphaX),
		TauAlphaY: derived(raw.TauAlphaY),
		TauBetaX:  derived(raw.TauBetaX),
		TauBetaY:  derived(raw.TauBetaY),
		U:         derived(raw.U),
		V:         derived(raw.V),
		W:         derived(raw.W),
		Z:         derived(raw.Z),
		DSq:       derived(raw.DSq),
	}
}

// amp returns the amplification value divided by its precision, or nil when
// the pool does not report one.
func (h *Handlers) amp(ctx context.Context, block uint64, pool common.Address) (*big.Int, error) {
	value, precision, err := h.reader.AmplificationParameter(ctx, block, pool)
	if err != nil {
		return nil, h.readFailed("getAmplificationParameter", pool, err)
	}
	if value == nil || precision == nil || precision.Sign() == 0 {
		return nil, nil
	}
	return new(big.Int).Quo(value, precision), nil
}

// linkFactory tags an already registered pool with its factory.
func (h *Handlers) linkFactory(ctx context.Context, address common.Address, factory *model.Factory) error {
	pool, found, err := h.loadPool(ctx, address)
	if err != nil || !found {
		return err
	}
	pool.Factory = factory.ID
	pool.FactoryType = factory.Type
	pool.FactoryVersion = factory.Version
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}
