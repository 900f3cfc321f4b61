package indexer

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/contracts"
	"vaultScope/internal/mapping"
	"vaultScope/internal/model"
)

// RetryingReader retries transport failures of the wrapped reader. Reverts
// are final and pass straight through to the handlers' fallbacks.
type RetryingReader struct {
	next    mapping.ChainReader
	backoff Backoff
	logger  *zap.Logger
}

var _ mapping.ChainReader = (*RetryingReader)(nil)

func NewRetryingReader(next mapping.ChainReader, retries int, delay time.Duration, logger *zap.Logger) *RetryingReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingReader{
		next: next,
		backoff: Backoff{
			Retries:   retries,
			Delay:     delay,
			Permanent: permanentReadError,
		},
		logger: logger,
	}
}

func permanentReadError(err error) bool {
	return errors.Is(err, contracts.ErrReverted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func retryRead[T any](ctx context.Context, r *RetryingReader, method string, target common.Address, fn func(context.Context) (T, error)) (T, error) {
	var out T
	attempt := 0
	err := r.backoff.Do(ctx, func(ctx context.Context) error {
		attempt++
		var err error
		out, err = fn(ctx)
		if err != nil && !permanentReadError(err) {
			r.logger.Warn("chain read failed",
				zap.String("method", method),
				zap.String("target", target.Hex()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
	return out, err
}

type bigPair struct{ a, b *big.Int }

func (r *RetryingReader) TokenMeta(ctx context.Context, block uint64, token common.Address) (model.TokenMeta, error) {
	return retryRead(ctx, r, "tokenMeta", token, func(ctx context.Context) (model.TokenMeta, error) {
		return r.next.TokenMeta(ctx, block, token)
	})
}

func (r *RetryingReader) ProtocolFeeController(ctx context.Context, block uint64, vault common.Address) (common.Address, error) {
	return retryRead(ctx, r, "getProtocolFeeController", vault, func(ctx context.Context) (common.Address, error) {
		return r.next.ProtocolFeeController(ctx, block, vault)
	})
}

func (r *RetryingReader) StaticSwapFeePercentage(ctx context.Context, block uint64, vault, pool common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getStaticSwapFeePercentage", pool, func(ctx context.Context) (*big.Int, error) {
		return r.next.StaticSwapFeePercentage(ctx, block, vault, pool)
	})
}

func (r *RetryingReader) AggregateYieldFeeAmount(ctx context.Context, block uint64, vault, pool, token common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getAggregateYieldFeeAmount", pool, func(ctx context.Context) (*big.Int, error) {
		return r.next.AggregateYieldFeeAmount(ctx, block, vault, pool, token)
	})
}

func (r *RetryingReader) Authorizer(ctx context.Context, block uint64, vault common.Address) (common.Address, error) {
	return retryRead(ctx, r, "getAuthorizer", vault, func(ctx context.Context) (common.Address, error) {
		return r.next.Authorizer(ctx, block, vault)
	})
}

func (r *RetryingReader) ProtocolFeesCollector(ctx context.Context, block uint64, vault common.Address) (common.Address, error) {
	return retryRead(ctx, r, "getProtocolFeesCollector", vault, func(ctx context.Context) (common.Address, error) {
		return r.next.ProtocolFeesCollector(ctx, block, vault)
	})
}

func (r *RetryingReader) SwapFeePercentage(ctx context.Context, block uint64, target common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getSwapFeePercentage", target, func(ctx context.Context) (*big.Int, error) {
		return r.next.SwapFeePercentage(ctx, block, target)
	})
}

func (r *RetryingReader) FlashLoanFeePercentage(ctx context.Context, block uint64, collector common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getFlashLoanFeePercentage", collector, func(ctx context.Context) (*big.Int, error) {
		return r.next.FlashLoanFeePercentage(ctx, block, collector)
	})
}

func (r *RetryingReader) ActualSupply(ctx context.Context, block uint64, pool common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getActualSupply", pool, func(ctx context.Context) (*big.Int, error) {
		return r.next.ActualSupply(ctx, block, pool)
	})
}

func (r *RetryingReader) Asset(ctx context.Context, block uint64, wrapped common.Address) (common.Address, error) {
	return retryRead(ctx, r, "asset", wrapped, func(ctx context.Context) (common.Address, error) {
		return r.next.Asset(ctx, block, wrapped)
	})
}

func (r *RetryingReader) MaxSurgeFeePercentage(ctx context.Context, block uint64, hook, pool common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getMaxSurgeFeePercentage", hook, func(ctx context.Context) (*big.Int, error) {
		return r.next.MaxSurgeFeePercentage(ctx, block, hook, pool)
	})
}

func (r *RetryingReader) SurgeThresholdPercentage(ctx context.Context, block uint64, hook, pool common.Address) (*big.Int, error) {
	return retryRead(ctx, r, "getSurgeThresholdPercentage", hook, func(ctx context.Context) (*big.Int, error) {
		return r.next.SurgeThresholdPercentage(ctx, block, hook, pool)
	})
}

func (r *RetryingReader) RateProviders(ctx context.Context, block uint64, pool common.Address) ([]common.Address, error) {
	return retryRead(ctx, r, "getRateProviders", pool, func(ctx context.Context) ([]common.Address, error) {
		return r.next.RateProviders(ctx, block, pool)
	})
}

func (r *RetryingReader) NormalizedWeights(ctx context.Context, block uint64, pool common.Address) ([]*big.Int, error) {
	return retryRead(ctx, r, "getNormalizedWeights", pool, func(ctx context.Context) ([]*big.Int, error) {
		return r.next.NormalizedWeights(ctx, block, pool)
	})
}

func (r *RetryingReader) AmplificationParameter(ctx context.Context, block uint64, pool common.Address) (*big.Int, *big.Int, error) {
	out, err := retryRead(ctx, r, "getAmplificationParameter", pool, func(ctx context.Context) (bigPair, error) {
		value, precision, err := r.next.AmplificationParameter(ctx, block, pool)
		return bigPair{value, precision}, err
	})
	return out.a, out.b, err
}

func (r *RetryingReader) Gyro2SqrtPrices(ctx context.Context, block uint64, pool common.Address) (*big.Int, *big.Int, error) {
	out, err := retryRead(ctx, r, "getGyro2CLPPoolImmutableData", pool, func(ctx context.Context) (bigPair, error) {
		sqrtAlpha, sqrtBeta, err := r.next.Gyro2SqrtPrices(ctx, block, pool)
		return bigPair{sqrtAlpha, sqrtBeta}, err
	})
	return out.a, out.b, err
}

func (r *RetryingReader) ECLPParams(ctx context.Context, block uint64, pool common.Address) (contracts.ECLPParams, error) {
	return retryRead(ctx, r, "getECLPParams", pool, func(ctx context.Context) (contracts.ECLPParams, error) {
		return r.next.ECLPParams(ctx, block, pool)
	})
}
