package mapping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

const secondsPerDay = 86400

// DayTimestamp floors a unix timestamp to the start of its UTC day.
func DayTimestamp(timestamp int64) int64 {
	return timestamp - timestamp%secondsPerDay
}

// createPoolSnapshot overwrites the pool's snapshot for the day of timestamp
// with its current token state.
func (h *Handlers) createPoolSnapshot(ctx context.Context, pool *model.Pool, timestamp int64) error {
	tokens, err := h.poolTokens(ctx, pool)
	if err != nil {
		return err
	}

	day := DayTimestamp(timestamp)
	snapshot := &model.PoolSnapshot{
		ID:                     model.SnapshotKey(pool.ID, day),
		Pool:                   pool.ID,
		Timestamp:              day,
		Balances:               make([]decimal.Decimal, len(tokens)),
		TotalSwapFees:          make([]decimal.Decimal, len(tokens)),
		TotalSwapVolumes:       make([]decimal.Decimal, len(tokens)),
		TotalProtocolSwapFees:  make([]decimal.Decimal, len(tokens)),
		TotalProtocolYieldFees: make([]decimal.Decimal, len(tokens)),
		SwapsCount:             pool.SwapsCount,
		TotalShares:            pool.TotalShares,
		HoldersCount:           pool.HoldersCount,
	}
	for i, token := range tokens {
		snapshot.Balances[i] = token.Balance
		snapshot.TotalSwapFees[i] = token.TotalSwapFee
		snapshot.TotalSwapVolumes[i] = token.Volume
		snapshot.TotalProtocolSwapFees[i] = token.TotalProtocolSwapFee
		snapshot.TotalProtocolYieldFees[i] = token.TotalProtocolYieldFee
	}

	if err := h.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
