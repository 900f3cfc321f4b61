package mapping

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
)

func TestDayTimestamp(t *testing.T) {
	assert.Equal(t, testDay, DayTimestamp(testDay))
	assert.Equal(t, testDay, DayTimestamp(testDay+86399))
	assert.Equal(t, testDay+86400, DayTimestamp(testDay+86400))
	assert.Equal(t, int64(0), DayTimestamp(1))
}

func TestSnapshotIdempotentWithinDay(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)
	ctx := context.Background()
	pool := hs.pool(t, testPool)

	require.NoError(t, hs.h.createPoolSnapshot(ctx, pool, testDay+100))
	first := &model.PoolSnapshot{}
	require.True(t, hs.load(t, model.KindPoolSnapshot, model.SnapshotKey(testPool, testDay), first))

	require.NoError(t, hs.h.createPoolSnapshot(ctx, pool, testDay+80000))
	second := &model.PoolSnapshot{}
	require.True(t, hs.load(t, model.KindPoolSnapshot, model.SnapshotKey(testPool, testDay), second))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hs.store.Count(model.KindPoolSnapshot))

	require.NoError(t, hs.h.createPoolSnapshot(ctx, pool, testDay+86400))
	assert.Equal(t, 2, hs.store.Count(model.KindPoolSnapshot))
}

func TestSnapshotReflectsLastEventOfDay(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)

	for i, amount := range []int64{1_000_000, 2_000_000} {
		hs.dispatch(t, model.LiquidityChangedEvent{
			EventMeta:  meta(uint64(i+2), 0),
			Added:      true,
			Pool:       testPool,
			AmountsRaw: []*big.Int{big.NewInt(amount), big.NewInt(0)},
		})
	}
	hs.dispatch(t, model.SwapEvent{
		EventMeta: meta(4, 0),
		Pool:      testPool,
		TokenIn:   testTokenA,
		TokenOut:  testTokenB,
		AmountIn:  big.NewInt(500_000),
		AmountOut: big.NewInt(0),
	})

	snapshot := &model.PoolSnapshot{}
	require.True(t, hs.load(t, model.KindPoolSnapshot, model.SnapshotKey(testPool, testDay), snapshot))
	assert.Equal(t, testDay, snapshot.Timestamp)
	require.Len(t, snapshot.Balances, 2)
	assertDecimal(t, "3.5", snapshot.Balances[0])
	assertDecimal(t, "0.5", snapshot.TotalSwapVolumes[0])
	assert.Equal(t, int64(1), snapshot.SwapsCount)
	assert.Len(t, snapshot.TotalProtocolYieldFees, 2)
}
