package mapping

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/memory"
)

func TestPoolRegistered(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.reader.staticSwapFees[testPool] = raw("3000000000000000")
	hs.registerV3(t)

	pool := hs.pool(t, testPool)
	assert.Equal(t, testVault, pool.Vault)
	assert.Equal(t, testFactory, pool.Factory)
	assert.Equal(t, FactoryTypeWeighted, pool.FactoryType)
	assert.Equal(t, "Pool Share", pool.Name)
	assert.Equal(t, "BPT", pool.Symbol)
	assertDecimal(t, "0.003", pool.SwapFee)
	assertDecimal(t, "0", pool.TotalShares)
	assert.False(t, pool.IsInitialized)
	assert.Equal(t, int64(1750000000), pool.PauseWindowEndTime)
	assert.Equal(t, testUser, pool.PoolCreator)
	assert.Equal(t, []string{
		model.PoolTokenKey(testPool, testTokenA),
		model.PoolTokenKey(testPool, testTokenB),
	}, pool.Tokens)
	assert.Equal(t, model.AddressKey(common.Address{}), pool.Hook)
	assert.Equal(t, model.HookConfigKey(common.Address{}, testPool), pool.HookConfig)
	assert.Equal(t, model.AddressKey(testPool), pool.LiquidityManagement)

	tokenA := hs.poolToken(t, testPool, testTokenA)
	assert.Equal(t, 0, tokenA.Index)
	assert.Equal(t, uint8(6), tokenA.Decimals)
	assert.Equal(t, "1000000000000", tokenA.ScalingFactor.String())
	assertDecimal(t, "1", tokenA.PriceRate)
	assert.False(t, tokenA.PaysYieldFees)

	tokenB := hs.poolToken(t, testPool, testTokenB)
	assert.Equal(t, 1, tokenB.Index)
	assert.Equal(t, "WETH", tokenB.Symbol)
	assert.True(t, tokenB.PaysYieldFees)

	rp := &model.RateProvider{}
	require.True(t, hs.load(t, model.KindRateProvider, model.RateProviderKey(testPool, testTokenB, testProvider), rp))
	assert.Equal(t, model.PoolTokenKey(testPool, testTokenB), rp.Token)

	hookConfig := &model.HookConfig{}
	require.True(t, hs.load(t, model.KindHookConfig, pool.HookConfig, hookConfig))
	assert.True(t, hookConfig.ShouldCallAfterSwap)
	assert.False(t, hookConfig.ShouldCallBeforeSwap)

	assert.True(t, hs.load(t, model.KindPoolSnapshot, model.SnapshotKey(testPool, testDay), &model.PoolSnapshot{}))
	assert.Equal(t, 1, hs.store.Count(model.KindVault))
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.EventsHandled.WithLabelValues(model.EventPoolRegistered)))
}

func TestPoolRegisteredWithoutHooks(t *testing.T) {
	hs := newHarness(t, VariantV3Lite)
	hs.registerV3(t)

	pool := hs.pool(t, testPool)
	assert.Empty(t, pool.Hook)
	assert.Zero(t, hs.store.Count(model.KindHookConfig))
	assert.Zero(t, hs.store.Count(model.KindLiquidityManagement))
	assertDecimal(t, "0", pool.SwapFee)
}

func TestLiquidityAddedScalesAmounts(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.reader.tokens[testTokenA] = model.TokenMeta{Symbol: "DAI", Decimals: 18}
	hs.registerV3(t)

	ev := model.LiquidityChangedEvent{
		EventMeta:         meta(2, 3),
		Added:             true,
		Pool:              testPool,
		LiquidityProvider: testOther,
		AmountsRaw:        []*big.Int{raw("1000000000000000000"), raw("2000000000000000000")},
		SwapFeeAmountsRaw: []*big.Int{big.NewInt(0), big.NewInt(0)},
	}
	hs.dispatch(t, ev)

	assertDecimal(t, "1.0", hs.poolToken(t, testPool, testTokenA).Balance)
	assertDecimal(t, "2.0", hs.poolToken(t, testPool, testTokenB).Balance)
	assert.True(t, hs.pool(t, testPool).IsInitialized)

	record := &model.AddRemove{}
	require.True(t, hs.load(t, model.KindAddRemove, model.EventKey(ev.TxHash, ev.LogIndex), record))
	assert.Equal(t, model.AddRemoveAdd, record.Type)
	assert.Equal(t, testOther, record.User)
	require.Len(t, record.Amounts, 2)
	assertDecimal(t, "1", record.Amounts[0])
	assertDecimal(t, "2", record.Amounts[1])
	assert.True(t, hs.load(t, model.KindUser, model.AddressKey(testOther), &model.User{}))

	ev.EventMeta = meta(3, 0)
	ev.Added = false
	ev.AmountsRaw = []*big.Int{raw("250000000000000000"), raw("500000000000000000")}
	hs.dispatch(t, ev)
	assertDecimal(t, "0.75", hs.poolToken(t, testPool, testTokenA).Balance)
	assertDecimal(t, "1.5", hs.poolToken(t, testPool, testTokenB).Balance)
	require.True(t, hs.load(t, model.KindAddRemove, model.EventKey(ev.TxHash, ev.LogIndex), record))
	assert.Equal(t, model.AddRemoveRemove, record.Type)
}

func TestLiquidityMissingPoolIsSkipped(t *testing.T) {
	hs := newHarness(t, VariantV3)
	applied := hs.dispatch(t, model.LiquidityChangedEvent{
		EventMeta:  meta(2, 0),
		Added:      true,
		Pool:       testPool,
		AmountsRaw: []*big.Int{big.NewInt(1)},
	})

	assert.False(t, applied)
	assert.Zero(t, testutil.ToFloat64(hs.metrics.EventsHandled.WithLabelValues(model.EventLiquidityAdded)))
	assert.Zero(t, hs.store.Count(model.KindAddRemove))
	assert.Zero(t, hs.store.Count(model.KindPoolToken))
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.EventsSkipped.WithLabelValues(model.EventLiquidityAdded, "pool_missing")))
}

func TestSwapScalesByTokenDecimals(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)

	ev := model.SwapEvent{
		EventMeta:         meta(2, 1),
		Pool:              testPool,
		TokenIn:           testTokenA,
		TokenOut:          testTokenB,
		AmountIn:          big.NewInt(100),
		AmountOut:         big.NewInt(95),
		SwapFeePercentage: raw("10000000000000000"),
		SwapFeeAmount:     big.NewInt(0),
	}
	hs.dispatch(t, ev)

	swap := &model.Swap{}
	require.True(t, hs.load(t, model.KindSwap, model.EventKey(ev.TxHash, ev.LogIndex), swap))
	assertDecimal(t, "0.0001", swap.TokenAmountIn)
	assertDecimal(t, "0.000000000000000095", swap.TokenAmountOut)
	assertDecimal(t, "0.01", swap.SwapFeePercentage)
	assert.Equal(t, testTokenA, swap.SwapFeeToken)
	assert.Equal(t, "USDC", swap.TokenInSymbol)
	assert.Equal(t, testUser, swap.User)

	tokenIn := hs.poolToken(t, testPool, testTokenA)
	tokenOut := hs.poolToken(t, testPool, testTokenB)
	assertDecimal(t, "0.0001", tokenIn.Balance)
	assertDecimal(t, "0.0001", tokenIn.Volume)
	assertDecimal(t, "-0.000000000000000095", tokenOut.Balance)
	assertDecimal(t, "0.000000000000000095", tokenOut.Volume)
	assert.Equal(t, int64(1), hs.pool(t, testPool).SwapsCount)
}

func TestSwapAccruesAggregateFee(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)
	hs.dispatch(t, model.ProtocolFeeChangedEvent{
		EventMeta:  meta(2, 0),
		Scope:      model.FeeScopePoolProtocolSwap,
		Pool:       testPool,
		Percentage: raw("500000000000000000"),
	})

	hs.dispatch(t, model.SwapEvent{
		EventMeta:         meta(3, 0),
		Pool:              testPool,
		TokenIn:           testTokenA,
		TokenOut:          testTokenB,
		AmountIn:          big.NewInt(1_000_000),
		AmountOut:         raw("400000000000000000"),
		SwapFeePercentage: raw("1000000000000000"),
		SwapFeeAmount:     big.NewInt(1000),
	})

	tokenIn := hs.poolToken(t, testPool, testTokenA)
	assertDecimal(t, "0.001", tokenIn.TotalSwapFee)
	assertDecimal(t, "0.0005", tokenIn.VaultProtocolSwapFeeBalance)
	assertDecimal(t, "0.0005", tokenIn.TotalProtocolSwapFee)
	assertDecimal(t, "0", hs.poolToken(t, testPool, testTokenB).TotalSwapFee)
}

func TestSwapMissingPoolKeepsSwapRecord(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.dispatch(t, model.SwapEvent{
		EventMeta: meta(2, 0),
		Pool:      testPool,
		TokenIn:   testTokenA,
		TokenOut:  testTokenB,
		AmountIn:  big.NewInt(1),
		AmountOut: big.NewInt(1),
	})

	assert.Equal(t, 1, hs.store.Count(model.KindSwap))
	assert.Zero(t, hs.store.Count(model.KindPool))
	assert.Zero(t, hs.store.Count(model.KindPoolSnapshot))
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.EventsSkipped.WithLabelValues(model.EventSwap, "pool_missing")))
}

func TestSwapUnknownPoolTokenLeavesPoolUntouched(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)
	stranger := common.HexToAddress("0x5555555555555555555555555555555555555555")
	hs.reader.tokens[stranger] = model.TokenMeta{Symbol: "X", Decimals: 18}

	hs.dispatch(t, model.SwapEvent{
		EventMeta: meta(2, 0),
		Pool:      testPool,
		TokenIn:   stranger,
		TokenOut:  testTokenB,
		AmountIn:  big.NewInt(1),
		AmountOut: big.NewInt(1),
	})

	assert.Zero(t, hs.pool(t, testPool).SwapsCount)
	assertDecimal(t, "0", hs.poolToken(t, testPool, testTokenB).Balance)
	assert.Equal(t, 1, hs.store.Count(model.KindSwap))
}

func TestYieldFeeRefresh(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)
	pending := poolTokenPair{pool: testPool, token: testTokenB}

	join := func(block uint64) {
		hs.dispatch(t, model.LiquidityChangedEvent{
			EventMeta:  meta(block, 0),
			Added:      true,
			Pool:       testPool,
			AmountsRaw: []*big.Int{big.NewInt(1), big.NewInt(1)},
		})
	}

	hs.reader.yieldFees[pending] = raw("5000000000000000000")
	join(2)
	tokenB := hs.poolToken(t, testPool, testTokenB)
	assertDecimal(t, "5", tokenB.VaultProtocolYieldFeeBalance)
	assertDecimal(t, "5", tokenB.TotalProtocolYieldFee)

	hs.reader.yieldFees[pending] = raw("3000000000000000000")
	join(3)
	tokenB = hs.poolToken(t, testPool, testTokenB)
	assertDecimal(t, "3", tokenB.VaultProtocolYieldFeeBalance)
	assertDecimal(t, "3", tokenB.TotalProtocolYieldFee)

	hs.dispatch(t, model.ProtocolFeeCollectedEvent{
		EventMeta: meta(4, 0),
		Yield:     true,
		Pool:      testPool,
		Token:     testTokenB,
		Amount:    raw("3000000000000000000"),
	})
	hs.reader.yieldFees[pending] = raw("1000000000000000000")
	join(5)
	tokenB = hs.poolToken(t, testPool, testTokenB)
	assertDecimal(t, "1", tokenB.VaultProtocolYieldFeeBalance)
	assertDecimal(t, "4", tokenB.TotalProtocolYieldFee)
	assertDecimal(t, "3", tokenB.ControllerProtocolFeeBalance)

	// Tokens without yield fees are never read.
	assertDecimal(t, "0", hs.poolToken(t, testPool, testTokenA).TotalProtocolYieldFee)
}

func TestJoinExitBalanceIsSumOfDeltas(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.reader.tokens[testTokenA] = model.TokenMeta{Symbol: "DAI", Decimals: 18}
	hs.registerV3(t)

	rng := rand.New(rand.NewSource(7))
	want := []decimal.Decimal{decimal.Zero, decimal.Zero}
	for i := 0; i < 60; i++ {
		added := rng.Intn(3) > 0
		amounts := []*big.Int{big.NewInt(rng.Int63n(1e15)), big.NewInt(rng.Int63n(1e18))}
		for j, a := range amounts {
			d := decimal.NewFromBigInt(a, -18)
			if added {
				want[j] = want[j].Add(d)
			} else {
				want[j] = want[j].Sub(d)
			}
		}
		hs.dispatch(t, model.LiquidityChangedEvent{
			EventMeta:  meta(uint64(i+2), 0),
			Added:      added,
			Pool:       testPool,
			AmountsRaw: amounts,
		})
	}

	assert.True(t, want[0].Equal(hs.poolToken(t, testPool, testTokenA).Balance))
	assert.True(t, want[1].Equal(hs.poolToken(t, testPool, testTokenB).Balance))
}

func TestVaultStateEvents(t *testing.T) {
	hs := newHarness(t, VariantV3)
	controller := common.HexToAddress("0xa731C23D7c95436Baaae9D52782f966E1ed07cc8")
	hs.reader.controller = controller
	authorizer := common.HexToAddress("0x6666666666666666666666666666666666666666")

	hs.dispatch(t, model.VaultPausedStateChangedEvent{EventMeta: meta(1, 0), Paused: true})
	hs.dispatch(t, model.AuthorizerChangedEvent{EventMeta: meta(1, 1), NewAuthorizer: authorizer})

	vault := &model.Vault{}
	require.True(t, hs.load(t, model.KindVault, model.AddressKey(testVault), vault))
	assert.True(t, vault.IsPaused)
	assert.Equal(t, authorizer, vault.Authorizer)
	assert.Equal(t, controller, vault.ProtocolFeeController)
}

func TestPoolStateEvents(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.registerV3(t)

	hs.dispatch(t, model.SwapFeePercentageChangedEvent{
		EventMeta:         meta(2, 0),
		Pool:              testPool,
		SwapFeePercentage: raw("2500000000000000"),
	})
	hs.dispatch(t, model.PoolPausedStateChangedEvent{EventMeta: meta(2, 1), Pool: testPool, Paused: true})

	pool := hs.pool(t, testPool)
	assertDecimal(t, "0.0025", pool.SwapFee)
	assert.True(t, pool.IsPaused)
}

func TestTransportErrorAborts(t *testing.T) {
	hs := newHarness(t, VariantV3)
	failure := errors.New("dial tcp: connection refused")
	hs.reader.transportErr = failure

	_, err := hs.h.Dispatch(context.Background(), model.PoolRegisteredEvent{
		EventMeta:   meta(1, 0),
		Pool:        testPool,
		TokenConfig: []model.TokenConfig{{Token: testTokenA}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Zero(t, testutil.ToFloat64(hs.metrics.EventsHandled.WithLabelValues(model.EventPoolRegistered)))
}

func TestHandlersWriteThroughCache(t *testing.T) {
	backend := memory.NewStore()
	cache := storage.NewCache(backend)
	reader := newFakeReader()
	reader.tokens[testTokenA] = model.TokenMeta{Symbol: "USDC", Decimals: 6}
	reader.tokens[testTokenB] = model.TokenMeta{Symbol: "WETH", Decimals: 18}
	h := New(Config{Variant: VariantV3, Vault: testVault}, cache, reader, nil, nil)
	ctx := context.Background()

	_, err := h.Dispatch(ctx, model.PoolRegisteredEvent{
		EventMeta:   meta(1, 0),
		Pool:        testPool,
		TokenConfig: []model.TokenConfig{{Token: testTokenA}, {Token: testTokenB}},
	})
	require.NoError(t, err)
	_, err = h.Dispatch(ctx, model.LiquidityChangedEvent{
		EventMeta:  meta(1, 1),
		Added:      true,
		Pool:       testPool,
		AmountsRaw: []*big.Int{big.NewInt(5_000_000), raw("1000000000000000000")},
	})
	require.NoError(t, err)

	assert.Zero(t, backend.Count(model.KindPool))
	assert.Positive(t, cache.Pending())

	require.NoError(t, cache.Flush(ctx, &storage.Cursor{Name: "test", Block: 1}))
	assert.Equal(t, 1, backend.Count(model.KindPool))
	assert.Equal(t, 2, backend.Count(model.KindPoolToken))

	token := &model.PoolToken{}
	found, err := backend.Load(ctx, model.KindPoolToken, model.PoolTokenKey(testPool, testTokenA), token)
	require.NoError(t, err)
	require.True(t, found)
	assertDecimal(t, "5", token.Balance)

	cursor, ok, err := backend.LoadCursor(ctx, "test")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), cursor.Block)
}
