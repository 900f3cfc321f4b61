package mapping

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
)

var testWrapped = common.HexToAddress("0xd4fa2d31b7968e448877f69a96de69f5de8cd23e")

func newBufferHarness(t *testing.T, variant Variant) *harness {
	t.Helper()
	hs := newHarness(t, variant)
	hs.reader.tokens[testWrapped] = model.TokenMeta{Symbol: "waUSDC", Decimals: 18}
	hs.reader.assets[testWrapped] = testTokenA
	return hs
}

func (hs *harness) buffer(t *testing.T) *model.Buffer {
	t.Helper()
	buffer := &model.Buffer{}
	require.True(t, hs.load(t, model.KindBuffer, model.AddressKey(testWrapped), buffer))
	return buffer
}

func packBalances(wrapped, underlying *big.Int) *[32]byte {
	word := new(big.Int).Lsh(wrapped, 128)
	word.Or(word, underlying)
	var out [32]byte
	word.FillBytes(out[:])
	return &out
}

func TestBufferLegacyEncoding(t *testing.T) {
	hs := newBufferHarness(t, VariantV3)

	hs.dispatch(t, model.BufferLiquidityChangedEvent{
		EventMeta:        meta(1, 0),
		Added:            true,
		WrappedToken:     testWrapped,
		AmountWrapped:    raw("2000000000000000000"),
		AmountUnderlying: big.NewInt(3_000_000),
	})
	buffer := hs.buffer(t)
	assert.Equal(t, testTokenA, buffer.UnderlyingToken)
	assertDecimal(t, "2", buffer.WrappedBalance)
	assertDecimal(t, "3", buffer.UnderlyingBalance)

	hs.dispatch(t, model.WrapEvent{
		EventMeta:           meta(2, 0),
		WrappedToken:        testWrapped,
		DepositedUnderlying: big.NewInt(1_000_000),
		MintedShares:        raw("1000000000000000000"),
	})
	buffer = hs.buffer(t)
	assertDecimal(t, "1", buffer.WrappedBalance)
	assertDecimal(t, "4", buffer.UnderlyingBalance)

	hs.dispatch(t, model.UnwrapEvent{
		EventMeta:           meta(3, 0),
		WrappedToken:        testWrapped,
		BurnedShares:        raw("500000000000000000"),
		WithdrawnUnderlying: big.NewInt(500_000),
	})
	buffer = hs.buffer(t)
	assertDecimal(t, "1.5", buffer.WrappedBalance)
	assertDecimal(t, "3.5", buffer.UnderlyingBalance)

	hs.dispatch(t, model.BufferLiquidityChangedEvent{
		EventMeta:        meta(4, 0),
		WrappedToken:     testWrapped,
		AmountWrapped:    raw("500000000000000000"),
		AmountUnderlying: big.NewInt(500_000),
	})
	buffer = hs.buffer(t)
	assertDecimal(t, "1", buffer.WrappedBalance)
	assertDecimal(t, "3", buffer.UnderlyingBalance)
}

func TestBufferPackedEncoding(t *testing.T) {
	hs := newBufferHarness(t, VariantV3)
	hs.dispatch(t, model.BufferLiquidityChangedEvent{
		EventMeta:        meta(1, 0),
		Added:            true,
		WrappedToken:     testWrapped,
		AmountWrapped:    raw("2000000000000000000"),
		AmountUnderlying: big.NewInt(3_000_000),
	})

	// Packed balances replace the running totals instead of adding deltas.
	hs.dispatch(t, model.WrapEvent{
		EventMeta:           meta(2, 0),
		WrappedToken:        testWrapped,
		DepositedUnderlying: big.NewInt(1),
		MintedShares:        big.NewInt(1),
		BufferBalances:      packBalances(raw("7000000000000000000"), big.NewInt(9_000_000)),
	})
	buffer := hs.buffer(t)
	assertDecimal(t, "7", buffer.WrappedBalance)
	assertDecimal(t, "9", buffer.UnderlyingBalance)

	hs.dispatch(t, model.UnwrapEvent{
		EventMeta:      meta(3, 0),
		WrappedToken:   testWrapped,
		BufferBalances: packBalances(big.NewInt(0), big.NewInt(1)),
	})
	buffer = hs.buffer(t)
	assertDecimal(t, "0", buffer.WrappedBalance)
	assertDecimal(t, "0.000001", buffer.UnderlyingBalance)
}

func TestBufferShares(t *testing.T) {
	hs := newBufferHarness(t, VariantV3)

	hs.dispatch(t, model.BufferSharesChangedEvent{
		EventMeta:    meta(1, 0),
		Minted:       true,
		WrappedToken: testWrapped,
		Account:      testUser,
		Shares:       raw("10000000000000000000"),
	})
	hs.dispatch(t, model.BufferSharesChangedEvent{
		EventMeta:    meta(2, 0),
		WrappedToken: testWrapped,
		Account:      testUser,
		Shares:       raw("4000000000000000000"),
	})

	assertDecimal(t, "6", hs.buffer(t).TotalShares)
	share := &model.BufferShare{}
	require.True(t, hs.load(t, model.KindBufferShare, model.BufferShareKey(testWrapped, testUser), share))
	assertDecimal(t, "6", share.Balance)
	assert.True(t, hs.load(t, model.KindUser, model.AddressKey(testUser), &model.User{}))
}

func TestBufferWithoutAsset(t *testing.T) {
	hs := newBufferHarness(t, VariantV3)
	delete(hs.reader.assets, testWrapped)

	hs.dispatch(t, model.BufferLiquidityChangedEvent{
		EventMeta:        meta(1, 0),
		Added:            true,
		WrappedToken:     testWrapped,
		AmountWrapped:    raw("1000000000000000000"),
		AmountUnderlying: big.NewInt(5),
	})
	buffer := hs.buffer(t)
	assert.Equal(t, common.Address{}, buffer.UnderlyingToken)
	assertDecimal(t, "5", buffer.UnderlyingBalance)
	assert.False(t, hs.load(t, model.KindToken, model.AddressKey(common.Address{}), &model.Token{}))
}

func TestBufferEventsIgnoredWithoutBuffers(t *testing.T) {
	hs := newBufferHarness(t, VariantV3Lite)
	applied := hs.dispatch(t, model.WrapEvent{
		EventMeta:           meta(1, 0),
		WrappedToken:        testWrapped,
		DepositedUnderlying: big.NewInt(1),
		MintedShares:        big.NewInt(1),
	})
	assert.False(t, applied)
	assert.Zero(t, hs.store.Count(model.KindBuffer))
	assert.Zero(t, testutil.ToFloat64(hs.metrics.EventsHandled.WithLabelValues(model.EventWrap)))
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.EventsSkipped.WithLabelValues(model.EventWrap, "variant")))
}

func TestPoolTokenLinksBuffer(t *testing.T) {
	hs := newBufferHarness(t, VariantV3)
	hs.dispatch(t, model.BufferSharesChangedEvent{
		EventMeta:    meta(1, 0),
		Minted:       true,
		WrappedToken: testWrapped,
		Account:      testUser,
		Shares:       big.NewInt(1),
	})
	hs.dispatch(t, model.PoolRegisteredEvent{
		EventMeta:   meta(2, 0),
		Pool:        testPool,
		TokenConfig: []model.TokenConfig{{Token: testWrapped}, {Token: testTokenB}},
	})

	assert.Equal(t, model.AddressKey(testWrapped), hs.poolToken(t, testPool, testWrapped).Buffer)
	assert.Empty(t, hs.poolToken(t, testPool, testTokenB).Buffer)
}
