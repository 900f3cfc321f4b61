package mapping

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vaultScope/internal/contracts"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/storage/memory"
)

var (
	testVault     = common.HexToAddress("0xbA1333333333a1BA1108E8412f11850A5C319bA9")
	testPool      = common.HexToAddress("0x85b2b559bc2d21104c4defdd6efca8a20343361d")
	testTokenA    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testTokenB    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testUser      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOther     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testFactory   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testProvider  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testCollector = common.HexToAddress("0xce88686553686DA562CE7Cea497CE749DA109f9F")
)

// testDay is 2024-06-01 00:00:00 UTC.
const testDay int64 = 1717200000

type poolTokenPair struct {
	pool  common.Address
	token common.Address
}

// fakeReader serves canned chain state; anything unset reverts.
type fakeReader struct {
	tokens         map[common.Address]model.TokenMeta
	staticSwapFees map[common.Address]*big.Int
	yieldFees      map[poolTokenPair]*big.Int
	swapFees       map[common.Address]*big.Int
	actualSupply   map[common.Address]*big.Int
	assets         map[common.Address]common.Address
	rateProviders  map[common.Address][]common.Address
	weights        map[common.Address][]*big.Int
	amps           map[common.Address][2]*big.Int
	gyro2          map[common.Address][2]*big.Int
	eclp           map[common.Address]contracts.ECLPParams
	maxSurgeFees   map[common.Address]*big.Int
	thresholds     map[common.Address]*big.Int
	controller     common.Address
	collector      common.Address
	flashLoanFee   *big.Int
	transportErr   error
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		tokens:         make(map[common.Address]model.TokenMeta),
		staticSwapFees: make(map[common.Address]*big.Int),
		yieldFees:      make(map[poolTokenPair]*big.Int),
		swapFees:       make(map[common.Address]*big.Int),
		actualSupply:   make(map[common.Address]*big.Int),
		assets:         make(map[common.Address]common.Address),
		rateProviders:  make(map[common.Address][]common.Address),
		weights:        make(map[common.Address][]*big.Int),
		amps:           make(map[common.Address][2]*big.Int),
		gyro2:          make(map[common.Address][2]*big.Int),
		eclp:           make(map[common.Address]contracts.ECLPParams),
		maxSurgeFees:   make(map[common.Address]*big.Int),
		thresholds:     make(map[common.Address]*big.Int),
	}
}

func reverted(method string) error {
	return fmt.Errorf("call %s: %w", method, contracts.ErrReverted)
}

func lookup[K comparable, V any](f *fakeReader, m map[K]V, key K, method string) (V, error) {
	var zero V
	if f.transportErr != nil {
		return zero, f.transportErr
	}
	v, ok := m[key]
	if !ok {
		return zero, reverted(method)
	}
	return v, nil
}

func (f *fakeReader) TokenMeta(_ context.Context, _ uint64, token common.Address) (model.TokenMeta, error) {
	return lookup(f, f.tokens, token, "decimals")
}

func (f *fakeReader) ProtocolFeeController(context.Context, uint64, common.Address) (common.Address, error) {
	if f.transportErr != nil {
		return common.Address{}, f.transportErr
	}
	if f.controller == (common.Address{}) {
		return common.Address{}, reverted("getProtocolFeeController")
	}
	return f.controller, nil
}

func (f *fakeReader) StaticSwapFeePercentage(_ context.Context, _ uint64, _, pool common.Address) (*big.Int, error) {
	return lookup(f, f.staticSwapFees, pool, "getStaticSwapFeePercentage")
}

func (f *fakeReader) AggregateYieldFeeAmount(_ context.Context, _ uint64, _, pool, token common.Address) (*big.Int, error) {
	return lookup(f, f.yieldFees, poolTokenPair{pool: pool, token: token}, "getAggregateYieldFeeAmount")
}

func (f *fakeReader) Authorizer(context.Context, uint64, common.Address) (common.Address, error) {
	if f.transportErr != nil {
		return common.Address{}, f.transportErr
	}
	return common.Address{}, reverted("getAuthorizer")
}

func (f *fakeReader) ProtocolFeesCollector(context.Context, uint64, common.Address) (common.Address, error) {
	if f.transportErr != nil {
		return common.Address{}, f.transportErr
	}
	if f.collector == (common.Address{}) {
		return common.Address{}, reverted("getProtocolFeesCollector")
	}
	return f.collector, nil
}

func (f *fakeReader) SwapFeePercentage(_ context.Context, _ uint64, target common.Address) (*big.Int, error) {
	return lookup(f, f.swapFees, target, "getSwapFeePercentage")
}

func (f *fakeReader) FlashLoanFeePercentage(context.Context, uint64, common.Address) (*big.Int, error) {
	if f.transportErr != nil {
		return nil, f.transportErr
	}
	if f.flashLoanFee == nil {
		return nil, reverted("getFlashLoanFeePercentage")
	}
	return f.flashLoanFee, nil
}

func (f *fakeReader) ActualSupply(_ context.Context, _ uint64, pool common.Address) (*big.Int, error) {
	return lookup(f, f.actualSupply, pool, "getActualSupply")
}

func (f *fakeReader) Asset(_ context.Context, _ uint64, wrapped common.Address) (common.Address, error) {
	return lookup(f, f.assets, wrapped, "asset")
}

func (f *fakeReader) MaxSurgeFeePercentage(_ context.Context, _ uint64, _, pool common.Address) (*big.Int, error) {
	return lookup(f, f.maxSurgeFees, pool, "getMaxSurgeFeePercentage")
}

func (f *fakeReader) SurgeThresholdPercentage(_ context.Context, _ uint64, _, pool common.Address) (*big.Int, error) {
	return lookup(f, f.thresholds, pool, "getSurgeThresholdPercentage")
}

func (f *fakeReader) RateProviders(_ context.Context, _ uint64, pool common.Address) ([]common.Address, error) {
	return lookup(f, f.rateProviders, pool, "getRateProviders")
}

func (f *fakeReader) NormalizedWeights(_ context.Context, _ uint64, pool common.Address) ([]*big.Int, error) {
	return lookup(f, f.weights, pool, "getNormalizedWeights")
}

func (f *fakeReader) AmplificationParameter(_ context.Context, _ uint64, pool common.Address) (*big.Int, *big.Int, error) {
	v, err := lookup(f, f.amps, pool, "getAmplificationParameter")
	return v[0], v[1], err
}

func (f *fakeReader) Gyro2SqrtPrices(_ context.Context, _ uint64, pool common.Address) (*big.Int, *big.Int, error) {
	v, err := lookup(f, f.gyro2, pool, "getGyro2CLPPoolImmutableData")
	return v[0], v[1], err
}

func (f *fakeReader) ECLPParams(_ context.Context, _ uint64, pool common.Address) (contracts.ECLPParams, error) {
	return lookup(f, f.eclp, pool, "getECLPParams")
}

type harness struct {
	h       *Handlers
	store   *memory.Store
	reader  *fakeReader
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, variant Variant) *harness {
	t.Helper()
	store := memory.NewStore()
	reader := newFakeReader()
	reader.tokens[testTokenA] = model.TokenMeta{Symbol: "USDC", Name: "USD Coin", Decimals: 6}
	reader.tokens[testTokenB] = model.TokenMeta{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18}
	reader.tokens[testPool] = model.TokenMeta{Symbol: "BPT", Name: "Pool Share", Decimals: 18}
	m := metrics.New(prometheus.NewRegistry())
	cfg := Config{
		Variant: variant,
		Vault:   testVault,
		Factories: map[common.Address]FactoryInfo{
			testFactory: {Type: FactoryTypeWeighted, Version: 1},
		},
	}
	return &harness{
		h:       New(cfg, store, reader, zaptest.NewLogger(t), m),
		store:   store,
		reader:  reader,
		metrics: m,
	}
}

func (hs *harness) dispatch(t *testing.T, ev model.Event) bool {
	t.Helper()
	applied, err := hs.h.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return applied
}

func (hs *harness) pool(t *testing.T, address common.Address) *model.Pool {
	t.Helper()
	pool := &model.Pool{}
	found, err := hs.store.Load(context.Background(), model.KindPool, model.AddressKey(address), pool)
	require.NoError(t, err)
	require.True(t, found, "pool %s", address.Hex())
	return pool
}

func (hs *harness) poolToken(t *testing.T, pool, token common.Address) *model.PoolToken {
	t.Helper()
	pt := &model.PoolToken{}
	found, err := hs.store.Load(context.Background(), model.KindPoolToken, model.PoolTokenKey(pool, token), pt)
	require.NoError(t, err)
	require.True(t, found, "pool token %s", token.Hex())
	return pt
}

func (hs *harness) load(t *testing.T, kind model.Kind, id string, dst model.Entity) bool {
	t.Helper()
	found, err := hs.store.Load(context.Background(), kind, id, dst)
	require.NoError(t, err)
	return found
}

// registerV3 registers testPool with tokens A and B; B pays yield fees.
func (hs *harness) registerV3(t *testing.T) {
	t.Helper()
	hs.dispatch(t, model.PoolRegisteredEvent{
		EventMeta: meta(1, 0),
		Pool:      testPool,
		Factory:   testFactory,
		TokenConfig: []model.TokenConfig{
			{Token: testTokenA, RateProvider: common.Address{}},
			{Token: testTokenB, RateProvider: testProvider, TokenType: 1, PaysYieldFees: true},
		},
		PauseWindowEndTime: 1750000000,
		RoleAccounts:       model.RoleAccounts{PoolCreator: testUser},
		HooksConfig:        model.HooksConfig{ShouldCallAfterSwap: true},
	})
}

func meta(block, logIndex uint64) model.EventMeta {
	return model.EventMeta{
		ChainID:        1,
		BlockNumber:    block,
		BlockTimestamp: testDay + int64(block)*12,
		TxHash:         common.BigToHash(new(big.Int).SetUint64(block*1000 + logIndex)),
		TxFrom:         testUser,
		LogIndex:       logIndex,
		Address:        testVault,
	}
}

func metaFrom(block, logIndex uint64, emitter common.Address) model.EventMeta {
	m := meta(block, logIndex)
	m.Address = emitter
	return m
}

func raw(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got.String())
}
