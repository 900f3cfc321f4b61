package mapping

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/contracts"
	"vaultScope/internal/model"
)

var (
	testStableFactory = common.HexToAddress("0x7777777777777777777777777777777777777777")
	testSurgeHook     = common.HexToAddress("0x8888888888888888888888888888888888888888")
	testStablePool    = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

func TestWeightedPoolCreated(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.reader.weights[testPool] = []*big.Int{raw("800000000000000000"), raw("200000000000000000")}
	hs.registerV3(t)

	hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 5, testFactory), Pool: testPool})

	factory := &model.Factory{}
	require.True(t, hs.load(t, model.KindFactory, model.AddressKey(testFactory), factory))
	assert.Equal(t, FactoryTypeWeighted, factory.Type)
	assert.Equal(t, 1, factory.Version)

	params := &model.WeightedParams{}
	require.True(t, hs.load(t, model.KindWeightedParams, model.AddressKey(testPool), params))
	require.Len(t, params.Weights, 2)
	assertDecimal(t, "0.8", params.Weights[0])
	assertDecimal(t, "0.2", params.Weights[1])

	pool := hs.pool(t, testPool)
	assert.Equal(t, FactoryTypeWeighted, pool.FactoryType)
	assert.Equal(t, 1, pool.FactoryVersion)
}

func TestStablePoolCreatedBeforeRegistration(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.h.cfg.Factories[testStableFactory] = FactoryInfo{Type: FactoryTypeStable, Version: 2}
	hs.reader.amps[testStablePool] = [2]*big.Int{big.NewInt(200_000), big.NewInt(1000)}

	hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 0, testStableFactory), Pool: testStablePool})
	params := &model.StableParams{}
	require.True(t, hs.load(t, model.KindStableParams, model.AddressKey(testStablePool), params))
	assert.Equal(t, "200", params.Amp.String())
	assert.Zero(t, hs.store.Count(model.KindPool))

	hs.reader.tokens[testStablePool] = model.TokenMeta{Symbol: "S-BPT", Decimals: 18}
	hs.dispatch(t, model.PoolRegisteredEvent{
		EventMeta:   meta(1, 1),
		Pool:        testStablePool,
		Factory:     testStableFactory,
		TokenConfig: []model.TokenConfig{{Token: testTokenA}, {Token: testTokenB}},
	})
	pool := hs.pool(t, testStablePool)
	assert.Equal(t, FactoryTypeStable, pool.FactoryType)
	assert.Equal(t, 2, pool.FactoryVersion)
}

func TestStablePoolAmpReverts(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.h.cfg.Factories[testStableFactory] = FactoryInfo{Type: FactoryTypeStable, Version: 1}

	hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 0, testStableFactory), Pool: testStablePool})
	params := &model.StableParams{}
	require.True(t, hs.load(t, model.KindStableParams, model.AddressKey(testStablePool), params))
	assert.Nil(t, params.Amp)
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.ReadFailures.WithLabelValues("getAmplificationParameter")))
}

func TestPoolCreatedUnknownFactory(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 0, testStableFactory), Pool: testStablePool})
	assert.Zero(t, hs.store.Count(model.KindFactory))
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.EventsSkipped.WithLabelValues(model.EventPoolCreated, "factory_unknown")))
}

func TestStableSurgeHookRegistered(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.reader.amps[testStablePool] = [2]*big.Int{big.NewInt(300_000), big.NewInt(1000)}
	hs.reader.maxSurgeFees[testStablePool] = raw("950000000000000000")

	hs.dispatch(t, model.StableSurgeHookRegisteredEvent{
		EventMeta: metaFrom(1, 0, testSurgeHook),
		Pool:      testStablePool,
		Factory:   testStableFactory,
	})

	factory := &model.Factory{}
	require.True(t, hs.load(t, model.KindFactory, model.AddressKey(testStableFactory), factory))
	assert.Equal(t, FactoryTypeStableSurge, factory.Type)
	assert.True(t, hs.load(t, model.KindHook, model.AddressKey(testSurgeHook), &model.Hook{}))

	params := &model.StableSurgeParams{}
	require.True(t, hs.load(t, model.KindStableSurgeParams, model.AddressKey(testStablePool), params))
	assert.Equal(t, "300", params.Amp.String())
	assertDecimal(t, "0.95", params.MaxSurgeFeePercentage)
	assertDecimal(t, "0", params.SurgeThresholdPercentage)
}

func TestGyro2PoolCreated(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.h.cfg.Factories[testStableFactory] = FactoryInfo{Type: FactoryTypeGyro2, Version: 1}
	hs.reader.gyro2[testStablePool] = [2]*big.Int{raw("997496867163000167"), raw("1002496882788171068")}

	assert.True(t, hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 0, testStableFactory), Pool: testStablePool}))

	params := &model.Gyro2Params{}
	require.True(t, hs.load(t, model.KindGyro2Params, model.AddressKey(testStablePool), params))
	assertDecimal(t, "0.997496867163000167", params.SqrtAlpha)
	assertDecimal(t, "1.002496882788171068", params.SqrtBeta)
}

func TestGyroEPoolCreatedScalesDerivedParams(t *testing.T) {
	hs := newHarness(t, VariantV2)
	hs.h.cfg.Factories[testStableFactory] = FactoryInfo{Type: FactoryTypeGyroE, Version: 2}
	hs.reader.eclp[testStablePool] = contracts.ECLPParams{
		Alpha:     raw("998502246630054917"),
		Beta:      raw("1000200040008001600"),
		C:         raw("707106781186547524"),
		S:         raw("707106781186547524"),
		Lambda:    raw("4000000000000000000000"),
		TauAlphaX: raw("-94861212813096057289512505574275160547"),
		TauAlphaY: raw("31644119574235279926451292677567331630"),
		TauBetaX:  raw("37142269533113549537591131345643981951"),
		TauBetaY:  raw("92846388265400743995957747409218517601"),
		U:         raw("66001741173104803338721745994955553010"),
		V:         raw("62245253919818011890633399060291020887"),
		W:         raw("30601134345582732000058913853921008022"),
		Z:         raw("-28859471639991253843240999485797747790"),
		DSq:       raw("99999999999999999886624093342106115200"),
	}

	hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 0, testStableFactory), Pool: testStablePool})

	factory := &model.Factory{}
	require.True(t, hs.load(t, model.KindFactory, model.AddressKey(testStableFactory), factory))
	assert.Equal(t, FactoryTypeGyroE, factory.Type)
	assert.Equal(t, 2, factory.Version)

	params := &model.GyroEParams{}
	require.True(t, hs.load(t, model.KindGyroEParams, model.AddressKey(testStablePool), params))
	assertDecimal(t, "0.998502246630054917", params.Alpha)
	assertDecimal(t, "0.707106781186547524", params.C)
	assertDecimal(t, "4000", params.Lambda)
	assertDecimal(t, "-0.94861212813096057289512505574275160547", params.TauAlphaX)
	assertDecimal(t, "0.928463882654007439959577474092185176", params.TauBetaY.Truncate(36))
	assertDecimal(t, "-0.2885947163999125384324099948579774779", params.Z)
	assertDecimal(t, "0.999999999999999998866240933421061152", params.DSq)
}

func TestGyroEParamsRevertStillSaved(t *testing.T) {
	hs := newHarness(t, VariantV3)
	hs.h.cfg.Factories[testStableFactory] = FactoryInfo{Type: FactoryTypeGyroE, Version: 1}

	hs.dispatch(t, model.PoolCreatedEvent{EventMeta: metaFrom(1, 0, testStableFactory), Pool: testStablePool})

	params := &model.GyroEParams{}
	require.True(t, hs.load(t, model.KindGyroEParams, model.AddressKey(testStablePool), params))
	assert.True(t, params.Alpha.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.metrics.ReadFailures.WithLabelValues("getECLPParams")))
}
