package contracts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// ErrReverted marks a read that the contract rejected, as opposed to a
// transport failure. Callers fall back to defaults only for this error.
var ErrReverted = errors.New("contract call reverted")

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Reader performs the contract reads the mapping handlers need. Every method
// returns an error when the call reverts or the RPC fails; callers decide
// the fallback value.
type Reader struct {
	caller chain.Caller
	tokens *TokenMetaCache
	logger *zap.Logger
}

func NewReader(caller chain.Caller, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{caller: caller, tokens: NewTokenMetaCache(), logger: logger}
}

func (r *Reader) call(ctx context.Context, block uint64, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, blockPtr)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("call %s: %w: %w", method, ErrReverted, err)
		}
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	// Calls to accounts without code return empty data; treat like a revert.
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w: %w", method, ErrReverted, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result: %w", method, ErrReverted)
	}
	return values, nil
}

func (r *Reader) readAddress(ctx context.Context, block uint64, to common.Address, method string, args ...interface{}) (common.Address, error) {
	parsed, err := reads.get()
	if err != nil {
		return common.Address{}, err
	}
	values, err := r.call(ctx, block, to, parsed, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

func (r *Reader) readUint(ctx context.Context, block uint64, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	parsed, err := reads.get()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, block, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TokenMeta loads name, symbol and decimals. A token that reverts on
// decimals still returns whatever else could be read, with the error.
// Transport failures are returned as is and nothing is cached.
func (r *Reader) TokenMeta(ctx context.Context, block uint64, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}

	meta := model.TokenMeta{Address: token.Hex()}
	stringABI, err := erc20String.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	symbol, err := r.readText(ctx, block, token, stringABI, bytes32ABI, "symbol")
	if err != nil {
		return meta, err
	}
	meta.Symbol = symbol
	name, err := r.readText(ctx, block, token, stringABI, bytes32ABI, "name")
	if err != nil {
		return meta, err
	}
	meta.Name = name

	values, err := r.call(ctx, block, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals

	r.tokens.Set(token, meta)
	return meta, nil
}

// readText reads a string method, falling back to the bytes32 form. A token
// that reverts on both yields "".
func (r *Reader) readText(ctx context.Context, block uint64, token common.Address, stringABI, bytes32ABI abi.ABI, method string) (string, error) {
	values, err := r.call(ctx, block, token, stringABI, method)
	if err == nil {
		if text, ok := values[0].(string); ok {
			return text, nil
		}
		return "", nil
	}
	if !errors.Is(err, ErrReverted) {
		return "", err
	}

	values, err = r.call(ctx, block, token, bytes32ABI, method)
	if err == nil {
		text, _ := bytes32ToString(values[0])
		return text, nil
	}
	if !errors.Is(err, ErrReverted) {
		return "", err
	}
	r.logger.Debug(method+" call reverted", zap.String("token", token.Hex()), zap.Error(err))
	return "", nil
}

func (r *Reader) ProtocolFeeController(ctx context.Context, block uint64, vault common.Address) (common.Address, error) {
	return r.readAddress(ctx, block, vault, "getProtocolFeeController")
}

func (r *Reader) StaticSwapFeePercentage(ctx context.Context, block uint64, vault, pool common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, vault, "getStaticSwapFeePercentage", pool)
}

func (r *Reader) AggregateYieldFeeAmount(ctx context.Context, block uint64, vault, pool, token common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, vault, "getAggregateYieldFeeAmount", pool, token)
}

func (r *Reader) Authorizer(ctx context.Context, block uint64, vault common.Address) (common.Address, error) {
	return r.readAddress(ctx, block, vault, "getAuthorizer")
}

func (r *Reader) ProtocolFeesCollector(ctx context.Context, block uint64, vault common.Address) (common.Address, error) {
	return r.readAddress(ctx, block, vault, "getProtocolFeesCollector")
}

// SwapFeePercentage reads getSwapFeePercentage from a pool or a fees collector.
func (r *Reader) SwapFeePercentage(ctx context.Context, block uint64, target common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, target, "getSwapFeePercentage")
}

func (r *Reader) FlashLoanFeePercentage(ctx context.Context, block uint64, collector common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, collector, "getFlashLoanFeePercentage")
}

func (r *Reader) ActualSupply(ctx context.Context, block uint64, pool common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, pool, "getActualSupply")
}

func (r *Reader) Asset(ctx context.Context, block uint64, wrapped common.Address) (common.Address, error) {
	return r.readAddress(ctx, block, wrapped, "asset")
}

func (r *Reader) MaxSurgeFeePercentage(ctx context.Context, block uint64, hook, pool common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, hook, "getMaxSurgeFeePercentage", pool)
}

func (r *Reader) SurgeThresholdPercentage(ctx context.Context, block uint64, hook, pool common.Address) (*big.Int, error) {
	return r.readUint(ctx, block, hook, "getSurgeThresholdPercentage", pool)
}

func (r *Reader) RateProviders(ctx context.Context, block uint64, pool common.Address) ([]common.Address, error) {
	parsed, err := reads.get()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, block, pool, parsed, "getRateProviders")
	if err != nil {
		return nil, err
	}
	providers, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unsupported rate providers type %T", values[0])
	}
	return providers, nil
}

func (r *Reader) NormalizedWeights(ctx context.Context, block uint64, pool common.Address) ([]*big.Int, error) {
	parsed, err := reads.get()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, block, pool, parsed, "getNormalizedWeights")
	if err != nil {
		return nil, err
	}
	weights, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported weights type %T", values[0])
	}
	return weights, nil
}

// AmplificationParameter returns the raw value and its precision.
func (r *Reader) AmplificationParameter(ctx context.Context, block uint64, pool common.Address) (*big.Int, *big.Int, error) {
	parsed, err := reads.get()
	if err != nil {
		return nil, nil, err
	}
	values, err := r.call(ctx, block, pool, parsed, "getAmplificationParameter")
	if err != nil {
		return nil, nil, err
	}
	if len(values) != 3 {
		return nil, nil, fmt.Errorf("unexpected amplification values: %d", len(values))
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, err
	}
	precision, err := asBigInt(values[2])
	if err != nil {
		return nil, nil, err
	}
	return value, precision, nil
}

// Gyro2SqrtPrices returns the raw square roots of a 2-CLP pool's lower and
// upper price bounds.
func (r *Reader) Gyro2SqrtPrices(ctx context.Context, block uint64, pool common.Address) (*big.Int, *big.Int, error) {
	parsed, err := reads.get()
	if err != nil {
		return nil, nil, err
	}
	values, err := r.call(ctx, block, pool, parsed, "getGyro2CLPPoolImmutableData")
	if err != nil {
		return nil, nil, err
	}
	sqrtAlpha, err := tupleInt(values[0], "SqrtAlpha")
	if err != nil {
		return nil, nil, err
	}
	sqrtBeta, err := tupleInt(values[0], "SqrtBeta")
	if err != nil {
		return nil, nil, err
	}
	return sqrtAlpha, sqrtBeta, nil
}

// ECLPParams are the raw parameters of an elliptic CLP pool.
type ECLPParams struct {
	Alpha, Beta, C, S, Lambda                *big.Int
	TauAlphaX, TauAlphaY, TauBetaX, TauBetaY *big.Int
	U, V, W, Z, DSq                          *big.Int
}

func (r *Reader) ECLPParams(ctx context.Context, block uint64, pool common.Address) (ECLPParams, error) {
	var out ECLPParams
	parsed, err := reads.get()
	if err != nil {
		return out, err
	}
	values, err := r.call(ctx, block, pool, parsed, "getECLPParams")
	if err != nil {
		return out, err
	}
	if len(values) != 2 {
		return out, fmt.Errorf("unexpected eclp values: %d: %w", len(values), ErrReverted)
	}
	params, derived := values[0], values[1]
	fields := []struct {
		dst  **big.Int
		src  interface{}
		path []string
	}{
		{&out.Alpha, params, []string{"Alpha"}},
		{&out.Beta, params, []string{"Beta"}},
		{&out.C, params, []string{"C"}},
		{&out.S, params, []string{"S"}},
		{&out.Lambda, params, []string{"Lambda"}},
		{&out.TauAlphaX, derived, []string{"TauAlpha", "X"}},
		{&out.TauAlphaY, derived, []string{"TauAlpha", "Y"}},
		{&out.TauBetaX, derived, []string{"TauBeta", "X"}},
		{&out.TauBetaY, derived, []string{"TauBeta", "Y"}},
		{&out.U, derived, []string{"U"}},
		{&out.V, derived, []string{"V"}},
		{&out.W, derived, []string{"W"}},
		{&out.Z, derived, []string{"Z"}},
		{&out.DSq, derived, []string{"DSq"}},
	}
	for _, f := range fields {
		v, err := tupleInt(f.src, f.path...)
		if err != nil {
			return ECLPParams{}, err
		}
		*f.dst = v
	}
	return out, nil
}

// tupleInt reads an integer out of an unpacked tuple by field path.
func tupleInt(value interface{}, path ...string) (*big.Int, error) {
	v := reflect.ValueOf(value)
	for _, name := range path {
		for v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("tuple field %s: unexpected %s: %w", name, v.Kind(), ErrReverted)
		}
		v = v.FieldByName(name)
		if !v.IsValid() {
			return nil, fmt.Errorf("tuple field %s missing: %w", name, ErrReverted)
		}
	}
	return asBigInt(v.Interface())
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if v.Sign() < 0 || !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("value %s out of uint8 range: %w", v, ErrReverted)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T: %w", value, ErrReverted)
	}
}
