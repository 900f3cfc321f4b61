package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"vaultScope/internal/model"
)

// DecoderConfig names the singleton contracts whose events share a
// signature with pool events.
type DecoderConfig struct {
	Vault         common.Address
	FeesCollector common.Address
}

type source int

const (
	sourceVault source = iota
	sourceFeeController
	sourceFeesCollector
	sourcePool
	sourceFactory
)

type decodeFunc func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error)

type eventDef struct {
	parsed abi.ABI
	event  abi.Event
	source source
	decode decodeFunc
}

// Decoder turns raw vault, fee controller, factory and pool logs into typed events.
type Decoder struct {
	cfg     DecoderConfig
	byTopic map[common.Hash][]eventDef
}

// NewDecoder builds a decoder for every supported event.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	d := &Decoder{cfg: cfg, byTopic: make(map[common.Hash][]eventDef)}

	groups := []struct {
		abi      *lazyABI
		source   source
		decoders map[string]decodeFunc
	}{
		{vaultV3Events, sourceVault, map[string]decodeFunc{
			"PoolRegistered":             decodePoolRegistered,
			"LiquidityAdded":             decodeLiquidityChanged(true),
			"LiquidityRemoved":           decodeLiquidityChanged(false),
			"Swap":                       decodeSwapV3,
			"SwapFeePercentageChanged":   decodePoolSwapFeeChanged,
			"PoolPausedStateChanged":     decodePoolPausedV3,
			"VaultPausedStateChanged":    decodeVaultPaused,
			"AuthorizerChanged":          decodeAuthorizerChanged,
			"LiquidityAddedToBuffer":     decodeBufferLiquidity(true, true),
			"LiquidityRemovedFromBuffer": decodeBufferLiquidity(false, true),
			"Wrap":                       decodeWrap(true),
			"Unwrap":                     decodeUnwrap(true),
			"BufferSharesMinted":         decodeBufferShares(true),
			"BufferSharesBurned":         decodeBufferShares(false),
		}},
		{legacyBufferEvents, sourceVault, map[string]decodeFunc{
			"LiquidityAddedToBuffer":     decodeBufferLiquidity(true, false),
			"LiquidityRemovedFromBuffer": decodeBufferLiquidity(false, false),
			"Wrap":                       decodeWrap(false),
			"Unwrap":                     decodeUnwrap(false),
		}},
		{feeControllerEvents, sourceFeeController, map[string]decodeFunc{
			"GlobalProtocolSwapFeePercentageChanged":  decodeFeeChanged(model.FeeScopeGlobalSwap),
			"GlobalProtocolYieldFeePercentageChanged": decodeFeeChanged(model.FeeScopeGlobalYield),
			"ProtocolSwapFeePercentageChanged":        decodeFeeChanged(model.FeeScopePoolProtocolSwap),
			"ProtocolYieldFeePercentageChanged":       decodeFeeChanged(model.FeeScopePoolProtocolYield),
			"PoolCreatorSwapFeePercentageChanged":     decodeFeeChanged(model.FeeScopePoolCreatorSwap),
			"PoolCreatorYieldFeePercentageChanged":    decodeFeeChanged(model.FeeScopePoolCreatorYield),
			"ProtocolSwapFeeCollected":                decodeFeeCollected(false),
			"ProtocolYieldFeeCollected":               decodeFeeCollected(true),
			"ProtocolFeesWithdrawn":                   decodeFeesWithdrawn,
		}},
		{vaultV2Events, sourceVault, map[string]decodeFunc{
			"TokensRegistered":   decodeTokensRegistered,
			"PoolBalanceChanged": decodePoolBalanceChanged,
			"Swap":               decodeSwapV2,
			"PausedStateChanged": decodeVaultPaused,
		}},
		{feesCollectorEvents, sourceFeesCollector, map[string]decodeFunc{
			"SwapFeePercentageChanged":      decodeFeeChanged(model.FeeScopeCollectorSwap),
			"FlashLoanFeePercentageChanged": decodeFeeChanged(model.FeeScopeCollectorFlashLoan),
		}},
		{poolEvents, sourcePool, map[string]decodeFunc{
			"Transfer":                 decodeTransfer,
			"SwapFeePercentageChanged": decodePoolSwapFeeChanged,
			"PausedStateChanged":       decodePoolPausedV2,
		}},
		{factoryEvents, sourceFactory, map[string]decodeFunc{
			"PoolCreated":               decodePoolCreated,
			"StableSurgeHookRegistered": decodeStableSurgeHookRegistered,
		}},
	}

	for _, group := range groups {
		parsed, err := group.abi.get()
		if err != nil {
			return nil, fmt.Errorf("parse abi: %w", err)
		}
		for name, fn := range group.decoders {
			event, ok := parsed.Events[name]
			if !ok {
				return nil, fmt.Errorf("event %s missing from abi", name)
			}
			d.byTopic[event.ID] = append(d.byTopic[event.ID], eventDef{
				parsed: parsed,
				event:  event,
				source: group.source,
				decode: fn,
			})
		}
	}

	return d, nil
}

// Topics returns every supported topic0.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.byTopic))
	for topic := range d.byTopic {
		out = append(out, topic)
	}
	return out
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.byTopic[common.HexToHash(topic0)]
	return ok
}

// Decode converts a LogRecord into a typed event.
func (d *Decoder) Decode(log model.LogRecord) (model.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	defs, ok := d.byTopic[common.HexToHash(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}
	emitter := common.HexToAddress(log.Address)

	def := d.resolve(defs, emitter)
	return def.decode(def, log, eventMeta(log, emitter))
}

// resolve picks between events that share a signature, by emitter.
func (d *Decoder) resolve(defs []eventDef, emitter common.Address) eventDef {
	if len(defs) == 1 {
		return defs[0]
	}
	want := sourcePool
	switch emitter {
	case d.cfg.FeesCollector:
		want = sourceFeesCollector
	case d.cfg.Vault:
		want = sourceVault
	}
	for _, def := range defs {
		if def.source == want {
			return def
		}
	}
	return defs[0]
}

func eventMeta(log model.LogRecord, emitter common.Address) model.EventMeta {
	meta := model.EventMeta{
		ChainID:        log.ChainID,
		BlockNumber:    log.BlockNumber,
		BlockTimestamp: int64(log.Timestamp),
		TxHash:         common.HexToHash(log.TxHash),
		LogIndex:       log.LogIndex,
		Address:        emitter,
	}
	if common.IsHexAddress(log.TxFrom) {
		meta.TxFrom = common.HexToAddress(log.TxFrom)
	}
	return meta
}

// unpackLog fills indexed from the topics and data from the log payload.
// Either target may be nil.
func unpackLog(def eventDef, log model.LogRecord, indexed, data interface{}) error {
	topics, err := parseIndexedTopics(def.event, log.Topics)
	if err != nil {
		return err
	}
	if indexed != nil {
		if err := abi.ParseTopics(indexed, indexedArguments(def.event.Inputs), topics); err != nil {
			return fmt.Errorf("parse topics: %w", err)
		}
	}
	if data != nil {
		raw, err := hexutil.Decode(log.Data)
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		if err := def.parsed.UnpackIntoInterface(data, def.event.Name, raw); err != nil {
			return fmt.Errorf("unpack %s: %w", def.event.Name, err)
		}
	}
	return nil
}

func decodePoolRegistered(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool    common.Address
		Factory common.Address
	}
	var data struct {
		TokenConfig         []model.TokenConfig
		SwapFeePercentage   *big.Int
		PauseWindowEndTime  uint32
		RoleAccounts        model.RoleAccounts
		HooksConfig         model.HooksConfig
		LiquidityManagement model.LiquidityManagementFlags
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	return model.PoolRegisteredEvent{
		EventMeta:           meta,
		Pool:                indexed.Pool,
		Factory:             indexed.Factory,
		TokenConfig:         data.TokenConfig,
		SwapFeePercentage:   data.SwapFeePercentage,
		PauseWindowEndTime:  data.PauseWindowEndTime,
		RoleAccounts:        data.RoleAccounts,
		HooksConfig:         data.HooksConfig,
		LiquidityManagement: data.LiquidityManagement,
	}, nil
}

func decodeLiquidityChanged(added bool) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed struct {
			Pool              common.Address
			LiquidityProvider common.Address
			Kind              uint8
		}
		var data struct {
			TotalSupply       *big.Int
			AmountsAddedRaw   []*big.Int
			AmountsRemovedRaw []*big.Int
			SwapFeeAmountsRaw []*big.Int
		}
		if err := unpackLog(def, log, &indexed, &data); err != nil {
			return nil, err
		}
		amounts := data.AmountsRemovedRaw
		if added {
			amounts = data.AmountsAddedRaw
		}
		return model.LiquidityChangedEvent{
			EventMeta:         meta,
			Added:             added,
			Pool:              indexed.Pool,
			LiquidityProvider: indexed.LiquidityProvider,
			Kind:              indexed.Kind,
			TotalSupply:       data.TotalSupply,
			AmountsRaw:        amounts,
			SwapFeeAmountsRaw: data.SwapFeeAmountsRaw,
		}, nil
	}
}

func decodeSwapV3(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool     common.Address
		TokenIn  common.Address
		TokenOut common.Address
	}
	var data struct {
		AmountIn          *big.Int
		AmountOut         *big.Int
		SwapFeePercentage *big.Int
		SwapFeeAmount     *big.Int
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	return model.SwapEvent{
		EventMeta:         meta,
		Pool:              indexed.Pool,
		TokenIn:           indexed.TokenIn,
		TokenOut:          indexed.TokenOut,
		AmountIn:          data.AmountIn,
		AmountOut:         data.AmountOut,
		SwapFeePercentage: data.SwapFeePercentage,
		SwapFeeAmount:     data.SwapFeeAmount,
	}, nil
}

func decodeSwapV2(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		PoolId   [32]byte
		TokenIn  common.Address
		TokenOut common.Address
	}
	var data struct {
		AmountIn  *big.Int
		AmountOut *big.Int
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	poolID := common.Hash(indexed.PoolId)
	return model.SwapEvent{
		EventMeta: meta,
		Pool:      model.PoolAddressFromID(poolID),
		PoolID:    poolID,
		TokenIn:   indexed.TokenIn,
		TokenOut:  indexed.TokenOut,
		AmountIn:  data.AmountIn,
		AmountOut: data.AmountOut,
	}, nil
}

// decodePoolSwapFeeChanged handles the v3 vault form (pool indexed) and the
// v2 pool form (emitter is the pool).
func decodePoolSwapFeeChanged(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool common.Address
	}
	var data struct {
		SwapFeePercentage *big.Int
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	pool := indexed.Pool
	if def.source == sourcePool {
		pool = meta.Address
	}
	return model.SwapFeePercentageChangedEvent{
		EventMeta:         meta,
		Pool:              pool,
		SwapFeePercentage: data.SwapFeePercentage,
	}, nil
}

func decodePoolPausedV3(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool common.Address
	}
	var data struct {
		Paused bool
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	return model.PoolPausedStateChangedEvent{EventMeta: meta, Pool: indexed.Pool, Paused: data.Paused}, nil
}

func decodePoolPausedV2(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var data struct {
		Paused bool
	}
	if err := unpackLog(def, log, nil, &data); err != nil {
		return nil, err
	}
	return model.PoolPausedStateChangedEvent{EventMeta: meta, Pool: meta.Address, Paused: data.Paused}, nil
}

func decodeVaultPaused(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var data struct {
		Paused bool
	}
	if err := unpackLog(def, log, nil, &data); err != nil {
		return nil, err
	}
	return model.VaultPausedStateChangedEvent{EventMeta: meta, Paused: data.Paused}, nil
}

func decodeAuthorizerChanged(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		NewAuthorizer common.Address
	}
	if err := unpackLog(def, log, &indexed, nil); err != nil {
		return nil, err
	}
	return model.AuthorizerChangedEvent{EventMeta: meta, NewAuthorizer: indexed.NewAuthorizer}, nil
}

type bufferIndexed struct {
	WrappedToken common.Address
}

func decodeBufferLiquidity(added, packed bool) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed bufferIndexed
		var data struct {
			AmountUnderlying *big.Int
			AmountWrapped    *big.Int
			BufferBalances   [32]byte
		}
		if err := unpackLog(def, log, &indexed, &data); err != nil {
			return nil, err
		}
		ev := model.BufferLiquidityChangedEvent{
			EventMeta:        meta,
			Added:            added,
			WrappedToken:     indexed.WrappedToken,
			AmountUnderlying: data.AmountUnderlying,
			AmountWrapped:    data.AmountWrapped,
		}
		if packed {
			ev.BufferBalances = &data.BufferBalances
		}
		return ev, nil
	}
}

func decodeWrap(packed bool) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed bufferIndexed
		var data struct {
			DepositedUnderlying *big.Int
			MintedShares        *big.Int
			BufferBalances      [32]byte
		}
		if err := unpackLog(def, log, &indexed, &data); err != nil {
			return nil, err
		}
		ev := model.WrapEvent{
			EventMeta:           meta,
			WrappedToken:        indexed.WrappedToken,
			DepositedUnderlying: data.DepositedUnderlying,
			MintedShares:        data.MintedShares,
		}
		if packed {
			ev.BufferBalances = &data.BufferBalances
		}
		return ev, nil
	}
}

func decodeUnwrap(packed bool) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed bufferIndexed
		var data struct {
			BurnedShares        *big.Int
			WithdrawnUnderlying *big.Int
			BufferBalances      [32]byte
		}
		if err := unpackLog(def, log, &indexed, &data); err != nil {
			return nil, err
		}
		ev := model.UnwrapEvent{
			EventMeta:           meta,
			WrappedToken:        indexed.WrappedToken,
			BurnedShares:        data.BurnedShares,
			WithdrawnUnderlying: data.WithdrawnUnderlying,
		}
		if packed {
			ev.BufferBalances = &data.BufferBalances
		}
		return ev, nil
	}
}

func decodeBufferShares(minted bool) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed struct {
			WrappedToken common.Address
			To           common.Address
			From         common.Address
		}
		var data struct {
			IssuedShares *big.Int
			BurnedShares *big.Int
		}
		if err := unpackLog(def, log, &indexed, &data); err != nil {
			return nil, err
		}
		ev := model.BufferSharesChangedEvent{
			EventMeta:    meta,
			Minted:       minted,
			WrappedToken: indexed.WrappedToken,
			Account:      indexed.From,
			Shares:       data.BurnedShares,
		}
		if minted {
			ev.Account = indexed.To
			ev.Shares = data.IssuedShares
		}
		return ev, nil
	}
}

func decodeFeeChanged(scope model.FeeScope) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed struct {
			Pool common.Address
		}
		values, err := unpackSingle(def, log, &indexed)
		if err != nil {
			return nil, err
		}
		return model.ProtocolFeeChangedEvent{
			EventMeta:  meta,
			Scope:      scope,
			Pool:       indexed.Pool,
			Percentage: values,
		}, nil
	}
}

// unpackSingle decodes events whose payload is one uint256 with an
// event-specific name.
func unpackSingle(def eventDef, log model.LogRecord, indexed interface{}) (*big.Int, error) {
	if err := unpackLog(def, log, indexed, nil); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(def.event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s values: %d", def.event.Name, len(values))
	}
	return asBigInt(values[0])
}

func decodeFeeCollected(yield bool) decodeFunc {
	return func(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
		var indexed struct {
			Pool  common.Address
			Token common.Address
		}
		amount, err := unpackSingle(def, log, &indexed)
		if err != nil {
			return nil, err
		}
		return model.ProtocolFeeCollectedEvent{
			EventMeta: meta,
			Yield:     yield,
			Pool:      indexed.Pool,
			Token:     indexed.Token,
			Amount:    amount,
		}, nil
	}
}

func decodeFeesWithdrawn(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool      common.Address
		Token     common.Address
		Recipient common.Address
	}
	amount, err := unpackSingle(def, log, &indexed)
	if err != nil {
		return nil, err
	}
	return model.ProtocolFeesWithdrawnEvent{
		EventMeta: meta,
		Pool:      indexed.Pool,
		Token:     indexed.Token,
		Recipient: indexed.Recipient,
		Amount:    amount,
	}, nil
}

func decodeTokensRegistered(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		PoolId [32]byte
	}
	var data struct {
		Tokens        []common.Address
		AssetManagers []common.Address
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	return model.TokensRegisteredEvent{
		EventMeta:     meta,
		PoolID:        common.Hash(indexed.PoolId),
		Tokens:        data.Tokens,
		AssetManagers: data.AssetManagers,
	}, nil
}

func decodePoolBalanceChanged(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		PoolId            [32]byte
		LiquidityProvider common.Address
	}
	var data struct {
		Tokens             []common.Address
		Deltas             []*big.Int
		ProtocolFeeAmounts []*big.Int
	}
	if err := unpackLog(def, log, &indexed, &data); err != nil {
		return nil, err
	}
	return model.PoolBalanceChangedEvent{
		EventMeta:          meta,
		PoolID:             common.Hash(indexed.PoolId),
		LiquidityProvider:  indexed.LiquidityProvider,
		Tokens:             data.Tokens,
		Deltas:             data.Deltas,
		ProtocolFeeAmounts: data.ProtocolFeeAmounts,
	}, nil
}

func decodeTransfer(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		From common.Address
		To   common.Address
	}
	value, err := unpackSingle(def, log, &indexed)
	if err != nil {
		return nil, err
	}
	return model.TransferEvent{EventMeta: meta, From: indexed.From, To: indexed.To, Value: value}, nil
}

func decodePoolCreated(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool common.Address
	}
	if err := unpackLog(def, log, &indexed, nil); err != nil {
		return nil, err
	}
	return model.PoolCreatedEvent{EventMeta: meta, Pool: indexed.Pool}, nil
}

func decodeStableSurgeHookRegistered(def eventDef, log model.LogRecord, meta model.EventMeta) (model.Event, error) {
	var indexed struct {
		Pool    common.Address
		Factory common.Address
	}
	if err := unpackLog(def, log, &indexed, nil); err != nil {
		return nil, err
	}
	return model.StableSurgeHookRegisteredEvent{EventMeta: meta, Pool: indexed.Pool, Factory: indexed.Factory}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
