package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventMeta carries the log position and transaction context of an event.
type EventMeta struct {
	ChainID        uint64         `json:"chain_id"`
	BlockNumber    uint64         `json:"block_number"`
	BlockTimestamp int64          `json:"block_timestamp"`
	TxHash         common.Hash    `json:"tx_hash"`
	TxFrom         common.Address `json:"tx_from"`
	LogIndex       uint64         `json:"log_index"`
	Address        common.Address `json:"address"`
}

func (m EventMeta) Metadata() EventMeta { return m }

// Event is a decoded contract event.
type Event interface {
	EventName() string
	Metadata() EventMeta
}

const (
	EventPoolRegistered            = "PoolRegistered"
	EventTokensRegistered          = "TokensRegistered"
	EventLiquidityAdded            = "LiquidityAdded"
	EventLiquidityRemoved          = "LiquidityRemoved"
	EventPoolBalanceChanged        = "PoolBalanceChanged"
	EventSwap                      = "Swap"
	EventSwapFeePercentageChanged  = "SwapFeePercentageChanged"
	EventPoolPausedStateChanged    = "PoolPausedStateChanged"
	EventVaultPausedStateChanged   = "VaultPausedStateChanged"
	EventAuthorizerChanged         = "AuthorizerChanged"
	EventProtocolFeeChanged        = "ProtocolFeePercentageChanged"
	EventProtocolFeeCollected      = "ProtocolFeeCollected"
	EventProtocolFeesWithdrawn     = "ProtocolFeesWithdrawn"
	EventBufferLiquidityChanged    = "BufferLiquidityChanged"
	EventWrap                      = "Wrap"
	EventUnwrap                    = "Unwrap"
	EventBufferSharesChanged       = "BufferSharesChanged"
	EventTransfer                  = "Transfer"
	EventPoolCreated               = "PoolCreated"
	EventStableSurgeHookRegistered = "StableSurgeHookRegistered"
)

type TokenConfig struct {
	Token         common.Address `json:"token"`
	TokenType     uint8          `json:"token_type"`
	RateProvider  common.Address `json:"rate_provider"`
	PaysYieldFees bool           `json:"pays_yield_fees"`
}

type RoleAccounts struct {
	PauseManager   common.Address `json:"pause_manager"`
	SwapFeeManager common.Address `json:"swap_fee_manager"`
	PoolCreator    common.Address `json:"pool_creator"`
}

type HooksConfig struct {
	EnableHookAdjustedAmounts       bool           `json:"enable_hook_adjusted_amounts"`
	ShouldCallBeforeInitialize      bool           `json:"should_call_before_initialize"`
	ShouldCallAfterInitialize       bool           `json:"should_call_after_initialize"`
	ShouldCallComputeDynamicSwapFee bool           `json:"should_call_compute_dynamic_swap_fee"`
	ShouldCallBeforeSwap            bool           `json:"should_call_before_swap"`
	ShouldCallAfterSwap             bool           `json:"should_call_after_swap"`
	ShouldCallBeforeAddLiquidity    bool           `json:"should_call_before_add_liquidity"`
	ShouldCallAfterAddLiquidity     bool           `json:"should_call_after_add_liquidity"`
	ShouldCallBeforeRemoveLiquidity bool           `json:"should_call_before_remove_liquidity"`
	ShouldCallAfterRemoveLiquidity  bool           `json:"should_call_after_remove_liquidity"`
	HooksContract                   common.Address `json:"hooks_contract"`
}

type LiquidityManagementFlags struct {
	DisableUnbalancedLiquidity  bool `json:"disable_unbalanced_liquidity"`
	EnableAddLiquidityCustom    bool `json:"enable_add_liquidity_custom"`
	EnableRemoveLiquidityCustom bool `json:"enable_remove_liquidity_custom"`
	EnableDonation              bool `json:"enable_donation"`
}

// PoolRegisteredEvent is emitted by a v3 vault when a pool registers.
type PoolRegisteredEvent struct {
	EventMeta
	Pool                common.Address           `json:"pool"`
	Factory             common.Address           `json:"factory"`
	TokenConfig         []TokenConfig            `json:"token_config"`
	SwapFeePercentage   *big.Int                 `json:"swap_fee_percentage"`
	PauseWindowEndTime  uint32                   `json:"pause_window_end_time"`
	RoleAccounts        RoleAccounts             `json:"role_accounts"`
	HooksConfig         HooksConfig              `json:"hooks_config"`
	LiquidityManagement LiquidityManagementFlags `json:"liquidity_management"`
}

func (PoolRegisteredEvent) EventName() string { return EventPoolRegistered }

// TokensRegisteredEvent is emitted by a v2 vault when a pool registers tokens.
type TokensRegisteredEvent struct {
	EventMeta
	PoolID        common.Hash      `json:"pool_id"`
	Tokens        []common.Address `json:"tokens"`
	AssetManagers []common.Address `json:"asset_managers"`
}

func (TokensRegisteredEvent) EventName() string { return EventTokensRegistered }

// LiquidityChangedEvent covers v3 LiquidityAdded and LiquidityRemoved.
type LiquidityChangedEvent struct {
	EventMeta
	Added             bool           `json:"added"`
	Pool              common.Address `json:"pool"`
	LiquidityProvider common.Address `json:"liquidity_provider"`
	Kind              uint8          `json:"kind"`
	TotalSupply       *big.Int       `json:"total_supply"`
	AmountsRaw        []*big.Int     `json:"amounts_raw"`
	SwapFeeAmountsRaw []*big.Int     `json:"swap_fee_amounts_raw"`
}

func (e LiquidityChangedEvent) EventName() string {
	if e.Added {
		return EventLiquidityAdded
	}
	return EventLiquidityRemoved
}

// PoolBalanceChangedEvent is a v2 join or exit with signed deltas.
type PoolBalanceChangedEvent struct {
	EventMeta
	PoolID             common.Hash      `json:"pool_id"`
	LiquidityProvider  common.Address   `json:"liquidity_provider"`
	Tokens             []common.Address `json:"tokens"`
	Deltas             []*big.Int       `json:"deltas"`
	ProtocolFeeAmounts []*big.Int       `json:"protocol_fee_amounts"`
}

func (PoolBalanceChangedEvent) EventName() string { return EventPoolBalanceChanged }

// SwapEvent covers both vault generations. v2 swaps carry a pool id and no fee fields.
type SwapEvent struct {
	EventMeta
	Pool              common.Address `json:"pool"`
	PoolID            common.Hash    `json:"pool_id"`
	TokenIn           common.Address `json:"token_in"`
	TokenOut          common.Address `json:"token_out"`
	AmountIn          *big.Int       `json:"amount_in"`
	AmountOut         *big.Int       `json:"amount_out"`
	SwapFeePercentage *big.Int       `json:"swap_fee_percentage,omitempty"`
	SwapFeeAmount     *big.Int       `json:"swap_fee_amount,omitempty"`
}

func (SwapEvent) EventName() string { return EventSwap }

// SwapFeePercentageChangedEvent sets a pool's static swap fee.
type SwapFeePercentageChangedEvent struct {
	EventMeta
	Pool              common.Address `json:"pool"`
	SwapFeePercentage *big.Int       `json:"swap_fee_percentage"`
}

func (SwapFeePercentageChangedEvent) EventName() string { return EventSwapFeePercentageChanged }

type PoolPausedStateChangedEvent struct {
	EventMeta
	Pool   common.Address `json:"pool"`
	Paused bool           `json:"paused"`
}

func (PoolPausedStateChangedEvent) EventName() string { return EventPoolPausedStateChanged }

type VaultPausedStateChangedEvent struct {
	EventMeta
	Paused bool `json:"paused"`
}

func (VaultPausedStateChangedEvent) EventName() string { return EventVaultPausedStateChanged }

type AuthorizerChangedEvent struct {
	EventMeta
	NewAuthorizer common.Address `json:"new_authorizer"`
}

func (AuthorizerChangedEvent) EventName() string { return EventAuthorizerChanged }

// FeeScope says which fee percentage a ProtocolFeeChangedEvent overwrites.
type FeeScope string

const (
	FeeScopeGlobalSwap         FeeScope = "global_swap"
	FeeScopeGlobalYield        FeeScope = "global_yield"
	FeeScopePoolProtocolSwap   FeeScope = "pool_protocol_swap"
	FeeScopePoolProtocolYield  FeeScope = "pool_protocol_yield"
	FeeScopePoolCreatorSwap    FeeScope = "pool_creator_swap"
	FeeScopePoolCreatorYield   FeeScope = "pool_creator_yield"
	FeeScopeCollectorSwap      FeeScope = "collector_swap"
	FeeScopeCollectorFlashLoan FeeScope = "collector_flash_loan"
)

// IsPoolScope reports whether the scope targets a pool rather than the vault.
func (s FeeScope) IsPoolScope() bool {
	switch s {
	case FeeScopePoolProtocolSwap, FeeScopePoolProtocolYield, FeeScopePoolCreatorSwap, FeeScopePoolCreatorYield:
		return true
	default:
		return false
	}
}

type ProtocolFeeChangedEvent struct {
	EventMeta
	Scope      FeeScope       `json:"scope"`
	Pool       common.Address `json:"pool"`
	Percentage *big.Int       `json:"percentage"`
}

func (ProtocolFeeChangedEvent) EventName() string { return EventProtocolFeeChanged }

type ProtocolFeeCollectedEvent struct {
	EventMeta
	Yield  bool           `json:"yield"`
	Pool   common.Address `json:"pool"`
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

func (ProtocolFeeCollectedEvent) EventName() string { return EventProtocolFeeCollected }

type ProtocolFeesWithdrawnEvent struct {
	EventMeta
	Pool      common.Address `json:"pool"`
	Token     common.Address `json:"token"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
}

func (ProtocolFeesWithdrawnEvent) EventName() string { return EventProtocolFeesWithdrawn }

// BufferLiquidityChangedEvent covers LiquidityAddedToBuffer and
// LiquidityRemovedFromBuffer. BufferBalances is nil for the legacy encoding.
type BufferLiquidityChangedEvent struct {
	EventMeta
	Added            bool           `json:"added"`
	WrappedToken     common.Address `json:"wrapped_token"`
	AmountUnderlying *big.Int       `json:"amount_underlying"`
	AmountWrapped    *big.Int       `json:"amount_wrapped"`
	BufferBalances   *[32]byte      `json:"buffer_balances,omitempty"`
}

func (BufferLiquidityChangedEvent) EventName() string { return EventBufferLiquidityChanged }

type WrapEvent struct {
	EventMeta
	WrappedToken        common.Address `json:"wrapped_token"`
	DepositedUnderlying *big.Int       `json:"deposited_underlying"`
	MintedShares        *big.Int       `json:"minted_shares"`
	BufferBalances      *[32]byte      `json:"buffer_balances,omitempty"`
}

func (WrapEvent) EventName() string { return EventWrap }

type UnwrapEvent struct {
	EventMeta
	WrappedToken        common.Address `json:"wrapped_token"`
	BurnedShares        *big.Int       `json:"burned_shares"`
	WithdrawnUnderlying *big.Int       `json:"withdrawn_underlying"`
	BufferBalances      *[32]byte      `json:"buffer_balances,omitempty"`
}

func (UnwrapEvent) EventName() string { return EventUnwrap }

// BufferSharesChangedEvent covers BufferSharesMinted and BufferSharesBurned.
type BufferSharesChangedEvent struct {
	EventMeta
	Minted       bool           `json:"minted"`
	WrappedToken common.Address `json:"wrapped_token"`
	Account      common.Address `json:"account"`
	Shares       *big.Int       `json:"shares"`
}

func (BufferSharesChangedEvent) EventName() string { return EventBufferSharesChanged }

// TransferEvent is an ERC20 transfer of a pool's share token; the emitter is the pool.
type TransferEvent struct {
	EventMeta
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

func (TransferEvent) EventName() string { return EventTransfer }

// PoolCreatedEvent is emitted by a pool factory; the emitter is the factory.
type PoolCreatedEvent struct {
	EventMeta
	Pool common.Address `json:"pool"`
}

func (PoolCreatedEvent) EventName() string { return EventPoolCreated }

// StableSurgeHookRegisteredEvent is emitted by the stable surge hook contract.
type StableSurgeHookRegisteredEvent struct {
	EventMeta
	Pool    common.Address `json:"pool"`
	Factory common.Address `json:"factory"`
}

func (StableSurgeHookRegisteredEvent) EventName() string { return EventStableSurgeHookRegistered }
