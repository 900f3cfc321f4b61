package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pool is a pool contract registered with a vault.
type Pool struct {
	ID                        common.Address  `json:"id"`
	Vault                     common.Address  `json:"vault"`
	PoolID                    string          `json:"pool_id,omitempty"`
	Factory                   common.Address  `json:"factory"`
	FactoryType               string          `json:"factory_type,omitempty"`
	FactoryVersion            int             `json:"factory_version,omitempty"`
	Name                      string          `json:"name"`
	Symbol                    string          `json:"symbol"`
	SwapFee                   decimal.Decimal `json:"swap_fee"`
	TotalShares               decimal.Decimal `json:"total_shares"`
	IsInitialized             bool            `json:"is_initialized"`
	IsPaused                  bool            `json:"is_paused"`
	PauseWindowEndTime        int64           `json:"pause_window_end_time"`
	PauseManager              common.Address  `json:"pause_manager"`
	SwapFeeManager            common.Address  `json:"swap_fee_manager"`
	PoolCreator               common.Address  `json:"pool_creator"`
	SwapsCount                int64           `json:"swaps_count"`
	HoldersCount              int64           `json:"holders_count"`
	ProtocolSwapFee           decimal.Decimal `json:"protocol_swap_fee"`
	ProtocolYieldFee          decimal.Decimal `json:"protocol_yield_fee"`
	PoolCreatorSwapFee        decimal.Decimal `json:"pool_creator_swap_fee"`
	PoolCreatorYieldFee       decimal.Decimal `json:"pool_creator_yield_fee"`
	TotalProtocolFeePaidInBPT decimal.Decimal `json:"total_protocol_fee_paid_in_bpt"`
	Tokens                    []string        `json:"tokens"`
	Hook                      string          `json:"hook,omitempty"`
	HookConfig                string          `json:"hook_config,omitempty"`
	LiquidityManagement       string          `json:"liquidity_management,omitempty"`
	BlockNumber               uint64          `json:"block_number"`
	BlockTimestamp            int64           `json:"block_timestamp"`
	TransactionHash           common.Hash     `json:"transaction_hash"`
}

func (p *Pool) EntityKind() Kind { return KindPool }
func (p *Pool) EntityID() string { return AddressKey(p.ID) }

// PoolToken tracks one token's balances and fee counters inside a pool.
type PoolToken struct {
	ID                           string          `json:"id"`
	Pool                         common.Address  `json:"pool"`
	Address                      common.Address  `json:"address"`
	Index                        int             `json:"index"`
	Name                         string          `json:"name"`
	Symbol                       string          `json:"symbol"`
	Decimals                     uint8           `json:"decimals"`
	ScalingFactor                *big.Int        `json:"scaling_factor"`
	PriceRate                    decimal.Decimal `json:"price_rate"`
	Balance                      decimal.Decimal `json:"balance"`
	Volume                       decimal.Decimal `json:"volume"`
	TotalSwapFee                 decimal.Decimal `json:"total_swap_fee"`
	TotalProtocolFee             decimal.Decimal `json:"total_protocol_fee"`
	TotalProtocolSwapFee         decimal.Decimal `json:"total_protocol_swap_fee"`
	TotalProtocolYieldFee        decimal.Decimal `json:"total_protocol_yield_fee"`
	ControllerProtocolFeeBalance decimal.Decimal `json:"controller_protocol_fee_balance"`
	VaultProtocolSwapFeeBalance  decimal.Decimal `json:"vault_protocol_swap_fee_balance"`
	VaultProtocolYieldFeeBalance decimal.Decimal `json:"vault_protocol_yield_fee_balance"`
	Buffer                       string          `json:"buffer,omitempty"`
	NestedPool                   string          `json:"nested_pool,omitempty"`
	PaysYieldFees                bool            `json:"pays_yield_fees"`
}

func (t *PoolToken) EntityKind() Kind { return KindPoolToken }
func (t *PoolToken) EntityID() string { return t.ID }

// PoolShare is a holder's balance of a pool's share token.
type PoolShare struct {
	ID      string          `json:"id"`
	Pool    common.Address  `json:"pool"`
	User    common.Address  `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *PoolShare) EntityKind() Kind { return KindPoolShare }
func (s *PoolShare) EntityID() string { return s.ID }

// RateProvider links a pool token to its price rate source.
type RateProvider struct {
	ID      string         `json:"id"`
	Pool    common.Address `json:"pool"`
	Token   string         `json:"token"`
	Address common.Address `json:"address"`
}

func (r *RateProvider) EntityKind() Kind { return KindRateProvider }
func (r *RateProvider) EntityID() string { return r.ID }
