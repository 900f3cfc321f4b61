package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Swap is written once per swap log.
type Swap struct {
	ID                string          `json:"id"`
	Pool              common.Address  `json:"pool"`
	TokenIn           common.Address  `json:"token_in"`
	TokenInSymbol     string          `json:"token_in_symbol"`
	TokenAmountIn     decimal.Decimal `json:"token_amount_in"`
	TokenOut          common.Address  `json:"token_out"`
	TokenOutSymbol    string          `json:"token_out_symbol"`
	TokenAmountOut    decimal.Decimal `json:"token_amount_out"`
	SwapFeeToken      common.Address  `json:"swap_fee_token"`
	SwapFeeAmount     decimal.Decimal `json:"swap_fee_amount"`
	SwapFeePercentage decimal.Decimal `json:"swap_fee_percentage"`
	User              common.Address  `json:"user"`
	LogIndex          uint64          `json:"log_index"`
	BlockNumber       uint64          `json:"block_number"`
	BlockTimestamp    int64           `json:"block_timestamp"`
	TransactionHash   common.Hash     `json:"transaction_hash"`
}

func (s *Swap) EntityKind() Kind { return KindSwap }
func (s *Swap) EntityID() string { return s.ID }

type AddRemoveType string

const (
	AddRemoveAdd    AddRemoveType = "Add"
	AddRemoveRemove AddRemoveType = "Remove"
)

// AddRemove is written once per join or exit.
type AddRemove struct {
	ID              string            `json:"id"`
	Type            AddRemoveType     `json:"type"`
	Pool            common.Address    `json:"pool"`
	Sender          common.Address    `json:"sender"`
	User            common.Address    `json:"user"`
	Amounts         []decimal.Decimal `json:"amounts"`
	LogIndex        uint64            `json:"log_index"`
	BlockNumber     uint64            `json:"block_number"`
	BlockTimestamp  int64             `json:"block_timestamp"`
	TransactionHash common.Hash       `json:"transaction_hash"`
}

func (a *AddRemove) EntityKind() Kind { return KindAddRemove }
func (a *AddRemove) EntityID() string { return a.ID }

// PoolSnapshot is the last known state of a pool within a UTC day.
type PoolSnapshot struct {
	ID                     string            `json:"id"`
	Pool                   common.Address    `json:"pool"`
	Timestamp              int64             `json:"timestamp"`
	Balances               []decimal.Decimal `json:"balances"`
	TotalSwapFees          []decimal.Decimal `json:"total_swap_fees"`
	TotalSwapVolumes       []decimal.Decimal `json:"total_swap_volumes"`
	TotalProtocolSwapFees  []decimal.Decimal `json:"total_protocol_swap_fees"`
	TotalProtocolYieldFees []decimal.Decimal `json:"total_protocol_yield_fees"`
	SwapsCount             int64             `json:"swaps_count"`
	TotalShares            decimal.Decimal   `json:"total_shares"`
	HoldersCount           int64             `json:"holders_count"`
}

func (s *PoolSnapshot) EntityKind() Kind { return KindPoolSnapshot }
func (s *PoolSnapshot) EntityID() string { return s.ID }
