package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Buffer is the vault's liquidity reserve for an ERC4626 wrapped token.
type Buffer struct {
	ID                common.Address  `json:"id"`
	WrappedToken      common.Address  `json:"wrapped_token"`
	UnderlyingToken   common.Address  `json:"underlying_token"`
	WrappedBalance    decimal.Decimal `json:"wrapped_balance"`
	UnderlyingBalance decimal.Decimal `json:"underlying_balance"`
	TotalShares       decimal.Decimal `json:"total_shares"`
}

func (b *Buffer) EntityKind() Kind { return KindBuffer }
func (b *Buffer) EntityID() string { return AddressKey(b.ID) }

type BufferShare struct {
	ID      string          `json:"id"`
	Buffer  common.Address  `json:"buffer"`
	User    common.Address  `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *BufferShare) EntityKind() Kind { return KindBufferShare }
func (s *BufferShare) EntityID() string { return s.ID }
