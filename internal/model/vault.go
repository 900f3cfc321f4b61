package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Vault holds the fee and pause configuration of a vault contract.
type Vault struct {
	ID                    common.Address  `json:"id"`
	IsPaused              bool            `json:"is_paused"`
	Authorizer            common.Address  `json:"authorizer"`
	ProtocolFeeController common.Address  `json:"protocol_fee_controller"`
	ProtocolSwapFee       decimal.Decimal `json:"protocol_swap_fee"`
	ProtocolYieldFee      decimal.Decimal `json:"protocol_yield_fee"`
	ProtocolFlashLoanFee  decimal.Decimal `json:"protocol_flash_loan_fee"`
}

func (v *Vault) EntityKind() Kind { return KindVault }
func (v *Vault) EntityID() string { return AddressKey(v.ID) }
