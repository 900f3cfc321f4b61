package model

import "github.com/ethereum/go-ethereum/common"

type Hook struct {
	ID common.Address `json:"id"`
}

func (h *Hook) EntityKind() Kind { return KindHook }
func (h *Hook) EntityID() string { return AddressKey(h.ID) }

// HookConfig records which callbacks a pool's hook contract opted into.
type HookConfig struct {
	ID                              string         `json:"id"`
	Hook                            common.Address `json:"hook"`
	Pool                            common.Address `json:"pool"`
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
}

func (h *HookConfig) EntityKind() Kind { return KindHookConfig }
func (h *HookConfig) EntityID() string { return h.ID }

type LiquidityManagement struct {
	ID                          common.Address `json:"id"`
	DisableUnbalancedLiquidity  bool           `json:"disable_unbalanced_liquidity"`
	EnableAddLiquidityCustom    bool           `json:"enable_add_liquidity_custom"`
	EnableRemoveLiquidityCustom bool           `json:"enable_remove_liquidity_custom"`
	EnableDonation              bool           `json:"enable_donation"`
}

func (l *LiquidityManagement) EntityKind() Kind { return KindLiquidityManagement }
func (l *LiquidityManagement) EntityID() string { return AddressKey(l.ID) }
