package mapping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

// handleProtocolFeeChanged overwrites one fee percentage on the vault or a pool.
func (h *Handlers) handleProtocolFeeChanged(ctx context.Context, ev model.ProtocolFeeChangedEvent) error {
	pct := fixedpoint.ScaleDown(ev.Percentage, fixedpoint.Decimals)
	if ev.Scope.IsPoolScope() {
		return h.setPoolFee(ctx, ev, pct)
	}

	vault, err := h.getVault(ctx, ev.BlockNumber)
	if err != nil {
		return err
	}
	switch ev.Scope {
	case model.FeeScopeGlobalSwap:
		vault.ProtocolSwapFee = pct
	case model.FeeScopeGlobalYield:
		vault.ProtocolYieldFee = pct
	case model.FeeScopeCollectorSwap:
		// The v2 collector charges one percentage on swap and yield fees.
		vault.ProtocolSwapFee = pct
		vault.ProtocolYieldFee = pct
	case model.FeeScopeCollectorFlashLoan:
		vault.ProtocolFlashLoanFee = pct
	default:
		return fmt.Errorf("unknown fee scope %q", ev.Scope)
	}
	if err := h.store.Save(ctx, vault); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	return nil
}

func (h *Handlers) setPoolFee(ctx context.Context, ev model.ProtocolFeeChangedEvent, pct decimal.Decimal) error {
	pool, found, err := h.loadPool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	switch ev.Scope {
	case model.FeeScopePoolProtocolSwap:
		pool.ProtocolSwapFee = pct
	case model.FeeScopePoolProtocolYield:
		pool.ProtocolYieldFee = pct
	case model.FeeScopePoolCreatorSwap:
		pool.PoolCreatorSwapFee = pct
	case model.FeeScopePoolCreatorYield:
		pool.PoolCreatorYieldFee = pct
	}
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

// handleProtocolFeeCollected moves the pending vault balance of a pool token
// to the fee controller.
func (h *Handlers) handleProtocolFeeCollected(ctx context.Context, ev model.ProtocolFeeCollectedEvent) error {
	token, found, err := h.loadPoolToken(ctx, ev.Pool, ev.Token)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_token_missing", zap.String("pool", ev.Pool.Hex()), zap.String("token", ev.Token.Hex()))
		return nil
	}

	if ev.Yield {
		token.VaultProtocolYieldFeeBalance = decimal.Zero
	} else {
		token.VaultProtocolSwapFeeBalance = decimal.Zero
	}
	amount := fixedpoint.ScaleDown(ev.Amount, token.Decimals)
	token.ControllerProtocolFeeBalance = token.ControllerProtocolFeeBalance.Add(amount)

	if err := h.store.Save(ctx, token); err != nil {
		return fmt.Errorf("save pool token: %w", err)
	}
	return nil
}

func (h *Handlers) handleProtocolFeesWithdrawn(ctx context.Context, ev model.ProtocolFeesWithdrawnEvent) error {
	token, found, err := h.loadPoolToken(ctx, ev.Pool, ev.Token)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_token_missing", zap.String("pool", ev.Pool.Hex()), zap.String("token", ev.Token.Hex()))
		return nil
	}

	amount := fixedpoint.ScaleDown(ev.Amount, token.Decimals)
	token.ControllerProtocolFeeBalance = token.ControllerProtocolFeeBalance.Sub(amount)
	if err := h.store.Save(ctx, token); err != nil {
		return fmt.Errorf("save pool token: %w", err)
	}
	return nil
}
