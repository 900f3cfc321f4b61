package mapping

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

// handleTransfer applies a transfer of a pool's share token. The emitter is
// the pool.
func (h *Handlers) handleTransfer(ctx context.Context, ev model.TransferEvent) error {
	meta := ev.Metadata()
	poolAddress := meta.Address
	pool, found, err := h.loadPool(ctx, poolAddress)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", poolAddress.Hex()))
		return nil
	}

	isMint := ev.From == zeroAddress
	isBurn := ev.To == zeroAddress
	excludeVault := h.cfg.Variant.HolderPolicy == HolderExcludeVault
	if excludeVault {
		// Pre-minted shares are minted to the pool and parked in the vault.
		if (isMint && ev.To == poolAddress) || (ev.From == poolAddress && ev.To == h.cfg.Vault) {
			return nil
		}
	}

	value := fixedpoint.ScaleDown(ev.Value, fixedpoint.Decimals)
	if !isMint {
		if err := h.moveShares(ctx, pool, ev.From, value.Neg()); err != nil {
			return err
		}
	}
	if !isBurn {
		if err := h.moveShares(ctx, pool, ev.To, value); err != nil {
			return err
		}
	}
	switch {
	case isMint:
		pool.TotalShares = pool.TotalShares.Add(value)
	case isBurn:
		pool.TotalShares = pool.TotalShares.Sub(value)
	}

	protocolMint := false
	if isMint && h.cfg.Variant.Version == 2 {
		vault, err := h.getVault(ctx, meta.BlockNumber)
		if err != nil {
			return err
		}
		if vault.ProtocolFeeController != zeroAddress && ev.To == vault.ProtocolFeeController {
			pool.TotalProtocolFeePaidInBPT = pool.TotalProtocolFeePaidInBPT.Add(value)
			protocolMint = true
		}
	}

	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	if protocolMint {
		return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
	}
	return nil
}

// moveShares applies delta to a holder's share balance and updates the
// pool's holder count when the balance crosses zero.
func (h *Handlers) moveShares(ctx context.Context, pool *model.Pool, holder common.Address, delta decimal.Decimal) error {
	share, err := h.getPoolShare(ctx, pool.ID, holder)
	if err != nil {
		return err
	}
	before := share.Balance
	share.Balance = share.Balance.Add(delta)
	if err := h.store.Save(ctx, share); err != nil {
		return fmt.Errorf("save pool share: %w", err)
	}

	if h.cfg.Variant.HolderPolicy == HolderExcludeVault && holder == h.cfg.Vault {
		return nil
	}
	switch {
	case before.IsZero() && !share.Balance.IsZero():
		pool.HoldersCount++
	case !before.IsZero() && share.Balance.IsZero():
		pool.HoldersCount--
	}
	return nil
}
