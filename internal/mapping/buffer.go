package mapping

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

func (h *Handlers) handleBufferLiquidityChanged(ctx context.Context, ev model.BufferLiquidityChangedEvent) error {
	sign := 1
	if !ev.Added {
		sign = -1
	}
	return h.updateBuffer(ctx, ev.Metadata(), ev.WrappedToken, ev.BufferBalances,
		signed(ev.AmountWrapped, sign), signed(ev.AmountUnderlying, sign))
}

func (h *Handlers) handleWrap(ctx context.Context, ev model.WrapEvent) error {
	return h.updateBuffer(ctx, ev.Metadata(), ev.WrappedToken, ev.BufferBalances,
		signed(ev.MintedShares, -1), signed(ev.DepositedUnderlying, 1))
}

func (h *Handlers) handleUnwrap(ctx context.Context, ev model.UnwrapEvent) error {
	return h.updateBuffer(ctx, ev.Metadata(), ev.WrappedToken, ev.BufferBalances,
		signed(ev.BurnedShares, 1), signed(ev.WithdrawnUnderlying, -1))
}

// updateBuffer applies a buffer event. Packed balances replace both sides;
// the legacy encoding applies the signed raw deltas.
func (h *Handlers) updateBuffer(ctx context.Context, meta model.EventMeta, wrapped common.Address, packed *[32]byte, wrappedDelta, underlyingDelta *big.Int) error {
	buffer, err := h.getBuffer(ctx, meta.BlockNumber, wrapped)
	if err != nil {
		return err
	}
	wrappedDecimals, underlyingDecimals, err := h.bufferDecimals(ctx, meta.BlockNumber, buffer)
	if err != nil {
		return err
	}

	if packed != nil {
		wrappedRaw, underlyingRaw := fixedpoint.SplitPackedBalances(*packed)
		buffer.WrappedBalance = fixedpoint.ScaleDown(wrappedRaw, wrappedDecimals)
		buffer.UnderlyingBalance = fixedpoint.ScaleDown(underlyingRaw, underlyingDecimals)
	} else {
		buffer.WrappedBalance = buffer.WrappedBalance.Add(fixedpoint.ScaleDown(wrappedDelta, wrappedDecimals))
		buffer.UnderlyingBalance = buffer.UnderlyingBalance.Add(fixedpoint.ScaleDown(underlyingDelta, underlyingDecimals))
	}

	if err := h.store.Save(ctx, buffer); err != nil {
		return fmt.Errorf("save buffer: %w", err)
	}
	return nil
}

func (h *Handlers) handleBufferSharesChanged(ctx context.Context, ev model.BufferSharesChangedEvent) error {
	meta := ev.Metadata()
	if err := h.createUser(ctx, ev.Account); err != nil {
		return err
	}
	buffer, err := h.getBuffer(ctx, meta.BlockNumber, ev.WrappedToken)
	if err != nil {
		return err
	}
	wrappedDecimals, err := h.tokenDecimals(ctx, meta.BlockNumber, buffer.WrappedToken)
	if err != nil {
		return err
	}

	shares := fixedpoint.ScaleDown(ev.Shares, wrappedDecimals)
	if !ev.Minted {
		shares = shares.Neg()
	}
	buffer.TotalShares = buffer.TotalShares.Add(shares)
	if err := h.store.Save(ctx, buffer); err != nil {
		return fmt.Errorf("save buffer: %w", err)
	}

	id := model.BufferShareKey(ev.WrappedToken, ev.Account)
	share := &model.BufferShare{}
	found, err := h.store.Load(ctx, model.KindBufferShare, id, share)
	if err != nil {
		return fmt.Errorf("load buffer share: %w", err)
	}
	if !found {
		share = &model.BufferShare{ID: id, Buffer: ev.WrappedToken, User: ev.Account, Balance: decimal.Zero}
	}
	share.Balance = share.Balance.Add(shares)
	if err := h.store.Save(ctx, share); err != nil {
		return fmt.Errorf("save buffer share: %w", err)
	}
	return nil
}

func (h *Handlers) bufferDecimals(ctx context.Context, block uint64, buffer *model.Buffer) (uint8, uint8, error) {
	wrapped, err := h.tokenDecimals(ctx, block, buffer.WrappedToken)
	if err != nil {
		return 0, 0, err
	}
	if buffer.UnderlyingToken == zeroAddress {
		return wrapped, 0, nil
	}
	underlying, err := h.tokenDecimals(ctx, block, buffer.UnderlyingToken)
	if err != nil {
		return 0, 0, err
	}
	return wrapped, underlying, nil
}

func signed(raw *big.Int, sign int) *big.Int {
	if raw == nil {
		return nil
	}
	if sign < 0 {
		return new(big.Int).Neg(raw)
	}
	return raw
}
