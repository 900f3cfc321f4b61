package mapping

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

// handleTokensRegistered creates a v2 pool. The pool address is the first 20
// bytes of its id.
func (h *Handlers) handleTokensRegistered(ctx context.Context, ev model.TokensRegisteredEvent) error {
	meta := ev.Metadata()
	vault, err := h.getVault(ctx, meta.BlockNumber)
	if err != nil {
		return err
	}

	address := model.PoolAddressFromID(ev.PoolID)
	poolMeta, err := h.reader.TokenMeta(ctx, meta.BlockNumber, address)
	if err != nil {
		if err := h.readFailed("symbol", address, err); err != nil {
			return err
		}
	}
	swapFee, err := h.reader.SwapFeePercentage(ctx, meta.BlockNumber, address)
	if err != nil {
		if err := h.readFailed("getSwapFeePercentage", address, err); err != nil {
			return err
		}
	}

	pool := &model.Pool{
		ID:                        address,
		Vault:                     h.cfg.Vault,
		PoolID:                    ev.PoolID.Hex(),
		Name:                      poolMeta.Name,
		Symbol:                    poolMeta.Symbol,
		SwapFee:                   fixedpoint.ScaleDown(swapFee, fixedpoint.Decimals),
		TotalShares:               decimal.Zero,
		ProtocolSwapFee:           vault.ProtocolSwapFee,
		ProtocolYieldFee:          vault.ProtocolYieldFee,
		PoolCreatorSwapFee:        decimal.Zero,
		PoolCreatorYieldFee:       decimal.Zero,
		TotalProtocolFeePaidInBPT: decimal.Zero,
		BlockNumber:               meta.BlockNumber,
		BlockTimestamp:            meta.BlockTimestamp,
		TransactionHash:           meta.TxHash,
	}

	if h.cfg.Variant.HasRateProviders {
		providers, err := h.reader.RateProviders(ctx, meta.BlockNumber, address)
		if err != nil {
			if err := h.readFailed("getRateProviders", address, err); err != nil {
				return err
			}
		}
		for i, provider := range providers {
			if i >= len(ev.Tokens) {
				break
			}
			if err := h.createRateProvider(ctx, address, ev.Tokens[i], provider); err != nil {
				return err
			}
		}
	}

	for i, token := range ev.Tokens {
		poolToken, err := h.createPoolToken(ctx, meta.BlockNumber, address, token, i, false)
		if err != nil {
			return err
		}
		pool.Tokens = append(pool.Tokens, poolToken.ID)
	}

	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
}

// handlePoolBalanceChanged classifies a v2 balance change as a join when the
// deltas sum to a positive amount and as an exit otherwise.
func (h *Handlers) handlePoolBalanceChanged(ctx context.Context, ev model.PoolBalanceChangedEvent) error {
	if len(ev.Deltas) == 0 {
		return nil
	}
	meta := ev.Metadata()
	if err := h.createUser(ctx, ev.LiquidityProvider); err != nil {
		return err
	}

	total := new(big.Int)
	for _, delta := range ev.Deltas {
		if delta != nil {
			total.Add(total, delta)
		}
	}
	join := total.Sign() > 0

	address := model.PoolAddressFromID(ev.PoolID)
	pool, found, err := h.loadPool(ctx, address)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", address.Hex()))
		return nil
	}
	tokens, err := h.poolTokens(ctx, pool)
	if err != nil {
		return err
	}

	if join && !pool.IsInitialized {
		if findToken(tokens, address) != nil {
			supply, err := h.reader.ActualSupply(ctx, meta.BlockNumber, address)
			if err != nil {
				if err := h.readFailed("getActualSupply", address, err); err != nil {
					return err
				}
			}
			pool.TotalShares = fixedpoint.ScaleDown(supply, fixedpoint.Decimals)
		}
		pool.IsInitialized = true
	}

	amounts := make([]decimal.Decimal, len(tokens))
	for i, token := range tokens {
		delta := fixedpoint.ScaleDown(rawAt(ev.Deltas, i), token.Decimals)
		if join {
			amounts[i] = delta
		} else {
			amounts[i] = delta.Neg()
		}
		token.Balance = token.Balance.Add(delta)
		token.TotalProtocolFee = token.TotalProtocolFee.Add(
			fixedpoint.ScaleDown(rawAt(ev.ProtocolFeeAmounts, i), token.Decimals),
		)
	}

	record := &model.AddRemove{
		ID:              model.EventKey(meta.TxHash, meta.LogIndex),
		Type:            model.AddRemoveRemove,
		Pool:            address,
		Sender:          ev.LiquidityProvider,
		User:            ev.LiquidityProvider,
		Amounts:         amounts,
		LogIndex:        meta.LogIndex,
		BlockNumber:     meta.BlockNumber,
		BlockTimestamp:  meta.BlockTimestamp,
		TransactionHash: meta.TxHash,
	}
	if join {
		record.Type = model.AddRemoveAdd
	}
	if err := h.store.Save(ctx, record); err != nil {
		return fmt.Errorf("save add/remove: %w", err)
	}
	if err := h.savePoolTokens(ctx, tokens); err != nil {
		return err
	}
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
}

// handleSwapV2 applies a swap under the estimated fee model: the fee is the
// input amount times the pool's static swap fee.
func (h *Handlers) handleSwapV2(ctx context.Context, ev model.SwapEvent) error {
	meta := ev.Metadata()
	pool, found, err := h.loadPool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	pool.SwapsCount++

	if err := h.createUser(ctx, meta.TxFrom); err != nil {
		return err
	}
	tokenIn, err := h.getToken(ctx, meta.BlockNumber, ev.TokenIn)
	if err != nil {
		return err
	}
	tokenOut, err := h.getToken(ctx, meta.BlockNumber, ev.TokenOut)
	if err != nil {
		return err
	}

	amountIn := fixedpoint.ScaleDown(ev.AmountIn, tokenIn.Decimals)
	amountOut := fixedpoint.ScaleDown(ev.AmountOut, tokenOut.Decimals)
	swapFee := amountIn.Mul(pool.SwapFee)
	swap := &model.Swap{
		ID:                model.EventKey(meta.TxHash, meta.LogIndex),
		Pool:              ev.Pool,
		TokenIn:           ev.TokenIn,
		TokenInSymbol:     tokenIn.Symbol,
		TokenAmountIn:     amountIn,
		TokenOut:          ev.TokenOut,
		TokenOutSymbol:    tokenOut.Symbol,
		TokenAmountOut:    amountOut,
		SwapFeeToken:      ev.TokenIn,
		SwapFeeAmount:     swapFee,
		SwapFeePercentage: pool.SwapFee,
		User:              meta.TxFrom,
		LogIndex:          meta.LogIndex,
		BlockNumber:       meta.BlockNumber,
		BlockTimestamp:    meta.BlockTimestamp,
		TransactionHash:   meta.TxHash,
	}
	if err := h.store.Save(ctx, swap); err != nil {
		return fmt.Errorf("save swap: %w", err)
	}

	// Swaps against the pool's own share token move shares held by the vault.
	switch {
	case ev.TokenIn == ev.Pool:
		if err := h.adjustVaultShares(ctx, pool, amountIn.Neg()); err != nil {
			return err
		}
	case ev.TokenOut == ev.Pool:
		if err := h.adjustVaultShares(ctx, pool, amountOut); err != nil {
			return err
		}
	}

	poolTokenIn, foundIn, err := h.loadPoolToken(ctx, ev.Pool, ev.TokenIn)
	if err != nil {
		return err
	}
	poolTokenOut, foundOut, err := h.loadPoolToken(ctx, ev.Pool, ev.TokenOut)
	if err != nil {
		return err
	}
	if !foundIn || !foundOut {
		if err := h.store.Save(ctx, pool); err != nil {
			return fmt.Errorf("save pool: %w", err)
		}
		h.skip(ev, "pool_token_missing",
			zap.String("pool", ev.Pool.Hex()),
			zap.String("token_in", ev.TokenIn.Hex()),
			zap.String("token_out", ev.TokenOut.Hex()),
		)
		return nil
	}

	vault, err := h.getVault(ctx, meta.BlockNumber)
	if err != nil {
		return err
	}
	poolTokenIn.Balance = poolTokenIn.Balance.Add(amountIn)
	poolTokenIn.Volume = poolTokenIn.Volume.Add(amountIn)
	poolTokenIn.TotalSwapFee = poolTokenIn.TotalSwapFee.Add(swapFee)
	poolTokenIn.TotalProtocolSwapFee = poolTokenIn.TotalProtocolSwapFee.Add(swapFee.Mul(vault.ProtocolSwapFee))

	poolTokenOut.Balance = poolTokenOut.Balance.Sub(amountOut)
	poolTokenOut.Volume = poolTokenOut.Volume.Add(amountOut)

	if err := h.savePoolTokens(ctx, []*model.PoolToken{poolTokenIn, poolTokenOut}); err != nil {
		return err
	}
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
}

func (h *Handlers) adjustVaultShares(ctx context.Context, pool *model.Pool, delta decimal.Decimal) error {
	pool.TotalShares = pool.TotalShares.Add(delta)
	share, err := h.getPoolShare(ctx, pool.ID, h.cfg.Vault)
	if err != nil {
		return err
	}
	share.Balance = share.Balance.Add(delta)
	if err := h.store.Save(ctx, share); err != nil {
		return fmt.Errorf("save pool share: %w", err)
	}
	return nil
}
