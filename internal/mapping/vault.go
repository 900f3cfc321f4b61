package mapping

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

func (h *Handlers) handlePoolRegistered(ctx context.Context, ev model.PoolRegisteredEvent) error {
	meta := ev.Metadata()
	vault, err := h.getVault(ctx, meta.BlockNumber)
	if err != nil {
		return err
	}

	poolMeta, err := h.reader.TokenMeta(ctx, meta.BlockNumber, ev.Pool)
	if err != nil {
		if err := h.readFailed("symbol", ev.Pool, err); err != nil {
			return err
		}
	}
	swapFee, err := h.reader.StaticSwapFeePercentage(ctx, meta.BlockNumber, h.cfg.Vault, ev.Pool)
	if err != nil {
		if err := h.readFailed("getStaticSwapFeePercentage", ev.Pool, err); err != nil {
			return err
		}
	}

	pool := &model.Pool{
		ID:                        ev.Pool,
		Vault:                     h.cfg.Vault,
		Factory:                   ev.Factory,
		Name:                      poolMeta.Name,
		Symbol:                    poolMeta.Symbol,
		SwapFee:                   fixedpoint.ScaleDown(swapFee, fixedpoint.Decimals),
		TotalShares:               decimal.Zero,
		PauseWindowEndTime:        int64(ev.PauseWindowEndTime),
		PauseManager:              ev.RoleAccounts.PauseManager,
		SwapFeeManager:            ev.RoleAccounts.SwapFeeManager,
		PoolCreator:               ev.RoleAccounts.PoolCreator,
		ProtocolSwapFee:           vault.ProtocolSwapFee,
		ProtocolYieldFee:          vault.ProtocolYieldFee,
		PoolCreatorSwapFee:        decimal.Zero,
		PoolCreatorYieldFee:       decimal.Zero,
		TotalProtocolFeePaidInBPT: decimal.Zero,
		BlockNumber:               meta.BlockNumber,
		BlockTimestamp:            meta.BlockTimestamp,
		TransactionHash:           meta.TxHash,
	}
	if err := h.applyFactoryInfo(ctx, pool); err != nil {
		return err
	}

	for i, cfg := range ev.TokenConfig {
		poolToken, err := h.createPoolToken(ctx, meta.BlockNumber, ev.Pool, cfg.Token, i, cfg.PaysYieldFees)
		if err != nil {
			return err
		}
		pool.Tokens = append(pool.Tokens, poolToken.ID)
		if h.cfg.Variant.HasRateProviders {
			if err := h.createRateProvider(ctx, ev.Pool, cfg.Token, cfg.RateProvider); err != nil {
				return err
			}
		}
	}

	if h.cfg.Variant.HasHooks {
		if err := h.saveHookConfig(ctx, ev, pool); err != nil {
			return err
		}
	}

	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
}

// applyFactoryInfo copies the factory type of a pool from a known factory.
func (h *Handlers) applyFactoryInfo(ctx context.Context, pool *model.Pool) error {
	factory := &model.Factory{}
	found, err := h.store.Load(ctx, model.KindFactory, model.AddressKey(pool.Factory), factory)
	if err != nil {
		return fmt.Errorf("load factory: %w", err)
	}
	if found {
		pool.FactoryType = factory.Type
		pool.FactoryVersion = factory.Version
		return nil
	}
	if info, ok := h.cfg.Factories[pool.Factory]; ok {
		pool.FactoryType = info.Type
		pool.FactoryVersion = info.Version
	}
	return nil
}

func (h *Handlers) saveHookConfig(ctx context.Context, ev model.PoolRegisteredEvent, pool *model.Pool) error {
	hooks := ev.HooksConfig
	if _, err := h.getHook(ctx, hooks.HooksContract); err != nil {
		return err
	}

	hookConfig := &model.HookConfig{
		ID:                              model.HookConfigKey(hooks.HooksContract, ev.Pool),
		Hook:                            hooks.HooksContract,
		Pool:                            ev.Pool,
		EnableHookAdjustedAmounts:       hooks.EnableHookAdjustedAmounts,
		ShouldCallBeforeInitialize:      hooks.ShouldCallBeforeInitialize,
		ShouldCallAfterInitialize:       hooks.ShouldCallAfterInitialize,
		ShouldCallComputeDynamicSwapFee: hooks.ShouldCallComputeDynamicSwapFee,
		ShouldCallBeforeSwap:            hooks.ShouldCallBeforeSwap,
		ShouldCallAfterSwap:             hooks.ShouldCallAfterSwap,
		ShouldCallBeforeAddLiquidity:    hooks.ShouldCallBeforeAddLiquidity,
		ShouldCallAfterAddLiquidity:     hooks.ShouldCallAfterAddLiquidity,
		ShouldCallBeforeRemoveLiquidity: hooks.ShouldCallBeforeRemoveLiquidity,
		ShouldCallAfterRemoveLiquidity:  hooks.ShouldCallAfterRemoveLiquidity,
	}
	if err := h.store.Save(ctx, hookConfig); err != nil {
		return fmt.Errorf("save hook config: %w", err)
	}

	lm := &model.LiquidityManagement{
		ID:                          ev.Pool,
		DisableUnbalancedLiquidity:  ev.LiquidityManagement.DisableUnbalancedLiquidity,
		EnableAddLiquidityCustom:    ev.LiquidityManagement.EnableAddLiquidityCustom,
		EnableRemoveLiquidityCustom: ev.LiquidityManagement.EnableRemoveLiquidityCustom,
		EnableDonation:              ev.LiquidityManagement.EnableDonation,
	}
	if err := h.store.Save(ctx, lm); err != nil {
		return fmt.Errorf("save liquidity management: %w", err)
	}

	pool.Hook = model.AddressKey(hooks.HooksContract)
	pool.HookConfig = hookConfig.ID
	pool.LiquidityManagement = lm.EntityID()
	return nil
}

func (h *Handlers) handleLiquidityChanged(ctx context.Context, ev model.LiquidityChangedEvent) error {
	meta := ev.Metadata()
	pool, found, err := h.loadPool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	if ev.Added {
		pool.IsInitialized = true
	}

	tokens, err := h.poolTokens(ctx, pool)
	if err != nil {
		return err
	}
	amounts := make([]decimal.Decimal, len(tokens))
	for i, token := range tokens {
		amount := fixedpoint.ScaleDown(rawAt(ev.AmountsRaw, i), token.Decimals)
		amounts[i] = amount
		if ev.Added {
			token.Balance = token.Balance.Add(amount)
		} else {
			token.Balance = token.Balance.Sub(amount)
		}
		protocolFee := fixedpoint.ScaleDown(
			fixedpoint.ComputeAggregateSwapFee(rawAt(ev.SwapFeeAmountsRaw, i), pool.ProtocolSwapFee),
			token.Decimals,
		)
		token.VaultProtocolSwapFeeBalance = token.VaultProtocolSwapFeeBalance.Add(protocolFee)
		token.TotalProtocolSwapFee = token.TotalProtocolSwapFee.Add(protocolFee)
	}

	if err := h.createUser(ctx, ev.LiquidityProvider); err != nil {
		return err
	}
	record := &model.AddRemove{
		ID:              model.EventKey(meta.TxHash, meta.LogIndex),
		Type:            model.AddRemoveRemove,
		Pool:            ev.Pool,
		Sender:          ev.LiquidityProvider,
		User:            ev.LiquidityProvider,
		Amounts:         amounts,
		LogIndex:        meta.LogIndex,
		BlockNumber:     meta.BlockNumber,
		BlockTimestamp:  meta.BlockTimestamp,
		TransactionHash: meta.TxHash,
	}
	if ev.Added {
		record.Type = model.AddRemoveAdd
	}
	if err := h.store.Save(ctx, record); err != nil {
		return fmt.Errorf("save add/remove: %w", err)
	}

	if err := h.refreshYieldFees(ctx, meta, pool, tokens); err != nil {
		return err
	}
	if err := h.savePoolTokens(ctx, tokens); err != nil {
		return err
	}
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
}

func (h *Handlers) handleSwap(ctx context.Context, ev model.SwapEvent) error {
	meta := ev.Metadata()
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
	swapFee := fixedpoint.ScaleDown(ev.SwapFeeAmount, tokenIn.Decimals)
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
		SwapFeePercentage: fixedpoint.ScaleDown(ev.SwapFeePercentage, fixedpoint.Decimals),
		User:              meta.TxFrom,
		LogIndex:          meta.LogIndex,
		BlockNumber:       meta.BlockNumber,
		BlockTimestamp:    meta.BlockTimestamp,
		TransactionHash:   meta.TxHash,
	}
	if err := h.store.Save(ctx, swap); err != nil {
		return fmt.Errorf("save swap: %w", err)
	}

	pool, found, err := h.loadPool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	tokens, err := h.poolTokens(ctx, pool)
	if err != nil {
		return err
	}
	poolTokenIn := findToken(tokens, ev.TokenIn)
	if poolTokenIn == nil {
		h.skip(ev, "pool_token_missing", zap.String("pool", ev.Pool.Hex()), zap.String("token", ev.TokenIn.Hex()))
		return nil
	}
	poolTokenOut := findToken(tokens, ev.TokenOut)
	if poolTokenOut == nil {
		h.skip(ev, "pool_token_missing", zap.String("pool", ev.Pool.Hex()), zap.String("token", ev.TokenOut.Hex()))
		return nil
	}

	pool.SwapsCount++

	poolTokenIn.Balance = poolTokenIn.Balance.Add(amountIn)
	poolTokenIn.Volume = poolTokenIn.Volume.Add(amountIn)
	poolTokenIn.TotalSwapFee = poolTokenIn.TotalSwapFee.Add(swapFee)
	protocolFee := fixedpoint.ScaleDown(
		fixedpoint.ComputeAggregateSwapFee(ev.SwapFeeAmount, pool.ProtocolSwapFee),
		poolTokenIn.Decimals,
	)
	poolTokenIn.VaultProtocolSwapFeeBalance = poolTokenIn.VaultProtocolSwapFeeBalance.Add(protocolFee)
	poolTokenIn.TotalProtocolSwapFee = poolTokenIn.TotalProtocolSwapFee.Add(protocolFee)

	poolTokenOut.Balance = poolTokenOut.Balance.Sub(amountOut)
	poolTokenOut.Volume = poolTokenOut.Volume.Add(amountOut)

	if err := h.refreshYieldFees(ctx, meta, pool, tokens); err != nil {
		return err
	}
	if err := h.savePoolTokens(ctx, tokens); err != nil {
		return err
	}
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return h.createPoolSnapshot(ctx, pool, meta.BlockTimestamp)
}

// refreshYieldFees syncs the pending yield fee balance of every yield paying
// token with the vault and accrues the change.
func (h *Handlers) refreshYieldFees(ctx context.Context, meta model.EventMeta, pool *model.Pool, tokens []*model.PoolToken) error {
	if h.cfg.Variant.FeeModel != FeeModelAggregate {
		return nil
	}
	for _, token := range tokens {
		if !token.PaysYieldFees {
			continue
		}
		raw, err := h.reader.AggregateYieldFeeAmount(ctx, meta.BlockNumber, h.cfg.Vault, pool.ID, token.Address)
		if err != nil {
			if err := h.readFailed("getAggregateYieldFeeAmount", token.Address, err); err != nil {
				return err
			}
			continue
		}
		pending := fixedpoint.ScaleDown(raw, token.Decimals)
		delta := pending.Sub(token.VaultProtocolYieldFeeBalance)
		token.VaultProtocolYieldFeeBalance = pending
		token.TotalProtocolYieldFee = token.TotalProtocolYieldFee.Add(delta)
	}
	return nil
}

func (h *Handlers) handleSwapFeePercentageChanged(ctx context.Context, ev model.SwapFeePercentageChangedEvent) error {
	pool, found, err := h.loadPool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	pool.SwapFee = fixedpoint.ScaleDown(ev.SwapFeePercentage, fixedpoint.Decimals)
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

func (h *Handlers) handlePoolPausedStateChanged(ctx context.Context, ev model.PoolPausedStateChangedEvent) error {
	pool, found, err := h.loadPool(ctx, ev.Pool)
	if err != nil {
		return err
	}
	if !found {
		h.skip(ev, "pool_missing", zap.String("pool", ev.Pool.Hex()))
		return nil
	}
	pool.IsPaused = ev.Paused
	if err := h.store.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

func (h *Handlers) handleVaultPausedStateChanged(ctx context.Context, ev model.VaultPausedStateChangedEvent) error {
	vault, err := h.getVault(ctx, ev.BlockNumber)
	if err != nil {
		return err
	}
	vault.IsPaused = ev.Paused
	if err := h.store.Save(ctx, vault); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	return nil
}

func (h *Handlers) handleAuthorizerChanged(ctx context.Context, ev model.AuthorizerChangedEvent) error {
	vault, err := h.getVault(ctx, ev.BlockNumber)
	if err != nil {
		return err
	}
	vault.Authorizer = ev.NewAuthorizer
	if err := h.store.Save(ctx, vault); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	return nil
}

func rawAt(values []*big.Int, i int) *big.Int {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func findToken(tokens []*model.PoolToken, address common.Address) *model.PoolToken {
	for _, token := range tokens {
		if token.Address == address {
			return token
		}
	}
	return nil
}
