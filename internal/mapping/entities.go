package mapping

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vaultScope/internal/fixedpoint"
	"vaultScope/internal/model"
)

var zeroAddress common.Address

// getVault returns the configured vault, creating it from chain state on
// first use.
func (h *Handlers) getVault(ctx context.Context, block uint64) (*model.Vault, error) {
	vault := &model.Vault{}
	found, err := h.store.Load(ctx, model.KindVault, model.AddressKey(h.cfg.Vault), vault)
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}
	if found {
		return vault, nil
	}

	vault = &model.Vault{ID: h.cfg.Vault}
	if h.cfg.Variant.Version == 2 {
		if err := h.fillVaultV2(ctx, block, vault); err != nil {
			return nil, err
		}
	} else {
		controller, err := h.reader.ProtocolFeeController(ctx, block, h.cfg.Vault)
		if err != nil {
			if err := h.readFailed("getProtocolFeeController", h.cfg.Vault, err); err != nil {
				return nil, err
			}
		}
		vault.ProtocolFeeController = controller
	}

	if err := h.store.Save(ctx, vault); err != nil {
		return nil, fmt.Errorf("save vault: %w", err)
	}
	return vault, nil
}

// fillVaultV2 reads the authorizer and the fees collector's percentages. The
// collector address is kept in ProtocolFeeController.
func (h *Handlers) fillVaultV2(ctx context.Context, block uint64, vault *model.Vault) error {
	authorizer, err := h.reader.Authorizer(ctx, block, h.cfg.Vault)
	if err != nil {
		if err := h.readFailed("getAuthorizer", h.cfg.Vault, err); err != nil {
			return err
		}
	}
	vault.Authorizer = authorizer

	collector, err := h.reader.ProtocolFeesCollector(ctx, block, h.cfg.Vault)
	if err != nil {
		if err := h.readFailed("getProtocolFeesCollector", h.cfg.Vault, err); err != nil {
			return err
		}
		collector = h.cfg.FeesCollector
	}
	vault.ProtocolFeeController = collector
	if collector == zeroAddress {
		return nil
	}

	swapFee, err := h.reader.SwapFeePercentage(ctx, block, collector)
	if err != nil {
		if err := h.readFailed("getSwapFeePercentage", collector, err); err != nil {
			return err
		}
	}
	vault.ProtocolSwapFee = fixedpoint.ScaleDown(swapFee, fixedpoint.Decimals)
	vault.ProtocolYieldFee = vault.ProtocolSwapFee

	flashLoanFee, err := h.reader.FlashLoanFeePercentage(ctx, block, collector)
	if err != nil {
		if err := h.readFailed("getFlashLoanFeePercentage", collector, err); err != nil {
			return err
		}
	}
	vault.ProtocolFlashLoanFee = fixedpoint.ScaleDown(flashLoanFee, fixedpoint.Decimals)
	return nil
}

// getToken returns the ERC20 record, reading metadata on first use. Tokens
// that revert on metadata reads keep empty strings and zero decimals.
func (h *Handlers) getToken(ctx context.Context, block uint64, address common.Address) (*model.Token, error) {
	token := &model.Token{}
	found, err := h.store.Load(ctx, model.KindToken, model.AddressKey(address), token)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if found {
		return token, nil
	}

	meta, err := h.reader.TokenMeta(ctx, block, address)
	if err != nil {
		if err := h.readFailed("decimals", address, err); err != nil {
			return nil, err
		}
	}
	token = &model.Token{
		ID:       address,
		Name:     meta.Name,
		Symbol:   meta.Symbol,
		Decimals: meta.Decimals,
	}
	if err := h.store.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

func (h *Handlers) createUser(ctx context.Context, address common.Address) error {
	found, err := h.store.Load(ctx, model.KindUser, model.AddressKey(address), &model.User{})
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if found {
		return nil
	}
	if err := h.store.Save(ctx, &model.User{ID: address}); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (h *Handlers) getPoolShare(ctx context.Context, pool, user common.Address) (*model.PoolShare, error) {
	id := model.PoolShareKey(pool, user)
	share := &model.PoolShare{}
	found, err := h.store.Load(ctx, model.KindPoolShare, id, share)
	if err != nil {
		return nil, fmt.Errorf("load pool share: %w", err)
	}
	if found {
		return share, nil
	}

	if err := h.createUser(ctx, user); err != nil {
		return nil, err
	}
	share = &model.PoolShare{ID: id, Pool: pool, User: user, Balance: decimal.Zero}
	if err := h.store.Save(ctx, share); err != nil {
		return nil, fmt.Errorf("save pool share: %w", err)
	}
	return share, nil
}

// createPoolToken stores the zeroed accounting record for the token at index
// of a newly registered pool.
func (h *Handlers) createPoolToken(ctx context.Context, block uint64, pool, address common.Address, index int, paysYieldFees bool) (*model.PoolToken, error) {
	token, err := h.getToken(ctx, block, address)
	if err != nil {
		return nil, err
	}

	poolToken := &model.PoolToken{
		ID:                           model.PoolTokenKey(pool, address),
		Pool:                         pool,
		Address:                      address,
		Index:                        index,
		Name:                         token.Name,
		Symbol:                       token.Symbol,
		Decimals:                     token.Decimals,
		ScalingFactor:                fixedpoint.ScalingFactor(token.Decimals),
		PriceRate:                    decimal.NewFromInt(1),
		Balance:                      decimal.Zero,
		Volume:                       decimal.Zero,
		TotalSwapFee:                 decimal.Zero,
		TotalProtocolFee:             decimal.Zero,
		TotalProtocolSwapFee:         decimal.Zero,
		TotalProtocolYieldFee:        decimal.Zero,
		ControllerProtocolFeeBalance: decimal.Zero,
		VaultProtocolSwapFeeBalance:  decimal.Zero,
		VaultProtocolYieldFeeBalance: decimal.Zero,
		PaysYieldFees:                paysYieldFees,
	}

	if h.cfg.Variant.HasBuffers {
		isBuffer, err := h.exists(ctx, model.KindBuffer, address)
		if err != nil {
			return nil, err
		}
		if isBuffer {
			poolToken.Buffer = model.AddressKey(address)
		}
	}
	isPool, err := h.exists(ctx, model.KindPool, address)
	if err != nil {
		return nil, err
	}
	if isPool {
		poolToken.NestedPool = model.AddressKey(address)
	}

	if err := h.store.Save(ctx, poolToken); err != nil {
		return nil, fmt.Errorf("save pool token: %w", err)
	}
	return poolToken, nil
}

func (h *Handlers) createRateProvider(ctx context.Context, pool, token, provider common.Address) error {
	rp := &model.RateProvider{
		ID:      model.RateProviderKey(pool, token, provider),
		Pool:    pool,
		Token:   model.PoolTokenKey(pool, token),
		Address: provider,
	}
	if err := h.store.Save(ctx, rp); err != nil {
		return fmt.Errorf("save rate provider: %w", err)
	}
	return nil
}

// loadPool returns the registered pool; found is false if it was never registered.
func (h *Handlers) loadPool(ctx context.Context, address common.Address) (*model.Pool, bool, error) {
	pool := &model.Pool{}
	found, err := h.store.Load(ctx, model.KindPool, model.AddressKey(address), pool)
	if err != nil {
		return nil, false, fmt.Errorf("load pool: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return pool, true, nil
}

func (h *Handlers) loadPoolToken(ctx context.Context, pool, token common.Address) (*model.PoolToken, bool, error) {
	poolToken := &model.PoolToken{}
	found, err := h.store.Load(ctx, model.KindPoolToken, model.PoolTokenKey(pool, token), poolToken)
	if err != nil {
		return nil, false, fmt.Errorf("load pool token: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return poolToken, true, nil
}

// poolTokens loads every token of a pool in index order.
func (h *Handlers) poolTokens(ctx context.Context, pool *model.Pool) ([]*model.PoolToken, error) {
	tokens := make([]*model.PoolToken, 0, len(pool.Tokens))
	for _, id := range pool.Tokens {
		poolToken := &model.PoolToken{}
		found, err := h.store.Load(ctx, model.KindPoolToken, id, poolToken)
		if err != nil {
			return nil, fmt.Errorf("load pool token: %w", err)
		}
		if !found {
			return nil, fmt.Errorf("pool %s lists missing token %s", pool.ID.Hex(), id)
		}
		tokens = append(tokens, poolToken)
	}
	return tokens, nil
}

func (h *Handlers) savePoolTokens(ctx context.Context, tokens []*model.PoolToken) error {
	for _, token := range tokens {
		if err := h.store.Save(ctx, token); err != nil {
			return fmt.Errorf("save pool token: %w", err)
		}
	}
	return nil
}

// getBuffer returns the buffer of a wrapped token, resolving its underlying
// asset on first use.
func (h *Handlers) getBuffer(ctx context.Context, block uint64, wrapped common.Address) (*model.Buffer, error) {
	buffer := &model.Buffer{}
	found, err := h.store.Load(ctx, model.KindBuffer, model.AddressKey(wrapped), buffer)
	if err != nil {
		return nil, fmt.Errorf("load buffer: %w", err)
	}
	if found {
		return buffer, nil
	}

	underlying, err := h.reader.Asset(ctx, block, wrapped)
	if err != nil {
		if err := h.readFailed("asset", wrapped, err); err != nil {
			return nil, err
		}
	}
	if _, err := h.getToken(ctx, block, wrapped); err != nil {
		return nil, err
	}
	if underlying != zeroAddress {
		if _, err := h.getToken(ctx, block, underlying); err != nil {
			return nil, err
		}
	}

	buffer = &model.Buffer{
		ID:                wrapped,
		WrappedToken:      wrapped,
		UnderlyingToken:   underlying,
		WrappedBalance:    decimal.Zero,
		UnderlyingBalance: decimal.Zero,
		TotalShares:       decimal.Zero,
	}
	if err := h.store.Save(ctx, buffer); err != nil {
		return nil, fmt.Errorf("save buffer: %w", err)
	}
	return buffer, nil
}

func (h *Handlers) getFactory(ctx context.Context, address common.Address, info FactoryInfo) (*model.Factory, error) {
	factory := &model.Factory{}
	found, err := h.store.Load(ctx, model.KindFactory, model.AddressKey(address), factory)
	if err != nil {
		return nil, fmt.Errorf("load factory: %w", err)
	}
	if found {
		return factory, nil
	}
	factory = &model.Factory{ID: address, Type: info.Type, Version: info.Version}
	if err := h.store.Save(ctx, factory); err != nil {
		return nil, fmt.Errorf("save factory: %w", err)
	}
	return factory, nil
}

func (h *Handlers) getHook(ctx context.Context, address common.Address) (*model.Hook, error) {
	hook := &model.Hook{}
	found, err := h.store.Load(ctx, model.KindHook, model.AddressKey(address), hook)
	if err != nil {
		return nil, fmt.Errorf("load hook: %w", err)
	}
	if found {
		return hook, nil
	}
	hook = &model.Hook{ID: address}
	if err := h.store.Save(ctx, hook); err != nil {
		return nil, fmt.Errorf("save hook: %w", err)
	}
	return hook, nil
}

func (h *Handlers) exists(ctx context.Context, kind model.Kind, address common.Address) (bool, error) {
	var dst model.Entity
	switch kind {
	case model.KindPool:
		dst = &model.Pool{}
	case model.KindBuffer:
		dst = &model.Buffer{}
	default:
		return false, fmt.Errorf("exists: unsupported kind %s", kind)
	}
	found, err := h.store.Load(ctx, kind, model.AddressKey(address), dst)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", kind, err)
	}
	return found, nil
}

// tokenDecimals returns the decimals of a token, creating its record if needed.
func (h *Handlers) tokenDecimals(ctx context.Context, block uint64, address common.Address) (uint8, error) {
	token, err := h.getToken(ctx, block, address)
	if err != nil {
		return 0, err
	}
	return token.Decimals, nil
}
