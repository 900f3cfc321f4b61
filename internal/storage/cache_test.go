package storage_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/memory"
)

func TestCacheBuffersUntilFlush(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	cache := storage.NewCache(backend)

	user := &model.User{ID: common.HexToAddress("0xaa")}
	require.NoError(t, cache.Save(ctx, user))
	require.NoError(t, cache.Save(ctx, user))
	assert.Equal(t, 1, cache.Pending())

	var fromCache model.User
	found, err := cache.Load(ctx, model.KindUser, user.EntityID(), &fromCache)
	require.NoError(t, err)
	assert.True(t, found)

	var fromBackend model.User
	found, err = backend.Load(ctx, model.KindUser, user.EntityID(), &fromBackend)
	require.NoError(t, err)
	assert.False(t, found, "backend must not see unflushed writes")

	require.NoError(t, cache.Flush(ctx, &storage.Cursor{Name: "run", Block: 10}))
	assert.Equal(t, 0, cache.Pending())

	found, err = backend.Load(ctx, model.KindUser, user.EntityID(), &fromBackend)
	require.NoError(t, err)
	assert.True(t, found)

	cursor, ok, err := backend.LoadCursor(ctx, "run")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), cursor.Block)
}

func TestCacheLoadIsolatesMutations(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewCache(memory.NewStore())

	vault := &model.Vault{ID: common.HexToAddress("0xba"), ProtocolSwapFee: decimal.RequireFromString("0.5")}
	require.NoError(t, cache.Save(ctx, vault))

	var first model.Vault
	_, err := cache.Load(ctx, model.KindVault, vault.EntityID(), &first)
	require.NoError(t, err)
	first.ProtocolSwapFee = decimal.NewFromInt(1)

	var second model.Vault
	_, err = cache.Load(ctx, model.KindVault, vault.EntityID(), &second)
	require.NoError(t, err)
	assert.True(t, second.ProtocolSwapFee.Equal(decimal.RequireFromString("0.5")))
}

func TestCacheResetDropsPending(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	cache := storage.NewCache(backend)

	require.NoError(t, cache.Save(ctx, &model.User{ID: common.HexToAddress("0x01")}))
	cache.Reset()
	require.NoError(t, cache.Flush(ctx, nil))
	assert.Equal(t, 0, backend.Count(model.KindUser))
}
