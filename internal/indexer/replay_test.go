package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vaultScope/internal/contracts"
	"vaultScope/internal/mapping"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/memory"
)

func archiveLines(t *testing.T, logs ...types.Log) *bytes.Buffer {
	t.Helper()
	out := &bytes.Buffer{}
	for _, log := range logs {
		record := buildLogRecord(1, log, 1717200000+log.BlockNumber*12, testSender, time.Unix(0, 0))
		line, err := json.Marshal(record)
		require.NoError(t, err)
		out.Write(line)
		out.WriteByte('\n')
	}
	return out
}

func TestReplayAppliesArchiveInFileOrder(t *testing.T) {
	oneShare := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	unknown := transferLog(t, 13, 0, common.Address{}, testUser, oneShare)
	unknown.Topics[0] = common.HexToHash("0x01")
	broken := transferLog(t, 13, 1, common.Address{}, testUser, oneShare)
	broken.Data = nil

	input := archiveLines(t,
		poolRegisteredLog(t, 12, 0),
		transferLog(t, 12, 1, common.Address{}, testUser, oneShare),
		unknown,
		broken,
	)
	input.WriteString("\n{not json}\n")

	decoder, err := contracts.NewDecoder(contracts.DecoderConfig{Vault: testVault})
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	cache := storage.NewCache(store)
	m := metrics.New(prometheus.NewRegistry())
	handlers := mapping.New(mapping.Config{Variant: mapping.VariantV3Lite, Vault: testVault}, cache, revertingReader{}, logger, m)

	var failures []model.DecodeError
	stats, err := NewReplayer(decoder, handlers, cache, "replay", logger, m).Run(context.Background(), input, func(decodeErr model.DecodeError) error {
		failures = append(failures, decodeErr)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, ReplayStats{Total: 5, Handled: 2, Skipped: 1, Failed: 2, LastBlock: 12}, stats)
	require.Len(t, failures, 2)
	assert.Equal(t, uint64(13), failures[0].BlockNumber)
	assert.Equal(t, uint64(1), failures[0].LogIndex)
	assert.Equal(t, model.StageDecode, failures[0].Stage)
	assert.Equal(t, model.StageJSON, failures[1].Stage)
	assert.NotEmpty(t, failures[1].Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("json")))

	pool := &model.Pool{}
	found, err := store.Load(context.Background(), model.KindPool, model.AddressKey(testPool), pool)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", pool.TotalShares.String())

	cursor, ok, err := store.LoadCursor(context.Background(), "replay")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12), cursor.Block)
}

func TestReplayTwiceAppliesArchiveOnce(t *testing.T) {
	oneShare := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	lines := archiveLines(t,
		poolRegisteredLog(t, 12, 0),
		transferLog(t, 12, 1, common.Address{}, testUser, oneShare),
	).Bytes()

	decoder, err := contracts.NewDecoder(contracts.DecoderConfig{Vault: testVault})
	require.NoError(t, err)
	store := memory.NewStore()
	ctx := context.Background()

	replay := func() ReplayStats {
		logger := zaptest.NewLogger(t)
		m := metrics.New(prometheus.NewRegistry())
		cache := storage.NewCache(store)
		handlers := mapping.New(mapping.Config{Variant: mapping.VariantV3Lite, Vault: testVault}, cache, revertingReader{}, logger, m)
		stats, err := NewReplayer(decoder, handlers, cache, "replay", logger, m).Run(ctx, bytes.NewReader(lines), nil)
		require.NoError(t, err)
		return stats
	}

	first := replay()
	assert.Equal(t, 2, first.Handled)
	second := replay()
	assert.Equal(t, ReplayStats{Total: 2, Skipped: 2}, second)

	share := &model.PoolShare{}
	found, err := store.Load(ctx, model.KindPoolShare, model.PoolShareKey(testPool, testUser), share)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", share.Balance.String())

	pool := &model.Pool{}
	found, err = store.Load(ctx, model.KindPool, model.AddressKey(testPool), pool)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", pool.TotalShares.String())
	assert.Equal(t, int64(1), pool.HoldersCount)

	cursor, ok, err := store.LoadCursor(ctx, "replay")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12), cursor.Block)
}

func TestReplaySkipsBatchArchivedTwice(t *testing.T) {
	oneShare := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	mint := transferLog(t, 12, 1, common.Address{}, testUser, oneShare)
	input := archiveLines(t, poolRegisteredLog(t, 12, 0), mint, mint)

	decoder, err := contracts.NewDecoder(contracts.DecoderConfig{Vault: testVault})
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	cache := storage.NewCache(store)
	m := metrics.New(prometheus.NewRegistry())
	handlers := mapping.New(mapping.Config{Variant: mapping.VariantV3Lite, Vault: testVault}, cache, revertingReader{}, logger, m)

	stats, err := NewReplayer(decoder, handlers, cache, "", logger, m).Run(context.Background(), input, nil)
	require.NoError(t, err)
	assert.Equal(t, ReplayStats{Total: 3, Handled: 2, Skipped: 1, LastBlock: 12}, stats)

	share := &model.PoolShare{}
	found, err := store.Load(context.Background(), model.KindPoolShare, model.PoolShareKey(testPool, testUser), share)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", share.Balance.String())
}
