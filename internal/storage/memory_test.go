package storage

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/common"
)

const sampleWallet = "0x1111111111111111111111111111111111111111"

func sampleStored(hash string, at time.Time) common.StoredTransaction {
	return common.StoredTransaction{
		ChainID:       42161,
		Network:       "arbitrum",
		WalletAddress: sampleWallet,
		Hash:          hash,
		BlockNumber:   100,
		BlockTime:     at,
		FromAddress:   sampleWallet,
		ToAddress:     "0x794a61358d6845594f94dc1db02a252b5b4814ad",
		Value:         big.NewInt(1_000_000),
		GasUsed:       150000,
		GasPrice:      big.NewInt(100_000_000),
		Status:        1,
		Input:         "0x617ba037",
		Protocol:      "aave_v3",
		ActionType:    "supply",
	}
}

func newMemory(t *testing.T, maxItems int) *MemoryConnector {
	t.Helper()
	m, err := NewMemoryConnector(&config.MemoryConfig{MaxItems: maxItems})
	require.NoError(t, err)
	return m
}

func TestNewConnectorSelectsDriver(t *testing.T) {
	conn, err := NewConnector(&config.StorageConnectionConfig{Memory: &config.MemoryConfig{MaxItems: 10}})
	require.NoError(t, err)
	assert.IsType(t, &MemoryConnector{}, conn)

	_, err = NewConnector(&config.StorageConnectionConfig{})
	assert.EqualError(t, err, "no storage driver configured")

	assert.False(t, IsConfigured(&config.StorageConnectionConfig{}))
	assert.False(t, IsConfigured(nil))
	assert.True(t, IsConfigured(&config.StorageConnectionConfig{Memory: &config.MemoryConfig{}}))
}

func TestMergeByHashCombinesTransfers(t *testing.T) {
	now := time.Now()
	first := sampleStored("0xaaa", now)
	tokenRecord := sampleStored("0xaaa", now)
	tokenRecord.Value = big.NewInt(0)
	tokenRecord.Protocol = ""
	tokenRecord.TokenTransfers = []common.TokenTransfer{
		{TokenAddress: "0xtoken", LogIndex: 1, Amount: big.NewInt(7)},
	}
	dup := tokenRecord
	other := sampleStored("0xbbb", now)

	merged := MergeByHash([]common.StoredTransaction{first, tokenRecord, dup, other})
	require.Len(t, merged, 2)
	assert.Equal(t, "aave_v3", merged[0].Protocol)
	assert.Equal(t, int64(1_000_000), merged[0].Value.Int64())
	require.Len(t, merged[0].TokenTransfers, 1)
	assert.Equal(t, int64(7), merged[0].TokenTransfers[0].Amount.Int64())
	assert.Equal(t, "0xbbb", merged[1].Hash)
}

func TestMemoryConnectorFiltersAndOrders(t *testing.T) {
	m := newMemory(t, 100)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := sampleStored("0x01", base)
	newer := sampleStored("0x02", base.Add(time.Hour))
	newer.Protocol = "uniswap_v3"
	flare := sampleStored("0x03", base.Add(2*time.Hour))
	flare.Network = "Flare"
	flare.ChainID = 14
	otherWallet := sampleStored("0x04", base)
	otherWallet.WalletAddress = "0x2222222222222222222222222222222222222222"

	require.NoError(t, m.InsertTransactions(ctx, []common.StoredTransaction{older, newer, flare, otherWallet}))

	all, err := m.GetTransactions(ctx, QueryFilter{WalletAddress: sampleWallet})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"0x03", "0x02", "0x01"}, []string{all[0].Hash, all[1].Hash, all[2].Hash})

	arb, err := m.GetTransactions(ctx, QueryFilter{WalletAddress: sampleWallet, Network: "ARBITRUM"})
	require.NoError(t, err)
	assert.Len(t, arb, 2)

	uni, err := m.GetTransactions(ctx, QueryFilter{Protocol: "uniswap_v3"})
	require.NoError(t, err)
	require.Len(t, uni, 1)
	assert.Equal(t, "0x02", uni[0].Hash)

	page, err := m.GetTransactions(ctx, QueryFilter{WalletAddress: sampleWallet, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "0x02", page[0].Hash)

	empty, err := m.GetTransactions(ctx, QueryFilter{WalletAddress: sampleWallet, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryConnectorUpsertKeepsTransfers(t *testing.T) {
	m := newMemory(t, 100)
	ctx := context.Background()
	tx := sampleStored("0xAAA", time.Now())
	tx.TokenTransfers = []common.TokenTransfer{{TokenAddress: "0xt1", LogIndex: 1}}
	require.NoError(t, m.InsertTransactions(ctx, []common.StoredTransaction{tx}))

	again := sampleStored("0xaaa", time.Now())
	again.TokenTransfers = []common.TokenTransfer{{TokenAddress: "0xt1", LogIndex: 1}, {TokenAddress: "0xt2", LogIndex: 2}}
	require.NoError(t, m.InsertTransactions(ctx, []common.StoredTransaction{again}))

	got, err := m.GetTransactions(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].TokenTransfers, 2)
}

func TestMemoryConnectorEvictsOldest(t *testing.T) {
	m := newMemory(t, 2)
	ctx := context.Background()
	now := time.Now()
	for _, h := range []string{"0x01", "0x02", "0x03"} {
		require.NoError(t, m.InsertTransactions(ctx, []common.StoredTransaction{sampleStored(h, now)}))
	}
	got, err := m.GetTransactions(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"0x02", "0x03"}, []string{got[0].Hash, got[1].Hash})
}

func TestMemoryConnectorRejectsOversizedAmount(t *testing.T) {
	m := newMemory(t, 10)
	tx := sampleStored("0x01", time.Now())
	tx.Value = new(big.Int).Lsh(big.NewInt(1), 256)
	err := m.InsertTransactions(context.Background(), []common.StoredTransaction{tx})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows 256 bits")
}

func TestMemoryConnectorWalletAnalysis(t *testing.T) {
	m := newMemory(t, 10)
	ctx := context.Background()

	got, err := m.GetLatestWalletAnalysis(ctx, sampleWallet)
	require.NoError(t, err)
	assert.Nil(t, got)

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.InsertWalletAnalysis(ctx, common.WalletAnalysis{WalletAddress: sampleWallet, AnalysisDate: day, DeFiScore: 20}))
	require.NoError(t, m.InsertWalletAnalysis(ctx, common.WalletAnalysis{WalletAddress: sampleWallet, AnalysisDate: day.Add(-time.Hour), DeFiScore: 5}))

	got, err = m.GetLatestWalletAnalysis(ctx, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 20, got.DeFiScore)
}

func TestNumericString(t *testing.T) {
	s, err := numericString(nil)
	require.NoError(t, err)
	assert.Equal(t, "0", s)

	s, err = numericString(new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000000000", s)

	_, err = numericString(big.NewInt(-1))
	assert.Error(t, err)
}
