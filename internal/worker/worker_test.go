package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/catalog"
	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/report"
)

const wallet = "0x1111111111111111111111111111111111111111"

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error) {
	args := m.Called(ctx, wallet, network, limit)
	txs, _ := args.Get(0).([]common.Transaction)
	return txs, args.Error(1)
}

type recordingMetadata struct {
	mu       sync.Mutex
	prefetch []string
	decimals int
	lookedUp []string
}

func (r *recordingMetadata) PrefetchTokenMeta(ctx context.Context, addresses []string, network string, workers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefetch = append(r.prefetch, addresses...)
}

func (r *recordingMetadata) TokenDecimals(ctx context.Context, address, network string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookedUp = append(r.lookedUp, address)
	return r.decimals
}

type fixedPrices map[string]float64

func (p fixedPrices) TokenPrice(ctx context.Context, contract, network string) float64 {
	return p[strings.ToLower(contract)]
}

func aaveSupply(hash string) common.Transaction {
	return common.Transaction{
		Hash:         hash,
		BlockNumber:  "123",
		TimeStamp:    "1700000000",
		From:         wallet,
		To:           "0x794a61358d6845594f94dc1db02a252b5b4814ad",
		Value:        "0",
		GasUsed:      "100000",
		GasPrice:     "1000000000",
		Input:        "0x617ba0370000000000000000000000000000000000000000",
		IsError:      "0",
		FunctionName: "supply(address,uint256,address,uint16)",
	}
}

func plainTransfer(hash string) common.Transaction {
	return common.Transaction{
		Hash:        hash,
		BlockNumber: "124",
		TimeStamp:   "1700000100",
		From:        wallet,
		To:          "0x2222222222222222222222222222222222222222",
		Value:       "1000",
		GasUsed:     "21000",
		GasPrice:    "1000000000",
		Input:       "0x",
		IsError:     "0",
	}
}

func newTestWorker(src *mockSource, opts ...Option) *Worker {
	networks := config.DefaultNetworks()
	cls := classifier.New(catalog.Default(), nil)
	f := report.NewFormatter(networks, catalog.Default(), nil, nil)
	return NewWorker(src, cls, f, networks, opts...)
}

func TestRunProcessesNetworksIndependently(t *testing.T) {
	src := &mockSource{}
	src.On("FetchTransactions", mock.Anything, wallet, "arbitrum", 50).
		Return([]common.Transaction{aaveSupply("0x01"), plainTransfer("0x02")}, nil)
	src.On("FetchTransactions", mock.Anything, wallet, "flare", 50).
		Return(nil, errors.New("explorer down"))

	w := newTestWorker(src)
	tally := classifier.NewTally()

	var mu sync.Mutex
	progress := map[string][2]int{}
	results := w.Run(context.Background(), wallet, []string{"Arbitrum", "flare"}, 50, tally, func(network string, total, processed int) {
		mu.Lock()
		defer mu.Unlock()
		progress[network] = [2]int{total, processed}
	})

	require.Len(t, results, 2)
	arb, flare := results[0], results[1]

	assert.Equal(t, "arbitrum", arb.Network)
	require.NoError(t, arb.Error)
	require.Len(t, arb.Rows, 2)
	require.Len(t, arb.Stored, 2)
	assert.True(t, arb.Classifications[0].IsDeFi())
	assert.False(t, arb.Classifications[1].IsDeFi())
	assert.Equal(t, uint64(42161), arb.Stored[0].ChainID)
	assert.Equal(t, "aave_v3", arb.Stored[0].Protocol)
	assert.Equal(t, "unknown", arb.Stored[1].Protocol)

	assert.Equal(t, "flare", flare.Network)
	require.Error(t, flare.Error)
	assert.Contains(t, flare.Error.Error(), "explorer down")

	assert.Equal(t, map[string]int{"aave_v3": 1}, tally.Counts("arbitrum"))
	assert.Equal(t, [2]int{2, 2}, progress["arbitrum"])
	_, reported := progress["flare"]
	assert.False(t, reported)
	src.AssertExpectations(t)
}

func TestProcessNetworkCapsAndSkips(t *testing.T) {
	src := &mockSource{}
	txs := []common.Transaction{aaveSupply("0x01"), aaveSupply(""), plainTransfer("0x03"), plainTransfer("0x04")}
	src.On("FetchTransactions", mock.Anything, wallet, "arbitrum", 3).Return(txs, nil)

	w := newTestWorker(src)
	result := w.ProcessNetwork(context.Background(), wallet, "arbitrum", 3, nil, nil)

	require.NoError(t, result.Error)
	assert.Len(t, result.Transactions, 3)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "0x01", result.Stored[0].Hash)
	assert.Equal(t, "0x03", result.Stored[1].Hash)
}

func TestProcessNetworkEmpty(t *testing.T) {
	src := &mockSource{}
	src.On("FetchTransactions", mock.Anything, wallet, "arbitrum", DefaultMaxTransactions).Return([]common.Transaction{}, nil)

	w := newTestWorker(src)
	result := w.ProcessNetwork(context.Background(), wallet, "arbitrum", 0, classifier.NewTally(), nil)
	require.NoError(t, result.Error)
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Stored)
}

func TestProcessNetworkUsesTokenMetadata(t *testing.T) {
	token := aaveSupply("0x05")
	token.Input = "0x"
	token.FunctionName = ""
	token.ContractAddress = "0xFF970A61A04B1CA14834A43F5DE4533EBDDB5CC8"
	token.TokenSymbol = "USDC"
	token.TokenName = "USD Coin"
	token.Value = "2500000"

	src := &mockSource{}
	src.On("FetchTransactions", mock.Anything, wallet, "arbitrum", 10).
		Return([]common.Transaction{token, plainTransfer("0x06")}, nil)

	meta := &recordingMetadata{decimals: 6}
	w := newTestWorker(src, WithTokenMetadata(meta), WithClassifyWorkers(2))
	result := w.ProcessNetwork(context.Background(), wallet, "arbitrum", 10, nil, nil)

	require.NoError(t, result.Error)
	assert.Equal(t, []string{"0xff970a61a04b1ca14834a43f5de4533ebddb5cc8"}, meta.prefetch)
	require.Len(t, result.Stored[0].TokenTransfers, 1)
	transfer := result.Stored[0].TokenTransfers[0]
	assert.Equal(t, 6, transfer.Decimals)
	assert.InDelta(t, 2.5, transfer.AmountDecimal, 1e-9)
}

func TestProcessNetworkPricesTokenTransfers(t *testing.T) {
	token := aaveSupply("0x07")
	token.Input = "0x"
	token.FunctionName = ""
	token.ContractAddress = "0xFF970A61A04B1CA14834A43F5DE4533EBDDB5CC8"
	token.TokenSymbol = "USDC"
	token.TokenDecimal = "6"
	token.Value = "2500000"

	src := &mockSource{}
	src.On("FetchTransactions", mock.Anything, wallet, "arbitrum", 10).Return([]common.Transaction{token}, nil)

	w := newTestWorker(src, WithTokenPrices(fixedPrices{"0xff970a61a04b1ca14834a43f5de4533ebddb5cc8": 0.999}))
	result := w.ProcessNetwork(context.Background(), wallet, "arbitrum", 10, nil, nil)

	require.NoError(t, result.Error)
	require.Len(t, result.Stored, 1)
	require.Len(t, result.Stored[0].TokenTransfers, 1)
	assert.InDelta(t, 2.4975, result.Stored[0].TokenTransfers[0].USDValue, 1e-9)
}

func TestInlineTokenContracts(t *testing.T) {
	a := common.Transaction{ContractAddress: "0xAAA", TokenSymbol: "A"}
	b := common.Transaction{ContractAddress: "0xaaa", TokenDecimal: "6"}
	deploy := common.Transaction{ContractAddress: "0xccc"}
	assert.Equal(t, []string{"0xaaa"}, inlineTokenContracts([]common.Transaction{a, b, deploy}))
}
