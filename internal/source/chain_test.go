package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/defi-insight/internal/common"
)

type stubSource struct {
	name  string
	txs   []common.Transaction
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error) {
	s.calls++
	return s.txs, s.err
}

func TestChainSourceFallsBack(t *testing.T) {
	explorer := &stubSource{name: "explorer", err: errors.New("rate limited")}
	rpc := &stubSource{name: "rpc", txs: []common.Transaction{{Hash: "0x1"}}}

	txs, err := NewChainSource(explorer, rpc).FetchTransactions(context.Background(), "0xw", "arbitrum", 10)
	require.NoError(t, err)
	assert.Equal(t, "0x1", txs[0].Hash)
	assert.Equal(t, 1, explorer.calls)
	assert.Equal(t, 1, rpc.calls)
}

func TestChainSourceKeepsEmptyAnswer(t *testing.T) {
	explorer := &stubSource{name: "explorer"}
	rpc := &stubSource{name: "rpc", txs: []common.Transaction{{Hash: "0x1"}}}

	txs, err := NewChainSource(explorer, rpc).FetchTransactions(context.Background(), "0xw", "arbitrum", 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, 0, rpc.calls)
}

func TestChainSourceAllFail(t *testing.T) {
	_, err := NewChainSource(
		&stubSource{name: "explorer", err: errors.New("boom")},
		&stubSource{name: "rpc", err: errors.New("dial failed")},
	).FetchTransactions(context.Background(), "0xw", "flare", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explorer: boom")
	assert.Contains(t, err.Error(), "rpc: dial failed")

	_, err = NewChainSource().FetchTransactions(context.Background(), "0xw", "flare", 10)
	assert.Error(t, err)
}
