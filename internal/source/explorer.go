package source

import (
	"context"

	"github.com/ledgerlens/defi-insight/internal/common"
)

// TransactionFetcher is implemented by explorer.Client.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error)
}

type ExplorerSource struct {
	fetcher TransactionFetcher
}

func NewExplorerSource(fetcher TransactionFetcher) *ExplorerSource {
	return &ExplorerSource{fetcher: fetcher}
}

func (s *ExplorerSource) Name() string {
	return "explorer"
}

func (s *ExplorerSource) FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error) {
	return s.fetcher.FetchTransactions(ctx, wallet, network, limit)
}
