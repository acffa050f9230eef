package source

import (
	"context"

	"github.com/ledgerlens/defi-insight/internal/common"
)

// ISource yields a wallet's transactions on one network, newest first.
type ISource interface {
	Name() string
	FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error)
}
