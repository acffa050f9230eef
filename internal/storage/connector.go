package storage

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/common"
)

const defaultQueryLimit = 1000

type QueryFilter struct {
	WalletAddress string
	Network       string
	Protocol      string
	Limit         int
	Offset        int
}

// IStorage persists classified wallet transactions and wallet summaries.
type IStorage interface {
	InsertTransactions(ctx context.Context, txs []common.StoredTransaction) error
	InsertWalletAnalysis(ctx context.Context, analysis common.WalletAnalysis) error
	GetTransactions(ctx context.Context, qf QueryFilter) ([]common.StoredTransaction, error)
	GetLatestWalletAnalysis(ctx context.Context, wallet string) (*common.WalletAnalysis, error)
	Close() error
}

// Migrator is implemented by connectors backed by a database with a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

func NewConnector(cfg *config.StorageConnectionConfig) (IStorage, error) {
	var conn IStorage
	var err error
	if cfg.Postgres != nil {
		conn, err = NewPostgresConnector(cfg.Postgres)
	} else if cfg.Clickhouse != nil {
		conn, err = NewClickHouseConnector(cfg.Clickhouse)
	} else if cfg.Memory != nil {
		conn, err = NewMemoryConnector(cfg.Memory)
	} else {
		return nil, fmt.Errorf("no storage driver configured")
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// IsConfigured reports whether any storage driver is set.
func IsConfigured(cfg *config.StorageConnectionConfig) bool {
	return cfg != nil && (cfg.Postgres != nil || cfg.Clickhouse != nil || cfg.Memory != nil)
}

func getLimit(qf QueryFilter) int {
	if qf.Limit <= 0 {
		return defaultQueryLimit
	}
	return qf.Limit
}

func txKey(chainID uint64, hash, wallet string) string {
	return fmt.Sprintf("%d:%s:%s", chainID, strings.ToLower(hash), strings.ToLower(wallet))
}

// MergeByHash collapses records of the same transaction for the same wallet.
// An explorer returns a normal transaction and its token transfer records
// under one hash. The first record wins and the others contribute their
// token transfers.
func MergeByHash(txs []common.StoredTransaction) []common.StoredTransaction {
	out := make([]common.StoredTransaction, 0, len(txs))
	index := make(map[string]int, len(txs))
	for _, tx := range txs {
		key := txKey(tx.ChainID, tx.Hash, tx.WalletAddress)
		if i, ok := index[key]; ok {
			out[i].TokenTransfers = appendTransfers(out[i].TokenTransfers, tx.TokenTransfers)
			continue
		}
		index[key] = len(out)
		tx.TokenTransfers = appendTransfers(nil, tx.TokenTransfers)
		out = append(out, tx)
	}
	return out
}

func appendTransfers(dst, src []common.TokenTransfer) []common.TokenTransfer {
	seen := make(map[string]struct{}, len(dst))
	for _, t := range dst {
		seen[transferKey(t)] = struct{}{}
	}
	for _, t := range src {
		k := transferKey(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, t)
	}
	return dst
}

func transferKey(t common.TokenTransfer) string {
	return fmt.Sprintf("%d:%s", t.LogIndex, strings.ToLower(t.TokenAddress))
}

// toUint256 bounds an amount to what the NUMERIC(78,0) and UInt256 columns
// accept. Nil is stored as zero.
func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %s", v.String())
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("amount %s overflows 256 bits", v.String())
	}
	return u, nil
}

func numericString(v *big.Int) (string, error) {
	u, err := toUint256(v)
	if err != nil {
		return "", err
	}
	return u.Dec(), nil
}
