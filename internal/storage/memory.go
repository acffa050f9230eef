package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/common"
)

// MemoryConnector keeps the most recent rows in an LRU. Old transactions are
// evicted once MaxItems is reached.
type MemoryConnector struct {
	txs *lru.Cache[string, common.StoredTransaction]

	mu       sync.RWMutex
	analyses map[string]common.WalletAnalysis
}

func NewMemoryConnector(cfg *config.MemoryConfig) (*MemoryConnector, error) {
	maxItems := 1000
	if cfg != nil && cfg.MaxItems > 0 {
		maxItems = cfg.MaxItems
	}

	cache, err := lru.New[string, common.StoredTransaction](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &MemoryConnector{
		txs:      cache,
		analyses: make(map[string]common.WalletAnalysis),
	}, nil
}

func (m *MemoryConnector) InsertTransactions(_ context.Context, txs []common.StoredTransaction) error {
	for _, tx := range MergeByHash(txs) {
		if _, err := toUint256(tx.Value); err != nil {
			return fmt.Errorf("transaction %s value: %w", tx.Hash, err)
		}
		tx.WalletAddress = strings.ToLower(tx.WalletAddress)
		tx.Hash = strings.ToLower(tx.Hash)
		tx.Network = strings.ToLower(tx.Network)
		key := txKey(tx.ChainID, tx.Hash, tx.WalletAddress)
		if existing, ok := m.txs.Peek(key); ok {
			tx.TokenTransfers = appendTransfers(existing.TokenTransfers, tx.TokenTransfers)
		}
		m.txs.Add(key, tx)
	}
	return nil
}

func (m *MemoryConnector) InsertWalletAnalysis(_ context.Context, a common.WalletAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet := strings.ToLower(a.WalletAddress)
	if prev, ok := m.analyses[wallet]; ok && prev.AnalysisDate.After(a.AnalysisDate) {
		return nil
	}
	m.analyses[wallet] = a
	return nil
}

func (m *MemoryConnector) GetTransactions(_ context.Context, qf QueryFilter) ([]common.StoredTransaction, error) {
	wallet := strings.ToLower(qf.WalletAddress)
	network := strings.ToLower(qf.Network)

	var matched []common.StoredTransaction
	for _, key := range m.txs.Keys() {
		tx, ok := m.txs.Peek(key)
		if !ok {
			continue
		}
		if wallet != "" && tx.WalletAddress != wallet {
			continue
		}
		if network != "" && tx.Network != network {
			continue
		}
		if qf.Protocol != "" && tx.Protocol != qf.Protocol {
			continue
		}
		matched = append(matched, tx)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].BlockTime.Equal(matched[j].BlockTime) {
			return matched[i].BlockTime.After(matched[j].BlockTime)
		}
		return matched[i].Hash < matched[j].Hash
	})

	if qf.Offset >= len(matched) {
		return []common.StoredTransaction{}, nil
	}
	if qf.Offset > 0 {
		matched = matched[qf.Offset:]
	}
	if limit := getLimit(qf); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryConnector) GetLatestWalletAnalysis(_ context.Context, wallet string) (*common.WalletAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.analyses[strings.ToLower(wallet)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryConnector) Close() error {
	m.txs.Purge()
	return nil
}
