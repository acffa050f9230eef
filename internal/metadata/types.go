package metadata

import (
	"context"
	"time"
)

// TokenMeta is best-effort ERC-20 metadata. Empty fields mean unknown.
type TokenMeta struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

func (m TokenMeta) IsEmpty() bool {
	return m.Name == "" && m.Symbol == ""
}

// AddressInfo labels a contract for reports.
type AddressInfo struct {
	Platform  string `json:"platform"`
	TokenName string `json:"token_name"`
}

// Source performs uncached lookups. Errors are reported so the provider
// can decide what to cache.
type Source interface {
	IsContract(ctx context.Context, address, network string) (bool, error)
	TokenMeta(ctx context.Context, address, network string) (TokenMeta, error)
	TokenDecimals(ctx context.Context, address, network string) (int, error)
}

// ContractNamer resolves a verified contract name, usually via an explorer's
// getsourcecode endpoint.
type ContractNamer interface {
	ContractName(ctx context.Context, address, network string) (string, error)
}

// Cache is a TTL key-value store shared by all provider lookups.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
