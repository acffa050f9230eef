package metadata

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

const (
	DefaultDecimals        = 18
	DefaultPrefetchWorkers = 10
	negativeTTL            = time.Hour

	kindContract = "code"
	kindToken    = "token"
	kindDecimals = "decimals"
	kindAddress  = "address"
)

// Provider answers metadata questions from the cache and falls back to the
// source on a miss. Lookups never fail: errors degrade to zero values and are
// cached briefly so a broken contract is not hammered.
type Provider struct {
	source Source
	namer  ContractNamer
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
}

type ProviderOption func(*Provider)

func WithContractNamer(namer ContractNamer) ProviderOption {
	return func(p *Provider) {
		p.namer = namer
	}
}

func WithTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

func NewProvider(source Source, cache Cache, opts ...ProviderOption) *Provider {
	if cache == nil {
		cache = NewMemoryCache(DefaultMemoryEntries, DefaultTTL)
	}
	p := &Provider{
		source: source,
		cache:  cache,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) IsContract(ctx context.Context, address, network string) bool {
	var isContract bool
	p.lookup(ctx, kindContract, address, network, &isContract, func(ctx context.Context, address, network string) (any, error) {
		return p.source.IsContract(ctx, address, network)
	})
	return isContract
}

func (p *Provider) TokenMeta(ctx context.Context, address, network string) TokenMeta {
	var meta TokenMeta
	p.lookup(ctx, kindToken, address, network, &meta, func(ctx context.Context, address, network string) (any, error) {
		return p.source.TokenMeta(ctx, address, network)
	})
	return meta
}

// TokenDecimals falls back to 18 when the contract does not answer.
func (p *Provider) TokenDecimals(ctx context.Context, address, network string) int {
	decimals := -1
	p.lookup(ctx, kindDecimals, address, network, &decimals, func(ctx context.Context, address, network string) (any, error) {
		d, err := p.source.TokenDecimals(ctx, address, network)
		if err != nil {
			return -1, err
		}
		return d, nil
	})
	if decimals < 0 {
		return DefaultDecimals
	}
	return decimals
}

// AddressInfo labels an address with its verified contract name and, when it
// is a token, the token name.
func (p *Provider) AddressInfo(ctx context.Context, address, network string) AddressInfo {
	var info AddressInfo
	p.lookup(ctx, kindAddress, address, network, &info, func(ctx context.Context, address, network string) (any, error) {
		var out AddressInfo
		if p.namer != nil {
			name, err := p.namer.ContractName(ctx, address, network)
			if err != nil {
				log.Debug().Err(err).Str("address", address).Str("network", network).Msg("contract name lookup failed")
			}
			out.Platform = name
		}
		if out.TokenName == "" {
			out.TokenName = p.TokenMeta(ctx, address, network).Name
		}
		return out, nil
	})
	return info
}

// PrefetchTokenMeta warms the cache for many contracts at once.
func (p *Provider) PrefetchTokenMeta(ctx context.Context, addresses []string, network string, workers int) {
	if workers <= 0 {
		workers = DefaultPrefetchWorkers
	}
	seen := common.NewSet[string]()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, a := range addresses {
		addr := normalizeLookupAddress(a)
		if addr == "" || seen.Contains(addr) {
			continue
		}
		seen.Add(addr)
		g.Go(func() error {
			p.TokenMeta(gctx, addr, network)
			return nil
		})
	}
	_ = g.Wait()
	log.Debug().Int("addresses", seen.Size()).Str("network", network).Msg("prefetched token metadata")
}

func (p *Provider) Close() error {
	return p.cache.Close()
}

// lookup decodes a cached value into out or runs fetch once per key across
// concurrent callers and caches what it returns.
func (p *Provider) lookup(ctx context.Context, kind, address, network string, out any, fetch func(ctx context.Context, address, network string) (any, error)) {
	address = normalizeLookupAddress(address)
	network = strings.ToLower(strings.TrimSpace(network))
	if address == "" || (p.source == nil && kind != kindAddress) {
		return
	}
	key := cacheKey(kind, network, address)

	if raw, ok := p.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			metrics.MetadataCacheHits.WithLabelValues(kind).Inc()
			return
		}
	}
	metrics.MetadataCacheMisses.WithLabelValues(kind).Inc()

	raw, _, _ := p.group.Do(key, func() (any, error) {
		value, err := fetch(ctx, address, network)
		ttl := p.ttl
		if err != nil {
			log.Debug().Err(err).Str("kind", kind).Str("address", address).Str("network", network).Msg("metadata lookup failed")
			ttl = negativeTTL
		}
		encoded, encErr := json.Marshal(value)
		if encErr != nil {
			return nil, encErr
		}
		if setErr := p.cache.Set(ctx, key, encoded, ttl); setErr != nil {
			log.Debug().Err(setErr).Str("key", key).Msg("failed to write metadata cache")
		}
		return encoded, nil
	})
	if encoded, ok := raw.([]byte); ok {
		if err := json.Unmarshal(encoded, out); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("failed to decode metadata")
		}
	}
}

func normalizeLookupAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return address
}
