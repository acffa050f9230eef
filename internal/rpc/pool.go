package rpc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	config "github.com/ledgerlens/defi-insight/configs"
)

// Pool hands out one client per configured network, dialled on first use.
type Pool struct {
	mu       sync.Mutex
	networks map[string]config.NetworkConfig
	clients  map[string]IRPCClient
}

func NewPool(networks map[string]config.NetworkConfig) *Pool {
	return &Pool{
		networks: networks,
		clients:  make(map[string]IRPCClient),
	}
}

// NewPoolWithClients is used where clients are built elsewhere, e.g. in tests.
func NewPoolWithClients(clients map[string]IRPCClient) *Pool {
	return &Pool{
		networks: map[string]config.NetworkConfig{},
		clients:  clients,
	}
}

func (p *Pool) Get(network string) (IRPCClient, error) {
	network = strings.ToLower(network)
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[network]; ok {
		return c, nil
	}
	nc, ok := p.networks[network]
	if !ok {
		return nil, fmt.Errorf("network %s is not configured", network)
	}
	c, err := Initialize(network, nc)
	if err != nil {
		return nil, err
	}
	p.clients[network] = c
	return c, nil
}

type chainVerifier interface {
	VerifyChainID(ctx context.Context) error
}

// Verify dials every known network and checks that each endpoint serves the
// configured chain. Failures are returned per network.
func (p *Pool) Verify(ctx context.Context) map[string]error {
	p.mu.Lock()
	seen := make(map[string]struct{}, len(p.networks)+len(p.clients))
	for name := range p.networks {
		seen[name] = struct{}{}
	}
	for name := range p.clients {
		seen[name] = struct{}{}
	}
	p.mu.Unlock()
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]error)
	for _, name := range names {
		c, err := p.Get(name)
		if err != nil {
			failed[name] = err
			continue
		}
		v, ok := c.(chainVerifier)
		if !ok {
			continue
		}
		if err := v.VerifyChainID(ctx); err != nil {
			failed[name] = err
		}
	}
	return failed
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, c := range p.clients {
		c.Close()
		delete(p.clients, name)
	}
}
