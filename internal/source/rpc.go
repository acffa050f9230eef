package source

import (
	"context"
	"strings"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/rpc"
)

type ClientProvider interface {
	Get(network string) (rpc.IRPCClient, error)
}

// RPCScanSource scans recent blocks over JSON-RPC. It only sees the
// configured look-back window, so it is meant as a last resort.
type RPCScanSource struct {
	clients  ClientProvider
	networks map[string]config.NetworkConfig
}

func NewRPCScanSource(clients ClientProvider, networks map[string]config.NetworkConfig) *RPCScanSource {
	return &RPCScanSource{clients: clients, networks: networks}
}

func (s *RPCScanSource) Name() string {
	return "rpc"
}

func (s *RPCScanSource) FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error) {
	network = strings.ToLower(network)
	client, err := s.clients.Get(network)
	if err != nil {
		return nil, err
	}
	lookback := rpc.DEFAULT_LOOKBACK_BLOCKS
	if nc, ok := s.networks[network]; ok && nc.RPCLookbackBlock > 0 {
		lookback = nc.RPCLookbackBlock
	}
	return client.ScanWalletTransactions(ctx, wallet, lookback, limit)
}
