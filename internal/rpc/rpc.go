package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/common"
)

type IRPCClient interface {
	GetChainID() *big.Int
	GetURL() string
	GetLatestBlockNumber(ctx context.Context) (*big.Int, error)
	HasCode(ctx context.Context, address string) (bool, error)
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)
	ScanWalletTransactions(ctx context.Context, wallet string, lookback int, limit int) ([]common.Transaction, error)
	Close()
}

type Client struct {
	RPCClient        *gethRpc.Client
	EthClient        *ethclient.Client
	url              string
	network          string
	chainID          *big.Int
	blocksPerRequest int
}

// Initialize dials the network's RPC endpoint. HTTP endpoints are dialled
// lazily by go-ethereum, so no request is made here.
func Initialize(network string, nc config.NetworkConfig) (*Client, error) {
	if nc.RPCURL == "" {
		return nil, fmt.Errorf("no RPC URL configured for network %s", network)
	}
	log.Debug().Str("network", network).Msg("Initializing RPC")
	rpcClient, dialErr := gethRpc.Dial(nc.RPCURL)
	if dialErr != nil {
		return nil, fmt.Errorf("failed to dial %s RPC: %w", network, dialErr)
	}
	ethClient := ethclient.NewClient(rpcClient)
	return &Client{
		RPCClient:        rpcClient,
		EthClient:        ethClient,
		url:              nc.RPCURL,
		network:          network,
		chainID:          big.NewInt(nc.ChainID),
		blocksPerRequest: DEFAULT_BLOCKS_PER_REQUEST,
	}, nil
}

func (rpc *Client) GetChainID() *big.Int {
	return rpc.chainID
}

func (rpc *Client) GetURL() string {
	return rpc.url
}

func (rpc *Client) Close() {
	rpc.RPCClient.Close()
	rpc.EthClient.Close()
}

// VerifyChainID checks the endpoint serves the configured chain.
func (rpc *Client) VerifyChainID(ctx context.Context) error {
	chainID, err := rpc.EthClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %v", err)
	}
	if rpc.chainID.Sign() != 0 && chainID.Cmp(rpc.chainID) != 0 {
		return fmt.Errorf("%s RPC serves chain %s, expected %s", rpc.network, chainID, rpc.chainID)
	}
	rpc.chainID = chainID
	return nil
}

func (rpc *Client) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	blockNumber, err := rpc.EthClient.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block number: %v", err)
	}
	return new(big.Int).SetUint64(blockNumber), nil
}

func (rpc *Client) HasCode(ctx context.Context, address string) (bool, error) {
	code, err := rpc.EthClient.CodeAt(ctx, gethCommon.HexToAddress(address), nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// CallContract runs an eth_call against the latest block.
func (rpc *Client) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	addr := gethCommon.HexToAddress(to)
	return rpc.EthClient.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
}
