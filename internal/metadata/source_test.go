package metadata

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/rpc"
)

type fakeClient struct {
	code    bool
	results map[string][]byte
	err     error
}

func (f *fakeClient) GetChainID() *big.Int { return big.NewInt(42161) }
func (f *fakeClient) GetURL() string       { return "http://fake" }
func (f *fakeClient) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}
func (f *fakeClient) HasCode(ctx context.Context, address string) (bool, error) {
	return f.code, f.err
}
func (f *fakeClient) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	out, ok := f.results[hexutil.Encode(data)]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}
func (f *fakeClient) ScanWalletTransactions(ctx context.Context, wallet string, lookback int, limit int) ([]common.Transaction, error) {
	return nil, nil
}
func (f *fakeClient) Close() {}

type fakeClients map[string]rpc.IRPCClient

func (f fakeClients) Get(network string) (rpc.IRPCClient, error) {
	c, ok := f[network]
	if !ok {
		return nil, errors.New("unknown network")
	}
	return c, nil
}

func abiString(s string) []byte {
	out, err := stringArgs.Pack(s)
	if err != nil {
		panic(err)
	}
	return out
}

func bytes32(s string) []byte {
	out := make([]byte, 32)
	copy(out, s)
	return out
}

func TestDecodeStringResult(t *testing.T) {
	s, err := DecodeStringResult(abiString("Wrapped Ether"))
	require.NoError(t, err)
	assert.Equal(t, "Wrapped Ether", s)

	s, err = DecodeStringResult(bytes32("MKR"))
	require.NoError(t, err)
	assert.Equal(t, "MKR", s)

	_, err = DecodeStringResult(nil)
	assert.Error(t, err)
}

func TestRPCSource(t *testing.T) {
	client := &fakeClient{
		code: true,
		results: map[string][]byte{
			selectorName:     abiString("Curve.fi USDC/USDT"),
			selectorSymbol:   bytes32("2CRV"),
			selectorDecimals: common256(18),
		},
	}
	src := NewRPCSource(fakeClients{"arbitrum": client}, 0)
	ctx := context.Background()

	isContract, err := src.IsContract(ctx, token, "arbitrum")
	require.NoError(t, err)
	assert.True(t, isContract)

	meta, err := src.TokenMeta(ctx, token, "arbitrum")
	require.NoError(t, err)
	assert.Equal(t, TokenMeta{Name: "Curve.fi USDC/USDT", Symbol: "2CRV"}, meta)

	decimals, err := src.TokenDecimals(ctx, token, "arbitrum")
	require.NoError(t, err)
	assert.Equal(t, 18, decimals)

	_, err = src.IsContract(ctx, token, "polygon")
	assert.Error(t, err)
}

func TestRPCSourcePartialMetadata(t *testing.T) {
	client := &fakeClient{results: map[string][]byte{selectorSymbol: abiString("LUSD")}}
	src := NewRPCSource(fakeClients{"flare": client}, 0)

	meta, err := src.TokenMeta(context.Background(), token, "flare")
	require.NoError(t, err)
	assert.Equal(t, TokenMeta{Symbol: "LUSD"}, meta)

	_, err = src.TokenDecimals(context.Background(), token, "flare")
	assert.Error(t, err)

	client.err = errors.New("timeout")
	_, err = src.TokenMeta(context.Background(), token, "flare")
	assert.Error(t, err)
}

func common256(v int64) []byte {
	out := make([]byte, 32)
	big.NewInt(v).FillBytes(out)
	return out
}
