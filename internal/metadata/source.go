package metadata

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ledgerlens/defi-insight/internal/metrics"
	"github.com/ledgerlens/defi-insight/internal/rpc"
)

const (
	selectorName     = "0x06fdde03"
	selectorSymbol   = "0x95d89b41"
	selectorDecimals = "0x313ce567"

	DefaultCallTimeout = 6 * time.Second
)

var stringArgs abi.Arguments

func init() {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	stringArgs = abi.Arguments{{Type: stringType}}
}

// ClientProvider resolves the RPC client of a network. rpc.Pool implements it.
type ClientProvider interface {
	Get(network string) (rpc.IRPCClient, error)
}

// RPCSource reads contract metadata straight from the chain with eth_getCode
// and eth_call.
type RPCSource struct {
	clients     ClientProvider
	callTimeout time.Duration
}

func NewRPCSource(clients ClientProvider, callTimeout time.Duration) *RPCSource {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &RPCSource{clients: clients, callTimeout: callTimeout}
}

func (s *RPCSource) IsContract(ctx context.Context, address, network string) (bool, error) {
	client, err := s.clients.Get(network)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	hasCode, err := client.HasCode(ctx, address)
	if err != nil {
		metrics.MetadataSourceErrors.WithLabelValues(network, "getCode").Inc()
		return false, fmt.Errorf("eth_getCode %s on %s: %w", address, network, err)
	}
	return hasCode, nil
}

// TokenMeta calls name() and symbol(). A contract answering only one of them
// still yields partial metadata.
func (s *RPCSource) TokenMeta(ctx context.Context, address, network string) (TokenMeta, error) {
	client, err := s.clients.Get(network)
	if err != nil {
		return TokenMeta{}, err
	}
	name, nameErr := s.callString(ctx, client, address, network, selectorName)
	symbol, symbolErr := s.callString(ctx, client, address, network, selectorSymbol)
	meta := TokenMeta{Name: name, Symbol: symbol}
	if nameErr != nil && symbolErr != nil {
		return meta, fmt.Errorf("token metadata for %s on %s: %w", address, network, nameErr)
	}
	return meta, nil
}

func (s *RPCSource) TokenDecimals(ctx context.Context, address, network string) (int, error) {
	client, err := s.clients.Get(network)
	if err != nil {
		return 0, err
	}
	out, err := s.call(ctx, client, address, network, selectorDecimals)
	if err != nil {
		return 0, err
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("decimals() of %s returned %d bytes", address, len(out))
	}
	d := new(big.Int).SetBytes(out[:32])
	if !d.IsInt64() || d.Int64() > 255 {
		return 0, fmt.Errorf("decimals() of %s out of range: %s", address, d)
	}
	return int(d.Int64()), nil
}

func (s *RPCSource) callString(ctx context.Context, client rpc.IRPCClient, address, network, selector string) (string, error) {
	out, err := s.call(ctx, client, address, network, selector)
	if err != nil {
		return "", err
	}
	return DecodeStringResult(out)
}

func (s *RPCSource) call(ctx context.Context, client rpc.IRPCClient, address, network, selector string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	out, err := client.CallContract(ctx, address, hexutil.MustDecode(selector))
	if err != nil {
		metrics.MetadataSourceErrors.WithLabelValues(network, selector).Inc()
		return nil, err
	}
	return out, nil
}

// DecodeStringResult decodes an ABI string return value. Older tokens return
// bytes32 instead, which is accepted as a fallback.
func DecodeStringResult(out []byte) (string, error) {
	if len(out) == 0 {
		return "", fmt.Errorf("empty call result")
	}
	if values, err := stringArgs.Unpack(out); err == nil && len(values) == 1 {
		if s, ok := values[0].(string); ok {
			return cleanString(s), nil
		}
	}
	if len(out) == 32 {
		s := string(bytes.TrimRight(out, "\x00"))
		if utf8.ValidString(s) {
			return cleanString(s), nil
		}
	}
	return "", fmt.Errorf("cannot decode %d byte string result", len(out))
}

func cleanString(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
