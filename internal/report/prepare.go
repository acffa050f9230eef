package report

import (
	"math/big"
	"strings"
	"time"

	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
)

const (
	unknownProtocol  = "unknown"
	actionTransfer   = "transfer"
	defaultDecimals  = 18
	maxTokenDecimals = 77
)

// DecimalsFunc resolves a token's decimals when the record does not carry
// them.
type DecimalsFunc func(tokenAddress string) int

// PrepareForStorage normalizes a classified transaction for the main storage
// and extracts its token transfers from the inline tokentx fields and from
// ERC-20 Transfer logs.
func PrepareForStorage(tx *common.Transaction, c classifier.Classification, network string, chainID uint64, wallet string, decimals DecimalsFunc) common.StoredTransaction {
	blockTime := time.Unix(tx.TimeStamp.Int64(), 0).UTC()
	protocol, action := unknownProtocol, actionTransfer
	if m, ok := c.Match(); ok {
		protocol, action = m.Protocol, m.Action
	}
	status := uint8(1)
	if tx.Failed() {
		status = 0
	}

	stored := common.StoredTransaction{
		ChainID:       chainID,
		Network:       strings.ToLower(network),
		WalletAddress: common.NormalizeAddress(wallet),
		Hash:          tx.Hash,
		BlockNumber:   tx.BlockNumber.Uint64(),
		BlockTime:     blockTime,
		FromAddress:   tx.FromAddress(),
		ToAddress:     tx.ToAddress(),
		Value:         tx.Value.BigInt(),
		GasUsed:       tx.GasUsed.Uint64(),
		GasPrice:      tx.GasPrice.BigInt(),
		Status:        status,
		Input:         tx.Input,
		Logs:          tx.Logs,
		Protocol:      protocol,
		ActionType:    action,
	}

	base := common.TokenTransfer{
		TransactionHash: tx.Hash,
		Network:         stored.Network,
		BlockNumber:     stored.BlockNumber,
		BlockTimestamp:  blockTime,
		Protocol:        protocol,
	}

	if token := common.NormalizeAddress(tx.ContractAddress); token != "" && (tx.TokenSymbol != "" || tx.TokenName != "" || tx.TokenDecimal != "") {
		t := base
		t.TokenAddress = token
		t.TokenSymbol = tx.TokenSymbol
		t.TokenName = tx.TokenName
		t.FromAddress = stored.FromAddress
		t.ToAddress = stored.ToAddress
		t.Amount = tx.Value.BigInt()
		t.Decimals = resolveDecimals(tx.TokenDecimal, token, decimals)
		t.AmountDecimal = common.ScaleAmount(t.Amount, t.Decimals)
		stored.TokenTransfers = append(stored.TokenTransfers, t)
		// the native value of a tokentx record is the token amount
		stored.Value = new(big.Int)
	}

	for i, l := range tx.Logs {
		if !strings.EqualFold(l.Topic(0), common.ERC20TransferTopic) {
			continue
		}
		t := base
		t.TokenAddress = common.NormalizeAddress(l.Address)
		t.FromAddress = common.TopicToAddress(l.Topic(1))
		t.ToAddress = common.TopicToAddress(l.Topic(2))
		t.Amount = common.ParseBigInt(l.Data)
		t.LogIndex = uint64(i + 1)
		if l.LogIndex != "" {
			t.LogIndex = l.LogIndex.Uint64()
		}
		t.Decimals = resolveDecimals("", t.TokenAddress, decimals)
		t.AmountDecimal = common.ScaleAmount(t.Amount, t.Decimals)
		stored.TokenTransfers = append(stored.TokenTransfers, t)
	}
	return stored
}

func resolveDecimals(explicit common.Numeric, token string, decimals DecimalsFunc) int {
	if explicit != "" {
		if d := explicit.Int64(); d >= 0 && d <= maxTokenDecimals {
			return int(d)
		}
	}
	if decimals != nil {
		return decimals(token)
	}
	return defaultDecimals
}
