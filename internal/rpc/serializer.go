package rpc

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ledgerlens/defi-insight/internal/common"
)

type RawBlock struct {
	Number       *hexutil.Big     `json:"number"`
	Timestamp    hexutil.Uint64   `json:"timestamp"`
	Transactions []RawTransaction `json:"transactions"`
}

type RawTransaction struct {
	Hash     string         `json:"hash"`
	From     string         `json:"from"`
	To       *string        `json:"to"`
	Value    *hexutil.Big   `json:"value"`
	Gas      hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big   `json:"gasPrice"`
	Input    string         `json:"input"`
}

type RawReceipt struct {
	Status            *hexutil.Uint64 `json:"status"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	ContractAddress   *string         `json:"contractAddress"`
	Logs              []RawLog        `json:"logs"`
}

type RawLog struct {
	Address         string         `json:"address"`
	Topics          []string       `json:"topics"`
	Data            string         `json:"data"`
	LogIndex        hexutil.Uint64 `json:"logIndex"`
	TransactionHash string         `json:"transactionHash"`
}

// SerializeTransaction converts a block transaction into the explorer shape
// used everywhere else.
func SerializeTransaction(block *RawBlock, tx RawTransaction) common.Transaction {
	out := common.Transaction{
		Hash:      tx.Hash,
		TimeStamp: common.Numeric(strconv.FormatUint(uint64(block.Timestamp), 10)),
		From:      common.NormalizeAddress(tx.From),
		Value:     common.Numeric(bigString(tx.Value)),
		Gas:       common.Numeric(strconv.FormatUint(uint64(tx.Gas), 10)),
		GasPrice:  common.Numeric(bigString(tx.GasPrice)),
		Input:     tx.Input,
		IsError:   "0",
	}
	if block.Number != nil {
		out.BlockNumber = common.Numeric(block.Number.ToInt().String())
	}
	if tx.To != nil {
		out.To = common.NormalizeAddress(*tx.To)
	}
	return out
}

// ApplyReceipt fills the fields only a receipt carries.
func ApplyReceipt(tx *common.Transaction, receipt *RawReceipt) {
	if receipt == nil {
		return
	}
	tx.GasUsed = common.Numeric(strconv.FormatUint(uint64(receipt.GasUsed), 10))
	if receipt.EffectiveGasPrice != nil {
		tx.GasPrice = common.Numeric(bigString(receipt.EffectiveGasPrice))
	}
	if receipt.Status != nil {
		tx.TxReceiptStatus = strconv.FormatUint(uint64(*receipt.Status), 10)
		if *receipt.Status == 0 {
			tx.IsError = "1"
		}
	}
	if receipt.ContractAddress != nil {
		tx.ContractAddress = common.NormalizeAddress(*receipt.ContractAddress)
	}
	tx.Logs = make([]common.Log, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		tx.Logs = append(tx.Logs, common.Log{
			Address:         common.NormalizeAddress(l.Address),
			Topics:          l.Topics,
			Data:            l.Data,
			LogIndex:        common.Numeric(strconv.FormatUint(uint64(l.LogIndex), 10)),
			TransactionHash: l.TransactionHash,
		})
	}
}

func bigString(v *hexutil.Big) string {
	if v == nil {
		return "0"
	}
	return v.ToInt().String()
}
