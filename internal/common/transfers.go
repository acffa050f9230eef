package common

import (
	"math/big"
	"time"
)

// ERC20TransferTopic is keccak256("Transfer(address,address,uint256)").
const ERC20TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

type TokenTransfer struct {
	TransactionHash string    `json:"transaction_hash"`
	Network         string    `json:"network"`
	TokenAddress    string    `json:"token_address"`
	TokenSymbol     string    `json:"token_symbol"`
	TokenName       string    `json:"token_name"`
	FromAddress     string    `json:"from_address"`
	ToAddress       string    `json:"to_address"`
	Amount          *big.Int  `json:"amount"`
	AmountDecimal   float64   `json:"amount_decimal"`
	Decimals        int       `json:"decimals"`
	USDValue        float64   `json:"usd_value"`
	LogIndex        uint64    `json:"log_index"`
	BlockNumber     uint64    `json:"block_number"`
	BlockTimestamp  time.Time `json:"block_timestamp"`
	Protocol        string    `json:"protocol"`
}
