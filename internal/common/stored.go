package common

import (
	"math/big"
	"time"
)

// StoredTransaction is the normalized row persisted per wallet transaction.
type StoredTransaction struct {
	ChainID        uint64          `json:"chain_id"`
	Network        string          `json:"network"`
	WalletAddress  string          `json:"wallet_address"`
	Hash           string          `json:"hash"`
	BlockNumber    uint64          `json:"block_number"`
	BlockTime      time.Time       `json:"block_time"`
	FromAddress    string          `json:"from_address"`
	ToAddress      string          `json:"to_address"`
	Value          *big.Int        `json:"value"`
	GasUsed        uint64          `json:"gas_used"`
	GasPrice       *big.Int        `json:"gas_price"`
	Status         uint8           `json:"status"`
	Input          string          `json:"input"`
	Logs           []Log           `json:"logs"`
	Protocol       string          `json:"protocol"`
	ActionType     string          `json:"action_type"`
	TokenTransfers []TokenTransfer `json:"token_transfers"`
}

// GasCost is gasUsed * gasPrice in wei.
func (t *StoredTransaction) GasCost() *big.Int {
	if t.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(t.GasUsed), t.GasPrice)
}

// WalletAnalysis summarizes a wallet's activity across the analysed networks.
type WalletAnalysis struct {
	WalletAddress     string    `json:"wallet_address"`
	Networks          []string  `json:"networks"`
	TotalTransactions int       `json:"total_transactions"`
	DeFiTransactions  int       `json:"defi_transactions"`
	UniqueContracts   int       `json:"unique_contracts"`
	TotalGasUsed      *big.Int  `json:"total_gas_used"`
	TotalGasCostWei   *big.Int  `json:"total_gas_cost_wei"`
	ProtocolsUsed     []string  `json:"protocols_used"`
	FirstTransaction  time.Time `json:"first_transaction_date"`
	LastTransaction   time.Time `json:"last_transaction_date"`
	AnalysisDate      time.Time `json:"analysis_date"`
	DeFiScore         int       `json:"defi_score"`
}
