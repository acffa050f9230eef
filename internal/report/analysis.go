package report

import (
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ledgerlens/defi-insight/internal/common"
)

const maxDeFiScore = 100

// AnalyzeWallet summarizes stored transactions. The DeFi score grows by ten
// per distinct protocol used and caps at 100.
func AnalyzeWallet(wallet string, networks []string, stored []common.StoredTransaction, now time.Time) common.WalletAnalysis {
	analysis := common.WalletAnalysis{
		WalletAddress:     common.NormalizeAddress(wallet),
		Networks:          append([]string(nil), networks...),
		TotalTransactions: len(stored),
		TotalGasUsed:      new(big.Int),
		TotalGasCostWei:   new(big.Int),
		AnalysisDate:      now,
	}

	contracts := common.NewSet[string]()
	protocols := common.NewSet[string]()
	var first, last time.Time
	for i := range stored {
		tx := &stored[i]
		analysis.TotalGasUsed.Add(analysis.TotalGasUsed, new(big.Int).SetUint64(tx.GasUsed))
		analysis.TotalGasCostWei.Add(analysis.TotalGasCostWei, tx.GasCost())
		if tx.ToAddress != "" {
			contracts.Add(strings.ToLower(tx.ToAddress))
		}
		if tx.Protocol != "" && tx.Protocol != unknownProtocol {
			protocols.Add(tx.Protocol)
			analysis.DeFiTransactions++
		}
		if tx.BlockTime.Unix() > 0 {
			if first.IsZero() || tx.BlockTime.Before(first) {
				first = tx.BlockTime
			}
			if last.IsZero() || tx.BlockTime.After(last) {
				last = tx.BlockTime
			}
		}
	}
	if first.IsZero() {
		first, last = now, now
	}
	analysis.FirstTransaction = first
	analysis.LastTransaction = last
	analysis.UniqueContracts = contracts.Size()
	analysis.ProtocolsUsed = protocols.List()
	sort.Strings(analysis.ProtocolsUsed)
	analysis.DeFiScore = min(10*len(analysis.ProtocolsUsed), maxDeFiScore)
	return analysis
}
