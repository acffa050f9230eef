package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

// ScanWalletTransactions walks the most recent lookback blocks, newest first,
// and returns the transactions sent from or to wallet, enriched with their
// receipts. It is the fallback when no explorer answers.
func (rpc *Client) ScanWalletTransactions(ctx context.Context, wallet string, lookback int, limit int) ([]common.Transaction, error) {
	if lookback <= 0 {
		lookback = DEFAULT_LOOKBACK_BLOCKS
	}
	latest, err := rpc.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RPCFallbackScans.WithLabelValues(rpc.network).Inc()

	blockNumbers := BlockRangeDesc(latest, lookback)
	blocks := RPCFetchInBatches[*big.Int, *RawBlock](rpc.RPCClient, ctx, blockNumbers, rpc.blocksPerRequest, 0, "eth_getBlockByNumber", GetBlockWithTransactionsParams)

	txs, failed := FilterWalletTransactions(blocks, wallet, limit)
	if failed == len(blocks) && len(blocks) > 0 {
		return nil, fmt.Errorf("all %d block requests failed on %s: %w", failed, rpc.network, blocks[0].Error)
	}
	if failed > 0 {
		log.Warn().Str("network", rpc.network).Int("failed", failed).Int("blocks", len(blocks)).Msg("some blocks could not be fetched during wallet scan")
	}
	if len(txs) == 0 {
		return txs, nil
	}

	hashes := make([]string, len(txs))
	for i := range txs {
		hashes[i] = txs[i].Hash
	}
	receipts := RPCFetchInBatches[string, *RawReceipt](rpc.RPCClient, ctx, hashes, DEFAULT_RECEIPTS_PER_BATCH, 0, "eth_getTransactionReceipt", GetTransactionReceiptParams)
	for i, r := range receipts {
		if r.Error != nil {
			log.Debug().Err(r.Error).Str("tx", r.Key).Msg("failed to fetch receipt")
			continue
		}
		ApplyReceipt(&txs[i], r.Result)
	}
	return txs, nil
}

// BlockRangeDesc lists the count block numbers ending at latest, newest first.
func BlockRangeDesc(latest *big.Int, count int) []*big.Int {
	out := make([]*big.Int, 0, count)
	n := new(big.Int).Set(latest)
	for i := 0; i < count && n.Sign() >= 0; i++ {
		out = append(out, new(big.Int).Set(n))
		n.Sub(n, big.NewInt(1))
	}
	return out
}

// FilterWalletTransactions keeps block transactions touching wallet, in block
// order, up to limit (0 means no limit). It also reports failed fetches.
func FilterWalletTransactions(blocks []RPCFetchBatchResult[*big.Int, *RawBlock], wallet string, limit int) ([]common.Transaction, int) {
	wallet = common.NormalizeAddress(wallet)
	var out []common.Transaction
	failed := 0
	for _, b := range blocks {
		if b.Error != nil {
			failed++
			continue
		}
		if b.Result == nil {
			continue
		}
		for _, tx := range b.Result.Transactions {
			to := ""
			if tx.To != nil {
				to = common.NormalizeAddress(*tx.To)
			}
			if common.NormalizeAddress(tx.From) != wallet && to != wallet {
				continue
			}
			out = append(out, SerializeTransaction(b.Result, tx))
			if limit > 0 && len(out) >= limit {
				return out, failed
			}
		}
	}
	return out, failed
}
