package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
	customLog "github.com/ledgerlens/defi-insight/internal/log"
	"github.com/ledgerlens/defi-insight/internal/metrics"
	"github.com/ledgerlens/defi-insight/internal/report"
	"github.com/ledgerlens/defi-insight/internal/source"
)

const (
	DefaultMaxTransactions = 10000
	DefaultPrefetchWorkers = 10

	// transactions classified between two progress updates
	progressChunk = 100
)

// TokenMetadata warms and answers token lookups for the transfers of a batch.
type TokenMetadata interface {
	PrefetchTokenMeta(ctx context.Context, addresses []string, network string, workers int)
	TokenDecimals(ctx context.Context, address, network string) int
}

// TokenPricer values token transfers in USD. Unknown tokens price at zero.
type TokenPricer interface {
	TokenPrice(ctx context.Context, contract, network string) float64
}

// ProgressFunc receives the number of fetched and processed transactions of
// one network.
type ProgressFunc func(network string, total, processed int)

type Worker struct {
	source     source.ISource
	classifier *classifier.Classifier
	formatter  *report.Formatter
	metadata   TokenMetadata
	prices     TokenPricer
	networks   map[string]config.NetworkConfig

	classifyWorkers int
	prefetchWorkers int
}

type Option func(*Worker)

func WithTokenMetadata(m TokenMetadata) Option {
	return func(w *Worker) {
		w.metadata = m
	}
}

func WithTokenPrices(p TokenPricer) Option {
	return func(w *Worker) {
		w.prices = p
	}
}

func WithClassifyWorkers(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.classifyWorkers = n
		}
	}
}

func WithPrefetchWorkers(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.prefetchWorkers = n
		}
	}
}

// NetworkResult is the output of one network's pipeline.
type NetworkResult struct {
	Network         string
	Transactions    []common.Transaction
	Classifications []classifier.Classification
	Rows            []report.Row
	Stored          []common.StoredTransaction
	Skipped         int
	Error           error
}

func NewWorker(src source.ISource, c *classifier.Classifier, f *report.Formatter, networks map[string]config.NetworkConfig, opts ...Option) *Worker {
	w := &Worker{
		source:          src,
		classifier:      c,
		formatter:       f,
		networks:        networks,
		classifyWorkers: classifier.DefaultWorkers,
		prefetchWorkers: DefaultPrefetchWorkers,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes every network concurrently. Results keep the order of
// networks. A failing network does not stop the others.
func (w *Worker) Run(ctx context.Context, wallet string, networks []string, limit int, tally *classifier.Tally, progress ProgressFunc) []NetworkResult {
	var wg sync.WaitGroup
	results := make([]NetworkResult, len(networks))
	for i, network := range networks {
		wg.Add(1)
		go func(i int, network string) {
			defer wg.Done()
			results[i] = w.ProcessNetwork(ctx, wallet, network, limit, tally, progress)
		}(i, network)
	}
	wg.Wait()
	return results
}

func (w *Worker) ProcessNetwork(ctx context.Context, wallet, network string, limit int, tally *classifier.Tally, progress ProgressFunc) NetworkResult {
	network = strings.ToLower(strings.TrimSpace(network))
	result := NetworkResult{Network: network}
	if limit <= 0 {
		limit = DefaultMaxTransactions
	}
	if progress == nil {
		progress = func(string, int, int) {}
	}

	logger := customLog.ForNetwork("worker", network)
	logger.Debug().Str("wallet", wallet).Msg("Fetching wallet transactions")
	txs, err := w.source.FetchTransactions(ctx, wallet, network, limit)
	if err != nil {
		result.Error = fmt.Errorf("error fetching transactions on %s: %w", network, err)
		return result
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}
	result.Transactions = txs
	progress(network, len(txs), 0)
	if len(txs) == 0 {
		return result
	}

	if w.metadata != nil {
		w.metadata.PrefetchTokenMeta(ctx, inlineTokenContracts(txs), network, w.prefetchWorkers)
	}

	chainID := uint64(0)
	if nc, ok := w.networks[network]; ok && nc.ChainID > 0 {
		chainID = uint64(nc.ChainID)
	}
	decimals := w.decimalsFunc(ctx, network)

	result.Classifications = make([]classifier.Classification, 0, len(txs))
	result.Rows = make([]report.Row, 0, len(txs))
	result.Stored = make([]common.StoredTransaction, 0, len(txs))

	for start := 0; start < len(txs); start += progressChunk {
		end := min(start+progressChunk, len(txs))
		chunk := txs[start:end]
		classifications, err := w.classifier.ClassifyBatch(ctx, chunk, network, w.classifyWorkers)
		if err != nil {
			result.Error = fmt.Errorf("classification on %s interrupted: %w", network, err)
			return result
		}
		for i := range chunk {
			row, stored, err := w.processOne(ctx, &chunk[i], classifications[i], network, chainID, wallet, decimals)
			if err != nil {
				logger.Warn().Err(err).Str("tx", chunk[i].Hash).Msg("Skipping transaction")
				result.Skipped++
				continue
			}
			if tally != nil {
				tally.Record(network, classifications[i])
			}
			result.Classifications = append(result.Classifications, classifications[i])
			result.Rows = append(result.Rows, row)
			result.Stored = append(result.Stored, stored)
		}
		metrics.TransactionsProcessed.WithLabelValues(network).Add(float64(len(chunk)))
		progress(network, len(txs), end)
	}

	logger.Info().Int("transactions", len(txs)).Int("skipped", result.Skipped).Msg("Processed network")
	return result
}

func (w *Worker) processOne(ctx context.Context, tx *common.Transaction, c classifier.Classification, network string, chainID uint64, wallet string, decimals report.DecimalsFunc) (row report.Row, stored common.StoredTransaction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while formatting transaction: %v", r)
		}
	}()
	if tx.Hash == "" {
		return row, stored, fmt.Errorf("transaction without hash")
	}
	row = w.formatter.Row(ctx, tx, c, network, wallet)
	stored = report.PrepareForStorage(tx, c, network, chainID, wallet, decimals)
	w.priceTransfers(ctx, stored.TokenTransfers, network)
	return row, stored, nil
}

func (w *Worker) priceTransfers(ctx context.Context, transfers []common.TokenTransfer, network string) {
	if w.prices == nil {
		return
	}
	for i := range transfers {
		if transfers[i].AmountDecimal == 0 {
			continue
		}
		if price := w.prices.TokenPrice(ctx, transfers[i].TokenAddress, network); price > 0 {
			transfers[i].USDValue = transfers[i].AmountDecimal * price
		}
	}
}

func (w *Worker) decimalsFunc(ctx context.Context, network string) report.DecimalsFunc {
	if w.metadata == nil {
		return nil
	}
	return func(token string) int {
		return w.metadata.TokenDecimals(ctx, token, network)
	}
}

// inlineTokenContracts lists the token contracts of tokentx style records.
func inlineTokenContracts(txs []common.Transaction) []string {
	seen := common.NewSet[string]()
	for _, tx := range txs {
		if tx.ContractAddress == "" {
			continue
		}
		if tx.TokenSymbol == "" && tx.TokenName == "" && tx.TokenDecimal == "" {
			continue
		}
		seen.Add(common.NormalizeAddress(tx.ContractAddress))
	}
	return seen.List()
}
