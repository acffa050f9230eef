package storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/db"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

type ClickHouseConnector struct {
	conn clickhouse.Conn
	cfg  *config.ClickhouseConfig
}

func NewClickHouseConnector(cfg *config.ClickhouseConfig) (*ClickHouseConnector, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Protocol: clickhouse.Native,
		TLS: func() *tls.Config {
			if cfg.EnableTLS {
				return &tls.Config{}
			}
			return nil
		}(),
		Auth: clickhouse.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
			Database: cfg.Database,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &ClickHouseConnector{conn: conn, cfg: cfg}, nil
}

func (c *ClickHouseConnector) Migrate(ctx context.Context) error {
	return db.Run(ctx, func(ctx context.Context, query string) error {
		return c.conn.Exec(ctx, query)
	}, "clickhouse", db.ClickHouseSchema)
}

func (c *ClickHouseConnector) InsertTransactions(ctx context.Context, txs []common.StoredTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	txs = MergeByHash(txs)

	start := time.Now()
	batch, err := c.conn.PrepareBatch(ctx, `INSERT INTO ethereum_transactions (chain_id, network, wallet_address, tx_hash,
		block_number, block_time, from_address, to_address, value, gas_used, gas_price, status, input_data, logs, protocol, action_type)`)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		value, err := checkedAmount(tx.Value)
		if err != nil {
			return fmt.Errorf("transaction %s value: %w", tx.Hash, err)
		}
		gasPrice, err := checkedAmount(tx.GasPrice)
		if err != nil {
			return fmt.Errorf("transaction %s gas price: %w", tx.Hash, err)
		}
		logsJSON, err := json.Marshal(tx.Logs)
		if err != nil {
			return err
		}
		if err := batch.Append(
			tx.ChainID,
			tx.Network,
			strings.ToLower(tx.WalletAddress),
			strings.ToLower(tx.Hash),
			tx.BlockNumber,
			tx.BlockTime.UTC(),
			strings.ToLower(tx.FromAddress),
			strings.ToLower(tx.ToAddress),
			value,
			tx.GasUsed,
			gasPrice,
			tx.Status,
			tx.Input,
			string(logsJSON),
			tx.Protocol,
			tx.ActionType,
		); err != nil {
			return err
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send transaction batch: %w", err)
	}
	metrics.StorageInsertDuration.WithLabelValues("clickhouse", "ethereum_transactions").Observe(time.Since(start).Seconds())

	transfers := collectTransfers(txs)
	if len(transfers) == 0 {
		return nil
	}
	start = time.Now()
	batch, err = c.conn.PrepareBatch(ctx, `INSERT INTO token_transfers (chain_id, tx_hash, log_index, block_number, block_time,
		token_address, from_address, to_address, value_raw, value_scaled, token_symbol, token_name, token_decimals, usd_value, protocol)`)
	if err != nil {
		return err
	}
	for _, t := range transfers {
		raw, err := checkedAmount(t.Amount)
		if err != nil {
			return fmt.Errorf("transfer in %s: %w", t.TransactionHash, err)
		}
		if err := batch.Append(
			t.chainID,
			strings.ToLower(t.TransactionHash),
			t.LogIndex,
			t.BlockNumber,
			t.BlockTimestamp.UTC(),
			strings.ToLower(t.TokenAddress),
			strings.ToLower(t.FromAddress),
			strings.ToLower(t.ToAddress),
			raw,
			t.AmountDecimal,
			t.TokenSymbol,
			t.TokenName,
			uint8(t.Decimals),
			t.USDValue,
			t.Protocol,
		); err != nil {
			return err
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send token transfer batch: %w", err)
	}
	metrics.StorageInsertDuration.WithLabelValues("clickhouse", "token_transfers").Observe(time.Since(start).Seconds())
	log.Debug().Int("transactions", len(txs)).Int("transfers", len(transfers)).Msg("Inserted transactions into clickhouse")
	return nil
}

func (c *ClickHouseConnector) InsertWalletAnalysis(ctx context.Context, a common.WalletAnalysis) error {
	gasUsed, err := checkedAmount(a.TotalGasUsed)
	if err != nil {
		return err
	}
	gasCost, err := checkedAmount(a.TotalGasCostWei)
	if err != nil {
		return err
	}
	start := time.Now()
	err = c.conn.Exec(ctx, `INSERT INTO wallet_analysis (wallet_address, networks, analysis_date, total_transactions,
		defi_transactions, unique_contracts, total_gas_used, total_gas_cost_wei, protocols_used,
		first_transaction_date, last_transaction_date, defi_score) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(a.WalletAddress),
		a.Networks,
		a.AnalysisDate.UTC(),
		uint32(a.TotalTransactions),
		uint32(a.DeFiTransactions),
		uint32(a.UniqueContracts),
		gasUsed,
		gasCost,
		a.ProtocolsUsed,
		a.FirstTransaction.UTC(),
		a.LastTransaction.UTC(),
		uint8(a.DeFiScore),
	)
	metrics.StorageInsertDuration.WithLabelValues("clickhouse", "wallet_analysis").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to insert wallet analysis: %w", err)
	}
	return nil
}

func (c *ClickHouseConnector) GetTransactions(ctx context.Context, qf QueryFilter) ([]common.StoredTransaction, error) {
	clauses := []string{"1 = 1"}
	args := []any{}
	if qf.WalletAddress != "" {
		clauses = append(clauses, "wallet_address = ?")
		args = append(args, strings.ToLower(qf.WalletAddress))
	}
	if qf.Network != "" {
		clauses = append(clauses, "network = ?")
		args = append(args, strings.ToLower(qf.Network))
	}
	if qf.Protocol != "" {
		clauses = append(clauses, "protocol = ?")
		args = append(args, qf.Protocol)
	}
	query := fmt.Sprintf(`SELECT chain_id, network, wallet_address, tx_hash, block_number, block_time, from_address,
		to_address, toString(value), gas_used, toString(gas_price), status, input_data, logs, protocol, action_type
		FROM ethereum_transactions FINAL WHERE %s ORDER BY block_time DESC, tx_hash LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), getLimit(qf), max(qf.Offset, 0))

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []common.StoredTransaction
	for rows.Next() {
		var tx common.StoredTransaction
		var value, gasPrice, logsJSON string
		if err := rows.Scan(&tx.ChainID, &tx.Network, &tx.WalletAddress, &tx.Hash, &tx.BlockNumber, &tx.BlockTime,
			&tx.FromAddress, &tx.ToAddress, &value, &tx.GasUsed, &gasPrice, &tx.Status, &tx.Input, &logsJSON,
			&tx.Protocol, &tx.ActionType); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Value = parseNumeric(value)
		tx.GasPrice = parseNumeric(gasPrice)
		if logsJSON != "" {
			if err := json.Unmarshal([]byte(logsJSON), &tx.Logs); err != nil {
				log.Warn().Err(err).Str("tx", tx.Hash).Msg("Failed to decode stored logs")
			}
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return txs, nil
	}
	return txs, c.attachTransfers(ctx, txs)
}

func (c *ClickHouseConnector) attachTransfers(ctx context.Context, txs []common.StoredTransaction) error {
	hashes := make([]string, 0, len(txs))
	byKey := make(map[string][]int, len(txs))
	for i, tx := range txs {
		hashes = append(hashes, tx.Hash)
		key := fmt.Sprintf("%d:%s", tx.ChainID, tx.Hash)
		byKey[key] = append(byKey[key], i)
	}

	rows, err := c.conn.Query(ctx, `SELECT chain_id, tx_hash, log_index, block_number, block_time, token_address,
		from_address, to_address, toString(value_raw), value_scaled, token_symbol, token_name, token_decimals, usd_value, protocol
		FROM token_transfers FINAL WHERE tx_hash IN ? ORDER BY tx_hash, log_index`, hashes)
	if err != nil {
		return fmt.Errorf("failed to query token transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chainID uint64
		var t common.TokenTransfer
		var raw string
		var decimals uint8
		if err := rows.Scan(&chainID, &t.TransactionHash, &t.LogIndex, &t.BlockNumber, &t.BlockTimestamp, &t.TokenAddress,
			&t.FromAddress, &t.ToAddress, &raw, &t.AmountDecimal, &t.TokenSymbol, &t.TokenName, &decimals, &t.USDValue, &t.Protocol); err != nil {
			return fmt.Errorf("failed to scan token transfer: %w", err)
		}
		t.Amount = parseNumeric(raw)
		t.Decimals = int(decimals)
		for _, i := range byKey[fmt.Sprintf("%d:%s", chainID, t.TransactionHash)] {
			t.Network = txs[i].Network
			txs[i].TokenTransfers = append(txs[i].TokenTransfers, t)
		}
	}
	return rows.Err()
}

func (c *ClickHouseConnector) GetLatestWalletAnalysis(ctx context.Context, wallet string) (*common.WalletAnalysis, error) {
	rows, err := c.conn.Query(ctx, `SELECT wallet_address, networks, analysis_date, total_transactions, defi_transactions,
		unique_contracts, toString(total_gas_used), toString(total_gas_cost_wei), protocols_used,
		first_transaction_date, last_transaction_date, defi_score
		FROM wallet_analysis WHERE wallet_address = ? ORDER BY analysis_date DESC LIMIT 1`, strings.ToLower(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet analysis: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}

	var a common.WalletAnalysis
	var total, defi, unique uint32
	var score uint8
	var gasUsed, gasCost string
	if err := rows.Scan(&a.WalletAddress, &a.Networks, &a.AnalysisDate, &total, &defi, &unique, &gasUsed, &gasCost,
		&a.ProtocolsUsed, &a.FirstTransaction, &a.LastTransaction, &score); err != nil {
		return nil, fmt.Errorf("failed to scan wallet analysis: %w", err)
	}
	a.TotalTransactions = int(total)
	a.DeFiTransactions = int(defi)
	a.UniqueContracts = int(unique)
	a.DeFiScore = int(score)
	a.TotalGasUsed = parseNumeric(gasUsed)
	a.TotalGasCostWei = parseNumeric(gasCost)
	return &a, nil
}

func (c *ClickHouseConnector) Close() error {
	return c.conn.Close()
}

// checkedAmount returns a *big.Int that fits a UInt256 column.
func checkedAmount(v *big.Int) (*big.Int, error) {
	u, err := toUint256(v)
	if err != nil {
		return nil, err
	}
	return u.ToBig(), nil
}
