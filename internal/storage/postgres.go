package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/db"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

// Postgres caps bind parameters per statement at 65535.
const postgresRowsPerInsert = 1000

type PostgresConnector struct {
	db  *sql.DB
	cfg *config.PostgresConfig
}

func NewPostgresConnector(cfg *config.PostgresConfig) (*PostgresConnector, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
		log.Info().Msg("No SSL mode specified, defaulting to 'require' for secure connection")
	}
	connStr += fmt.Sprintf(" sslmode=%s", sslMode)

	if cfg.ConnectTimeout > 0 {
		connStr += fmt.Sprintf(" connect_timeout=%d", cfg.ConnectTimeout)
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.MaxConnLifetime > 0 {
		conn.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Second)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresConnector{
		db:  conn,
		cfg: cfg,
	}, nil
}

func (p *PostgresConnector) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, p.db)
}

func (p *PostgresConnector) InsertTransactions(ctx context.Context, txs []common.StoredTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	txs = MergeByHash(txs)

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := dbTx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to roll back transaction insert")
			}
		}
	}()

	start := time.Now()
	for i := 0; i < len(txs); i += postgresRowsPerInsert {
		end := min(i+postgresRowsPerInsert, len(txs))
		if err = insertTransactionRows(ctx, dbTx, txs[i:end]); err != nil {
			return err
		}
	}
	metrics.StorageInsertDuration.WithLabelValues("postgres", "ethereum_transactions").Observe(time.Since(start).Seconds())

	transfers := collectTransfers(txs)
	start = time.Now()
	for i := 0; i < len(transfers); i += postgresRowsPerInsert {
		end := min(i+postgresRowsPerInsert, len(transfers))
		if err = insertTransferRows(ctx, dbTx, transfers[i:end]); err != nil {
			return err
		}
	}
	metrics.StorageInsertDuration.WithLabelValues("postgres", "token_transfers").Observe(time.Since(start).Seconds())

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction insert: %w", err)
	}
	log.Debug().Int("transactions", len(txs)).Int("transfers", len(transfers)).Msg("Inserted transactions into postgres")
	return nil
}

func insertTransactionRows(ctx context.Context, dbTx *sql.Tx, txs []common.StoredTransaction) error {
	const columns = 17
	valueStrings := make([]string, 0, len(txs))
	valueArgs := make([]interface{}, 0, len(txs)*columns)

	for i, tx := range txs {
		value, err := numericString(tx.Value)
		if err != nil {
			return fmt.Errorf("transaction %s value: %w", tx.Hash, err)
		}
		gasPrice, err := numericString(tx.GasPrice)
		if err != nil {
			return fmt.Errorf("transaction %s gas price: %w", tx.Hash, err)
		}
		logsJSON, err := json.Marshal(tx.Logs)
		if err != nil {
			return err
		}

		placeholders := make([]string, columns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*columns+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
			tx.ChainID,
			tx.Network,
			strings.ToLower(tx.WalletAddress),
			strings.ToLower(tx.Hash),
			tx.BlockNumber,
			tx.BlockTime.UTC(),
			strings.ToLower(tx.FromAddress),
			nullString(strings.ToLower(tx.ToAddress)),
			value,
			tx.GasUsed,
			gasPrice,
			tx.Status,
			tx.Input,
			string(logsJSON),
			nullString(tx.Protocol),
			nullString(tx.ActionType),
			time.Now().UTC(),
		)
	}

	query := fmt.Sprintf(`INSERT INTO ethereum_transactions (chain_id, network, wallet_address, tx_hash, block_number, block_time,
	          from_address, to_address, value, gas_used, gas_price, status, input_data, logs, protocol, action_type, processed_at)
	          VALUES %s
	          ON CONFLICT (chain_id, tx_hash, wallet_address)
	          DO UPDATE SET protocol = EXCLUDED.protocol, action_type = EXCLUDED.action_type,
	          status = EXCLUDED.status, gas_used = EXCLUDED.gas_used, gas_price = EXCLUDED.gas_price,
	          logs = EXCLUDED.logs, processed_at = EXCLUDED.processed_at`, strings.Join(valueStrings, ","))

	if _, err := dbTx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to insert transactions: %w", err)
	}
	return nil
}

type storedTransfer struct {
	chainID uint64
	common.TokenTransfer
}

func collectTransfers(txs []common.StoredTransaction) []storedTransfer {
	var out []storedTransfer
	for _, tx := range txs {
		for _, t := range tx.TokenTransfers {
			if t.TransactionHash == "" {
				t.TransactionHash = tx.Hash
			}
			if t.BlockNumber == 0 {
				t.BlockNumber = tx.BlockNumber
			}
			if t.BlockTimestamp.IsZero() {
				t.BlockTimestamp = tx.BlockTime
			}
			out = append(out, storedTransfer{chainID: tx.ChainID, TokenTransfer: t})
		}
	}
	return out
}

func insertTransferRows(ctx context.Context, dbTx *sql.Tx, transfers []storedTransfer) error {
	const columns = 15
	valueStrings := make([]string, 0, len(transfers))
	valueArgs := make([]interface{}, 0, len(transfers)*columns)

	for i, t := range transfers {
		raw, err := numericString(t.Amount)
		if err != nil {
			return fmt.Errorf("transfer in %s: %w", t.TransactionHash, err)
		}
		placeholders := make([]string, columns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*columns+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
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
			nullString(t.TokenSymbol),
			nullString(t.TokenName),
			t.Decimals,
			t.USDValue,
			nullString(t.Protocol),
		)
	}

	query := fmt.Sprintf(`INSERT INTO token_transfers (chain_id, tx_hash, log_index, block_number, block_time, token_address,
	          from_address, to_address, value_raw, value_scaled, token_symbol, token_name, token_decimals, usd_value, protocol)
	          VALUES %s
	          ON CONFLICT (chain_id, tx_hash, log_index, token_address) DO NOTHING`, strings.Join(valueStrings, ","))

	if _, err := dbTx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to insert token transfers: %w", err)
	}
	return nil
}

func (p *PostgresConnector) InsertWalletAnalysis(ctx context.Context, a common.WalletAnalysis) error {
	gasUsed, err := numericString(a.TotalGasUsed)
	if err != nil {
		return err
	}
	gasCost, err := numericString(a.TotalGasCostWei)
	if err != nil {
		return err
	}
	protocols, err := json.Marshal(a.ProtocolsUsed)
	if err != nil {
		return err
	}

	query := `INSERT INTO wallet_analysis (wallet_address, networks, analysis_date, total_transactions, defi_transactions,
	          unique_contracts, total_gas_used, total_gas_cost_wei, protocols_used, first_transaction_date,
	          last_transaction_date, defi_score)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	start := time.Now()
	_, err = p.db.ExecContext(ctx, query,
		strings.ToLower(a.WalletAddress),
		strings.Join(a.Networks, ","),
		a.AnalysisDate.UTC(),
		a.TotalTransactions,
		a.DeFiTransactions,
		a.UniqueContracts,
		gasUsed,
		gasCost,
		string(protocols),
		nullTime(a.FirstTransaction),
		nullTime(a.LastTransaction),
		a.DeFiScore,
	)
	metrics.StorageInsertDuration.WithLabelValues("postgres", "wallet_analysis").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to insert wallet analysis: %w", err)
	}
	return nil
}

func (p *PostgresConnector) GetTransactions(ctx context.Context, qf QueryFilter) ([]common.StoredTransaction, error) {
	query := `SELECT chain_id, network, wallet_address, tx_hash, block_number, block_time, from_address, to_address,
	          value::text, gas_used, gas_price::text, status, input_data, logs, protocol, action_type
	          FROM ethereum_transactions WHERE 1=1`

	args := []interface{}{}
	argCount := 0
	if qf.WalletAddress != "" {
		argCount++
		query += fmt.Sprintf(" AND wallet_address = $%d", argCount)
		args = append(args, strings.ToLower(qf.WalletAddress))
	}
	if qf.Network != "" {
		argCount++
		query += fmt.Sprintf(" AND network = $%d", argCount)
		args = append(args, strings.ToLower(qf.Network))
	}
	if qf.Protocol != "" {
		argCount++
		query += fmt.Sprintf(" AND protocol = $%d", argCount)
		args = append(args, qf.Protocol)
	}
	query += " ORDER BY block_time DESC, tx_hash"
	argCount++
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, getLimit(qf))
	if qf.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, qf.Offset)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []common.StoredTransaction
	for rows.Next() {
		var tx common.StoredTransaction
		var to, input, protocol, action sql.NullString
		var value, gasPrice string
		var logsJSON []byte
		if err := rows.Scan(&tx.ChainID, &tx.Network, &tx.WalletAddress, &tx.Hash, &tx.BlockNumber, &tx.BlockTime,
			&tx.FromAddress, &to, &value, &tx.GasUsed, &gasPrice, &tx.Status, &input, &logsJSON, &protocol, &action); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.ToAddress = to.String
		tx.Input = input.String
		tx.Protocol = protocol.String
		tx.ActionType = action.String
		tx.Value = parseNumeric(value)
		tx.GasPrice = parseNumeric(gasPrice)
		if len(logsJSON) > 0 {
			if err := json.Unmarshal(logsJSON, &tx.Logs); err != nil {
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

	if err := p.attachTransfers(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (p *PostgresConnector) attachTransfers(ctx context.Context, txs []common.StoredTransaction) error {
	hashes := make([]string, 0, len(txs))
	byKey := make(map[string][]int, len(txs))
	for i, tx := range txs {
		hashes = append(hashes, tx.Hash)
		key := fmt.Sprintf("%d:%s", tx.ChainID, tx.Hash)
		byKey[key] = append(byKey[key], i)
	}

	query := `SELECT chain_id, tx_hash, log_index, block_number, block_time, token_address, from_address, to_address,
	          value_raw::text, value_scaled, token_symbol, token_name, token_decimals, usd_value, protocol
	          FROM token_transfers WHERE tx_hash = ANY($1) ORDER BY tx_hash, log_index`

	rows, err := p.db.QueryContext(ctx, query, pq.Array(hashes))
	if err != nil {
		return fmt.Errorf("failed to query token transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chainID uint64
		var t common.TokenTransfer
		var raw string
		var symbol, name, protocol sql.NullString
		if err := rows.Scan(&chainID, &t.TransactionHash, &t.LogIndex, &t.BlockNumber, &t.BlockTimestamp, &t.TokenAddress,
			&t.FromAddress, &t.ToAddress, &raw, &t.AmountDecimal, &symbol, &name, &t.Decimals, &t.USDValue, &protocol); err != nil {
			return fmt.Errorf("failed to scan token transfer: %w", err)
		}
		t.Amount = parseNumeric(raw)
		t.TokenSymbol = symbol.String
		t.TokenName = name.String
		t.Protocol = protocol.String
		for _, i := range byKey[fmt.Sprintf("%d:%s", chainID, t.TransactionHash)] {
			t.Network = txs[i].Network
			txs[i].TokenTransfers = append(txs[i].TokenTransfers, t)
		}
	}
	return rows.Err()
}

func (p *PostgresConnector) GetLatestWalletAnalysis(ctx context.Context, wallet string) (*common.WalletAnalysis, error) {
	query := `SELECT wallet_address, networks, analysis_date, total_transactions, defi_transactions, unique_contracts,
	          total_gas_used::text, total_gas_cost_wei::text, protocols_used, first_transaction_date,
	          last_transaction_date, defi_score
	          FROM wallet_analysis WHERE wallet_address = $1 ORDER BY analysis_date DESC LIMIT 1`

	var a common.WalletAnalysis
	var networks, gasUsed, gasCost string
	var protocols []byte
	var first, last sql.NullTime
	err := p.db.QueryRowContext(ctx, query, strings.ToLower(wallet)).Scan(&a.WalletAddress, &networks, &a.AnalysisDate,
		&a.TotalTransactions, &a.DeFiTransactions, &a.UniqueContracts, &gasUsed, &gasCost, &protocols, &first, &last, &a.DeFiScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet analysis: %w", err)
	}
	if networks != "" {
		a.Networks = strings.Split(networks, ",")
	}
	a.TotalGasUsed = parseNumeric(gasUsed)
	a.TotalGasCostWei = parseNumeric(gasCost)
	if len(protocols) > 0 {
		if err := json.Unmarshal(protocols, &a.ProtocolsUsed); err != nil {
			return nil, fmt.Errorf("failed to decode protocols used: %w", err)
		}
	}
	a.FirstTransaction = first.Time
	a.LastTransaction = last.Time
	return &a, nil
}

func (p *PostgresConnector) Close() error {
	return p.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func parseNumeric(s string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
