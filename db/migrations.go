package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ExecFunc runs a single DDL statement.
type ExecFunc func(ctx context.Context, query string) error

// PostgresSchema creates the transaction, token transfer and wallet analysis
// tables. Every statement is idempotent.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ethereum_transactions (
		id              BIGSERIAL PRIMARY KEY,
		chain_id        INTEGER NOT NULL,
		network         VARCHAR(32) NOT NULL,
		wallet_address  VARCHAR(42) NOT NULL,
		tx_hash         VARCHAR(66) NOT NULL,
		block_number    BIGINT NOT NULL,
		block_time      TIMESTAMP NOT NULL,
		from_address    VARCHAR(42) NOT NULL,
		to_address      VARCHAR(42),
		value           NUMERIC(78, 0) NOT NULL DEFAULT 0,
		gas_used        BIGINT NOT NULL DEFAULT 0,
		gas_price       NUMERIC(78, 0) NOT NULL DEFAULT 0,
		status          SMALLINT NOT NULL DEFAULT 1,
		input_data      TEXT,
		logs            JSONB,
		protocol        VARCHAR(50),
		action_type     VARCHAR(50),
		processed_at    TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (chain_id, tx_hash, wallet_address)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_eth_tx_wallet ON ethereum_transactions (wallet_address, block_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_eth_tx_protocol ON ethereum_transactions (protocol)`,
	`CREATE TABLE IF NOT EXISTS token_transfers (
		id              BIGSERIAL PRIMARY KEY,
		chain_id        INTEGER NOT NULL,
		tx_hash         VARCHAR(66) NOT NULL,
		log_index       INTEGER NOT NULL,
		block_number    BIGINT NOT NULL,
		block_time      TIMESTAMP NOT NULL,
		token_address   VARCHAR(42) NOT NULL,
		from_address    VARCHAR(42) NOT NULL,
		to_address      VARCHAR(42) NOT NULL,
		value_raw       NUMERIC(78, 0) NOT NULL DEFAULT 0,
		value_scaled    DOUBLE PRECISION NOT NULL DEFAULT 0,
		token_symbol    VARCHAR(64),
		token_name      VARCHAR(128),
		token_decimals  INTEGER NOT NULL DEFAULT 18,
		usd_value       DOUBLE PRECISION NOT NULL DEFAULT 0,
		protocol        VARCHAR(50),
		processed_at    TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (chain_id, tx_hash, log_index, token_address)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_token_transfers_tx ON token_transfers (chain_id, tx_hash)`,
	`CREATE TABLE IF NOT EXISTS wallet_analysis (
		id                     BIGSERIAL PRIMARY KEY,
		wallet_address         VARCHAR(42) NOT NULL,
		networks               TEXT NOT NULL,
		analysis_date          TIMESTAMP NOT NULL,
		total_transactions     INTEGER NOT NULL,
		defi_transactions      INTEGER NOT NULL,
		unique_contracts       INTEGER NOT NULL,
		total_gas_used         NUMERIC(78, 0) NOT NULL DEFAULT 0,
		total_gas_cost_wei     NUMERIC(78, 0) NOT NULL DEFAULT 0,
		protocols_used         JSONB,
		first_transaction_date TIMESTAMP,
		last_transaction_date  TIMESTAMP,
		defi_score             INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_analysis_wallet ON wallet_analysis (wallet_address, analysis_date DESC)`,
}

// ClickHouseSchema mirrors PostgresSchema. Re-inserted rows collapse on merge.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS ethereum_transactions (
		chain_id       UInt64,
		network        LowCardinality(String),
		wallet_address FixedString(42),
		tx_hash        FixedString(66),
		block_number   UInt64,
		block_time     DateTime CODEC(Delta, ZSTD),
		from_address   FixedString(42),
		to_address     String,
		value          UInt256,
		gas_used       UInt64,
		gas_price      UInt256,
		status         UInt8,
		input_data     String,
		logs           String,
		protocol       LowCardinality(String),
		action_type    LowCardinality(String),
		processed_at   DateTime64(3) DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(processed_at)
	ORDER BY (chain_id, wallet_address, tx_hash)`,
	`CREATE TABLE IF NOT EXISTS token_transfers (
		chain_id       UInt64,
		tx_hash        FixedString(66),
		log_index      UInt64,
		block_number   UInt64,
		block_time     DateTime CODEC(Delta, ZSTD),
		token_address  FixedString(42),
		from_address   String,
		to_address     String,
		value_raw      UInt256,
		value_scaled   Float64,
		token_symbol   String,
		token_name     String,
		token_decimals UInt8,
		usd_value      Float64,
		protocol       LowCardinality(String),
		processed_at   DateTime64(3) DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(processed_at)
	ORDER BY (chain_id, tx_hash, log_index, token_address)`,
	`CREATE TABLE IF NOT EXISTS wallet_analysis (
		wallet_address         FixedString(42),
		networks               Array(String),
		analysis_date          DateTime,
		total_transactions     UInt32,
		defi_transactions      UInt32,
		unique_contracts       UInt32,
		total_gas_used         UInt256,
		total_gas_cost_wei     UInt256,
		protocols_used         Array(String),
		first_transaction_date DateTime,
		last_transaction_date  DateTime,
		defi_score             UInt8
	) ENGINE = MergeTree
	ORDER BY (wallet_address, analysis_date)`,
}

// Run executes the statements in order and stops at the first failure.
func Run(ctx context.Context, exec ExecFunc, driver string, statements []string) error {
	for i, stmt := range statements {
		if err := exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s migration %d failed: %w", driver, i+1, err)
		}
	}
	log.Info().Str("driver", driver).Int("statements", len(statements)).Msg("Migrations completed")
	return nil
}

// Migrate creates the Postgres schema on an open database handle.
func Migrate(ctx context.Context, conn *sql.DB) error {
	return Run(ctx, func(ctx context.Context, query string) error {
		_, err := conn.ExecContext(ctx, query)
		return err
	}, "postgres", PostgresSchema)
}
