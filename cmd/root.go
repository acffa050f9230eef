package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/env"
	customLogger "github.com/ledgerlens/defi-insight/internal/log"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "defi-insight",
		Short: "Classify DeFi activity of wallets on Arbitrum and Flare",
		Long: "defi-insight fetches the transaction history of a wallet from block explorers, " +
			"classifies every transaction against a catalog of DeFi protocols and exports the result as CSV or Parquet.",
		Run: func(cmd *cobra.Command, args []string) {
			RunApi(cmd, args)
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level to use for the application")
	rootCmd.PersistentFlags().Bool("log-prettify", false, "Whether to prettify the log output")
	rootCmd.PersistentFlags().String("explorer-apiKey", "", "Etherscan v2 API key")
	rootCmd.PersistentFlags().Int("explorer-pageSize", 0, "How many transactions to request per explorer page")
	rootCmd.PersistentFlags().Int("classifier-workers", 0, "How many goroutines classify transactions in parallel")
	rootCmd.PersistentFlags().Int("job-maxTransactionsPerNetwork", 0, "Cap on transactions fetched per network")
	rootCmd.PersistentFlags().String("metadata-cache-badger-path", "", "Directory of the badger metadata cache")
	rootCmd.PersistentFlags().String("metadata-cache-redis-addr", "", "Redis address of the metadata cache")
	rootCmd.PersistentFlags().String("storage-main-postgres-host", "", "Postgres host for main storage")
	rootCmd.PersistentFlags().Int("storage-main-postgres-port", 0, "Postgres port for main storage")
	rootCmd.PersistentFlags().String("storage-main-postgres-username", "", "Postgres username for main storage")
	rootCmd.PersistentFlags().String("storage-main-postgres-password", "", "Postgres password for main storage")
	rootCmd.PersistentFlags().String("storage-main-postgres-database", "", "Postgres database for main storage")
	rootCmd.PersistentFlags().String("storage-main-clickhouse-host", "", "Clickhouse host for main storage")
	rootCmd.PersistentFlags().Int("storage-main-clickhouse-port", 0, "Clickhouse port for main storage")
	rootCmd.PersistentFlags().String("storage-main-clickhouse-username", "", "Clickhouse username for main storage")
	rootCmd.PersistentFlags().String("storage-main-clickhouse-password", "", "Clickhouse password for main storage")
	rootCmd.PersistentFlags().String("storage-main-clickhouse-database", "", "Clickhouse database for main storage")
	rootCmd.PersistentFlags().String("report-outputDir", "", "Directory export files are written to")
	rootCmd.PersistentFlags().String("report-s3-bucket", "", "S3 bucket reports are uploaded to")
	rootCmd.PersistentFlags().String("report-s3-region", "", "S3 region")
	rootCmd.PersistentFlags().String("report-s3-endpoint", "", "S3 endpoint override, e.g. for MinIO")
	rootCmd.PersistentFlags().Int("api-port", 0, "Port the API listens on")
	rootCmd.PersistentFlags().String("api-basicAuth-username", "", "Basic auth username for the API")
	rootCmd.PersistentFlags().String("api-basicAuth-password", "", "Basic auth password for the API")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.prettify", rootCmd.PersistentFlags().Lookup("log-prettify"))
	viper.BindPFlag("explorer.apiKey", rootCmd.PersistentFlags().Lookup("explorer-apiKey"))
	viper.BindPFlag("explorer.pageSize", rootCmd.PersistentFlags().Lookup("explorer-pageSize"))
	viper.BindPFlag("classifier.workers", rootCmd.PersistentFlags().Lookup("classifier-workers"))
	viper.BindPFlag("job.maxTransactionsPerNetwork", rootCmd.PersistentFlags().Lookup("job-maxTransactionsPerNetwork"))
	viper.BindPFlag("metadata.cache.badger.path", rootCmd.PersistentFlags().Lookup("metadata-cache-badger-path"))
	viper.BindPFlag("metadata.cache.redis.addr", rootCmd.PersistentFlags().Lookup("metadata-cache-redis-addr"))
	viper.BindPFlag("storage.main.postgres.host", rootCmd.PersistentFlags().Lookup("storage-main-postgres-host"))
	viper.BindPFlag("storage.main.postgres.port", rootCmd.PersistentFlags().Lookup("storage-main-postgres-port"))
	viper.BindPFlag("storage.main.postgres.username", rootCmd.PersistentFlags().Lookup("storage-main-postgres-username"))
	viper.BindPFlag("storage.main.postgres.password", rootCmd.PersistentFlags().Lookup("storage-main-postgres-password"))
	viper.BindPFlag("storage.main.postgres.database", rootCmd.PersistentFlags().Lookup("storage-main-postgres-database"))
	viper.BindPFlag("storage.main.clickhouse.host", rootCmd.PersistentFlags().Lookup("storage-main-clickhouse-host"))
	viper.BindPFlag("storage.main.clickhouse.port", rootCmd.PersistentFlags().Lookup("storage-main-clickhouse-port"))
	viper.BindPFlag("storage.main.clickhouse.username", rootCmd.PersistentFlags().Lookup("storage-main-clickhouse-username"))
	viper.BindPFlag("storage.main.clickhouse.password", rootCmd.PersistentFlags().Lookup("storage-main-clickhouse-password"))
	viper.BindPFlag("storage.main.clickhouse.database", rootCmd.PersistentFlags().Lookup("storage-main-clickhouse-database"))
	viper.BindPFlag("report.outputDir", rootCmd.PersistentFlags().Lookup("report-outputDir"))
	viper.BindPFlag("report.s3.bucket", rootCmd.PersistentFlags().Lookup("report-s3-bucket"))
	viper.BindPFlag("report.s3.region", rootCmd.PersistentFlags().Lookup("report-s3-region"))
	viper.BindPFlag("report.s3.endpoint", rootCmd.PersistentFlags().Lookup("report-s3-endpoint"))
	viper.BindPFlag("api.port", rootCmd.PersistentFlags().Lookup("api-port"))
	viper.BindPFlag("api.basicAuth.username", rootCmd.PersistentFlags().Lookup("api-basicAuth-username"))
	viper.BindPFlag("api.basicAuth.password", rootCmd.PersistentFlags().Lookup("api-basicAuth-password"))

	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initConfig() {
	env.Load()
	if err := config.LoadConfig(cfgFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	customLogger.InitLogger()
}
