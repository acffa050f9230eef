package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/storage"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the storage schema",
		Long:  "Create the transaction, token transfer and wallet analysis tables in the configured Postgres or ClickHouse storage",
		RunE:  RunMigrate,
	}
)

func RunMigrate(cmd *cobra.Command, args []string) error {
	if !storage.IsConfigured(&config.Cfg.Storage.Main) {
		return fmt.Errorf("no storage configured")
	}
	conn, err := storage.NewConnector(&config.Cfg.Storage.Main)
	if err != nil {
		return err
	}
	defer conn.Close()

	m, ok := conn.(storage.Migrator)
	if !ok {
		log.Info().Msg("Storage driver has no schema, nothing to migrate")
		return nil
	}
	return m.Migrate(context.Background())
}
