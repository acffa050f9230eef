package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/defi-insight/api"
	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/orchestrator"
	"github.com/ledgerlens/defi-insight/internal/report"
)

var (
	exportWallet   string
	exportNetworks []string
	exportFormat   string
	exportOutput   string
	exportMetrics  bool

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Classify a wallet and write the report to a file",
		Long:  "Fetch and classify the transactions of a wallet on the given networks and write a CSV or Parquet report. Results are stored and uploaded when storage and S3 are configured.",
		RunE:  RunExport,
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportWallet, "wallet", "", "Wallet address to export")
	exportCmd.Flags().StringSliceVar(&exportNetworks, "networks", nil, "Networks to export (default all configured networks)")
	exportCmd.Flags().StringVar(&exportFormat, "format", api.FormatCSV, "Report format, csv or parquet")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Report path (default <report.outputDir>/defi_transactions_<wallet>_<timestamp>.<format>)")
	exportCmd.Flags().BoolVar(&exportMetrics, "metrics", false, "Serve prometheus metrics on api.metricsPort while exporting")
	exportCmd.MarkFlagRequired("wallet")
}

func RunExport(cmd *cobra.Command, args []string) error {
	if err := api.ValidateWallet(exportWallet); err != nil {
		return err
	}
	format, err := api.NormalizeFormat(exportFormat)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if exportMetrics {
		startMetricsServer(config.Cfg.API.MetricsPort)
	}

	svc, err := newServices(ctx, &config.Cfg, true)
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := svc.migrate(ctx); err != nil {
		return err
	}

	networks := exportNetworks
	if len(networks) == 0 {
		networks = svc.networks()
	}

	manager := svc.manager()
	defer manager.Shutdown()

	id, err := manager.Start(exportWallet, networks)
	if err != nil {
		return err
	}
	state, err := manager.Wait(ctx, id)
	if err != nil {
		return err
	}
	for network, p := range state.Progress {
		if p.Error != "" {
			log.Warn().Str("network", network).Str("error", p.Error).Msg("Network export incomplete")
		}
	}
	if state.Status == orchestrator.StatusFailed {
		return fmt.Errorf("export failed: %s", state.Error)
	}

	result, err := manager.Result(id)
	if err != nil {
		return err
	}

	path := exportOutput
	if path == "" {
		path = filepath.Join(config.Cfg.Report.OutputDir, exportFileName(state.Wallet, format, time.Now()))
	}
	if err := writeReport(path, format, result); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("rows", len(result.Rows)).Msg("Report written")
	if result.ReportURI != "" {
		log.Info().Str("uri", result.ReportURI).Msg("Report uploaded")
	}

	out, err := json.MarshalIndent(result.Analysis, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func exportFileName(wallet, format string, at time.Time) string {
	return fmt.Sprintf("defi_transactions_%s_%s.%s", strings.ToLower(wallet), at.UTC().Format("20060102_150405"), format)
}

func writeReport(path, format string, result *orchestrator.JobResult) error {
	var body []byte
	var err error
	switch format {
	case api.FormatParquet:
		body, err = report.ParquetBytes(result.Rows)
	default:
		body = result.CSV
		if body == nil {
			body, err = report.CSVBytes(result.Rows)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s report: %w", format, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func startMetricsServer(port int) {
	if port <= 0 {
		return
	}
	log.Info().Msgf("Starting Metrics Server on port %d", port)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()
}
