package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/catalog"
	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/explorer"
	"github.com/ledgerlens/defi-insight/internal/metadata"
	"github.com/ledgerlens/defi-insight/internal/orchestrator"
	"github.com/ledgerlens/defi-insight/internal/pricing"
	"github.com/ledgerlens/defi-insight/internal/report"
	"github.com/ledgerlens/defi-insight/internal/rpc"
	"github.com/ledgerlens/defi-insight/internal/source"
	"github.com/ledgerlens/defi-insight/internal/storage"
	"github.com/ledgerlens/defi-insight/internal/worker"
)

// services holds everything a command needs to classify and export wallets.
type services struct {
	cfg        *config.Config
	rpc        *rpc.Pool
	explorer   *explorer.Client
	metadata   *metadata.Provider
	classifier *classifier.Classifier
	formatter  *report.Formatter
	worker     *worker.Worker
	storage    storage.IStorage
	uploader   *report.Uploader
}

// newServices wires the pipeline. Storage and the S3 uploader are only
// created when persist is set.
func newServices(ctx context.Context, cfg *config.Config, persist bool) (*services, error) {
	s := &services{cfg: cfg}

	s.rpc = rpc.NewPool(cfg.Networks)
	s.explorer = explorer.NewClient(cfg.Explorer, cfg.Networks)

	cache, err := metadata.NewCache(cfg.Metadata.Cache, secondsOr(cfg.Metadata.TTLSeconds, metadata.DefaultTTL))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	s.metadata = metadata.NewProvider(
		metadata.NewRPCSource(s.rpc, secondsOr(cfg.Metadata.CallTimeout, metadata.DefaultCallTimeout)),
		cache,
		metadata.WithContractNamer(s.explorer),
		metadata.WithTTL(secondsOr(cfg.Metadata.TTLSeconds, metadata.DefaultTTL)),
	)

	cat := catalog.Default()
	s.classifier = classifier.New(cat, s.metadata, classifierOptions(cfg.Classifier)...)
	oracle := pricing.NewOracle(cfg.Pricing, cfg.Networks)
	s.formatter = report.NewFormatter(cfg.Networks, cat, oracle, s.metadata)

	src := source.NewChainSource(
		source.NewExplorerSource(s.explorer),
		source.NewRPCScanSource(s.rpc, cfg.Networks),
	)
	s.worker = worker.NewWorker(src, s.classifier, s.formatter, cfg.Networks,
		worker.WithTokenMetadata(s.metadata),
		worker.WithTokenPrices(oracle),
		worker.WithClassifyWorkers(cfg.Classifier.Workers),
		worker.WithPrefetchWorkers(cfg.Metadata.PrefetchWorkers),
	)

	if !persist {
		return s, nil
	}
	if storage.IsConfigured(&cfg.Storage.Main) {
		s.storage, err = storage.NewConnector(&cfg.Storage.Main)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	s.uploader, err = report.NewUploader(ctx, cfg.Report.S3)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// manager builds a job manager on top of the worker. Storage and uploads are
// only attached when configured.
func (s *services) manager() *orchestrator.Manager {
	opts := []orchestrator.ManagerOption{
		orchestrator.WithMaxTransactions(s.cfg.Job.MaxTransactionsPerNetwork),
		orchestrator.WithRetention(time.Duration(s.cfg.Job.RetentionMinutes) * time.Minute),
		orchestrator.WithSupportedNetworks(s.networks()),
	}
	if s.storage != nil {
		opts = append(opts, orchestrator.WithStorage(s.storage))
	}
	if s.uploader != nil {
		opts = append(opts, orchestrator.WithUploader(s.uploader))
	}
	return orchestrator.NewManager(s.worker, opts...)
}

// migrate creates the schema of database backed storage. Other drivers are
// left alone.
func (s *services) migrate(ctx context.Context) error {
	m, ok := s.storage.(storage.Migrator)
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}

func (s *services) networks() []string {
	out := make([]string, 0, len(s.cfg.Networks))
	for name := range s.cfg.Networks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *services) Close() {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}
	if s.metadata != nil {
		if err := s.metadata.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close metadata cache")
		}
	}
	if s.rpc != nil {
		s.rpc.Close()
	}
}

// classifierOptions only overrides the built-in heuristics that are set.
func classifierOptions(cfg config.ClassifierConfig) []classifier.Option {
	var opts []classifier.Option
	if cfg.HighGasThreshold > 0 {
		opts = append(opts, classifier.WithHighGasThreshold(cfg.HighGasThreshold))
	}
	if len(cfg.LiquiditySelectors) > 0 {
		opts = append(opts, classifier.WithLiquiditySelectors(cfg.LiquiditySelectors))
	}
	if cfg.LiquidityExchange != "" {
		opts = append(opts, classifier.WithLiquidityExchange(cfg.LiquidityExchange))
	}
	return opts
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
