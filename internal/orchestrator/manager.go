package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metrics"
	"github.com/ledgerlens/defi-insight/internal/report"
	"github.com/ledgerlens/defi-insight/internal/storage"
	"github.com/ledgerlens/defi-insight/internal/worker"
)

const (
	DEFAULT_RETENTION        = time.Hour
	DEFAULT_JANITOR_INTERVAL = time.Minute
	DEFAULT_STORAGE_TIMEOUT  = 2 * time.Minute
	csvContentType           = "text/csv"
)

// Pipeline runs the per-network fetch and classification of one wallet.
type Pipeline interface {
	Run(ctx context.Context, wallet string, networks []string, limit int, tally *classifier.Tally, progress worker.ProgressFunc) []worker.NetworkResult
}

type ReportUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Manager runs export jobs in the background and keeps their state and
// results in memory until the retention period has passed.
type Manager struct {
	pipeline        Pipeline
	storage         storage.IStorage
	uploader        ReportUploader
	networks        map[string]struct{}
	maxTransactions int
	retention       time.Duration
	now             func() time.Time

	mu   sync.RWMutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithStorage(s storage.IStorage) ManagerOption {
	return func(m *Manager) {
		m.storage = s
	}
}

func WithUploader(u ReportUploader) ManagerOption {
	return func(m *Manager) {
		m.uploader = u
	}
}

func WithMaxTransactions(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxTransactions = n
		}
	}
}

func WithRetention(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithSupportedNetworks restricts the networks a job may name.
func WithSupportedNetworks(networks []string) ManagerOption {
	return func(m *Manager) {
		m.networks = make(map[string]struct{}, len(networks))
		for _, n := range networks {
			m.networks[strings.ToLower(n)] = struct{}{}
		}
	}
}

func NewManager(pipeline Pipeline, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		pipeline:        pipeline,
		maxTransactions: worker.DefaultMaxTransactions,
		retention:       DEFAULT_RETENTION,
		now:             time.Now,
		jobs:            make(map[string]*job),
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start validates the request and schedules the job. The returned id is a
// random UUID.
func (m *Manager) Start(wallet string, networks []string) (string, error) {
	wallet = strings.TrimSpace(wallet)
	if !common.IsHexAddress(wallet) {
		return "", fmt.Errorf("invalid wallet address %q", wallet)
	}
	normalized, err := m.normalizeNetworks(networks)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	j := &job{state: JobState{
		ID:        id,
		Wallet:    common.NormalizeAddress(wallet),
		Networks:  normalized,
		Status:    StatusPending,
		Progress:  make(map[string]*NetworkProgress, len(normalized)),
		CreatedAt: m.now().UTC(),
	}}
	for _, n := range normalized {
		j.state.Progress[n] = &NetworkProgress{Protocols: map[string]int{}}
	}

	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()

	metrics.JobsStarted.Inc()
	log.Info().Str("job", id).Str("wallet", j.state.Wallet).Strs("networks", normalized).Msg("Job scheduled")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(id)
	}()
	return id, nil
}

func (m *Manager) normalizeNetworks(networks []string) ([]string, error) {
	seen := common.NewSet[string]()
	out := make([]string, 0, len(networks))
	for _, n := range networks {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen.Contains(n) {
			continue
		}
		if m.networks != nil {
			if _, ok := m.networks[n]; !ok {
				return nil, fmt.Errorf("unsupported network %q", n)
			}
		}
		seen.Add(n)
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one network is required")
	}
	return out, nil
}

func (m *Manager) Status(id string) (JobState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return JobState{}, ErrJobNotFound
	}
	return j.snapshot(), nil
}

// Result returns the output of a completed job.
func (m *Manager) Result(id string) (*JobResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	switch j.state.Status {
	case StatusCompleted:
		return j.result, nil
	case StatusFailed:
		return nil, fmt.Errorf("%w: %s", ErrJobFailed, j.state.Error)
	default:
		return nil, ErrJobNotReady
	}
}

// Wait blocks until the job is done or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (JobState, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		state, err := m.Status(id)
		if err != nil || state.Done() {
			return state, err
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Manager) update(id string, fn func(j *job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		fn(j)
	}
}

func (m *Manager) run(id string) {
	state, err := m.Status(id)
	if err != nil {
		return
	}
	start := m.now()
	m.update(id, func(j *job) {
		j.state.Status = StatusRunning
		t := start.UTC()
		j.state.StartedAt = &t
	})

	tally := classifier.NewTally()
	progress := func(network string, total, processed int) {
		counts := tally.Counts(network)
		m.update(id, func(j *job) {
			p, ok := j.state.Progress[network]
			if !ok {
				p = &NetworkProgress{}
				j.state.Progress[network] = p
			}
			p.Total = total
			p.Processed = processed
			p.Protocols = counts
		})
	}

	results := m.pipeline.Run(m.ctx, state.Wallet, state.Networks, m.maxTransactions, tally, progress)

	var rows []report.Row
	var stored []common.StoredTransaction
	var errs []error
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, r.Error)
			log.Error().Err(r.Error).Str("job", id).Str("network", r.Network).Msg("Network failed")
			network, msg := r.Network, r.Error.Error()
			m.update(id, func(j *job) {
				if p, ok := j.state.Progress[network]; ok {
					p.Error = msg
				}
			})
			continue
		}
		rows = append(rows, r.Rows...)
		stored = append(stored, r.Stored...)
	}

	if len(errs) == len(results) && len(errs) > 0 {
		m.finish(id, start, nil, errors.Join(errs...))
		return
	}

	csvBytes, err := report.CSVBytes(rows)
	if err != nil {
		m.finish(id, start, nil, fmt.Errorf("failed to build csv: %w", err))
		return
	}

	result := &JobResult{
		Rows:     rows,
		CSV:      csvBytes,
		Analysis: report.AnalyzeWallet(state.Wallet, state.Networks, stored, m.now()),
	}
	m.persist(id, stored, result.Analysis)
	result.ReportURI = m.upload(id, state.Wallet, csvBytes)
	m.finish(id, start, result, nil)
}

func (m *Manager) persist(id string, stored []common.StoredTransaction, analysis common.WalletAnalysis) {
	if m.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, DEFAULT_STORAGE_TIMEOUT)
	defer cancel()
	if err := m.storage.InsertTransactions(ctx, stored); err != nil {
		log.Error().Err(err).Str("job", id).Msg("Failed to store transactions")
	}
	if err := m.storage.InsertWalletAnalysis(ctx, analysis); err != nil {
		log.Error().Err(err).Str("job", id).Msg("Failed to store wallet analysis")
	}
}

func (m *Manager) upload(id, wallet string, csvBytes []byte) string {
	if m.uploader == nil {
		return ""
	}
	key := fmt.Sprintf("%s/%s.csv", wallet, id)
	uri, err := m.uploader.Upload(m.ctx, key, csvBytes, csvContentType)
	if err != nil {
		log.Error().Err(err).Str("job", id).Msg("Failed to upload report")
		return ""
	}
	return uri
}

func (m *Manager) finish(id string, start time.Time, result *JobResult, err error) {
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	end := m.now()
	m.update(id, func(j *job) {
		j.state.Status = status
		t := end.UTC()
		j.state.CompletedAt = &t
		if err != nil {
			j.state.Error = err.Error()
			return
		}
		j.result = result
		j.state.ReportURI = result.ReportURI
	})
	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	metrics.JobDuration.Observe(end.Sub(start).Seconds())
	if err != nil {
		log.Error().Err(err).Str("job", id).Msg("Job failed")
		return
	}
	log.Info().Str("job", id).Int("rows", len(result.Rows)).Int("defi", result.Analysis.DeFiTransactions).Msg("Job completed")
}

// Shutdown cancels running jobs and waits for them to return.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
