package classifier

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerlens/defi-insight/internal/common"
)

const DefaultWorkers = 8

// ClassifyBatch classifies txs concurrently. The result slice lines up with
// the input. On cancellation the unfinished entries stay NotDeFi and the
// context error is returned.
func (c *Classifier) ClassifyBatch(ctx context.Context, txs []common.Transaction, network string, workers int) ([]Classification, error) {
	results := make([]Classification, len(txs))
	if len(txs) == 0 {
		return results, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range txs {
		if gCtx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = c.Classify(gCtx, &txs[i], network)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Tally counts DeFi hits per network and protocol. Safe for concurrent use.
type Tally struct {
	mu     sync.RWMutex
	counts map[string]map[string]int
}

func NewTally() *Tally {
	return &Tally{counts: make(map[string]map[string]int)}
}

// Record counts the classification if it is DeFi.
func (t *Tally) Record(network string, c Classification) {
	m, ok := c.Match()
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	byProtocol, ok := t.counts[network]
	if !ok {
		byProtocol = make(map[string]int)
		t.counts[network] = byProtocol
	}
	byProtocol[m.Protocol]++
}

// Counts returns a copy of the per-protocol counts for one network.
func (t *Tally) Counts(network string) map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.counts[network]))
	for p, n := range t.counts[network] {
		out[p] = n
	}
	return out
}

// Protocols lists every protocol seen on any network, sorted.
func (t *Tally) Protocols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, byProtocol := range t.counts {
		for p := range byProtocol {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (t *Tally) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, byProtocol := range t.counts {
		for _, n := range byProtocol {
			total += n
		}
	}
	return total
}
