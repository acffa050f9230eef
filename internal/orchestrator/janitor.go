package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartJanitor removes finished jobs older than the retention period until
// ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DEFAULT_JANITOR_INTERVAL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Dur("retention", m.retention).Msg("Job janitor running")
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(); n > 0 {
				log.Debug().Int("removed", n).Msg("Removed expired jobs")
			}
		}
	}
}

// Cleanup drops finished jobs whose completion is older than the retention
// period and returns how many were removed.
func (m *Manager) Cleanup() int {
	cutoff := m.now().Add(-m.retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, j := range m.jobs {
		if j.state.CompletedAt != nil && j.state.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
