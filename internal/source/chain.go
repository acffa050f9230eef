package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/internal/common"
)

// ChainSource tries its sources in order and returns the first answer that
// did not fail. An empty answer is a valid answer.
type ChainSource struct {
	sources []ISource
}

func NewChainSource(sources ...ISource) *ChainSource {
	return &ChainSource{sources: sources}
}

func (c *ChainSource) Name() string {
	return "chain"
}

func (c *ChainSource) FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error) {
	var errs []error
	for _, s := range c.sources {
		txs, err := s.FetchTransactions(ctx, wallet, network, limit)
		if err == nil {
			if len(errs) > 0 {
				log.Info().Str("source", s.Name()).Str("network", network).Int("transactions", len(txs)).Msg("served by fallback source")
			}
			return txs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("source", s.Name()).Str("network", network).Msg("transaction source failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, errors.New("no transaction sources configured")
	}
	return nil, errors.Join(errs...)
}
