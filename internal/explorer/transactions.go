package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/internal/common"
)

// FetchTransactions returns up to limit transactions of wallet, newest first.
// Flare results are topped up from the Flare explorer, including token
// transfer records when enabled. An error means no source could be reached;
// a source answering with an error status only ends that source.
func (c *Client) FetchTransactions(ctx context.Context, wallet, network string, limit int) ([]common.Transaction, error) {
	network = strings.ToLower(strings.TrimSpace(network))
	nc, err := c.network(network)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	wallet = common.NormalizeAddress(wallet)

	seen := common.NewSet[string]()
	var collected []common.Transaction
	appendUnique := func(txs []common.Transaction) {
		for _, tx := range txs {
			if tx.Hash != "" && seen.Contains(tx.Hash) {
				continue
			}
			seen.Add(tx.Hash)
			collected = append(collected, tx)
		}
	}

	base := url.Values{
		"chainid": {strconv.FormatInt(nc.ChainID, 10)},
	}
	if c.apiKey != "" {
		base.Set("apikey", c.apiKey)
	}
	txs, v2Err := c.paginate(ctx, network, c.etherscanV2URL, base, "txlist", wallet, limit)
	appendUnique(txs)
	if v2Err != nil {
		log.Warn().Err(v2Err).Str("network", network).Msg("Etherscan v2 txlist failed")
	}

	if network != flareNetwork || nc.ExplorerAPI == "" {
		if v2Err != nil && len(collected) == 0 {
			return nil, v2Err
		}
		return collected, nil
	}

	var flareErr error
	if len(collected) < limit {
		txs, flareErr = c.paginate(ctx, network, nc.ExplorerAPI, url.Values{}, "txlist", wallet, limit-len(collected))
		appendUnique(txs)
		if flareErr != nil {
			log.Warn().Err(flareErr).Str("network", network).Msg("Flare explorer txlist failed")
		}
	}
	if c.tokenTransfers && len(collected) < limit {
		transfers, err := c.paginate(ctx, network, nc.ExplorerAPI, url.Values{}, "tokentx", wallet, limit-len(collected))
		if err != nil {
			log.Warn().Err(err).Str("network", network).Msg("Flare explorer tokentx failed")
		}
		// token transfer records share the hash of their transaction
		collected = append(collected, transfers...)
	}

	if len(collected) == 0 && v2Err != nil && flareErr != nil {
		return nil, fmt.Errorf("all explorers failed for %s: %w", network, v2Err)
	}
	if len(collected) > limit {
		collected = collected[:limit]
	}
	return collected, nil
}

// paginate walks pages until one comes back short or limit records are
// collected. Transactions gathered before a failure are returned with it.
func (c *Client) paginate(ctx context.Context, network, baseURL string, base url.Values, action, wallet string, limit int) ([]common.Transaction, error) {
	var out []common.Transaction
	for page := 1; len(out) < limit; page++ {
		offset := min(c.pageSize, limit-len(out))
		params := accountParams(action, wallet, page, offset)
		for k, v := range base {
			params[k] = v
		}
		resp, err := c.get(ctx, network, baseURL, params)
		if err != nil {
			return out, err
		}
		items, ok := resp.list()
		if !ok {
			return out, fmt.Errorf("%w: %s %s", ErrAPIStatus, resp.Message, resp.resultText())
		}
		txs := decodeTransactions(items, action)
		log.Debug().Str("network", network).Str("action", action).Int("page", page).Int("count", len(txs)).Msg("fetched explorer page")
		out = append(out, txs...)
		if len(items) < offset {
			break
		}
	}
	return out, nil
}

func decodeTransactions(items []json.RawMessage, action string) []common.Transaction {
	out := make([]common.Transaction, 0, len(items))
	for _, raw := range items {
		var tx common.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			log.Debug().Err(err).Msg("skipping undecodable explorer record")
			continue
		}
		if action == "tokentx" {
			// tokentx records carry no input; the token contract sits in
			// contractAddress
			if tx.Input == "" {
				tx.Input = common.EmptyInput
			}
		}
		tx.From = common.NormalizeAddress(tx.From)
		tx.To = common.NormalizeAddress(tx.To)
		out = append(out, tx)
	}
	return out
}
