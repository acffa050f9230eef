package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// ContractSource is the subset of a getsourcecode answer the reports use.
type ContractSource struct {
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
	TokenName       string `json:"TokenName"`
	Proxy           string `json:"Proxy"`
	Implementation  string `json:"Implementation"`
}

// Verified reports whether the explorer knows the contract's source.
func (s ContractSource) Verified() bool {
	return s.ContractName != ""
}

// ContractSource asks the network's explorer for verified contract details,
// falling back to Etherscan v2 when the network has no explorer configured.
func (c *Client) ContractSource(ctx context.Context, address, network string) (ContractSource, error) {
	nc, err := c.network(network)
	if err != nil {
		return ContractSource{}, err
	}
	params := url.Values{
		"module":  {"contract"},
		"action":  {"getsourcecode"},
		"address": {address},
	}
	baseURL := nc.ExplorerAPI
	if baseURL == "" {
		baseURL = c.etherscanV2URL
		params.Set("chainid", strconv.FormatInt(nc.ChainID, 10))
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	resp, err := c.get(ctx, network, baseURL, params)
	if err != nil {
		return ContractSource{}, err
	}
	items, ok := resp.list()
	if !ok {
		return ContractSource{}, fmt.Errorf("%w: %s %s", ErrAPIStatus, resp.Message, resp.resultText())
	}
	if len(items) == 0 {
		return ContractSource{}, nil
	}
	var src ContractSource
	if err := json.Unmarshal(items[0], &src); err != nil {
		return ContractSource{}, fmt.Errorf("couldn't unmarshal getsourcecode result: %w", err)
	}
	if src.ContractName == "" {
		// Blockscout spells some fields in camelCase
		var alt struct {
			ContractName string `json:"contractName"`
			TokenName    string `json:"tokenName"`
		}
		if err := json.Unmarshal(items[0], &alt); err == nil {
			src.ContractName = alt.ContractName
			if src.TokenName == "" {
				src.TokenName = alt.TokenName
			}
		}
	}
	return src, nil
}

// ContractName makes the client usable as a metadata.ContractNamer.
func (c *Client) ContractName(ctx context.Context, address, network string) (string, error) {
	src, err := c.ContractSource(ctx, address, network)
	if err != nil {
		return "", err
	}
	return src.ContractName, nil
}
