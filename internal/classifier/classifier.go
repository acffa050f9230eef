package classifier

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/internal/catalog"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metadata"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

const DefaultHighGasThreshold uint64 = 200000

// Layers that produced a classification, used as a metrics label.
const (
	LayerUnknownNetwork = "unknown_network"
	LayerTrivial        = "trivial_transfer"
	LayerPrimary        = "primary_address"
	LayerStaking        = "staking"
	LayerFallback       = "method_fallback"
	LayerSecondary      = "secondary_address"
	LayerMetadata       = "token_metadata"
	LayerGeneric        = "generic_heuristic"
	LayerNone           = "none"
	LayerPanic          = "recovered_panic"
)

// MetadataProvider is what the classifier needs to inspect unknown contracts.
// Implementations swallow their own failures and return zero values.
type MetadataProvider interface {
	IsContract(ctx context.Context, address, network string) bool
	TokenMeta(ctx context.Context, address, network string) metadata.TokenMeta
}

type Option func(*Classifier)

// WithHighGasThreshold sets the gas used above which an unmatched call with
// calldata is considered DeFi.
func WithHighGasThreshold(gas uint64) Option {
	return func(c *Classifier) {
		c.highGasThreshold = gas
	}
}

// WithLiquiditySelectors replaces the selectors labelled with the liquidity
// exchange by the generic heuristic.
func WithLiquiditySelectors(selectors []string) Option {
	return func(c *Classifier) {
		c.liquiditySelectors = make(map[string]struct{}, len(selectors))
		for _, s := range selectors {
			c.liquiditySelectors[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
		}
	}
}

func WithLiquidityExchange(label string) Option {
	return func(c *Classifier) {
		c.liquidityExchange = label
	}
}

// Classifier assigns a protocol, action, type, group and exchange to a
// transaction. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	catalog  *catalog.Catalog
	metadata MetadataProvider

	highGasThreshold   uint64
	liquiditySelectors map[string]struct{}
	liquidityExchange  string
}

// New builds a classifier over cat. A nil catalog means the built-in one and
// a nil provider disables the token metadata layer.
func New(cat *catalog.Catalog, provider MetadataProvider, opts ...Option) *Classifier {
	if cat == nil {
		cat = catalog.Default()
	}
	c := &Classifier{
		catalog:          cat,
		metadata:         provider,
		highGasThreshold: DefaultHighGasThreshold,
	}
	WithLiquiditySelectors(cat.LiquiditySelectors())(c)
	c.liquidityExchange = cat.ExchangeName("sparkdex_v3")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Catalog() *catalog.Catalog {
	return c.catalog
}

// Classify never fails: anything unexpected yields NotDeFi. The transaction
// is only read.
func (c *Classifier) Classify(ctx context.Context, tx *common.Transaction, network string) Classification {
	result, _ := c.ClassifyWithLayer(ctx, tx, network)
	return result
}

// ClassifyWithLayer also reports which matching layer decided the result.
func (c *Classifier) ClassifyWithLayer(ctx context.Context, tx *common.Transaction, network string) (result Classification, layer string) {
	network = strings.ToLower(strings.TrimSpace(network))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			hash := ""
			if tx != nil {
				hash = tx.Hash
			}
			log.Error().Interface("panic", r).Str("network", network).Str("tx", hash).Msg("recovered panic while classifying transaction")
			metrics.ClassificationPanics.WithLabelValues(network).Inc()
			result, layer = NotDeFi(), LayerPanic
		}
		metrics.ClassificationDuration.Observe(time.Since(start).Seconds())
		metrics.Classifications.WithLabelValues(network, result.Protocol(), layer).Inc()
	}()

	if tx == nil {
		return NotDeFi(), LayerNone
	}
	return c.classify(ctx, tx, network)
}

func (c *Classifier) classify(ctx context.Context, tx *common.Transaction, network string) (Classification, string) {
	if !c.catalog.HasNetwork(network) {
		return NotDeFi(), LayerUnknownNetwork
	}

	selector := tx.Selector()
	if !tx.HasCalldata() || c.catalog.IsPlainERC20(selector) {
		return NotDeFi(), LayerTrivial
	}

	to := tx.ToAddress()
	fnName := tx.FunctionBaseName()

	for _, rule := range c.catalog.ProtocolsForNetwork(network) {
		if rule.MatchesAddress(to) {
			return DeFi(c.matchRule(rule, fnName, selector)), LayerPrimary
		}
	}

	if rule, ok := c.catalog.StakingRule(network); ok && rule.MatchesAddress(to) {
		return DeFi(c.matchStaking(rule, fnName, selector)), LayerStaking
	}

	if protocol, ok := c.catalog.FallbackProtocol(network, selector); ok {
		return DeFi(c.matchFallback(network, protocol, selector)), LayerFallback
	}

	for _, rule := range c.catalog.SecondaryProtocols(network) {
		if rule.MatchesAddress(to) {
			return DeFi(c.matchRule(rule, fnName, selector)), LayerSecondary
		}
	}

	if m, ok := c.matchTokenPatterns(ctx, to, network); ok {
		return DeFi(m), LayerMetadata
	}

	if m, ok := c.matchGeneric(tx, fnName, selector); ok {
		return DeFi(m), LayerGeneric
	}

	return NotDeFi(), LayerNone
}

// matchRule names the action from the explorer's function name when present,
// then from the rule's selector table, then falls back to "interaction".
func (c *Classifier) matchRule(rule catalog.ProtocolRule, fnName, selector string) Match {
	action := fnName
	if action == "" {
		if a, ok := rule.ActionFor(selector); ok {
			action = a
		} else {
			action = catalog.ActionInteraction
		}
	}
	return Match{
		Protocol: rule.Name,
		Action:   action,
		Type:     c.catalog.TransactionType(action),
		Group:    rule.GroupFor(action),
		Exchange: rule.DisplayName,
	}
}

func (c *Classifier) matchStaking(rule catalog.ProtocolRule, fnName, selector string) Match {
	action := fnName
	if action == "" {
		if a, ok := rule.ActionFor(selector); ok {
			action = a
		} else {
			action = catalog.ActionStake
		}
	}
	return Match{
		Protocol: rule.Name,
		Action:   action,
		Type:     c.catalog.TransactionTypeOr(action, catalog.TypeStaking),
		Group:    catalog.GroupStaking,
		Exchange: rule.DisplayName,
	}
}

func (c *Classifier) matchFallback(network, protocol, selector string) Match {
	action := catalog.ActionInteraction
	for _, rule := range c.catalog.ActionScanOrder(network) {
		if a, ok := rule.ActionFor(selector); ok {
			action = a
			break
		}
	}
	return Match{
		Protocol: protocol,
		Action:   action,
		Type:     c.catalog.TransactionType(action),
		Group:    c.catalog.GroupForProtocol(protocol),
		Exchange: c.catalog.ExchangeName(protocol),
	}
}

func (c *Classifier) matchTokenPatterns(ctx context.Context, to, network string) (Match, bool) {
	if c.metadata == nil || to == "" {
		return Match{}, false
	}
	rules := c.catalog.TokenPatternRules()
	if len(rules) == 0 {
		return Match{}, false
	}
	if !c.metadata.IsContract(ctx, to, network) {
		return Match{}, false
	}
	meta := c.metadata.TokenMeta(ctx, to, network)
	if meta.IsEmpty() {
		return Match{}, false
	}
	for _, rule := range rules {
		if !rule.Matches(meta.Symbol, meta.Name) {
			continue
		}
		typ := rule.Type
		if typ == "" {
			typ = c.catalog.TransactionType(rule.Action)
		}
		exchange := rule.DisplayName
		if exchange == "" {
			exchange = c.catalog.ExchangeName(rule.Protocol)
		}
		log.Debug().Str("address", to).Str("symbol", meta.Symbol).Str("name", meta.Name).Str("protocol", rule.Protocol).Msg("token pattern matched")
		return Match{
			Protocol: rule.Protocol,
			Action:   rule.Action,
			Type:     typ,
			Group:    rule.Group,
			Exchange: exchange,
		}, true
	}
	return Match{}, false
}

var trivialFunctionNames = map[string]struct{}{
	"transfer":     {},
	"approve":      {},
	"transferFrom": {},
}

// matchGeneric flags calls with real calldata that either carry a decoded
// function name or burn more gas than a plain token move would.
func (c *Classifier) matchGeneric(tx *common.Transaction, fnName, selector string) (Match, bool) {
	if selector == "" || c.catalog.IsPlainERC20(selector) {
		return Match{}, false
	}
	if len(strings.TrimSpace(tx.Input)) <= common.SelectorLength {
		return Match{}, false
	}
	_, trivialName := trivialFunctionNames[fnName]
	hasName := fnName != "" && !trivialName
	if !hasName && tx.GasUsed.Uint64() <= c.highGasThreshold {
		return Match{}, false
	}

	action := fnName
	if action == "" {
		action = catalog.ActionInteraction
	}
	exchange := catalog.ExchangeUnknownDeFi
	if _, ok := c.liquiditySelectors[selector]; ok {
		exchange = c.liquidityExchange
	}
	return Match{
		Protocol: catalog.ProtocolUnknown,
		Action:   action,
		Type:     catalog.TypeTrade,
		Group:    catalog.GroupOther,
		Exchange: exchange,
	}, true
}
