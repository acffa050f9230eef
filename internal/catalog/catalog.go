package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledgerlens/defi-insight/internal/common"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// MethodEntry maps a 4-byte selector to an action name. Rules keep them in
// declaration order so that the first action declared for a selector wins.
type MethodEntry struct {
	Selector string
	Action   string
}

// RuleDefinition is the raw, declarative form of a protocol rule.
type RuleDefinition struct {
	Name         string
	DisplayName  string
	Addresses    []string
	Methods      []MethodEntry
	DefaultGroup string
	// actions that move the match into the liquidity mining group
	LiquidityActions []string
}

type FallbackEntry struct {
	Selector string
	Protocol string
}

type NetworkDefinition struct {
	Primary        []RuleDefinition
	Secondary      []RuleDefinition
	Staking        *RuleDefinition
	MethodFallback []FallbackEntry
	ActionScan     []RuleDefinition
}

// Definition is everything needed to build a Catalog.
type Definition struct {
	Networks            map[string]NetworkDefinition
	TokenPatterns       []TokenPatternRule
	TransactionTypes    map[string]string
	ExchangeNames       map[string]string
	FallbackGroups      map[string]string
	PlainERC20Selectors []string
	LiquiditySelectors  []string
}

// ProtocolRule is the immutable, matchable form of a RuleDefinition.
type ProtocolRule struct {
	Name         string
	DisplayName  string
	DefaultGroup string

	addresses        map[string]struct{}
	methods          []MethodEntry
	liquidityActions map[string]struct{}
}

func (r ProtocolRule) MatchesAddress(address string) bool {
	address = common.NormalizeAddress(address)
	if address == "" {
		return false
	}
	_, ok := r.addresses[address]
	return ok
}

// ActionFor returns the first action declared for selector.
func (r ProtocolRule) ActionFor(selector string) (string, bool) {
	selector = strings.ToLower(selector)
	if selector == "" {
		return "", false
	}
	for _, m := range r.methods {
		if m.Selector == selector {
			return m.Action, true
		}
	}
	return "", false
}

// GroupFor applies the liquidity mining override to the rule's default group.
func (r ProtocolRule) GroupFor(action string) string {
	if _, ok := r.liquidityActions[NormalizeAction(action)]; ok {
		return GroupLiquidityMining
	}
	return r.DefaultGroup
}

func (r ProtocolRule) Addresses() []string {
	out := make([]string, 0, len(r.addresses))
	for a := range r.addresses {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (r ProtocolRule) Methods() []MethodEntry {
	out := make([]MethodEntry, len(r.methods))
	copy(out, r.methods)
	return out
}

type networkTables struct {
	primary    []ProtocolRule
	secondary  []ProtocolRule
	staking    *ProtocolRule
	fallback   []FallbackEntry
	fallbackBy map[string]string
	actionScan []ProtocolRule
}

// Catalog holds the per-network rule tables. It is built once and never
// mutated, so it is safe for concurrent use.
type Catalog struct {
	networks           map[string]*networkTables
	patterns           []TokenPatternRule
	types              map[string]string
	exchanges          map[string]string
	fallbackGroups     map[string]string
	plainERC20         map[string]struct{}
	liquiditySelectors []string

	definitionErrs []error
}

// New builds a catalog and validates it. Validation errors are the only
// errors the classification engine ever surfaces.
func New(def Definition) (*Catalog, error) {
	c := build(def)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func MustNew(def Definition) *Catalog {
	c, err := New(def)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in Arbitrum and Flare catalog.
func Default() *Catalog {
	return MustNew(DefaultDefinition())
}

func build(def Definition) *Catalog {
	c := &Catalog{
		networks:       make(map[string]*networkTables, len(def.Networks)),
		patterns:       append([]TokenPatternRule(nil), def.TokenPatterns...),
		types:          lowerKeys(def.TransactionTypes),
		exchanges:      copyMap(def.ExchangeNames),
		fallbackGroups: copyMap(def.FallbackGroups),
		plainERC20:     make(map[string]struct{}, len(def.PlainERC20Selectors)),
	}
	for _, s := range def.PlainERC20Selectors {
		c.plainERC20[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range def.LiquiditySelectors {
		c.liquiditySelectors = append(c.liquiditySelectors, strings.ToLower(s))
	}

	for name, nd := range def.Networks {
		name = strings.ToLower(name)
		t := &networkTables{fallbackBy: make(map[string]string, len(nd.MethodFallback))}
		t.primary = c.buildRules(name, "primary", nd.Primary)
		t.secondary = c.buildRules(name, "secondary", nd.Secondary)
		t.actionScan = c.buildRules(name, "action scan", nd.ActionScan)
		if nd.Staking != nil {
			r := c.buildRule(name, "staking", *nd.Staking)
			t.staking = &r
		}
		for _, fe := range nd.MethodFallback {
			sel := strings.ToLower(fe.Selector)
			if !common.IsSelector(sel) {
				c.definitionErrs = append(c.definitionErrs, fmt.Errorf("%s fallback: malformed selector %q", name, fe.Selector))
				continue
			}
			if fe.Protocol == "" {
				c.definitionErrs = append(c.definitionErrs, fmt.Errorf("%s fallback: selector %s has no protocol", name, sel))
				continue
			}
			if _, dup := t.fallbackBy[sel]; dup {
				continue
			}
			t.fallback = append(t.fallback, FallbackEntry{Selector: sel, Protocol: fe.Protocol})
			t.fallbackBy[sel] = fe.Protocol
		}
		c.networks[name] = t
	}
	return c
}

func (c *Catalog) buildRules(network, table string, defs []RuleDefinition) []ProtocolRule {
	out := make([]ProtocolRule, 0, len(defs))
	for _, d := range defs {
		out = append(out, c.buildRule(network, table, d))
	}
	return out
}

func (c *Catalog) buildRule(network, table string, d RuleDefinition) ProtocolRule {
	where := fmt.Sprintf("%s %s rule %q", network, table, d.Name)
	r := ProtocolRule{
		Name:             d.Name,
		DisplayName:      d.DisplayName,
		DefaultGroup:     d.DefaultGroup,
		addresses:        make(map[string]struct{}, len(d.Addresses)),
		liquidityActions: make(map[string]struct{}, len(d.LiquidityActions)),
	}
	if r.DisplayName == "" {
		r.DisplayName = c.ExchangeName(d.Name)
	}
	if d.Name == "" {
		c.definitionErrs = append(c.definitionErrs, fmt.Errorf("%s: empty protocol name", where))
	}
	for _, addr := range d.Addresses {
		addr = common.NormalizeAddress(addr)
		if addr == zeroAddress {
			continue
		}
		if !common.IsHexAddress(addr) {
			c.definitionErrs = append(c.definitionErrs, fmt.Errorf("%s: malformed address %q", where, addr))
			continue
		}
		r.addresses[addr] = struct{}{}
	}
	for _, m := range d.Methods {
		sel := strings.ToLower(m.Selector)
		if !common.IsSelector(sel) {
			c.definitionErrs = append(c.definitionErrs, fmt.Errorf("%s: malformed selector %q for %s", where, m.Selector, m.Action))
			continue
		}
		if m.Action == "" {
			c.definitionErrs = append(c.definitionErrs, fmt.Errorf("%s: selector %s has no action", where, sel))
			continue
		}
		r.methods = append(r.methods, MethodEntry{Selector: sel, Action: m.Action})
	}
	for _, a := range d.LiquidityActions {
		r.liquidityActions[NormalizeAction(a)] = struct{}{}
	}
	return r
}

// Validate reports definition bugs: unknown groups or types, empty protocol
// names, malformed selectors or addresses.
func (c *Catalog) Validate() error {
	errs := append([]error(nil), c.definitionErrs...)

	checkRule := func(network, table string, r ProtocolRule) {
		if !IsKnownGroup(r.DefaultGroup) {
			errs = append(errs, fmt.Errorf("%s %s rule %q: unknown group %q", network, table, r.Name, r.DefaultGroup))
		}
	}
	for _, network := range c.Networks() {
		t := c.networks[network]
		for _, r := range t.primary {
			checkRule(network, "primary", r)
		}
		for _, r := range t.secondary {
			checkRule(network, "secondary", r)
		}
		if t.staking != nil {
			checkRule(network, "staking", *t.staking)
		}
		for _, fe := range t.fallback {
			if !IsKnownGroup(c.GroupForProtocol(fe.Protocol)) {
				errs = append(errs, fmt.Errorf("%s fallback protocol %q: unknown group", network, fe.Protocol))
			}
		}
	}
	for i, p := range c.patterns {
		if p.Protocol == "" {
			errs = append(errs, fmt.Errorf("token pattern %d: empty protocol name", i))
		}
		if !IsKnownGroup(p.Group) {
			errs = append(errs, fmt.Errorf("token pattern %q: unknown group %q", p.Protocol, p.Group))
		}
		if p.Action == "" {
			errs = append(errs, fmt.Errorf("token pattern %q: empty action", p.Protocol))
		}
		if p.Type != "" {
			if _, ok := knownTypes[p.Type]; !ok {
				errs = append(errs, fmt.Errorf("token pattern %q: unknown type %q", p.Protocol, p.Type))
			}
		}
		if len(p.SymbolPatterns) == 0 && len(p.NamePatterns) == 0 {
			errs = append(errs, fmt.Errorf("token pattern %q: no patterns", p.Protocol))
		}
	}
	for action, typ := range c.types {
		if _, ok := knownTypes[typ]; !ok {
			errs = append(errs, fmt.Errorf("action %q: unknown type %q", action, typ))
		}
	}
	for _, s := range c.liquiditySelectors {
		if !common.IsSelector(s) {
			errs = append(errs, fmt.Errorf("malformed liquidity selector %q", s))
		}
	}
	return errors.Join(errs...)
}

// Networks lists the networks the catalog has tables for, sorted.
func (c *Catalog) Networks() []string {
	out := make([]string, 0, len(c.networks))
	for n := range c.networks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) HasNetwork(network string) bool {
	_, ok := c.networks[strings.ToLower(network)]
	return ok
}

func (c *Catalog) tables(network string) *networkTables {
	if t, ok := c.networks[strings.ToLower(network)]; ok {
		return t
	}
	return &networkTables{}
}

// ProtocolsForNetwork returns the primary rules in match order.
func (c *Catalog) ProtocolsForNetwork(network string) []ProtocolRule {
	return c.tables(network).primary
}

func (c *Catalog) SecondaryProtocols(network string) []ProtocolRule {
	return c.tables(network).secondary
}

func (c *Catalog) StakingRule(network string) (ProtocolRule, bool) {
	t := c.tables(network)
	if t.staking == nil {
		return ProtocolRule{}, false
	}
	return *t.staking, true
}

func (c *Catalog) MethodFallback(network string) []FallbackEntry {
	return c.tables(network).fallback
}

func (c *Catalog) FallbackProtocol(network, selector string) (string, bool) {
	p, ok := c.tables(network).fallbackBy[strings.ToLower(selector)]
	return p, ok
}

// ActionScanOrder is the fixed list of method tables used to name an action
// found through the selector fallback.
func (c *Catalog) ActionScanOrder(network string) []ProtocolRule {
	return c.tables(network).actionScan
}

func (c *Catalog) TokenPatternRules() []TokenPatternRule {
	return c.patterns
}

// TransactionType maps an action to its type, defaulting to Trade.
func (c *Catalog) TransactionType(action string) string {
	return c.TransactionTypeOr(action, TypeTrade)
}

// TransactionTypeOr looks the action up verbatim and then in snake_case form.
func (c *Catalog) TransactionTypeOr(action, fallback string) string {
	if t, ok := c.types[strings.ToLower(action)]; ok {
		return t
	}
	if t, ok := c.types[NormalizeAction(action)]; ok {
		return t
	}
	return fallback
}

// ExchangeName returns the human label for a protocol, or a title-cased
// form of its name when none is declared.
func (c *Catalog) ExchangeName(protocol string) string {
	if n, ok := c.exchanges[protocol]; ok {
		return n
	}
	return titleCase(protocol)
}

// GroupForProtocol is the group assigned to a selector-only match.
func (c *Catalog) GroupForProtocol(protocol string) string {
	if g, ok := c.fallbackGroups[protocol]; ok {
		return g
	}
	return GroupOther
}

func (c *Catalog) IsPlainERC20(selector string) bool {
	_, ok := c.plainERC20[strings.ToLower(selector)]
	return ok
}

func (c *Catalog) LiquiditySelectors() []string {
	return append([]string(nil), c.liquiditySelectors...)
}

func titleCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
