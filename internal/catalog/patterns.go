package catalog

import "strings"

// TokenPatternRule identifies a protocol from the token metadata of the
// called contract. Symbol patterns match when the upper-cased symbol contains
// the upper-cased pattern, name patterns when the lower-cased name contains
// the lower-cased pattern. With SymbolPrefix set, the symbol must carry that
// prefix and a name pattern must match as well, unless PrefixedAsset is set
// and the symbol reads as a lower-case prefix on an upper-case asset symbol
// ("aUSDC", "aWETH").
type TokenPatternRule struct {
	Protocol       string
	DisplayName    string
	SymbolPatterns []string
	NamePatterns   []string
	SymbolPrefix   string
	PrefixedAsset  bool
	Group          string
	Action         string
	// Type overrides the action's transaction type when set.
	Type string
}

// isPrefixedAsset checks the symbol as delivered: the prefix in lower case
// followed by an upper-case symbol with at least one letter.
func isPrefixedAsset(symbol, prefix string) bool {
	lower := strings.ToLower(prefix)
	if !strings.HasPrefix(symbol, lower) {
		return false
	}
	rest := symbol[len(lower):]
	return rest != "" && rest == strings.ToUpper(rest) && rest != strings.ToLower(rest)
}

func (p TokenPatternRule) Matches(symbol, name string) bool {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	nm := strings.ToLower(strings.TrimSpace(name))

	nameHit := false
	for _, pat := range p.NamePatterns {
		if pat != "" && nm != "" && strings.Contains(nm, strings.ToLower(pat)) {
			nameHit = true
			break
		}
	}
	if p.SymbolPrefix != "" {
		if !strings.HasPrefix(sym, strings.ToUpper(p.SymbolPrefix)) {
			return false
		}
		return nameHit || (p.PrefixedAsset && isPrefixedAsset(strings.TrimSpace(symbol), p.SymbolPrefix))
	}
	if nameHit {
		return true
	}
	for _, pat := range p.SymbolPatterns {
		if pat != "" && sym != "" && strings.Contains(sym, strings.ToUpper(pat)) {
			return true
		}
	}
	return false
}

// Order matters: symbols like "CRV:agEUR" would match more than one rule.
var defaultTokenPatterns = []TokenPatternRule{
	{
		Protocol:       "curve",
		DisplayName:    "Curve Finance",
		SymbolPatterns: []string{"3CRV", "3CRV-f", "CRV", "CRVLP", "CURVE", "CRV:", "sCRV", "yvBOOST", "gusd3CRV"},
		NamePatterns:   []string{"curve", "lp token", "liquidity pool", "curve.fi", "curve lp"},
		Group:          GroupLiquidityMining,
		Action:         "add_liquidity",
	},
	{
		Protocol:       "angle",
		DisplayName:    "Angle",
		SymbolPatterns: []string{"AGEUR", "agEUR", "ANGLE", "ANGLE:agEUR"},
		NamePatterns:   []string{"angle", "angle protocol", "agEUR", "angle stable"},
		Group:          GroupStablecoin,
		Action:         ActionInteraction,
	},
	{
		Protocol:       "liquity",
		DisplayName:    "Liquity",
		SymbolPatterns: []string{"LUSD", "LQTY", "LQTY:"},
		NamePatterns:   []string{"liquity", "lusd", "lqty", "liquity protocol"},
		Group:          GroupLending,
		Action:         "borrow",
	},
	{
		// aTokens: "aArbUSDC" style symbols issued by the Aave pool
		Protocol:      "aave_v3",
		DisplayName:   "Aave V3",
		SymbolPrefix:  "A",
		PrefixedAsset: true,
		NamePatterns:  []string{"aave", "atoken"},
		Group:         GroupLending,
		Action:        ActionInteraction,
		Type:          TypeDeposit,
	},
	{
		Protocol:       "gmx",
		DisplayName:    "GMX",
		SymbolPatterns: []string{"GMX"},
		NamePatterns:   []string{"gmx"},
		Group:          GroupDEXTrading,
		Action:         ActionInteraction,
	},
}
