package catalog

// DefaultDefinition returns a fresh copy of the built-in rule tables.
func DefaultDefinition() Definition {
	return Definition{
		Networks: map[string]NetworkDefinition{
			NetworkArbitrum: arbitrumDefinition(),
			NetworkFlare:    flareDefinition(),
		},
		TokenPatterns:       append([]TokenPatternRule(nil), defaultTokenPatterns...),
		TransactionTypes:    copyMap(defaultTransactionTypes),
		ExchangeNames:       copyMap(defaultExchangeNames),
		FallbackGroups:      copyMap(defaultFallbackGroups),
		PlainERC20Selectors: append([]string(nil), defaultPlainERC20Selectors...),
		LiquiditySelectors:  append([]string(nil), defaultLiquiditySelectors...),
	}
}
