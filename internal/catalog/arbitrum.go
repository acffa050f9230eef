package catalog

var uniswapLiquidityActions = []string{"mint", "burn", "collect"}

var aaveV3Arbitrum = RuleDefinition{
	Name: "aave_v3",
	Addresses: []string{
		"0x794a61358D6845594F94dc1DB02A252b5b4814aD", // pool
		"0x69FA688f1Dc47d4B5d8029D5a35FB7a548310654", // pool data provider
		"0x6Ae43d3271ff6888e7Fc43Fd7321a503ff738951",
		"0x929EC64c34a17401F460460D4B9390518E5B473e", // pool configurator
	},
	Methods: []MethodEntry{
		{"0x617ba037", "supply"},
		{"0x693ec85e", "withdraw"},
		{"0xa415bcad", "borrow"},
		{"0x573ade81", "repay"},
		{"0x80e670ae", "liquidation_call"},
		{"0xab9c4b5d", "flashloan"},
		// shadowed by withdraw, kept for completeness
		{"0x693ec85e", "setUserUseReserveAsCollateral"},
	},
	DefaultGroup: GroupLending,
}

var openOceanArbitrum = RuleDefinition{
	Name: "openocean",
	Addresses: []string{
		"0x6352a56caadc4f1e25cd6c21570aae1b9d1bc644", // router
		"0x6E2B76966cbD9cF4cC2Fa0D76d24d5241E0ABC2F", // exchange
	},
	Methods: []MethodEntry{
		{"0x12aa3caf", "swap"},
		{"0x7ff36ab5", "swap_eth"},
		{"0x18cbafe5", "swap_tokens_for_eth"},
		{"0x7ff36ab5", "swap_eth_for_tokens"},
	},
	DefaultGroup: GroupDEXTrading,
}

// only the router is matched in the primary table; the factory lives in
// the secondary table
var sparkDEXV3Arbitrum = RuleDefinition{
	Name:      "sparkdex_v3",
	Addresses: []string{"0x0Fc73040b26E9bC8514fA028D998E73A0E8584C8"},
	Methods: []MethodEntry{
		{"0x414bf389", "exact_input_single"},
		{"0xc04b8d59", "exact_input"},
		{"0x88316456", "mint"},
		{"0xa34123a7", "burn"},
		{"0xfc6f7865", "collect"},
	},
	DefaultGroup:     GroupDEXTrading,
	LiquidityActions: uniswapLiquidityActions,
}

var uniswapV3Arbitrum = RuleDefinition{
	Name: "uniswap_v3",
	Addresses: []string{
		"0xE592427A0AEce92De3Edee1F18E0157C05861564", // swap router, also listed by sushiswap
		"0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45", // swap router 02
		"0x1F98431c8aD98523631AE4a59f267346ea31F984", // factory
	},
	Methods: []MethodEntry{
		{"0x414bf389", "exact_input_single"},
		{"0xc04b8d59", "exact_input"},
		{"0xdb3e2198", "exact_output_single"},
		{"0xf28c0498", "exact_output"},
		{"0x88316456", "mint"},
		{"0xa34123a7", "burn"},
		{"0xfc6f7865", "collect"},
		{"0x128acb08", "swap"},
	},
	DefaultGroup:     GroupDEXTrading,
	LiquidityActions: uniswapLiquidityActions,
}

var sushiSwapArbitrum = RuleDefinition{
	Name: "sushiswap",
	Addresses: []string{
		"0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506",
		"0xE592427A0AEce92De3Edee1F18E0157C05861564",
	},
	Methods: []MethodEntry{
		{"0x38ed1739", "swap_exact_tokens_for_tokens"},
		{"0x7ff36ab5", "swap_exact_eth_for_tokens"},
		{"0x18cbafe5", "swap_exact_tokens_for_eth"},
		{"0xe8e33700", "add_liquidity"},
		{"0xbaa2abde", "remove_liquidity"},
	},
	DefaultGroup: GroupDEXTrading,
}

var kineticMarketArbitrum = RuleDefinition{
	Name:         "kinetic_market",
	Addresses:    []string{"0x2f123cF3F37CE3328CC9B5b8415f9EC5109b45e7"},
	Methods:      kineticMethods,
	DefaultGroup: GroupLending,
}

var kineticMethods = []MethodEntry{
	{"0x47e7ef24", "deposit"},
	{"0x693ec85e", "withdraw"},
	{"0xa415bcad", "borrow"},
	{"0x573ade81", "repay"},
}

var sparkDEXV3ArbitrumFull = RuleDefinition{
	Name: "sparkdex_v3",
	Addresses: []string{
		"0x0Fc73040b26E9bC8514fA028D998E73A0E8584C8", // router
		"0x0227628f3F023bb0B980b67D528571c95c6DaC1c", // factory
	},
	Methods:      uniswapV3Arbitrum.Methods,
	DefaultGroup: GroupDEXTrading,
}

var curveArbitrum = RuleDefinition{
	Name:      "curve",
	Addresses: []string{"0x7D2768dE32b0b80b7a3454c06BdAc94A69DDc4A9"},
	Methods: []MethodEntry{
		{"0x3df02124", "exchange"},
		{"0x4515cef3", "add_liquidity"},
		{"0x1a4d01d2", "remove_liquidity"},
	},
	DefaultGroup: GroupDEXTrading,
}

var balancerArbitrum = RuleDefinition{
	Name:      "balancer",
	Addresses: []string{"0xBA12222222228d8Ba445958a75a0704d566BF2C8"}, // vault
	Methods: []MethodEntry{
		{"0x52bbbe29", "swap"},
		{"0xb95db5bb", "join_pool"},
		{"0x8bdb3913", "exit_pool"},
	},
	DefaultGroup: GroupDEXTrading,
}

var compoundArbitrum = RuleDefinition{
	Name:      "compound",
	Addresses: []string{"0x3d9819210A31b4961b30EF54bE2aeD79B9c9Cd3B"}, // comptroller
	Methods: []MethodEntry{
		{"0xa0712d68", "mint"},
		{"0xdb006a75", "redeem"},
		{"0xc5ebeaec", "borrow"},
		{"0x0e752702", "repay_borrow"},
	},
	DefaultGroup: GroupLending,
}

var arbitrumMethodFallback = []FallbackEntry{
	// V2 style router swaps, attributed to the aggregator
	{"0x38ed1739", "openocean"},
	{"0x7ff36ab5", "openocean"},
	{"0x18cbafe5", "openocean"},
	{"0x12aa3caf", "openocean"},
	// V3 router and position manager
	{"0x414bf389", "sparkdex_v3"},
	{"0xc04b8d59", "sparkdex_v3"},
	{"0xdb3e2198", "sparkdex_v3"},
	{"0xf28c0498", "sparkdex_v3"},
	{"0x88316456", "sparkdex_v3"},
	{"0xa34123a7", "sparkdex_v3"},
	{"0xfc6f7865", "sparkdex_v3"},
	{"0x128acb08", "sparkdex_v3"},
	// lending
	{"0x617ba037", "aave_v3"},
	{"0x693ec85e", "aave_v3"},
	{"0xa415bcad", "aave_v3"},
	{"0x573ade81", "aave_v3"},
	{"0x80e670ae", "aave_v3"},
	{"0xab9c4b5d", "aave_v3"},
	{"0x47e7ef24", "kinetic_market"},
	// wrapped native and delegation
	{"0x5c19a95c", "flare_network"},
	{"0x3d18b912", "flare_network"},
	{"0xd0e30db0", "flare_network"},
	{"0x2e1a7d4d", "flare_network"},
}

func arbitrumDefinition() NetworkDefinition {
	return NetworkDefinition{
		Primary: []RuleDefinition{
			aaveV3Arbitrum,
			openOceanArbitrum,
			sparkDEXV3Arbitrum,
			uniswapV3Arbitrum,
			sushiSwapArbitrum,
			kineticMarketArbitrum,
		},
		Secondary: []RuleDefinition{
			aaveV3Arbitrum,
			openOceanArbitrum,
			sparkDEXV3ArbitrumFull,
			kineticMarketArbitrum,
			curveArbitrum,
			balancerArbitrum,
			compoundArbitrum,
		},
		MethodFallback: arbitrumMethodFallback,
		ActionScan: []RuleDefinition{
			aaveV3Arbitrum,
			sparkDEXV3Arbitrum,
			openOceanArbitrum,
			kineticMarketArbitrum,
			flareStaking,
		},
	}
}
