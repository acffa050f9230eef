package catalog

var (
	wflrContract = "0x1D80c49BbBCd1C0911346656B529DF9E5c2F783d"
	ftsoManager  = "0x1000000000000000000000000000000000000003"
)

var flareStakingMethods = []MethodEntry{
	{"0x5c19a95c", "delegate"},
	{"0x5c19a95c", "undelegate"},
	{"0x3d18b912", "claim_rewards"},
	{"0xd0e30db0", "wrap"},
	{"0x2e1a7d4d", "unwrap"},
}

var flareStaking = RuleDefinition{
	Name:         "flare_staking",
	Addresses:    []string{wflrContract, ftsoManager},
	Methods:      flareStakingMethods,
	DefaultGroup: GroupStaking,
}

var aaveV3Flare = RuleDefinition{
	Name:      "aave_v3",
	Addresses: []string{"0x2E4C9Ab8518A443a2EbB4371C24a8246B30b3446"},
	Methods: []MethodEntry{
		{"0x617ba037", "supply"},
		{"0x693ec85e", "withdraw"},
		{"0xa415bcad", "borrow"},
		{"0x573ade81", "repay"},
		{"0xab9c4b5d", "flashloan"},
	},
	DefaultGroup: GroupLending,
}

var openOceanFlare = RuleDefinition{
	Name:         "openocean",
	Addresses:    []string{"0x6352a56caadc4f1e25cd6c21570aae1b9d1bc644"},
	Methods:      openOceanArbitrum.Methods,
	DefaultGroup: GroupDEXTrading,
}

var sparkDEXV3Flare = RuleDefinition{
	Name: "sparkdex_v3",
	Addresses: []string{
		"0x96E5ac8b2Eab7A4C33e0b5AA2E7E87F32117048a", // router
		"0x48C8613755D0b1aEd67B1Fd8fFD82BB821562E51", // factory
	},
	Methods:          uniswapV3Arbitrum.Methods,
	DefaultGroup:     GroupDEXTrading,
	LiquidityActions: uniswapLiquidityActions,
}

var kineticMarketFlare = RuleDefinition{
	Name:         "kinetic_market",
	Addresses:    []string{"0x70e36f6BF80a52b3B46b3aF8e106CC0ed743E8e4"},
	Methods:      kineticMethods,
	DefaultGroup: GroupLending,
}

var flareNetwork = RuleDefinition{
	Name:         "flare_network",
	Addresses:    []string{wflrContract, ftsoManager},
	Methods:      flareStakingMethods,
	DefaultGroup: GroupStaking,
}

// Placeholder deployments; they never match real traffic but keep the
// protocol names reserved.
var flareSwap = RuleDefinition{
	Name: "flare_swap",
	Addresses: []string{
		"0x1234567890123456789012345678901234567890",
		"0xabcdef1234567890abcdef1234567890abcdef12",
	},
	Methods: []MethodEntry{
		{"0x38ed1739", "swap_exact_tokens_for_tokens"},
		{"0x7ff36ab5", "swap_exact_eth_for_tokens"},
		{"0xe8e33700", "add_liquidity"},
		{"0xbaa2abde", "remove_liquidity"},
	},
	DefaultGroup: GroupDEXTrading,
}

var flareLending = RuleDefinition{
	Name:      "flare_lending",
	Addresses: []string{"0x9876543210987654321098765432109876543210"},
	Methods: []MethodEntry{
		{"0x617ba037", "supply"},
		{"0x693ec85e", "withdraw"},
		{"0xa415bcad", "borrow"},
		{"0x573ade81", "repay"},
	},
	DefaultGroup: GroupLending,
}

var flareDEX = RuleDefinition{
	Name:      "flare_dex",
	Addresses: []string{"0x1111111111111111111111111111111111111111"},
	Methods: []MethodEntry{
		{"0x12aa3caf", "swap"},
		{"0x128acb08", "trade"},
	},
	DefaultGroup: GroupDEXTrading,
}

func flareDefinition() NetworkDefinition {
	staking := flareStaking
	return NetworkDefinition{
		Primary: []RuleDefinition{
			aaveV3Flare,
			openOceanFlare,
			sparkDEXV3Flare,
			kineticMarketFlare,
			flareNetwork,
			flareSwap,
			flareLending,
			flareDEX,
		},
		Staking: &staking,
	}
}
