package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleNames(rules []ProtocolRule) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return names
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := New(DefaultDefinition())
	require.NoError(t, err)
	assert.Equal(t, []string{NetworkArbitrum, NetworkFlare}, c.Networks())
}

func TestProtocolOrdering(t *testing.T) {
	c := Default()

	assert.Equal(t,
		[]string{"aave_v3", "openocean", "sparkdex_v3", "uniswap_v3", "sushiswap", "kinetic_market"},
		ruleNames(c.ProtocolsForNetwork("arbitrum")))
	assert.Equal(t,
		[]string{"aave_v3", "openocean", "sparkdex_v3", "kinetic_market", "curve", "balancer", "compound"},
		ruleNames(c.SecondaryProtocols("arbitrum")))
	assert.Equal(t,
		[]string{"aave_v3", "openocean", "sparkdex_v3", "kinetic_market", "flare_network", "flare_swap", "flare_lending", "flare_dex"},
		ruleNames(c.ProtocolsForNetwork("FLARE")))
	assert.Equal(t,
		[]string{"aave_v3", "sparkdex_v3", "openocean", "kinetic_market", "flare_staking"},
		ruleNames(c.ActionScanOrder("arbitrum")))
}

func TestUnknownNetworkHasEmptyTables(t *testing.T) {
	c := Default()
	assert.False(t, c.HasNetwork("polygon"))
	assert.Empty(t, c.ProtocolsForNetwork("polygon"))
	assert.Empty(t, c.SecondaryProtocols("polygon"))
	assert.Empty(t, c.MethodFallback("polygon"))
	_, ok := c.StakingRule("polygon")
	assert.False(t, ok)
}

func TestStakingRuleOnlyOnFlare(t *testing.T) {
	c := Default()
	r, ok := c.StakingRule("flare")
	require.True(t, ok)
	assert.Equal(t, "flare_staking", r.Name)
	assert.Equal(t, "Flare Staking", r.DisplayName)
	assert.True(t, r.MatchesAddress("0x1d80c49bbbcd1c0911346656b529df9e5c2f783d"))

	_, ok = c.StakingRule("arbitrum")
	assert.False(t, ok)
}

func TestActionForKeepsDeclarationOrder(t *testing.T) {
	c := Default()
	aave := c.ProtocolsForNetwork("arbitrum")[0]

	action, ok := aave.ActionFor("0x693EC85E")
	require.True(t, ok)
	assert.Equal(t, "withdraw", action)

	_, ok = aave.ActionFor("")
	assert.False(t, ok)
}

func TestGroupForLiquidityActions(t *testing.T) {
	c := Default()
	uni := c.ProtocolsForNetwork("arbitrum")[3]
	require.Equal(t, "uniswap_v3", uni.Name)

	assert.Equal(t, GroupLiquidityMining, uni.GroupFor("mint"))
	assert.Equal(t, GroupLiquidityMining, uni.GroupFor("collect"))
	assert.Equal(t, GroupDEXTrading, uni.GroupFor("exactInputSingle"))

	aave := c.ProtocolsForNetwork("arbitrum")[0]
	assert.Equal(t, GroupLending, aave.GroupFor("mint"))
}

func TestZeroAddressesAreFiltered(t *testing.T) {
	def := DefaultDefinition()
	arb := def.Networks[NetworkArbitrum]
	arb.Primary = append([]RuleDefinition{{
		Name:         "placeholder",
		Addresses:    []string{zeroAddress},
		DefaultGroup: GroupOther,
	}}, arb.Primary...)
	def.Networks[NetworkArbitrum] = arb

	c, err := New(def)
	require.NoError(t, err)
	placeholder := c.ProtocolsForNetwork("arbitrum")[0]
	assert.False(t, placeholder.MatchesAddress(zeroAddress))
	assert.Empty(t, placeholder.Addresses())
}

func TestValidateRejectsDefinitionBugs(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Definition)
		errMsg string
	}{
		{
			name: "unknown group",
			mutate: func(d *Definition) {
				d.TokenPatterns = append(d.TokenPatterns, TokenPatternRule{
					Protocol: "bogus", Group: "Yield Farming", Action: "interaction", NamePatterns: []string{"x"},
				})
			},
			errMsg: `unknown group "Yield Farming"`,
		},
		{
			name: "empty protocol name",
			mutate: func(d *Definition) {
				n := d.Networks[NetworkFlare]
				n.Primary = append(n.Primary, RuleDefinition{DefaultGroup: GroupOther})
				d.Networks[NetworkFlare] = n
			},
			errMsg: "empty protocol name",
		},
		{
			name: "malformed address",
			mutate: func(d *Definition) {
				n := d.Networks[NetworkArbitrum]
				n.Secondary = append(n.Secondary, RuleDefinition{
					Name:         "curve_router",
					Addresses:    []string{"0x8301AE4FC9C624DAD84C6F23A2F5C3B8F0A4B7C"},
					DefaultGroup: GroupDEXTrading,
				})
				d.Networks[NetworkArbitrum] = n
			},
			errMsg: "malformed address",
		},
		{
			name: "malformed selector",
			mutate: func(d *Definition) {
				n := d.Networks[NetworkArbitrum]
				n.MethodFallback = append(n.MethodFallback, FallbackEntry{Selector: "0x1234", Protocol: "openocean"})
				d.Networks[NetworkArbitrum] = n
			},
			errMsg: "malformed selector",
		},
		{
			name: "unknown transaction type",
			mutate: func(d *Definition) {
				d.TransactionTypes["stake"] = "Farming"
			},
			errMsg: `unknown type "Farming"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := DefaultDefinition()
			tc.mutate(&def)
			_, err := New(def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestDefinitionsAreIndependentCopies(t *testing.T) {
	def := DefaultDefinition()
	def.ExchangeNames["aave_v3"] = "Changed"
	assert.Equal(t, "Aave V3", Default().ExchangeName("aave_v3"))
}

func TestVocabularyLookups(t *testing.T) {
	c := Default()

	assert.Equal(t, TypeDeposit, c.TransactionType("supply"))
	assert.Equal(t, TypeTrade, c.TransactionType("liquidation_call"))
	assert.Equal(t, TypeTrade, c.TransactionType("doSomethingComplex"))
	assert.Equal(t, TypeDeposit, c.TransactionType("addLiquidity"))
	assert.Equal(t, TypeStaking, c.TransactionTypeOr("stake", TypeStaking))

	assert.Equal(t, "Curve Finance", c.ExchangeName("curve"))
	assert.Equal(t, "Some Protocol", c.ExchangeName("some_protocol"))

	assert.Equal(t, GroupDEXTrading, c.GroupForProtocol("sparkdex_v3"))
	assert.Equal(t, GroupStaking, c.GroupForProtocol("flare_network"))
	assert.Equal(t, GroupOther, c.GroupForProtocol("mystery"))

	assert.True(t, c.IsPlainERC20("0xA9059CBB"))
	assert.False(t, c.IsPlainERC20("0x617ba037"))
	assert.Equal(t, []string{"0x88316456", "0xa34123a7", "0xfc6f7865"}, c.LiquiditySelectors())

	p, ok := c.FallbackProtocol("arbitrum", "0x47E7EF24")
	require.True(t, ok)
	assert.Equal(t, "kinetic_market", p)
	_, ok = c.FallbackProtocol("flare", "0x47e7ef24")
	assert.False(t, ok)
}

func TestNormalizeAction(t *testing.T) {
	assert.Equal(t, "exact_input_single", NormalizeAction("exactInputSingle"))
	assert.Equal(t, "add_liquidity_eth", NormalizeAction("addLiquidityETH"))
	assert.Equal(t, "claim_rewards", NormalizeAction("claim_rewards"))
	assert.Equal(t, "", NormalizeAction("  "))
}

func TestTokenPatternMatching(t *testing.T) {
	rules := Default().TokenPatternRules()
	require.Len(t, rules, 5)

	first := func(symbol, name string) string {
		for _, r := range rules {
			if r.Matches(symbol, name) {
				return r.Protocol
			}
		}
		return ""
	}

	assert.Equal(t, "curve", first("3Crv", ""))
	assert.Equal(t, "curve", first("", "Curve.fi DAI/USDC/USDT"))
	// curve is declared before angle
	assert.Equal(t, "curve", first("CRV:agEUR", ""))
	assert.Equal(t, "angle", first("agEUR", "agEUR"))
	assert.Equal(t, "liquity", first("LUSD", "LUSD Stablecoin"))
	assert.Equal(t, "aave_v3", first("aArbUSDC", "Aave Arbitrum USDC"))
	assert.Equal(t, "", first("ARB", "Arbitrum"))
	assert.Equal(t, "gmx", first("GMX", "GMX"))
	assert.Equal(t, "", first("", ""))
}

func TestATokenSymbolWithoutAaveName(t *testing.T) {
	var aave TokenPatternRule
	for _, r := range Default().TokenPatternRules() {
		if r.Protocol == "aave_v3" {
			aave = r
		}
	}
	require.Equal(t, "aave_v3", aave.Protocol)

	assert.True(t, aave.Matches("aUSDC", ""))
	assert.True(t, aave.Matches("aWETH", "Wrapped Ether deposit"))
	assert.True(t, aave.Matches(" aUSDC.E ", ""))
	assert.False(t, aave.Matches("aArbUSDC", ""))
	assert.False(t, aave.Matches("ARB", "Arbitrum"))
	assert.False(t, aave.Matches("AAVE", ""))
	assert.False(t, aave.Matches("a", ""))
	assert.False(t, aave.Matches("a123", ""))
	assert.False(t, aave.Matches("USDC", "Aave interest bearing USDC"))
}
