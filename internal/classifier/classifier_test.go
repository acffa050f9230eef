package classifier

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/defi-insight/internal/catalog"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metadata"
)

const (
	aavePool        = "0x794a61358d6845594f94dc1db02a252b5b4814ad"
	openOceanRouter = "0x6352a56caadc4f1e25cd6c21570aae1b9d1bc644"
	uniswapRouter   = "0xe592427a0aece92de3edee1f18e0157c05861564"
	balancerVault   = "0xba12222222228d8ba445958a75a0704d566bf2c8"
	compoundComp    = "0x3d9819210a31b4961b30ef54be2aed79b9c9cd3b"
	wflr            = "0x1d80c49bbbcd1c0911346656b529df9e5c2f783d"
	unknownContract = "0x5555555555555555555555555555555555555555"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) IsContract(ctx context.Context, address, network string) bool {
	args := m.Called(ctx, address, network)
	return args.Bool(0)
}

func (m *mockProvider) TokenMeta(ctx context.Context, address, network string) metadata.TokenMeta {
	args := m.Called(ctx, address, network)
	return args.Get(0).(metadata.TokenMeta)
}

type panickingProvider struct{}

func (panickingProvider) IsContract(context.Context, string, string) bool {
	panic("rpc client exploded")
}

func (panickingProvider) TokenMeta(context.Context, string, string) metadata.TokenMeta {
	return metadata.TokenMeta{}
}

// notContract answers every lookup with "EOA".
func notContract() *mockProvider {
	p := &mockProvider{}
	p.On("IsContract", mock.Anything, mock.Anything, mock.Anything).Return(false)
	return p
}

func calldata(selector string, words int) string {
	return selector + strings.Repeat("0", 64*words)
}

func requireMatch(t *testing.T, c Classification) Match {
	t.Helper()
	m, ok := c.Match()
	require.True(t, ok, "expected a DeFi classification, got %s", c)
	return m
}

func TestAaveSupplyBySelector(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{To: aavePool, Input: calldata("0x617ba037", 3)}

	result, layer := c.ClassifyWithLayer(context.Background(), tx, "arbitrum")

	assert.Equal(t, LayerPrimary, layer)
	assert.Equal(t, Match{
		Protocol: "aave_v3",
		Action:   "supply",
		Type:     "Deposit",
		Group:    "Lending",
		Exchange: "Aave V3",
	}, requireMatch(t, result))
}

func TestUnknownAddressWithoutCalldata(t *testing.T) {
	provider := &mockProvider{}
	c := New(catalog.Default(), provider)
	tx := &common.Transaction{To: "0x" + strings.Repeat("9", 40), Input: "0x"}

	for _, network := range []string{"arbitrum", "flare", "polygon"} {
		result := c.Classify(context.Background(), tx, network)
		assert.False(t, result.IsDeFi(), network)
	}
	provider.AssertNotCalled(t, "IsContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenOceanSwapWithFunctionName(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{
		To:           openOceanRouter,
		Input:        calldata("0x12aa3caf", 4),
		FunctionName: "swap(address executor, tuple desc, bytes permit, bytes data)",
	}

	m := requireMatch(t, c.Classify(context.Background(), tx, "arbitrum"))
	assert.Equal(t, "openocean", m.Protocol)
	assert.Equal(t, "swap", m.Action)
	assert.Equal(t, "Trade", m.Type)
	assert.Equal(t, "DEX Trading", m.Group)
	assert.Equal(t, "OpenOcean", m.Exchange)
}

func TestTokenPatternHeuristic(t *testing.T) {
	provider := &mockProvider{}
	provider.On("IsContract", mock.Anything, unknownContract, "arbitrum").Return(true)
	provider.On("TokenMeta", mock.Anything, unknownContract, "arbitrum").Return(metadata.TokenMeta{Name: "Curve.fi USDC/USDT", Symbol: "2CRV"})
	c := New(catalog.Default(), provider)
	tx := &common.Transaction{To: unknownContract, Input: calldata("0x0b4c7e4d", 3)}

	result, layer := c.ClassifyWithLayer(context.Background(), tx, "arbitrum")

	assert.Equal(t, LayerMetadata, layer)
	assert.Equal(t, Match{
		Protocol: "curve",
		Action:   "add_liquidity",
		Type:     "Deposit",
		Group:    "DEX Liquidity Mining",
		Exchange: "Curve Finance",
	}, requireMatch(t, result))
	provider.AssertExpectations(t)
}

func TestGenericHeuristicWithFunctionName(t *testing.T) {
	provider := &mockProvider{}
	provider.On("IsContract", mock.Anything, unknownContract, "arbitrum").Return(true)
	provider.On("TokenMeta", mock.Anything, unknownContract, "arbitrum").Return(metadata.TokenMeta{})
	c := New(catalog.Default(), provider)
	tx := &common.Transaction{
		To:           unknownContract,
		Input:        "0x" + "abcdef01" + strings.Repeat("0", 56),
		FunctionName: "doSomethingComplex(uint256 amount)",
		GasUsed:      "50000",
	}

	result, layer := c.ClassifyWithLayer(context.Background(), tx, "arbitrum")

	assert.Equal(t, LayerGeneric, layer)
	assert.Equal(t, Match{
		Protocol: "unknown",
		Action:   "doSomethingComplex",
		Type:     "Trade",
		Group:    "Other",
		Exchange: "Unknown DeFi",
	}, requireMatch(t, result))
}

func TestTrivialTransfersAreNeverDeFi(t *testing.T) {
	provider := &mockProvider{}
	c := New(catalog.Default(), provider)

	inputs := []string{
		"",
		"0x",
		"0X",
		calldata("0xa9059cbb", 2),
		calldata("0x095ea7b3", 2),
		calldata("0x23b872dd", 3),
		calldata("0xA9059CBB", 2),
	}
	for _, input := range inputs {
		for _, network := range []string{"arbitrum", "flare"} {
			tx := &common.Transaction{
				To:           aavePool,
				Input:        input,
				FunctionName: "transfer(address,uint256)",
				GasUsed:      "900000",
			}
			assert.False(t, c.Classify(context.Background(), tx, network).IsDeFi(), "%s on %s", input, network)
		}
	}
	provider.AssertNotCalled(t, "IsContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotDeFiSerializesNullFields(t *testing.T) {
	c := New(catalog.Default(), notContract())
	result := c.Classify(context.Background(), &common.Transaction{To: unknownContract, Input: "0x"}, "arbitrum")

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_defi":false,"protocol":null,"action":null,"type":null,"group":null,"exchange":null}`, string(data))

	_, ok := result.Match()
	assert.False(t, ok)
	assert.Equal(t, "", result.Protocol())
}

func TestPrimaryAddressBeatsSecondary(t *testing.T) {
	shared := "0x7777777777777777777777777777777777777777"
	def := catalog.DefaultDefinition()
	arb := def.Networks[catalog.NetworkArbitrum]
	arb.Primary = append(arb.Primary, catalog.RuleDefinition{
		Name:         "primary_dex",
		Addresses:    []string{shared},
		Methods:      []catalog.MethodEntry{{Selector: "0x11111111", Action: "swap"}},
		DefaultGroup: catalog.GroupDEXTrading,
	})
	arb.Secondary = append([]catalog.RuleDefinition{{
		Name:         "secondary_lender",
		Addresses:    []string{shared},
		Methods:      []catalog.MethodEntry{{Selector: "0x11111111", Action: "borrow"}},
		DefaultGroup: catalog.GroupLending,
	}}, arb.Secondary...)
	def.Networks[catalog.NetworkArbitrum] = arb
	cat, err := catalog.New(def)
	require.NoError(t, err)

	c := New(cat, notContract())
	m := requireMatch(t, c.Classify(context.Background(), &common.Transaction{To: shared, Input: calldata("0x11111111", 1)}, "arbitrum"))

	assert.Equal(t, "primary_dex", m.Protocol)
	assert.Equal(t, "swap", m.Action)
	assert.Equal(t, catalog.GroupDEXTrading, m.Group)
}

func TestFunctionNameBeatsSelector(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{
		To:           aavePool,
		Input:        calldata("0x617ba037", 4),
		FunctionName: "deposit(address asset, uint256 amount, address onBehalfOf, uint16 referralCode)",
	}

	m := requireMatch(t, c.Classify(context.Background(), tx, "arbitrum"))
	assert.Equal(t, "deposit", m.Action)
	assert.Equal(t, "Lending", m.Group)
}

func TestSharedRouterResolvesToFirstDeclaredProtocol(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{To: strings.ToUpper(uniswapRouter[:2]) + uniswapRouter[2:], Input: calldata("0x38ed1739", 5)}

	m := requireMatch(t, c.Classify(context.Background(), tx, "arbitrum"))
	assert.Equal(t, "uniswap_v3", m.Protocol)
	assert.Equal(t, "interaction", m.Action)
	assert.Equal(t, "Trade", m.Type)
}

func TestUniswapFamilyLiquidityGroup(t *testing.T) {
	c := New(catalog.Default(), notContract())

	testCases := []struct {
		name   string
		input  string
		fnName string
		action string
		typ    string
		group  string
	}{
		{name: "mint selector", input: calldata("0x88316456", 11), action: "mint", typ: "Deposit", group: "DEX Liquidity Mining"},
		{name: "collect selector", input: calldata("0xfc6f7865", 4), action: "collect", typ: "Withdrawal", group: "DEX Liquidity Mining"},
		{name: "swap selector", input: calldata("0x414bf389", 8), action: "exact_input_single", typ: "Trade", group: "DEX Trading"},
		{name: "function name mint", input: calldata("0x12345678", 2), fnName: "mint((address,address,uint24))", action: "mint", typ: "Deposit", group: "DEX Liquidity Mining"},
		{name: "function name swap", input: calldata("0x414bf389", 8), fnName: "exactInputSingle((address,address))", action: "exactInputSingle", typ: "Trade", group: "DEX Trading"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := &common.Transaction{To: uniswapRouter, Input: tc.input, FunctionName: tc.fnName}
			m := requireMatch(t, c.Classify(context.Background(), tx, "arbitrum"))
			assert.Equal(t, "uniswap_v3", m.Protocol)
			assert.Equal(t, tc.action, m.Action)
			assert.Equal(t, tc.typ, m.Type)
			assert.Equal(t, tc.group, m.Group)
			assert.Equal(t, "Uniswap V3", m.Exchange)
		})
	}
}

func TestMethodFallback(t *testing.T) {
	c := New(catalog.Default(), notContract())

	testCases := []struct {
		selector string
		expected Match
	}{
		{"0x47e7ef24", Match{Protocol: "kinetic_market", Action: "deposit", Type: "Trade", Group: "Lending", Exchange: "Kinetic Market"}},
		{"0x128acb08", Match{Protocol: "sparkdex_v3", Action: "interaction", Type: "Trade", Group: "DEX Trading", Exchange: "SparkDEX V3"}},
		{"0xc04b8d59", Match{Protocol: "sparkdex_v3", Action: "exact_input", Type: "Trade", Group: "DEX Trading", Exchange: "SparkDEX V3"}},
		{"0x693ec85e", Match{Protocol: "aave_v3", Action: "withdraw", Type: "Withdrawal", Group: "Lending", Exchange: "Aave V3"}},
		{"0x5c19a95c", Match{Protocol: "flare_network", Action: "delegate", Type: "Staking", Group: "Staking", Exchange: "Flare Network"}},
		{"0x38ed1739", Match{Protocol: "openocean", Action: "interaction", Type: "Trade", Group: "DEX Trading", Exchange: "OpenOcean"}},
	}

	for _, tc := range testCases {
		t.Run(tc.selector, func(t *testing.T) {
			tx := &common.Transaction{To: unknownContract, Input: calldata(tc.selector, 2), FunctionName: "ignored(uint256)"}
			result, layer := c.ClassifyWithLayer(context.Background(), tx, "arbitrum")
			assert.Equal(t, LayerFallback, layer)
			assert.Equal(t, tc.expected, requireMatch(t, result))
		})
	}
}

func TestMethodFallbackIsArbitrumOnly(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{To: unknownContract, Input: calldata("0x47e7ef24", 2), GasUsed: "21000"}

	assert.False(t, c.Classify(context.Background(), tx, "flare").IsDeFi())
}

func TestMethodFallbackPrecedesSecondaryCatalog(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{To: balancerVault, Input: calldata("0x617ba037", 4)}

	m := requireMatch(t, c.Classify(context.Background(), tx, "arbitrum"))
	assert.Equal(t, "aave_v3", m.Protocol)
}

func TestSecondaryCatalog(t *testing.T) {
	c := New(catalog.Default(), notContract())

	result, layer := c.ClassifyWithLayer(context.Background(), &common.Transaction{To: balancerVault, Input: calldata("0x52bbbe29", 6)}, "arbitrum")
	assert.Equal(t, LayerSecondary, layer)
	assert.Equal(t, Match{Protocol: "balancer", Action: "swap", Type: "Trade", Group: "DEX Trading", Exchange: "Balancer"}, requireMatch(t, result))

	m := requireMatch(t, c.Classify(context.Background(), &common.Transaction{To: compoundComp, Input: calldata("0xa0712d68", 1)}, "arbitrum"))
	assert.Equal(t, Match{Protocol: "compound", Action: "mint", Type: "Deposit", Group: "Lending", Exchange: "Compound"}, m)
}

func TestFlareNetworkAddressesMatchPrimaryBeforeStaking(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{To: wflr, Input: calldata("0xd0e30db0", 0) + "00"}

	m := requireMatch(t, c.Classify(context.Background(), tx, "flare"))
	assert.Equal(t, "flare_network", m.Protocol)
	assert.Equal(t, "wrap", m.Action)
	assert.Equal(t, "Deposit", m.Type)
	assert.Equal(t, "Staking", m.Group)
}

func TestStakingRule(t *testing.T) {
	def := catalog.DefaultDefinition()
	flare := def.Networks[catalog.NetworkFlare]
	var primary []catalog.RuleDefinition
	for _, r := range flare.Primary {
		if r.Name != "flare_network" {
			primary = append(primary, r)
		}
	}
	flare.Primary = primary
	def.Networks[catalog.NetworkFlare] = flare
	c := New(catalog.MustNew(def), notContract())

	result, layer := c.ClassifyWithLayer(context.Background(), &common.Transaction{To: wflr, Input: calldata("0x3d18b912", 0) + "00"}, "flare")
	assert.Equal(t, LayerStaking, layer)
	assert.Equal(t, Match{Protocol: "flare_staking", Action: "claim_rewards", Type: "Staking", Group: "Staking", Exchange: "Flare Staking"}, requireMatch(t, result))

	m := requireMatch(t, c.Classify(context.Background(), &common.Transaction{To: wflr, Input: calldata("0xdeadbeef", 1)}, "flare"))
	assert.Equal(t, "stake", m.Action)
	assert.Equal(t, "Staking", m.Type)

	m = requireMatch(t, c.Classify(context.Background(), &common.Transaction{To: wflr, Input: calldata("0xdeadbeef", 1), FunctionName: "delegate(address)"}, "flare"))
	assert.Equal(t, "delegate", m.Action)
	assert.Equal(t, "Staking", m.Type)
}

func TestTokenPatternAppliesOnFlare(t *testing.T) {
	provider := &mockProvider{}
	provider.On("IsContract", mock.Anything, unknownContract, "flare").Return(true)
	provider.On("TokenMeta", mock.Anything, unknownContract, "flare").Return(metadata.TokenMeta{Name: "LUSD Stablecoin", Symbol: "LUSD"})
	c := New(catalog.Default(), provider)

	m := requireMatch(t, c.Classify(context.Background(), &common.Transaction{To: unknownContract, Input: calldata("0x0b4c7e4d", 1)}, "flare"))
	assert.Equal(t, Match{Protocol: "liquity", Action: "borrow", Type: "Borrowing", Group: "Lending", Exchange: "Liquity"}, m)
}

func TestTokenPatternSkippedForNonContracts(t *testing.T) {
	provider := notContract()
	c := New(catalog.Default(), provider)
	tx := &common.Transaction{To: unknownContract, Input: calldata("0x0b4c7e4d", 1), GasUsed: "100"}

	assert.False(t, c.Classify(context.Background(), tx, "arbitrum").IsDeFi())
	provider.AssertNotCalled(t, "TokenMeta", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenericHeuristicGasOverflowCountsAsHigh(t *testing.T) {
	tx := &common.Transaction{
		To:      unknownContract,
		Input:   calldata("0xabcdef01", 2),
		GasUsed: "99999999999999999999999999",
	}

	c := New(catalog.Default(), notContract())
	result, layer := c.ClassifyWithLayer(context.Background(), tx, "arbitrum")

	assert.Equal(t, LayerGeneric, layer)
	assert.Equal(t, "interaction", requireMatch(t, result).Action)
}

func TestGenericHeuristicGasThreshold(t *testing.T) {
	tx := &common.Transaction{To: unknownContract, Input: calldata("0x88316456", 4), GasUsed: "300000"}

	c := New(catalog.Default(), notContract())
	m := requireMatch(t, c.Classify(context.Background(), tx, "flare"))
	assert.Equal(t, Match{Protocol: "unknown", Action: "interaction", Type: "Trade", Group: "Other", Exchange: "SparkDEX V3"}, m)

	c = New(catalog.Default(), notContract(), WithHighGasThreshold(500000))
	assert.False(t, c.Classify(context.Background(), tx, "flare").IsDeFi())

	c = New(catalog.Default(), notContract(), WithLiquidityExchange("Enosys V3"))
	m = requireMatch(t, c.Classify(context.Background(), tx, "flare"))
	assert.Equal(t, "Enosys V3", m.Exchange)

	c = New(catalog.Default(), notContract(), WithLiquiditySelectors([]string{"0xDEADBEEF"}))
	m = requireMatch(t, c.Classify(context.Background(), tx, "flare"))
	assert.Equal(t, "Unknown DeFi", m.Exchange)
}

func TestGenericHeuristicNeedsMoreThanSelector(t *testing.T) {
	c := New(catalog.Default(), notContract())

	// selector only, no arguments
	tx := &common.Transaction{To: unknownContract, Input: "0xabcdef01", FunctionName: "poke()", GasUsed: "900000"}
	assert.False(t, c.Classify(context.Background(), tx, "flare").IsDeFi())

	// trivial function name and low gas
	tx = &common.Transaction{To: unknownContract, Input: calldata("0xabcdef01", 2), FunctionName: "approve(address,uint256)", GasUsed: "45000"}
	assert.False(t, c.Classify(context.Background(), tx, "flare").IsDeFi())
}

func TestUnknownNetwork(t *testing.T) {
	provider := &mockProvider{}
	c := New(catalog.Default(), provider)
	tx := &common.Transaction{To: aavePool, Input: calldata("0x617ba037", 4), FunctionName: "supply(address)", GasUsed: "999999"}

	result, layer := c.ClassifyWithLayer(context.Background(), tx, "polygon")
	assert.False(t, result.IsDeFi())
	assert.Equal(t, LayerUnknownNetwork, layer)
	provider.AssertNotCalled(t, "IsContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestNetworkNameIsCaseInsensitive(t *testing.T) {
	c := New(catalog.Default(), notContract())
	tx := &common.Transaction{To: aavePool, Input: calldata("0x617ba037", 4)}
	assert.True(t, c.Classify(context.Background(), tx, " Arbitrum ").IsDeFi())
}

func TestPanicsAreRecovered(t *testing.T) {
	c := New(catalog.Default(), panickingProvider{})
	tx := &common.Transaction{To: unknownContract, Input: calldata("0xabcdef01", 2), FunctionName: "doSomething(uint256)"}

	result, layer := c.ClassifyWithLayer(context.Background(), tx, "arbitrum")
	assert.False(t, result.IsDeFi())
	assert.Equal(t, LayerPanic, layer)
}

func TestMalformedTransactions(t *testing.T) {
	c := New(catalog.Default(), notContract())

	assert.False(t, c.Classify(context.Background(), nil, "arbitrum").IsDeFi())
	assert.False(t, c.Classify(context.Background(), &common.Transaction{}, "arbitrum").IsDeFi())
	assert.False(t, c.Classify(context.Background(), &common.Transaction{Input: "0xzz"}, "arbitrum").IsDeFi())

	// missing "to" with a known selector still goes through the fallback map
	m := requireMatch(t, c.Classify(context.Background(), &common.Transaction{Input: calldata("0x617ba037", 1)}, "arbitrum"))
	assert.Equal(t, "aave_v3", m.Protocol)
}

func TestNilProviderSkipsMetadataLayer(t *testing.T) {
	c := New(nil, nil)
	tx := &common.Transaction{To: unknownContract, Input: calldata("0x0b4c7e4d", 1), GasUsed: "1"}
	assert.False(t, c.Classify(context.Background(), tx, "arbitrum").IsDeFi())
}

func TestClassifyIsIdempotentAndReadOnly(t *testing.T) {
	provider := &mockProvider{}
	provider.On("IsContract", mock.Anything, unknownContract, "arbitrum").Return(true)
	provider.On("TokenMeta", mock.Anything, unknownContract, "arbitrum").Return(metadata.TokenMeta{Name: "Angle Protocol agEUR", Symbol: "agEUR"})
	c := New(catalog.Default(), provider)

	tx := &common.Transaction{
		Hash:         "0x01",
		To:           strings.ToUpper(unknownContract),
		Input:        calldata("0x0b4c7e4d", 2),
		FunctionName: "",
		GasUsed:      "0x10",
	}
	before := *tx

	first := c.Classify(context.Background(), tx, "arbitrum")
	second := c.Classify(context.Background(), tx, "arbitrum")

	assert.Equal(t, first, second)
	assert.Equal(t, before, *tx)
	assert.Equal(t, "angle", first.Protocol())
}
