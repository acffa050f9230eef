package catalog

import (
	"regexp"
	"strings"
)

const (
	NetworkArbitrum = "arbitrum"
	NetworkFlare    = "flare"
)

// DeFi groups used for reporting.
const (
	GroupLending         = "Lending"
	GroupDEXTrading      = "DEX Trading"
	GroupLiquidityMining = "DEX Liquidity Mining"
	GroupStaking         = "Staking"
	GroupStablecoin      = "Stablecoin"
	GroupOther           = "Other"
)

// Transaction types.
const (
	TypeDeposit    = "Deposit"
	TypeWithdrawal = "Withdrawal"
	TypeBorrowing  = "Borrowing"
	TypeTrade      = "Trade"
	TypeStaking    = "Staking"
)

const (
	ActionInteraction = "interaction"
	ActionStake       = "stake"

	ProtocolUnknown     = "unknown"
	ExchangeUnknownDeFi = "Unknown DeFi"
)

var knownGroups = map[string]struct{}{
	GroupLending:         {},
	GroupDEXTrading:      {},
	GroupLiquidityMining: {},
	GroupStaking:         {},
	GroupStablecoin:      {},
	GroupOther:           {},
}

var knownTypes = map[string]struct{}{
	TypeDeposit:    {},
	TypeWithdrawal: {},
	TypeBorrowing:  {},
	TypeTrade:      {},
	TypeStaking:    {},
}

func IsKnownGroup(group string) bool {
	_, ok := knownGroups[group]
	return ok
}

var defaultTransactionTypes = map[string]string{
	"supply":                       TypeDeposit,
	"withdraw":                     TypeWithdrawal,
	"borrow":                       TypeBorrowing,
	"repay":                        TypeBorrowing,
	"swap":                         TypeTrade,
	"trade":                        TypeTrade,
	"exact_input_single":           TypeTrade,
	"exact_input":                  TypeTrade,
	"exact_output_single":          TypeTrade,
	"exact_output":                 TypeTrade,
	"swap_exact_tokens_for_tokens": TypeTrade,
	"swap_exact_eth_for_tokens":    TypeTrade,
	"swap_exact_tokens_for_eth":    TypeTrade,
	"add_liquidity":                TypeDeposit,
	"remove_liquidity":             TypeWithdrawal,
	"mint":                         TypeDeposit,
	"burn":                         TypeWithdrawal,
	"collect":                      TypeWithdrawal,
	"delegate":                     TypeStaking,
	"undelegate":                   TypeStaking,
	"claim_rewards":                TypeStaking,
	"wrap":                         TypeDeposit,
	"unwrap":                       TypeWithdrawal,
	"exchange":                     TypeTrade,
	"join_pool":                    TypeDeposit,
	"exit_pool":                    TypeWithdrawal,
	"redeem":                       TypeWithdrawal,
	"repay_borrow":                 TypeBorrowing,
	"interaction":                  TypeTrade,
}

var defaultExchangeNames = map[string]string{
	"aave_v3":        "Aave V3",
	"openocean":      "OpenOcean",
	"uniswap_v3":     "Uniswap V3",
	"sushiswap":      "SushiSwap",
	"sparkdex_v3":    "SparkDEX V3",
	"kinetic_market": "Kinetic Market",
	"flare_network":  "Flare Network",
	"flare_staking":  "Flare Staking",
	"flare_swap":     "FlareSwap",
	"flare_lending":  "Flare Lending",
	"flare_dex":      "Flare DEX",
	"curve":          "Curve Finance",
	"balancer":       "Balancer",
	"compound":       "Compound",
}

// group used when a protocol is identified by selector alone
var defaultFallbackGroups = map[string]string{
	"sparkdex_v3":    GroupDEXTrading,
	"openocean":      GroupDEXTrading,
	"sushiswap":      GroupDEXTrading,
	"uniswap_v3":     GroupDEXTrading,
	"aave_v3":        GroupLending,
	"compound":       GroupLending,
	"kinetic_market": GroupLending,
	"flare_network":  GroupStaking,
}

// transfer, approve, transferFrom
var defaultPlainERC20Selectors = []string{"0xa9059cbb", "0x095ea7b3", "0x23b872dd"}

// Uniswap V3 style position manager mint, burn, collect
var defaultLiquiditySelectors = []string{"0x88316456", "0xa34123a7", "0xfc6f7865"}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymBound  = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// NormalizeAction turns an explorer function name such as "exactInputSingle"
// or "addLiquidityETH" into the catalog's snake_case action vocabulary.
func NormalizeAction(action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return ""
	}
	action = acronymBound.ReplaceAllString(action, "${1}_${2}")
	action = camelBoundary.ReplaceAllString(action, "${1}_${2}")
	return strings.ToLower(action)
}
