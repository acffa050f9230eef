package report

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"time"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/catalog"
	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/metadata"
)

// Row is one CSV line of the wallet export. All values are preformatted.
type Row struct {
	TransactionHash   string `parquet:"transaction_hash"`
	BlockNo           string `parquet:"blockno"`
	UnixTimestamp     string `parquet:"unix_timestamp"`
	DateTime          string `parquet:"datetime_utc"`
	From              string `parquet:"from"`
	To                string `parquet:"to"`
	ContractAddress   string `parquet:"contract_address"`
	ValueIn           string `parquet:"value_in"`
	ValueOut          string `parquet:"value_out"`
	CurrentPrice      string `parquet:"current_price"`
	TxnFee            string `parquet:"txn_fee"`
	TxnFeeUSD         string `parquet:"txn_fee_usd"`
	HistoricalPrice   string `parquet:"historical_price"`
	Status            string `parquet:"status"`
	ErrCode           string `parquet:"err_code"`
	Method            string `parquet:"method"`
	ChainID           string `parquet:"chain_id"`
	Chain             string `parquet:"chain"`
	Value             string `parquet:"value"`
	Platform          string `parquet:"platform"`
	FunctionName      string `parquet:"function_name"`
	TokenID           string `parquet:"token_id"`
	DAppPlatform      string `parquet:"dapp_platform"`
	ToTokenName       string `parquet:"to_token_name"`
	FromContractName  string `parquet:"from_contract_name"`
	FromTokenName     string `parquet:"from_token_name"`
	ContractName      string `parquet:"contract_name"`
	ContractTokenName string `parquet:"contract_token_name"`
}

// Header is the CSV column order.
var Header = []string{
	"Transaction Hash", "Blockno", "UnixTimestamp", "DateTime (UTC)", "From", "To",
	"ContractAddress", "Value_IN(ETH)", "Value_OUT(ETH)", "CurrentValue/Eth",
	"TxnFee(ETH)", "TxnFee(USD)", "Historical $Price/Eth", "Status", "ErrCode",
	"Method", "ChainId", "Chain", "Value(ETH)", "Platform", "FunctionName", "TokenId",
	"dAppPlatform", "ToTokenName", "FromContractName", "FromTokenName",
	"ContractName", "ContractTokenName",
}

func (r Row) Values() []string {
	return []string{
		r.TransactionHash, r.BlockNo, r.UnixTimestamp, r.DateTime, r.From, r.To,
		r.ContractAddress, r.ValueIn, r.ValueOut, r.CurrentPrice,
		r.TxnFee, r.TxnFeeUSD, r.HistoricalPrice, r.Status, r.ErrCode,
		r.Method, r.ChainID, r.Chain, r.Value, r.Platform, r.FunctionName, r.TokenID,
		r.DAppPlatform, r.ToTokenName, r.FromContractName, r.FromTokenName,
		r.ContractName, r.ContractTokenName,
	}
}

var methodLabels = map[string]string{
	"0xa9059cbb": "Transfer",
	"0x095ea7b3": "Approve",
	"0x23b872dd": "TransferFrom",
	"0x617ba037": "Supply",
	"0x693ec85e": "Withdraw",
	"0xa415bcad": "Borrow",
	"0x573ade81": "Repay",
	"0x12aa3caf": "Swap",
	"0x7ff36ab5": "SwapETH",
	"0x414bf389": "ExactInputSingle",
	"0x88316456": "Mint",
	"0xa34123a7": "Burn",
	"0xfc6f7865": "Collect",
	"0xd0e30db0": "Deposit",
	"0x2e1a7d4d": "Withdraw",
	"0x5c19a95c": "Delegate",
	"0x3d18b912": "ClaimRewards",
}

// MethodLabel names the call for the Method column: "Transfer" without
// calldata, "Unknown" for selectors outside the label table.
func MethodLabel(input string) string {
	selector := common.MethodSelector(input)
	if selector == "" {
		return "Transfer"
	}
	if label, ok := methodLabels[selector]; ok {
		return label
	}
	return "Unknown"
}

type PriceSource interface {
	NativePrice(ctx context.Context, network string) float64
	HistoricalNativePrice(ctx context.Context, network string, ts time.Time) float64
}

type AddressLabeler interface {
	AddressInfo(ctx context.Context, address, network string) metadata.AddressInfo
}

// Formatter turns classified transactions into export rows. Prices and
// address labels are optional.
type Formatter struct {
	networks  map[string]config.NetworkConfig
	catalog   *catalog.Catalog
	prices    PriceSource
	addresses AddressLabeler
}

func NewFormatter(networks map[string]config.NetworkConfig, cat *catalog.Catalog, prices PriceSource, addresses AddressLabeler) *Formatter {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Formatter{networks: networks, catalog: cat, prices: prices, addresses: addresses}
}

func (f *Formatter) Row(ctx context.Context, tx *common.Transaction, c classifier.Classification, network, wallet string) Row {
	network = strings.ToLower(network)
	nc := f.networks[network]
	ts := tx.TimeStamp.Int64()
	blockTime := time.Unix(ts, 0).UTC()

	value := common.WeiToNative(tx.Value.BigInt())
	fee := common.WeiToNative(new(big.Int).Mul(tx.GasUsed.BigInt(), tx.GasPrice.BigInt()))
	valueIn, valueOut := value, 0.0
	if common.NormalizeAddress(wallet) != "" && tx.FromAddress() == common.NormalizeAddress(wallet) {
		valueIn, valueOut = 0, value
	}

	var currentPrice, historicalPrice float64
	if f.prices != nil {
		currentPrice = f.prices.NativePrice(ctx, network)
		historicalPrice = f.prices.HistoricalNativePrice(ctx, network, blockTime)
	}

	status, errCode := "true", ""
	if tx.Failed() {
		status, errCode = "false", "Error"
	}

	to := tx.ToAddress()
	from := tx.FromAddress()
	contract := to
	if contract == "" {
		contract = common.NormalizeAddress(tx.ContractAddress)
	}

	row := Row{
		TransactionHash: tx.Hash,
		BlockNo:         tx.BlockNumber.String(),
		UnixTimestamp:   strconv.FormatInt(ts, 10),
		DateTime:        blockTime.Format("2006-01-02T15:04:05.000Z"),
		From:            from,
		To:              to,
		ContractAddress: contract,
		ValueIn:         formatFloat(valueIn),
		ValueOut:        formatFloat(valueOut),
		CurrentPrice:    formatFloat(currentPrice),
		TxnFee:          formatFloat(fee),
		TxnFeeUSD:       formatFloat(fee * currentPrice),
		HistoricalPrice: formatFloat(historicalPrice),
		Status:          status,
		ErrCode:         errCode,
		Method:          MethodLabel(tx.Input),
		ChainID:         strconv.FormatInt(nc.ChainID, 10),
		Chain:           nc.Name,
		Value:           formatFloat(value),
		Platform:        f.platform(c),
		FunctionName:    tx.FunctionBaseName(),
		TokenID:         tx.TokenID,
	}

	toInfo := f.addressInfo(ctx, to, network)
	row.DAppPlatform, row.ToTokenName = toInfo.Platform, toInfo.TokenName
	fromInfo := f.addressInfo(ctx, from, network)
	row.FromContractName, row.FromTokenName = fromInfo.Platform, fromInfo.TokenName

	switch contract {
	case to:
		row.ContractName, row.ContractTokenName = row.DAppPlatform, row.ToTokenName
	case from:
		row.ContractName, row.ContractTokenName = row.FromContractName, row.FromTokenName
	default:
		info := f.addressInfo(ctx, contract, network)
		row.ContractName, row.ContractTokenName = info.Platform, info.TokenName
	}
	return row
}

func (f *Formatter) platform(c classifier.Classification) string {
	m, ok := c.Match()
	if !ok {
		return ""
	}
	if m.Exchange != "" {
		return m.Exchange
	}
	if m.Protocol != "" {
		return f.catalog.ExchangeName(m.Protocol)
	}
	return ""
}

func (f *Formatter) addressInfo(ctx context.Context, address, network string) metadata.AddressInfo {
	if f.addresses == nil || address == "" {
		return metadata.AddressInfo{}
	}
	return f.addresses.AddressInfo(ctx, address, network)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
