package common

import (
	"strings"
)

const (
	SelectorLength = 10
	EmptyInput     = "0x"
)

// Transaction is one wallet transaction in the explorer txlist shape. The
// optional token fields are populated by tokentx style endpoints.
type Transaction struct {
	Hash            string  `json:"hash"`
	BlockNumber     Numeric `json:"blockNumber"`
	TimeStamp       Numeric `json:"timeStamp"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Value           Numeric `json:"value"`
	Gas             Numeric `json:"gas"`
	GasPrice        Numeric `json:"gasPrice"`
	GasUsed         Numeric `json:"gasUsed"`
	Input           string  `json:"input"`
	IsError         string  `json:"isError"`
	TxReceiptStatus string  `json:"txreceipt_status"`
	FunctionName    string  `json:"functionName"`
	MethodID        string  `json:"methodId,omitempty"`
	ContractAddress string  `json:"contractAddress"`
	TokenSymbol     string  `json:"tokenSymbol,omitempty"`
	TokenName       string  `json:"tokenName,omitempty"`
	TokenDecimal    Numeric `json:"tokenDecimal,omitempty"`
	TokenID         string  `json:"tokenID,omitempty"`
	Logs            []Log   `json:"logs,omitempty"`
}

// Selector returns the 4-byte method selector ("0x" + 8 hex chars) in lower
// case, or an empty string when the calldata is shorter than that.
func (t *Transaction) Selector() string {
	return MethodSelector(t.Input)
}

// FunctionBaseName returns the explorer decoded function name without its
// parameter list, e.g. "swap" for "swap(address,uint256)".
func (t *Transaction) FunctionBaseName() string {
	return StripFunctionName(t.FunctionName)
}

// HasCalldata is false for plain value transfers.
func (t *Transaction) HasCalldata() bool {
	in := strings.TrimSpace(t.Input)
	return in != "" && !strings.EqualFold(in, EmptyInput)
}

func (t *Transaction) ToAddress() string {
	return NormalizeAddress(t.To)
}

func (t *Transaction) FromAddress() string {
	return NormalizeAddress(t.From)
}

// Failed reports whether the explorer marked the call as reverted.
func (t *Transaction) Failed() bool {
	return t.IsError == "1" || t.TxReceiptStatus == "0"
}

func MethodSelector(input string) string {
	input = strings.TrimSpace(input)
	if len(input) < SelectorLength {
		return ""
	}
	return strings.ToLower(input[:SelectorLength])
}

func StripFunctionName(fn string) string {
	if idx := strings.Index(fn, "("); idx >= 0 {
		fn = fn[:idx]
	}
	return strings.TrimSpace(fn)
}

func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
