package common

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionUnmarshal_MixedNumericEncodings(t *testing.T) {
	raw := `{
		"hash": "0xabc",
		"blockNumber": 123,
		"timeStamp": "1700000000",
		"from": "0xAAAA000000000000000000000000000000000001",
		"to": "0xBBBB000000000000000000000000000000000002",
		"value": "0xde0b6b3a7640000",
		"gasUsed": null,
		"input": "0x617BA037000000",
		"functionName": "supply(address asset,uint256 amount,address onBehalfOf,uint16 referralCode)"
	}`

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))

	assert.Equal(t, uint64(123), tx.BlockNumber.Uint64())
	assert.Equal(t, int64(1700000000), tx.TimeStamp.Int64())
	assert.Equal(t, "1000000000000000000", tx.Value.BigInt().String())
	assert.Equal(t, uint64(0), tx.GasUsed.Uint64())
	assert.Equal(t, "0x617ba037", tx.Selector())
	assert.Equal(t, "supply", tx.FunctionBaseName())
	assert.Equal(t, "0xbbbb000000000000000000000000000000000002", tx.ToAddress())
}

func TestMethodSelector(t *testing.T) {
	assert.Equal(t, "", MethodSelector(""))
	assert.Equal(t, "", MethodSelector("0x"))
	assert.Equal(t, "", MethodSelector("0x1234567"))
	assert.Equal(t, "0x12345678", MethodSelector("0x12345678"))
	assert.Equal(t, "0xa9059cbb", MethodSelector("0xA9059CBB0000"))
}

func TestStripFunctionName(t *testing.T) {
	assert.Equal(t, "swapExactTokensForTokens", StripFunctionName("swapExactTokensForTokens(uint256,uint256,address[])"))
	assert.Equal(t, "mint", StripFunctionName("  mint "))
	assert.Equal(t, "", StripFunctionName("(uint256)"))
	assert.Equal(t, "", StripFunctionName(""))
}

func TestHasCalldataAndFailed(t *testing.T) {
	assert.False(t, (&Transaction{Input: "0x"}).HasCalldata())
	assert.False(t, (&Transaction{Input: "0X"}).HasCalldata())
	assert.False(t, (&Transaction{Input: " 0x "}).HasCalldata())
	assert.False(t, (&Transaction{}).HasCalldata())
	assert.True(t, (&Transaction{Input: "0x00"}).HasCalldata())

	assert.True(t, (&Transaction{IsError: "1"}).Failed())
	assert.True(t, (&Transaction{TxReceiptStatus: "0"}).Failed())
	assert.False(t, (&Transaction{IsError: "0", TxReceiptStatus: "1"}).Failed())
}

func TestNumericUint64Saturates(t *testing.T) {
	assert.Equal(t, uint64(21000), Numeric("21000").Uint64())
	assert.Equal(t, uint64(math.MaxUint64), Numeric("18446744073709551615").Uint64())
	assert.Equal(t, uint64(math.MaxUint64), Numeric("99999999999999999999999999").Uint64())
	assert.Equal(t, uint64(math.MaxUint64), Numeric("0x10000000000000000").Uint64())
	assert.Equal(t, uint64(0), Numeric("-5").Uint64())
	assert.Equal(t, uint64(0), Numeric("garbage").Uint64())
}
