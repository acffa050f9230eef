package common

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strings"
)

// Numeric is an integer field as delivered by an explorer. Etherscan sends
// decimal strings, Blockscout sometimes sends JSON numbers and RPC nodes send
// 0x-prefixed hex. All three decode into the same textual form.
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
		return nil
	}
	*n = Numeric(string(data))
	return nil
}

// BigInt parses the value as decimal or 0x hex. Garbage parses as zero.
func (n Numeric) BigInt() *big.Int {
	return ParseBigInt(string(n))
}

// Uint64 saturates at math.MaxUint64 for values that do not fit. Negative
// values read as zero.
func (n Numeric) Uint64() uint64 {
	v := n.BigInt()
	if !v.IsUint64() {
		if v.Sign() > 0 {
			return math.MaxUint64
		}
		return 0
	}
	return v.Uint64()
}

func (n Numeric) Int64() int64 {
	v := n.BigInt()
	if !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

func (n Numeric) String() string {
	return string(n)
}

func ParseBigInt(s string) *big.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int)
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
		if s == "" {
			return new(big.Int)
		}
	}
	// some explorers send "1.0e+18" style floats for value
	if base == 10 && strings.ContainsAny(s, ".eE") {
		f, ok := new(big.Float).SetString(s)
		if !ok {
			return new(big.Int)
		}
		v, _ := f.Int(nil)
		return v
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return new(big.Int)
	}
	return v
}
