package common

import (
	"math/big"
	"strings"
)

func SliceToChunks[T any](values []T, chunkSize int) [][]T {
	if chunkSize >= len(values) || chunkSize <= 0 {
		return [][]T{values}
	}
	var chunks [][]T
	for i := 0; i < len(values); i += chunkSize {
		end := i + chunkSize
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[i:end])
	}
	return chunks
}

var weiPerUnit = new(big.Float).SetFloat64(1e18)

// WeiToNative converts a wei amount to whole native units (ETH, FLR).
func WeiToNative(wei *big.Int) float64 {
	return ScaleAmount(wei, 18)
}

// ScaleAmount divides amount by 10^decimals.
func ScaleAmount(amount *big.Int, decimals int) float64 {
	if amount == nil || amount.Sign() == 0 {
		return 0
	}
	divisor := weiPerUnit
	if decimals != 18 {
		divisor = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), divisor).Float64()
	return f
}

// TopicToAddress extracts the address packed in the low 20 bytes of a topic.
func TopicToAddress(topic string) string {
	topic = strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(topic) < 40 {
		return ""
	}
	return "0x" + topic[len(topic)-40:]
}

// IsHexAddress reports whether s is 0x followed by exactly 40 hex digits.
func IsHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return isHex(s[2:])
}

// IsSelector reports whether s is 0x followed by exactly 8 hex digits.
func IsSelector(s string) bool {
	if len(s) != SelectorLength || !strings.HasPrefix(s, "0x") {
		return false
	}
	return isHex(s[2:])
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
