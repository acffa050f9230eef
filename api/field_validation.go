package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledgerlens/defi-insight/internal/common"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"

	MaxQueryLimit = 1000
)

var downloadFormats = map[string]bool{
	FormatCSV:     true,
	FormatParquet: true,
}

// ValidateWallet checks that the wallet is a 0x-prefixed 20 byte hex address.
func ValidateWallet(wallet string) error {
	if !common.IsHexAddress(strings.TrimSpace(wallet)) {
		return fmt.Errorf("invalid wallet address '%s'", wallet)
	}
	return nil
}

// ValidateNetworks rejects networks outside the supported set. An empty
// supported set accepts everything.
func ValidateNetworks(networks []string, supported []string) error {
	if len(supported) == 0 {
		return nil
	}
	valid := make(map[string]bool, len(supported))
	for _, n := range supported {
		valid[strings.ToLower(n)] = true
	}
	for _, n := range networks {
		if !valid[strings.ToLower(strings.TrimSpace(n))] {
			return fmt.Errorf("invalid network '%s'. Valid networks are: %s", n, strings.Join(getValidFieldsList(valid), ", "))
		}
	}
	return nil
}

// NormalizeFormat lower-cases the requested download format, defaulting to
// csv.
func NormalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return FormatCSV, nil
	}
	if !downloadFormats[format] {
		return "", fmt.Errorf("invalid format '%s'. Valid formats are: %s", format, strings.Join(getValidFieldsList(downloadFormats), ", "))
	}
	return format, nil
}

// ValidateTransactionQuery checks the filters of a stored transaction query
// and fills in paging defaults.
func ValidateTransactionQuery(params *TransactionQueryParams) error {
	if params.Wallet == "" {
		return fmt.Errorf("wallet is required")
	}
	if err := ValidateWallet(params.Wallet); err != nil {
		return err
	}
	if params.Limit <= 0 {
		params.Limit = 100
	}
	if params.Limit > MaxQueryLimit {
		return fmt.Errorf("limit %d exceeds the maximum of %d", params.Limit, MaxQueryLimit)
	}
	if params.Page < 0 {
		return fmt.Errorf("page must not be negative")
	}
	return nil
}

// getValidFieldsList converts the validFields map to a sorted list for error messages
func getValidFieldsList(validFields map[string]bool) []string {
	var fields []string
	for field := range validFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
