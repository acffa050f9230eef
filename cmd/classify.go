package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
)

var (
	classifyFile    string
	classifyNetwork string

	classifyCmd = &cobra.Command{
		Use:   "classify",
		Short: "Classify transactions read from a JSON file",
		Long:  "Classify one transaction object or an array of transactions read from --file or stdin and print one JSON line per transaction",
		RunE:  RunClassify,
	}
)

func init() {
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "JSON file with a transaction or an array of transactions (default stdin)")
	classifyCmd.Flags().StringVar(&classifyNetwork, "network", "arbitrum", "Network the transactions belong to")
}

type classifyOutput struct {
	Hash           string                    `json:"hash"`
	Network        string                    `json:"network"`
	Classification classifier.Classification `json:"classification"`
	Layer          string                    `json:"layer"`
}

func RunClassify(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if classifyFile != "" {
		f, err := os.Open(classifyFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	txs, err := decodeTransactions(in)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := newServices(ctx, &config.Cfg, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	return classifyTo(ctx, cmd.OutOrStdout(), svc.classifier, txs, strings.ToLower(classifyNetwork))
}

type layeredClassifier interface {
	ClassifyWithLayer(ctx context.Context, tx *common.Transaction, network string) (classifier.Classification, string)
}

func classifyTo(ctx context.Context, w io.Writer, c layeredClassifier, txs []common.Transaction, network string) error {
	enc := json.NewEncoder(w)
	for i := range txs {
		result, layer := c.ClassifyWithLayer(ctx, &txs[i], network)
		if err := enc.Encode(classifyOutput{
			Hash:           txs[i].Hash,
			Network:        network,
			Classification: result,
			Layer:          layer,
		}); err != nil {
			return err
		}
	}
	return nil
}

// decodeTransactions accepts a single transaction object or an array.
func decodeTransactions(r io.Reader) ([]common.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no transactions in input")
	}
	if data[0] == '[' {
		var txs []common.Transaction
		if err := json.Unmarshal(data, &txs); err != nil {
			return nil, fmt.Errorf("invalid transaction array: %w", err)
		}
		return txs, nil
	}
	var tx common.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}
	return []common.Transaction{tx}, nil
}
