package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.TransactionHash, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func CSVBytes(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
