package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

var writerOptions = []parquet.WriterOption{
	parquet.Compression(&parquet.Zstd),
	parquet.DataPageStatistics(true),
}

func WriteParquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w, writerOptions...)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func ParquetBytes(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteParquet(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadParquet decodes rows written by WriteParquet.
func ReadParquet(data []byte) ([]Row, error) {
	return parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
}
