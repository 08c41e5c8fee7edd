package common

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Row is one data record of an ethereum-etl CSV export, addressed by header name.
// Columns absent from the header read as empty.
type Row struct {
	header map[string]int
	record []string
	line   int
}

func (r Row) Line() int {
	return r.line
}

func (r Row) Has(column string) bool {
	_, ok := r.header[column]
	return ok
}

func (r Row) String(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return r.record[idx]
}

func (r Row) Uint64(column string) (uint64, error) {
	raw := r.String(column)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, r.columnError(column, err)
	}
	return v, nil
}

// BigInt parses a non-negative decimal up to 2^256-1. Empty values return nil.
func (r Row) BigInt(column string) (*big.Int, error) {
	raw := r.String(column)
	if raw == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, r.columnError(column, err)
	}
	return v.ToBig(), nil
}

func (r Row) columnError(column string, err error) error {
	return fmt.Errorf("line %d, column %s: %w", r.line, column, err)
}

// ForEachRow streams every data row of the CSV file at path to fn and returns the
// number of rows visited. The first record is the header. ethereumetl only writes the
// header together with the first item, so a zero-byte file has no rows.
func ForEachRow(path string, fn func(Row) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	headerRecord, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	header := make(map[string]int, len(headerRecord))
	for i, name := range headerRecord {
		header[strings.TrimSpace(name)] = i
	}

	count := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read %s: %w", path, err)
		}
		count++
		if fn == nil {
			continue
		}
		line, _ := reader.FieldPos(0)
		if err := fn(Row{header: header, record: record, line: line}); err != nil {
			return count, err
		}
	}
	return count, nil
}

// CountRows returns the number of data rows, excluding the header.
func CountRows(path string) (int, error) {
	return ForEachRow(path, nil)
}
