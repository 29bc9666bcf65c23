package ingest

// reader.go prepares raw upload bytes for parsing.
//
//   - readLimited stops at the configured size and reports ErrFileTooLarge
//   - stripBOM removes a leading UTF-8 byte order mark (Excel CSV exports)
//   - sanitizeUTF8 replaces invalid sequences with U+FFFD

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("limit is %d bytes: %w", limit, ErrFileTooLarge)
	}
	return data, nil
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

// cellValue converts one text cell. Blank cells are null.
func cellValue(s string, raw bool) core.Value {
	if strings.TrimSpace(s) == "" {
		return core.Null()
	}
	if raw {
		return core.Str(s)
	}
	if n, ok := plainNumber(s); ok {
		return core.Num(n)
	}
	return core.Str(s)
}

// plainNumber accepts cells that are exactly a decimal number. Values with
// a leading zero before another digit ("00123") stay strings.
func plainNumber(s string) (float64, bool) {
	if s != strings.TrimSpace(s) {
		return 0, false
	}
	digits := strings.TrimPrefix(s, "-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	for _, c := range digits {
		if (c < '0' || c > '9') && c != '.' {
			return 0, false
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// tableFromRecords builds a table from a header record and data records.
// Short records are padded with nulls; extra cells are dropped.
func tableFromRecords(records [][]string, raw bool) (*core.Table, error) {
	for len(records) > 0 && isEmptyRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = core.CleanCell(h)
	}
	cols := core.UniqueColumnNames(header)

	rows := make([]core.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isEmptyRecord(rec) {
			continue
		}
		row := make(core.Row, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				row[c] = cellValue(rec[i], raw)
			} else {
				row[c] = core.Null()
			}
		}
		rows = append(rows, row)
	}
	return core.NewTable(cols, rows), nil
}
