package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

func parseCSV(data []byte, opts Options) (*core.Table, error) {
	data = sanitizeUTF8(stripBOM(data))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		if pe, ok := err.(*csv.ParseError); ok {
			return nil, fmt.Errorf("parse error on line %d: %w", pe.Line, pe.Err)
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return tableFromRecords(records, opts.Raw)
}

func writeCSV(w io.Writer, t *core.Table, opts Options) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
