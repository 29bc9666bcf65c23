package ingest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/xuri/excelize/v2"
)

func parseXLSX(data []byte, opts Options) (*core.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := sheets[0]
	if opts.Sheet != "" {
		if idx, err := f.GetSheetIndex(opts.Sheet); err != nil || idx < 0 {
			return nil, fmt.Errorf("%q: %w", opts.Sheet, ErrSheetNotFound)
		}
		sheet = opts.Sheet
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return tableFromRecords(rows, opts.Raw)
}

func writeXLSX(w io.Writer, t *core.Table, opts Options) error {
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range t.Rows {
		cells := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = row.Get(c).Any()
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
