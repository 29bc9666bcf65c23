// Package ingest loads tables from CSV, XLSX and JSON files and writes
// them back out.
//
// Readers produce a *core.Table whose columns follow the file's header
// order. Empty cells become nulls. Numeric-looking cells become numbers
// unless they carry a leading zero (account codes keep their padding).
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyFile         = errors.New("file is empty")
	ErrSheetNotFound     = errors.New("sheet not found")
)

// DefaultMaxBytes caps the size of a loaded file.
const DefaultMaxBytes int64 = 50 << 20

// DefaultSheet is the sheet name used for XLSX exports.
const DefaultSheet = "Cleaned"

// Options controls reading and writing.
type Options struct {
	MaxBytes int64  // Read limit; 0 uses DefaultMaxBytes
	Sheet    string // XLSX sheet to read or write; "" means first sheet / DefaultSheet
	Raw      bool   // Keep every cell as a string
	BOM      bool   // Write a UTF-8 BOM before CSV output
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return o.MaxBytes
}

// ParseFormat maps a format name, extension or MIME type to a Format.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, ".")
	switch {
	case s == "csv" || s == "txt" || strings.Contains(s, "text/csv"):
		return FormatCSV, nil
	case s == "xlsx" || s == "xlsm" || strings.Contains(s, "spreadsheetml"):
		return FormatXLSX, nil
	case s == "json" || strings.Contains(s, "application/json"):
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedFormat)
}

// DetectFormat picks a format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%q has no extension: %w", name, ErrUnsupportedFormat)
	}
	return ParseFormat(ext)
}

// Read loads a table from r.
func Read(r io.Reader, format Format, opts Options) (*core.Table, error) {
	data, err := readLimited(r, opts.maxBytes())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	switch format {
	case FormatCSV:
		return parseCSV(data, opts)
	case FormatXLSX:
		return parseXLSX(data, opts)
	case FormatJSON:
		return parseJSON(data)
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

// ReadFile loads a table from path, choosing the format by extension.
func ReadFile(path string, opts Options) (*core.Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Write serializes t to w.
func Write(w io.Writer, t *core.Table, format Format, opts Options) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, t, opts)
	case FormatXLSX:
		return writeXLSX(w, t, opts)
	case FormatJSON:
		return writeJSON(w, t)
	}
	return fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

// WriteFile writes t to path, choosing the format by extension.
func WriteFile(path string, t *core.Table, opts Options) (err error) {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return Write(f, t, format, opts)
}

// ContentType returns the MIME type for downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}
