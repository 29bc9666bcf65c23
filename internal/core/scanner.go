package core

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// IssueKind classifies a data-quality finding.
type IssueKind string

const (
	IssueDuplicate  IssueKind = "duplicate"
	IssueSuspicious IssueKind = "suspicious"
	IssueType       IssueKind = "type"
	IssueOutlier    IssueKind = "outlier"
	IssueDate       IssueKind = "date"
)

// Scanner defaults.
const (
	DefaultZThreshold       = 3.0
	DefaultMostlyEmptyRatio = 0.8
)

// Issue is one finding on one row.
type Issue struct {
	Row    int       `json:"row"`
	Column string    `json:"col"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

func (i Issue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("%s:%s", i.Column, i.Kind)
	}
	return fmt.Sprintf("%s:%s(%s)", i.Column, i.Kind, i.Detail)
}

// IssueSet maps a row index to the issues found on that row, in the order
// the checks ran.
type IssueSet map[int][]Issue

// Rows returns the flagged row indexes in ascending order.
func (s IssueSet) Rows() []int {
	rows := make([]int, 0, len(s))
	for i := range s {
		rows = append(rows, i)
	}
	sort.Ints(rows)
	return rows
}

// Summary joins a row's issues as "col:kind(detail); ...".
func (s IssueSet) Summary(row int) string {
	parts := make([]string, len(s[row]))
	for i, is := range s[row] {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}

// Count returns the number of issues of kind k.
func (s IssueSet) Count(k IssueKind) int {
	n := 0
	for _, list := range s {
		for _, is := range list {
			if is.Kind == k {
				n++
			}
		}
	}
	return n
}

func (s IssueSet) add(row int, col string, k IssueKind, detail string) {
	s[row] = append(s[row], Issue{Row: row, Column: col, Kind: k, Detail: detail})
}

// ScanConfig selects the columns and checks a scan runs.
type ScanConfig struct {
	KeyColumns      []string `json:"key_columns"`
	NumericColumns  []string `json:"numeric_columns"`
	DateColumns     []string `json:"date_columns"`
	CheckOutliers   bool     `json:"check_outliers"`
	CheckDuplicates bool     `json:"check_duplicates"`
	CheckSuspicious bool     `json:"check_suspicious"`

	// ZThreshold flags |z| >= ZThreshold as an outlier.
	ZThreshold float64 `json:"z_threshold,omitempty"`
	// MostlyEmptyRatio reports columns whose empty fraction reaches it.
	MostlyEmptyRatio float64 `json:"mostly_empty_ratio,omitempty"`
}

// DefaultScanConfig enables every check with default thresholds and no
// columns selected.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		CheckOutliers:    true,
		CheckDuplicates:  true,
		CheckSuspicious:  true,
		ZThreshold:       DefaultZThreshold,
		MostlyEmptyRatio: DefaultMostlyEmptyRatio,
	}
}

func (c ScanConfig) withDefaults() ScanConfig {
	if c.ZThreshold <= 0 {
		c.ZThreshold = DefaultZThreshold
	}
	if c.MostlyEmptyRatio <= 0 {
		c.MostlyEmptyRatio = DefaultMostlyEmptyRatio
	}
	return c
}

// ScanCounts are the aggregate totals of a scan.
type ScanCounts struct {
	Rows           int `json:"rows"`
	Columns        int `json:"columns"`
	Missing        int `json:"missing"`
	TypeMismatches int `json:"type_mismatches"`
	Outliers       int `json:"outliers"`
	Duplicates     int `json:"duplicates"`
	Suspicious     int `json:"suspicious"`
	BadDates       int `json:"bad_dates"`
	MostlyEmpty    int `json:"mostly_empty"`
}

// ColumnStats are the statistics behind the outlier check.
type ColumnStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// ScanResult is the output of Scan.
type ScanResult struct {
	Issues      IssueSet               `json:"issues"`
	Counts      ScanCounts             `json:"counts"`
	MostlyEmpty []string               `json:"mostly_empty"`
	Stats       map[string]ColumnStats `json:"stats"`
	Export      *Table                 `json:"-"`
}

// Export column names added around the source columns.
const (
	ExportRowColumn    = "_row"
	ExportIssuesColumn = "_issues"
)

var suspiciousRe = regexp.MustCompile(`(?i)\?|^\s*(NA|N/A|null|nan|NIL)\s*$`)

// Scan runs the configured checks over t. Statistics are computed from
// scratch on every call.
func Scan(t *Table, cfg ScanConfig) ScanResult {
	cfg = cfg.withDefaults()
	issues := make(IssueSet)
	counts := ScanCounts{Rows: len(t.Rows), Columns: len(t.Columns)}

	stats := make(map[string]ColumnStats, len(cfg.NumericColumns))
	for _, col := range cfg.NumericColumns {
		stats[col] = numericStats(t, col)
	}

	if cfg.CheckDuplicates {
		counts.Duplicates = scanDuplicates(t, cfg.KeyColumns, issues)
	}

	for i, r := range t.Rows {
		for _, col := range t.Columns {
			v := r.Get(col)
			if v.IsEmpty() {
				counts.Missing++
				continue
			}
			if cfg.CheckSuspicious && v.Kind() == KindString && suspiciousRe.MatchString(v.String()) {
				counts.Suspicious++
				issues.add(i, col, IssueSuspicious, v.String())
			}
		}

		for _, col := range cfg.NumericColumns {
			n, ok := ValidNumber(r.Get(col))
			if !ok {
				counts.TypeMismatches++
				issues.add(i, col, IssueType, "Expected number")
				continue
			}
			st := stats[col]
			if cfg.CheckOutliers && st.StdDev > 0 {
				z := (n - st.Mean) / st.StdDev
				if math.Abs(z) >= cfg.ZThreshold {
					issues.add(i, col, IssueOutlier, fmt.Sprintf("z=%.2f", z))
				}
			}
		}

		for _, col := range cfg.DateColumns {
			d, ok := ParseDateValue(r.Get(col))
			if !ok {
				counts.BadDates++
				issues.add(i, col, IssueDate, "Invalid date")
				continue
			}
			if y := d.Year(); y < ScanMinYear || y > ScanMaxYear {
				counts.BadDates++
				issues.add(i, col, IssueDate, fmt.Sprintf("Out-of-range year %d", y))
			}
		}
	}
	counts.Outliers = issues.Count(IssueOutlier)

	mostlyEmpty := mostlyEmptyColumns(t, cfg.MostlyEmptyRatio)
	counts.MostlyEmpty = len(mostlyEmpty)

	return ScanResult{
		Issues:      issues,
		Counts:      counts,
		MostlyEmpty: mostlyEmpty,
		Stats:       stats,
		Export:      exportIssues(t, issues),
	}
}

// numericStats returns the mean and sample standard deviation (N-1) of the
// parseable values in col. StdDev is 0 with fewer than two values.
func numericStats(t *Table, col string) ColumnStats {
	vals := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if n, ok := ValidNumber(r.Get(col)); ok {
			vals = append(vals, n)
		}
	}
	st := ColumnStats{Count: len(vals)}
	switch len(vals) {
	case 0:
	case 1:
		st.Mean = vals[0]
	default:
		st.Mean, st.StdDev = stat.MeanStdDev(vals, nil)
	}
	return st
}

// scanDuplicates flags every occurrence of a key after the first. Without
// key columns the whole row is the key.
func scanDuplicates(t *Table, keys []string, issues IssueSet) int {
	seen := make(map[string]struct{}, len(t.Rows))
	label := strings.Join(keys, ",")
	dups := 0
	for i, r := range t.Rows {
		var k string
		if len(keys) > 0 {
			k = compositeKey(r, keys)
		} else {
			k = rowFingerprint(t, r)
		}
		if _, ok := seen[k]; ok {
			dups++
			issues.add(i, label, IssueDuplicate, "Duplicate key/row")
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// rowFingerprint serializes a row's cells in column order. Null and empty
// string stay distinct.
func rowFingerprint(t *Table, r Row) string {
	vals := make([]Value, len(t.Columns))
	for i, c := range t.Columns {
		vals[i] = r.Get(c)
	}
	b, _ := json.Marshal(vals)
	return string(b)
}

func mostlyEmptyColumns(t *Table, ratio float64) []string {
	out := []string{}
	if len(t.Rows) == 0 {
		return out
	}
	for _, col := range t.Columns {
		empty := 0
		for _, r := range t.Rows {
			if r.Get(col).IsEmpty() {
				empty++
			}
		}
		if float64(empty)/float64(len(t.Rows)) >= ratio {
			out = append(out, col)
		}
	}
	return out
}

// exportIssues builds one row per flagged row: its 1-based position, the
// source cells and the issue summary.
func exportIssues(t *Table, issues IssueSet) *Table {
	cols := make([]string, 0, len(t.Columns)+2)
	cols = append(cols, ExportRowColumn)
	cols = append(cols, t.Columns...)
	cols = append(cols, ExportIssuesColumn)

	rows := make([]Row, 0, len(issues))
	for _, idx := range issues.Rows() {
		src := t.Rows[idx]
		out := make(Row, len(cols))
		out[ExportRowColumn] = Num(float64(idx + 1))
		for _, c := range t.Columns {
			out[c] = src.Get(c)
		}
		out[ExportIssuesColumn] = Str(issues.Summary(idx))
		rows = append(rows, out)
	}
	return &Table{Columns: cols, Rows: rows}
}
