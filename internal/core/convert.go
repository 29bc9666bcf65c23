package core

// convert.go holds the lenient parsing rules shared by the classifier,
// the step catalog, the scanner and reconciliation.
//
// User data is messy: currency symbols, thousands separators, US and ISO
// dates, two-digit years and Excel formula prefixes all show up in practice.
// Nothing here returns an error; a failed parse reports ok=false and the
// caller degrades the cell.

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Year bounds. Classification is a heuristic and accepts a wider window than
// the scanner's validity check.
const (
	ClassifierMinYear = 1900
	ClassifierMaxYear = 2100
	ScanMinYear       = 1990
	ScanMaxYear       = 2100
)

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"2006-01-02", "2006/01/02", "2006.01.02", "2006-1-2", "2006/1/2",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006", "02-Jan-2006", "2-Jan-06",
		"Mon Jan 2 2006", "Mon, 02 Jan 2006 15:04:05 MST",
	}
)

// ValidNumber extracts a finite number from a cell.
//
// Numbers pass through when finite. Strings keep only digits, '.' and '-';
// the remainder must contain a digit and parse as a float. Null, empty and
// everything else report ok=false.
func ValidNumber(v Value) (float64, bool) {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Number()
		return n, isFinite(n)
	case KindString:
		return parseNumberString(v.String())
	default:
		return 0, false
	}
}

// ParseNumber applies the ValidNumber rule to raw text.
func ParseNumber(s string) (float64, bool) {
	return parseNumberString(s)
}

func parseNumberString(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	var b strings.Builder
	digit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	if !digit {
		return 0, false
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || !isFinite(n) {
		return 0, false
	}
	return n, true
}

func isFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// FormatNumber renders a number in the shortest round-trip form.
func FormatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ParseDate parses text in any supported layout.
// Supports multiple date formats and handles 2-digit years with pivot.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseDateValue parses a cell as a date. Only string cells can be dates.
func ParseDateValue(v Value) (time.Time, bool) {
	if v.Kind() != KindString {
		return time.Time{}, false
	}
	return ParseDate(v.String())
}

// ParseDateLoose is the classifier's date test: the cell must be a string
// containing '-', '/' or 'T', must parse, and must fall within
// [ClassifierMinYear, ClassifierMaxYear].
func ParseDateLoose(v Value) (time.Time, bool) {
	if v.Kind() != KindString {
		return time.Time{}, false
	}
	s := v.String()
	if !strings.ContainsAny(s, "-/T") {
		return time.Time{}, false
	}
	t, ok := ParseDate(s)
	if !ok || t.Year() < ClassifierMinYear || t.Year() > ClassifierMaxYear {
		return time.Time{}, false
	}
	return t, true
}

// FormatISODate renders t as yyyy-mm-dd.
func FormatISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// CleanCell removes common spreadsheet artifacts from a header or cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") && len(s) > 1 {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
