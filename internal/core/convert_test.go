package core

import (
	"math"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ValidNumber Tests
// ----------------------------------------------------------------------------

func TestValidNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  Value
		want   float64
		wantOK bool
	}{
		{name: "number passes through", input: Num(12.5), want: 12.5, wantOK: true},
		{name: "zero", input: Num(0), want: 0, wantOK: true},
		{name: "infinity rejected", input: Num(math.Inf(1)), wantOK: false},
		{name: "NaN rejected", input: Num(math.NaN()), wantOK: false},
		{name: "plain string", input: Str("42"), want: 42, wantOK: true},
		{name: "negative decimal", input: Str("-3.25"), want: -3.25, wantOK: true},
		{name: "currency and thousands", input: Str("$1,234.56"), want: 1234.56, wantOK: true},
		{name: "trailing text", input: Str("100 USD"), want: 100, wantOK: true},
		{name: "parentheses are dropped", input: Str("(100)"), want: 100, wantOK: true},
		{name: "no digits", input: Str("abc"), wantOK: false},
		{name: "only punctuation", input: Str("-.-"), wantOK: false},
		{name: "inner dash", input: Str("2024-01-05"), wantOK: false},
		{name: "empty string", input: Str(""), wantOK: false},
		{name: "null", input: Null(), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ValidNumber(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ValidNumber(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	a, b := 0.1, 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{12, "12"},
		{a + b, "0.30000000000000004"},
		{-1.5, "-1.5"},
		{1e21, "1000000000000000000000"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Date Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // yyyy-mm-dd, "" when parsing must fail
	}{
		{name: "ISO", input: "2024-03-05", want: "2024-03-05"},
		{name: "ISO with time", input: "2024-03-05T10:30:00", want: "2024-03-05"},
		{name: "RFC3339", input: "2024-03-05T10:30:00Z", want: "2024-03-05"},
		{name: "slashes year first", input: "2024/03/05", want: "2024-03-05"},
		{name: "US", input: "3/5/2024", want: "2024-03-05"},
		{name: "US padded", input: "03/05/2024", want: "2024-03-05"},
		{name: "month name", input: "Mar 5, 2024", want: "2024-03-05"},
		{name: "day month name", input: "05-Mar-2024", want: "2024-03-05"},
		{name: "surrounding space", input: "  2024-03-05 ", want: "2024-03-05"},
		{name: "empty", input: "", want: ""},
		{name: "text", input: "not a date", want: ""},
		{name: "impossible day", input: "2024-02-30", want: ""},
		{name: "digits only", input: "20240305", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if tt.want == "" {
				if ok {
					t.Errorf("ParseDate(%q) = %v, want failure", tt.input, got)
				}
				return
			}
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.input)
			}
			if s := FormatISODate(got); s != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, s, tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	pivot := time.Now().Year() + TwoDigitYearPivot

	got, ok := ParseDate("3/5/24")
	if !ok || got.Year() != 2024 {
		t.Errorf("3/5/24 = %v (ok=%v), want year 2024", got, ok)
	}

	// 99 always lands in the previous century.
	got, ok = ParseDate("1/1/99")
	if !ok || got.Year() != 1999 {
		t.Errorf("1/1/99 = %v (ok=%v), want year 1999", got, ok)
	}

	got, _ = ParseDate("1/1/50")
	if got.Year() > pivot {
		t.Errorf("1/1/50 parsed to %d, beyond pivot %d", got.Year(), pivot)
	}
}

func TestParseDateValue(t *testing.T) {
	if _, ok := ParseDateValue(Num(45000)); ok {
		t.Error("numeric cells must not parse as dates")
	}
	if _, ok := ParseDateValue(Null()); ok {
		t.Error("null must not parse as a date")
	}
	if _, ok := ParseDateValue(Str("2024-01-31")); !ok {
		t.Error("ISO string should parse")
	}
}

func TestParseDateLoose(t *testing.T) {
	tests := []struct {
		input Value
		want  bool
	}{
		{Str("2024-01-31"), true},
		{Str("1/31/2024"), true},
		{Str("2024-01-31T08:00:00Z"), true},
		{Str("Jan 31, 2024"), false}, // no separator
		{Str("1850-01-01"), false},   // before the window
		{Str("2150-01-01"), false},   // after the window
		{Str("12-34"), false},
		{Num(20240131), false},
	}
	for _, tt := range tests {
		if _, ok := ParseDateLoose(tt.input); ok != tt.want {
			t.Errorf("ParseDateLoose(%v) = %v, want %v", tt.input, ok, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cleaning
		{
			name:  "simple string unchanged",
			input: "hello",
			want:  "hello",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},

		// Whitespace trimming
		{
			name:  "leading whitespace",
			input: "  hello",
			want:  "hello",
		},
		{
			name:  "trailing whitespace",
			input: "hello  ",
			want:  "hello",
		},
		{
			name:  "surrounded by whitespace",
			input: "  hello  ",
			want:  "hello",
		},

		// Excel formula prefix handling
		{
			name:  "Excel formula with quotes",
			input: `="hello"`,
			want:  "hello",
		},
		{
			name:  "Excel formula number as text",
			input: `="12345"`,
			want:  "12345",
		},
		{
			name:  "bare equals sign",
			input: "=SUM(A1)",
			want:  "SUM(A1)",
		},
		{
			name:  "equals at start only",
			input: "=hello",
			want:  "hello",
		},

		// Quote handling
		{
			name:  "double quotes removed",
			input: `"hello"`,
			want:  "hello",
		},
		{
			name:  "single quotes removed",
			input: "'hello'",
			want:  "hello",
		},
		{
			name:  "mixed quotes removed outer only",
			input: `"hello'`,
			want:  "hello",
		},
		{
			name:  "leading single quote (Excel text prefix)",
			input: "'12345",
			want:  "12345",
		},

		// Combined cleaning
		{
			name:  "whitespace and quotes",
			input: `  "hello"  `,
			want:  "hello",
		},
		{
			name:  "excel formula with whitespace",
			input: `  ="test"  `,
			want:  "test",
		},

		// Edge cases
		{
			name:  "only quotes",
			input: `""`,
			want:  "",
		},
		{
			name:  "only single quotes",
			input: "''",
			want:  "",
		},
		{
			name:  "equals with quoted number",
			input: `="0"`,
			want:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
