package core

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
)

// benchTable builds a GL-shaped table of n rows.
func benchTable(n int) *Table {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			"entity":  Str(fmt.Sprintf("E%d", i%4)),
			"account": Str(fmt.Sprintf("%d-US", 4000+i%50)),
			"desc":    Str("  office supplies  "),
			"amount":  Num(float64(i%97) * 12.5),
			"date":    Str(fmt.Sprintf("%d/%d/2024", i%12+1, i%28+1)),
		}
	}
	return NewTable([]string{"entity", "account", "desc", "amount", "date"}, rows)
}

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkValidNumber covers the numeric check used by every numeric
// operation, the scanner and reconciliation.
func BenchmarkValidNumber(b *testing.B) {
	testCases := []Value{
		Num(123),
		Str("-456.78"),
		Str("$1,234.56"),
		Str("  999.99  "),
		Str("n/a"),
		Null(),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ValidNumber(tc)
		}
	}
}

// BenchmarkParseDate benchmarks date string parsing.
func BenchmarkParseDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",   // ISO format
		"01/15/2024",   // US format
		"Jan 15, 2024", // Text month
		"1/5/24",       // 2-digit year
		"not a date",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDate(tc)
		}
	}
}

// BenchmarkCleanCell benchmarks header and cell cleaning on ingest.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"normal value",
		`="formula"`,      // Excel formula prefix
		`"quoted"`,        // Quoted
		"  whitespace  ",  // Whitespace
		`="12345"`,        // Number as text in Excel
		"'single quoted'", // Single quotes
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// ============================================================================
// Engine Benchmarks
// ============================================================================

// BenchmarkApplyPipeline rebuilds a 1000-row table through a typical
// cleaning pipeline.
func BenchmarkApplyPipeline(b *testing.B) {
	base := benchTable(1000)
	p := Pipeline{Steps: []Step{
		NewStep(OpTrim, "desc", nil),
		NewStep(OpTitle, "desc", nil),
		NewStep(OpSplit, "account", map[string]string{ParamDelim: "-"}),
		NewStep(OpCoerceDate, "date", nil),
		NewStep(OpMathColConst, "amount", map[string]string{ParamOp: "*", ParamConst: "2"}),
		NewStep(OpNewColCompute, "", map[string]string{ParamExpr: "[amount] + 1", ParamNewName: "plus_one"}),
	}}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ApplyPipeline(base, p)
	}
}

// BenchmarkScan runs every check over a 1000-row table.
func BenchmarkScan(b *testing.B) {
	t := benchTable(1000)
	cfg := DefaultScanConfig()
	cfg.NumericColumns = []string{"amount"}
	cfg.DateColumns = []string{"date"}
	cfg.KeyColumns = []string{"entity", "account"}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Scan(t, cfg)
	}
}

// BenchmarkReconcile ties a 1000-row GL against a per-account TB.
func BenchmarkReconcile(b *testing.B) {
	gl := benchTable(1000)
	tbRows := make([]Row, 0, 200)
	for e := 0; e < 4; e++ {
		for a := 0; a < 50; a++ {
			tbRows = append(tbRows, Row{
				"entity":  Str("E" + strconv.Itoa(e)),
				"account": Str(strconv.Itoa(4000+a) + "-US"),
				"balance": Num(100),
			})
		}
	}
	tb := NewTable([]string{"entity", "account", "balance"}, tbRows)
	opts := ReconcileOptions{
		GLAccount: "account", GLAmount: "amount", GLEntity: "entity",
		TBAccount: "account", TBAmount: "balance", TBEntity: "entity",
		Tolerance: decimal.NewFromFloat(0.01),
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Reconcile(gl, tb, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkClassify profiles a 1000-row table with the default sample size.
func BenchmarkClassify(b *testing.B) {
	t := benchTable(1000)
	c := NewClassifier(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Classify(t)
	}
}

// BenchmarkHistoryPush measures snapshot cost once the history is full.
func BenchmarkHistoryPush(b *testing.B) {
	t := benchTable(1000)
	h := NewHistory(0)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.Push(t)
	}
}
