package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestScan_OutlierThreshold(t *testing.T) {
	tbl := tableOf([]string{"amt"}, []any{10}, []any{10}, []any{10}, []any{10}, []any{100})

	res := Scan(tbl, ScanConfig{NumericColumns: []string{"amt"}, CheckOutliers: true})
	if res.Counts.Outliers != 0 {
		t.Errorf("Outliers = %d, want 0 (z of 100 is about 1.79)", res.Counts.Outliers)
	}
	st := res.Stats["amt"]
	if st.Count != 5 || st.Mean != 28 {
		t.Errorf("stats = %+v", st)
	}

	res = Scan(tbl, ScanConfig{NumericColumns: []string{"amt"}, CheckOutliers: true, ZThreshold: 1.5})
	if res.Counts.Outliers != 1 {
		t.Fatalf("Outliers = %d, want 1 at z >= 1.5", res.Counts.Outliers)
	}
	if got := res.Issues[4][0]; got.Kind != IssueOutlier || got.Detail != "z=1.79" {
		t.Errorf("issue = %+v", got)
	}
}

func TestScan_ConstantColumnHasNoOutliers(t *testing.T) {
	tbl := tableOf([]string{"amt"}, []any{5}, []any{5}, []any{5})
	res := Scan(tbl, ScanConfig{NumericColumns: []string{"amt"}, CheckOutliers: true, ZThreshold: 0.1})
	if res.Counts.Outliers != 0 {
		t.Errorf("Outliers = %d, want 0", res.Counts.Outliers)
	}
}

func TestScan_Duplicates(t *testing.T) {
	tbl := tableOf(
		[]string{"id", "amt"},
		[]any{"A", 1},
		[]any{"B", 2},
		[]any{"A", 3},
	)

	res := Scan(tbl, ScanConfig{KeyColumns: []string{"id"}, CheckDuplicates: true})
	if res.Counts.Duplicates != 1 {
		t.Fatalf("Duplicates = %d, want 1", res.Counts.Duplicates)
	}
	if rows := res.Issues.Rows(); !reflect.DeepEqual(rows, []int{2}) {
		t.Errorf("flagged rows = %v, want [2]", rows)
	}
	if got := res.Issues.Summary(2); got != "id:duplicate(Duplicate key/row)" {
		t.Errorf("summary = %q", got)
	}

	// Whole-row fingerprint: rows differ by amount, so nothing is flagged.
	res = Scan(tbl, ScanConfig{CheckDuplicates: true})
	if res.Counts.Duplicates != 0 {
		t.Errorf("whole-row Duplicates = %d, want 0", res.Counts.Duplicates)
	}
}

func TestScan_DuplicatesNullVersusEmpty(t *testing.T) {
	tbl := tableOf([]string{"a"}, []any{nil}, []any{""}, []any{nil})
	res := Scan(tbl, ScanConfig{CheckDuplicates: true})
	if !reflect.DeepEqual(res.Issues.Rows(), []int{2}) {
		t.Errorf("flagged rows = %v, want [2]", res.Issues.Rows())
	}
}

func TestScan_TypesDatesSuspicious(t *testing.T) {
	tbl := tableOf(
		[]string{"amt", "posted", "memo"},
		[]any{"12.5", "2024-01-31", "ok"},
		[]any{"abc", "1985-06-30", "N/A"},
		[]any{nil, "not a date", "why?"},
		[]any{"7", 45000, "nana"},
	)
	res := Scan(tbl, ScanConfig{
		NumericColumns:  []string{"amt"},
		DateColumns:     []string{"posted"},
		CheckSuspicious: true,
	})

	c := res.Counts
	if c.TypeMismatches != 2 || c.BadDates != 3 || c.Suspicious != 2 || c.Missing != 1 {
		t.Errorf("counts = %+v", c)
	}

	want := map[int]string{
		1: "memo:suspicious(N/A); amt:type(Expected number); posted:date(Out-of-range year 1985)",
		2: "memo:suspicious(why?); amt:type(Expected number); posted:date(Invalid date)",
		3: "posted:date(Invalid date)",
	}
	for row, summary := range want {
		if got := res.Issues.Summary(row); got != summary {
			t.Errorf("row %d summary = %q, want %q", row, got, summary)
		}
	}
	if _, ok := res.Issues[0]; ok {
		t.Error("row 0 should be clean")
	}
}

func TestScan_MostlyEmpty(t *testing.T) {
	tbl := tableOf(
		[]string{"full", "sparse"},
		[]any{1, nil}, []any{2, ""}, []any{3, nil}, []any{4, nil}, []any{5, "x"},
	)
	res := Scan(tbl, ScanConfig{})
	if !reflect.DeepEqual(res.MostlyEmpty, []string{"sparse"}) {
		t.Errorf("MostlyEmpty = %v, want [sparse]", res.MostlyEmpty)
	}
	if res.Counts.Missing != 4 {
		t.Errorf("Missing = %d, want 4", res.Counts.Missing)
	}

	res = Scan(tbl, ScanConfig{MostlyEmptyRatio: 0.9})
	if len(res.MostlyEmpty) != 0 {
		t.Errorf("MostlyEmpty at 0.9 = %v", res.MostlyEmpty)
	}
}

func TestScan_Export(t *testing.T) {
	tbl := tableOf([]string{"id", "v"}, []any{"a", "?"}, []any{"b", "fine"}, []any{"a", "x"})
	res := Scan(tbl, ScanConfig{KeyColumns: []string{"id"}, CheckDuplicates: true, CheckSuspicious: true})

	exp := res.Export
	wantCols := []string{ExportRowColumn, "id", "v", ExportIssuesColumn}
	if !reflect.DeepEqual(exp.Columns, wantCols) {
		t.Fatalf("export columns = %v", exp.Columns)
	}
	if exp.Len() != 2 {
		t.Fatalf("export rows = %d, want 2", exp.Len())
	}
	if got := column(exp, ExportRowColumn); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("_row = %v, want [1 3]", got)
	}
	if got := column(exp, ExportIssuesColumn)[1]; !strings.Contains(got, "duplicate") {
		t.Errorf("_issues = %q", got)
	}
}

func TestScan_DoesNotModifyTable(t *testing.T) {
	tbl := glSample()
	before := tbl.Clone()
	Scan(tbl, DefaultScanConfig())
	if !tbl.Equal(before) {
		t.Error("scan modified its input")
	}
}
