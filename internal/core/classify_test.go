package core

import (
	"reflect"
	"testing"
)

func TestClassifier_Roles(t *testing.T) {
	tbl := tableOf(
		[]string{"posted", "amount", "memo", "blank"},
		[]any{"2024-01-01", 100, "rent", nil},
		[]any{"2024-02-01", "200", "fees", ""},
		[]any{"junk", "$3.50", "misc", nil},
		[]any{"2024-03-01", "x", "rent", nil},
		[]any{"2024-04-01", nil, nil, nil},
	)

	cls := NewClassifier(0).Classify(tbl)

	if !reflect.DeepEqual(cls.Date, []string{"posted"}) {
		t.Errorf("Date = %v, want [posted]", cls.Date)
	}
	if !reflect.DeepEqual(cls.Numeric, []string{"amount"}) {
		t.Errorf("Numeric = %v, want [amount]", cls.Numeric)
	}
	if !reflect.DeepEqual(cls.Categorical, []string{"memo", "blank"}) {
		t.Errorf("Categorical = %v, want [memo blank]", cls.Categorical)
	}

	amount := cls.Columns[1]
	if amount.Sampled != 4 || amount.EmptyCount != 1 || amount.NumberFrac != 0.75 {
		t.Errorf("amount profile = %+v", amount)
	}
	if memo := cls.Columns[2]; memo.DistinctSeen != 3 {
		t.Errorf("memo distinct = %d, want 3", memo.DistinctSeen)
	}
	if cls.Role("blank") != RoleCategorical || cls.Role("nope") != "" {
		t.Error("Role() lookup mismatch")
	}
}

func TestClassifier_RolesAreDisjoint(t *testing.T) {
	// US dates strip to digits and also pass the number test; date wins.
	tbl := tableOf([]string{"d"}, []any{"1/31/2024"}, []any{"2/29/2024"}, []any{"3/31/2024"})
	cls := NewClassifier(0).Classify(tbl)

	seen := map[string]int{}
	for _, list := range [][]string{cls.Date, cls.Numeric, cls.Categorical} {
		for _, c := range list {
			seen[c]++
		}
	}
	for _, c := range tbl.Columns {
		if seen[c] != 1 {
			t.Errorf("column %q appears in %d role lists", c, seen[c])
		}
	}
	if cls.Role("d") != RoleDate {
		t.Errorf("Role(d) = %s, want date", cls.Role("d"))
	}
	if cls.Columns[0].NumberFrac != 1 {
		t.Errorf("NumberFrac = %v, want 1", cls.Columns[0].NumberFrac)
	}
}

func TestClassifier_SampleSize(t *testing.T) {
	rows := make([][]any, 0, 20)
	for i := 0; i < 10; i++ {
		rows = append(rows, []any{i})
	}
	for i := 0; i < 10; i++ {
		rows = append(rows, []any{"text"})
	}
	tbl := tableOf([]string{"v"}, rows...)

	if got := NewClassifier(10).Classify(tbl).Role("v"); got != RoleNumeric {
		t.Errorf("sample of 10 numbers: role = %s, want numeric", got)
	}
	if got := NewClassifier(0).Classify(tbl).Role("v"); got != RoleCategorical {
		t.Errorf("full sample: role = %s, want categorical", got)
	}
}

func TestClassifier_Suggestions(t *testing.T) {
	tbl := tableOf(
		[]string{"Entity ID", "Natural Account", "Amount", "Posting Date", "Journal No"},
		[]any{"ACME US", "Cash", 10, "2024-01-31", "JE-A"},
		[]any{"ACME US", "AR", 20, "2024-01-31", "JE-B"},
	)
	c := NewClassifier(0)

	cfg := c.SuggestScanConfig(tbl)
	if !reflect.DeepEqual(cfg.KeyColumns, []string{"Entity ID", "Journal No"}) {
		t.Errorf("KeyColumns = %v", cfg.KeyColumns)
	}
	if !reflect.DeepEqual(cfg.NumericColumns, []string{"Amount"}) {
		t.Errorf("NumericColumns = %v", cfg.NumericColumns)
	}
	if !reflect.DeepEqual(cfg.DateColumns, []string{"Posting Date"}) {
		t.Errorf("DateColumns = %v", cfg.DateColumns)
	}
	if !cfg.CheckDuplicates || !cfg.CheckOutliers || cfg.ZThreshold != DefaultZThreshold {
		t.Errorf("checks not defaulted: %+v", cfg)
	}

	rc := c.SuggestReconcileColumns(tbl)
	want := ReconcileColumns{Account: "Natural Account", Amount: "Amount", Entity: "Entity ID"}
	if rc != want {
		t.Errorf("SuggestReconcileColumns = %+v, want %+v", rc, want)
	}
}
