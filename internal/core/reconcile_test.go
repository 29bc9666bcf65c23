package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func reconOpts(tol string) ReconcileOptions {
	return ReconcileOptions{
		GLAccount: "account", GLAmount: "amount",
		TBAccount: "acct", TBAmount: "balance",
		Tolerance: decimal.RequireFromString(tol),
	}
}

func TestReconcile_ReportsOnlyVariancesOverTolerance(t *testing.T) {
	gl := tableOf([]string{"account", "amount"},
		[]any{"A", 60}, []any{"B", 50}, []any{"A", 40})
	tb := tableOf([]string{"acct", "balance"},
		[]any{"A", 100}, []any{"B", 40})

	res, err := Reconcile(gl, tb, reconOpts("5"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(res.Diffs) != 1 {
		t.Fatalf("diffs = %+v, want only B", res.Diffs)
	}
	d := res.Diffs[0]
	if d.Account != "B" || !d.Variance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("diff = %+v, want B with variance 10", d)
	}
	if !res.TotalVariance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("TotalVariance = %s, want 10", res.TotalVariance)
	}
	if res.Ties || res.Verdict != VerdictDoesNotTie {
		t.Errorf("verdict = %q (ties=%v), want %q", res.Verdict, res.Ties, VerdictDoesNotTie)
	}
	if res.GLGroups != 2 || res.TBGroups != 2 {
		t.Errorf("groups = %d/%d, want 2/2", res.GLGroups, res.TBGroups)
	}
}

func TestReconcile_Ties(t *testing.T) {
	gl := tableOf([]string{"account", "amount"}, []any{"A", "1,000.10"}, []any{"B", 0.2})
	tb := tableOf([]string{"acct", "balance"}, []any{"A", 1000}, []any{"B", "0.3"})

	res, err := Reconcile(gl, tb, reconOpts("0.5"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Ties || res.Verdict != VerdictTies {
		t.Errorf("verdict = %q, want %q", res.Verdict, VerdictTies)
	}
	if len(res.Diffs) != 0 {
		t.Errorf("diffs = %+v, want none", res.Diffs)
	}
	if !res.TotalVariance.Equal(decimal.Zero) {
		t.Errorf("TotalVariance = %s, want 0", res.TotalVariance)
	}
}

func TestReconcile_OneSidedKeysAndOrder(t *testing.T) {
	gl := tableOf([]string{"account", "amount"}, []any{"Z", 5}, []any{"A", "bad"})
	tb := tableOf([]string{"acct", "balance"}, []any{"M", 7}, []any{"Z", 5})

	res, err := Reconcile(gl, tb, reconOpts("0"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	var accounts []string
	for _, d := range res.Diffs {
		accounts = append(accounts, d.Account)
	}
	// A sums to zero on both sides (unparseable amount) and is within tolerance.
	if !reflect.DeepEqual(accounts, []string{"M"}) {
		t.Errorf("diff accounts = %v, want [M]", accounts)
	}
	if !res.Diffs[0].GLSum.IsZero() || !res.Diffs[0].Variance.Equal(decimal.NewFromInt(-7)) {
		t.Errorf("M diff = %+v", res.Diffs[0])
	}
}

func TestReconcile_ByEntity(t *testing.T) {
	gl := tableOf([]string{"entity", "account", "amount"},
		[]any{"US", "4000", 100}, []any{"UK", "4000", 50})
	tb := tableOf([]string{"ent", "acct", "balance"},
		[]any{"US", "4000", 100}, []any{"UK", "4000", 80})

	opts := reconOpts("0")
	opts.GLEntity, opts.TBEntity = "entity", "ent"

	res, err := Reconcile(gl, tb, opts)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(res.Diffs) != 1 {
		t.Fatalf("diffs = %+v", res.Diffs)
	}
	d := res.Diffs[0]
	if d.Entity != "UK" || d.Account != "4000" || !reflect.DeepEqual(d.KeyParts, []string{"UK", "4000"}) {
		t.Errorf("diff = %+v", d)
	}

	exp := res.ExportTable()
	wantCols := []string{"entity", ReconAccountColumn, ReconGLSumColumn, ReconTBAmountColumn, ReconVarianceColumn}
	if !reflect.DeepEqual(exp.Columns, wantCols) {
		t.Errorf("export columns = %v", exp.Columns)
	}
	want := [][]string{wantCols, {"UK", "4000", "50", "80", "-30"}}
	if got := exp.Records(); !reflect.DeepEqual(got, want) {
		t.Errorf("export = %v, want %v", got, want)
	}
}

func TestReconcile_Errors(t *testing.T) {
	gl := tableOf([]string{"account", "amount", "entity"}, []any{"A", 1, "US"})
	tb := tableOf([]string{"acct", "balance"}, []any{"A", 1})

	_, err := Reconcile(gl, tb, reconOpts("-1"))
	if err == nil {
		t.Error("negative tolerance should fail")
	}

	opts := reconOpts("0")
	opts.GLEntity = "entity"
	if _, err := Reconcile(gl, tb, opts); !errors.Is(err, ErrEntityMismatch) {
		t.Errorf("err = %v, want ErrEntityMismatch", err)
	}

	opts = reconOpts("0")
	opts.TBAmount = "missing"
	if _, err := Reconcile(gl, tb, opts); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("err = %v, want ErrUnknownColumn", err)
	}
}
