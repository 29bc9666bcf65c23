package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Verdict texts.
const (
	VerdictTies       = "Ties (within tolerance)"
	VerdictDoesNotTie = "Does not tie"
)

// Reconciliation export column names.
const (
	ReconAccountColumn  = "Account"
	ReconGLSumColumn    = "GL Sum"
	ReconTBAmountColumn = "TB Amount"
	ReconVarianceColumn = "Variance"
)

// ErrEntityMismatch is returned when only one side names an entity column.
var ErrEntityMismatch = errors.New("entity column must be set for both tables or neither")

// ReconcileOptions names the grouping and amount columns of each side.
type ReconcileOptions struct {
	GLAccount string
	GLAmount  string
	GLEntity  string
	TBAccount string
	TBAmount  string
	TBEntity  string
	Tolerance decimal.Decimal
}

// ReconciliationDiff is one group whose variance exceeds the tolerance.
type ReconciliationDiff struct {
	KeyParts []string        `json:"key_parts"`
	Entity   string          `json:"entity,omitempty"`
	Account  string          `json:"account"`
	GLSum    decimal.Decimal `json:"gl_sum"`
	TBSum    decimal.Decimal `json:"tb_sum"`
	Variance decimal.Decimal `json:"variance"`
}

// ReconcileResult is the tie-out report.
type ReconcileResult struct {
	Diffs         []ReconciliationDiff `json:"diffs"`
	GLTotal       decimal.Decimal      `json:"gl_total"`
	TBTotal       decimal.Decimal      `json:"tb_total"`
	TotalVariance decimal.Decimal      `json:"total_variance"`
	Tolerance     decimal.Decimal      `json:"tolerance"`
	Ties          bool                 `json:"ties"`
	Verdict       string               `json:"verdict"`
	GLGroups      int                  `json:"gl_groups"`
	TBGroups      int                  `json:"tb_groups"`

	entityColumn string
}

// groupSums accumulates amounts per key, remembering first-seen key order.
type groupSums struct {
	order []string
	sums  map[string]decimal.Decimal
	total decimal.Decimal
}

func sumGroups(t *Table, keyCols []string, amount string) groupSums {
	g := groupSums{sums: make(map[string]decimal.Decimal)}
	for _, r := range t.Rows {
		k := compositeKey(r, keyCols)
		var v decimal.Decimal
		if n, ok := ValidNumber(r.Get(amount)); ok {
			v = decimal.NewFromFloat(n)
		}
		cur, seen := g.sums[k]
		if !seen {
			g.order = append(g.order, k)
		}
		g.sums[k] = cur.Add(v)
		g.total = g.total.Add(v)
	}
	return g
}

// Reconcile groups gl and tb by (entity, account), sums the amount column
// per group and reports every group whose |GL - TB| exceeds the tolerance.
// Unparseable amounts count as zero; a key present on one side only is zero
// on the other. The verdict compares grand totals against the same
// tolerance.
//
// The entity column is optional, but it must be named for both tables or
// for neither; naming it on one side only returns ErrEntityMismatch.
func Reconcile(gl, tb *Table, opts ReconcileOptions) (ReconcileResult, error) {
	if opts.Tolerance.IsNegative() {
		return ReconcileResult{}, fmt.Errorf("tolerance %s: must be non-negative", opts.Tolerance)
	}
	if (opts.GLEntity == "") != (opts.TBEntity == "") {
		return ReconcileResult{}, ErrEntityMismatch
	}
	for _, c := range []struct {
		t    *Table
		side string
		cols []string
	}{
		{gl, "GL", []string{opts.GLAccount, opts.GLAmount, opts.GLEntity}},
		{tb, "TB", []string{opts.TBAccount, opts.TBAmount, opts.TBEntity}},
	} {
		for i, col := range c.cols {
			if col == "" && i == 2 {
				continue
			}
			if !c.t.HasColumn(col) {
				return ReconcileResult{}, fmt.Errorf("%s column %q: %w", c.side, col, ErrUnknownColumn)
			}
		}
	}

	glKeys := []string{opts.GLAccount}
	tbKeys := []string{opts.TBAccount}
	hasEntity := opts.GLEntity != ""
	if hasEntity {
		glKeys = []string{opts.GLEntity, opts.GLAccount}
		tbKeys = []string{opts.TBEntity, opts.TBAccount}
	}

	glSums := sumGroups(gl, glKeys, opts.GLAmount)
	tbSums := sumGroups(tb, tbKeys, opts.TBAmount)

	keys := append([]string{}, glSums.order...)
	for _, k := range tbSums.order {
		if _, ok := glSums.sums[k]; !ok {
			keys = append(keys, k)
		}
	}

	res := ReconcileResult{
		Diffs:     []ReconciliationDiff{},
		GLTotal:   glSums.total,
		TBTotal:   tbSums.total,
		Tolerance: opts.Tolerance,
		GLGroups:  len(glSums.order),
		TBGroups:  len(tbSums.order),
	}
	if hasEntity {
		res.entityColumn = opts.GLEntity
	}

	for _, k := range keys {
		g, t := glSums.sums[k], tbSums.sums[k]
		variance := g.Sub(t)
		if variance.Abs().LessThanOrEqual(opts.Tolerance) {
			continue
		}
		parts := splitKey(k)
		d := ReconciliationDiff{KeyParts: parts, GLSum: g, TBSum: t, Variance: variance}
		if hasEntity {
			d.Entity, d.Account = parts[0], parts[1]
		} else {
			d.Account = parts[0]
		}
		res.Diffs = append(res.Diffs, d)
	}

	res.TotalVariance = res.GLTotal.Sub(res.TBTotal)
	res.Ties = res.TotalVariance.Abs().LessThanOrEqual(opts.Tolerance)
	res.Verdict = VerdictDoesNotTie
	if res.Ties {
		res.Verdict = VerdictTies
	}
	return res, nil
}

// ExportTable renders the diffs for download: the GL entity column (when
// grouping by entity), Account, GL Sum, TB Amount and Variance.
func (r ReconcileResult) ExportTable() *Table {
	var cols []string
	if r.entityColumn != "" {
		cols = append(cols, r.entityColumn)
	}
	cols = append(cols, ReconAccountColumn, ReconGLSumColumn, ReconTBAmountColumn, ReconVarianceColumn)

	rows := make([]Row, 0, len(r.Diffs))
	for _, d := range r.Diffs {
		row := Row{
			ReconAccountColumn:  Str(d.Account),
			ReconGLSumColumn:    Num(d.GLSum.InexactFloat64()),
			ReconTBAmountColumn: Num(d.TBSum.InexactFloat64()),
			ReconVarianceColumn: Num(d.Variance.InexactFloat64()),
		}
		if r.entityColumn != "" {
			row[r.entityColumn] = Str(d.Entity)
		}
		rows = append(rows, row)
	}
	return &Table{Columns: cols, Rows: rows}
}
