package core

import "strings"

// ColumnRole is the inferred role of a column.
type ColumnRole string

const (
	RoleDate        ColumnRole = "date"
	RoleNumeric     ColumnRole = "numeric"
	RoleCategorical ColumnRole = "categorical"
)

// Classification thresholds. Date is tested first so a column is never
// counted as both date and numeric.
const (
	DateFractionThreshold    = 0.6
	NumericFractionThreshold = 0.75
	DefaultClassifySample    = 500
)

// ColumnProfile is the classifier output for one column.
type ColumnProfile struct {
	Name         string     `json:"name"`
	Role         ColumnRole `json:"role"`
	Sampled      int        `json:"sampled"`
	NumberFrac   float64    `json:"number_fraction"`
	DateFrac     float64    `json:"date_fraction"`
	EmptyCount   int        `json:"empty_count"`
	DistinctSeen int        `json:"distinct_seen"`
}

// Classification groups columns by role. Every column appears in exactly one
// of the three lists.
type Classification struct {
	Columns     []ColumnProfile `json:"columns"`
	Date        []string        `json:"date"`
	Numeric     []string        `json:"numeric"`
	Categorical []string        `json:"categorical"`
}

// Role returns the role assigned to col, or "" when col is unknown.
func (c Classification) Role(col string) ColumnRole {
	for _, p := range c.Columns {
		if p.Name == col {
			return p.Role
		}
	}
	return ""
}

// Classifier infers column roles from sampled non-empty values.
type Classifier struct {
	// SampleSize caps the number of non-empty values inspected per column.
	SampleSize int
}

// NewClassifier returns a classifier sampling at most sampleSize values per
// column; non-positive selects DefaultClassifySample.
func NewClassifier(sampleSize int) *Classifier {
	if sampleSize <= 0 {
		sampleSize = DefaultClassifySample
	}
	return &Classifier{SampleSize: sampleSize}
}

// Classify profiles every column of t.
func (c *Classifier) Classify(t *Table) Classification {
	out := Classification{
		Columns:     make([]ColumnProfile, 0, len(t.Columns)),
		Date:        []string{},
		Numeric:     []string{},
		Categorical: []string{},
	}
	for _, col := range t.Columns {
		p := c.profile(t, col)
		out.Columns = append(out.Columns, p)
		switch p.Role {
		case RoleDate:
			out.Date = append(out.Date, col)
		case RoleNumeric:
			out.Numeric = append(out.Numeric, col)
		default:
			out.Categorical = append(out.Categorical, col)
		}
	}
	return out
}

func (c *Classifier) profile(t *Table, col string) ColumnProfile {
	p := ColumnProfile{Name: col, Role: RoleCategorical}
	distinct := make(map[Value]struct{})
	var nums, dates int
	for _, r := range t.Rows {
		v := r.Get(col)
		if v.IsEmpty() {
			p.EmptyCount++
			continue
		}
		if p.Sampled >= c.SampleSize {
			continue
		}
		p.Sampled++
		distinct[v] = struct{}{}
		if _, ok := ValidNumber(v); ok {
			nums++
		}
		if _, ok := ParseDateLoose(v); ok {
			dates++
		}
	}
	p.DistinctSeen = len(distinct)
	if p.Sampled == 0 {
		return p
	}
	p.NumberFrac = float64(nums) / float64(p.Sampled)
	p.DateFrac = float64(dates) / float64(p.Sampled)

	switch {
	case p.DateFrac >= DateFractionThreshold:
		p.Role = RoleDate
	case p.NumberFrac >= NumericFractionThreshold:
		p.Role = RoleNumeric
	}
	return p
}

// SuggestScanConfig pre-populates a scanner configuration: categorical
// columns whose name looks like an identifier become key columns, numeric
// and date roles map directly. All checks are enabled.
func (c *Classifier) SuggestScanConfig(t *Table) ScanConfig {
	cls := c.Classify(t)
	cfg := DefaultScanConfig()
	cfg.NumericColumns = cls.Numeric
	cfg.DateColumns = cls.Date
	for _, col := range cls.Categorical {
		if looksLikeKey(col) {
			cfg.KeyColumns = append(cfg.KeyColumns, col)
		}
	}
	return cfg
}

// ReconcileColumns is a suggested column mapping for one reconciliation side.
type ReconcileColumns struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Entity  string `json:"entity,omitempty"`
}

var (
	accountHints = []string{"natural_account", "erp_account_code", "account_code", "account_number", "gl_account", "account", "acct"}
	amountHints  = []string{"amount", "balance", "net", "ending_balance", "total", "value"}
	entityHints  = []string{"entity_id", "entity", "legal_entity", "company", "subsidiary", "segment"}
)

// SuggestReconcileColumns picks account, amount and entity columns by name,
// falling back to the first categorical column for account and the first
// numeric column for amount.
func (c *Classifier) SuggestReconcileColumns(t *Table) ReconcileColumns {
	cls := c.Classify(t)
	var s ReconcileColumns
	s.Account = matchHint(cls.Categorical, accountHints)
	if s.Account == "" && len(cls.Categorical) > 0 {
		s.Account = cls.Categorical[0]
	}
	s.Amount = matchHint(cls.Numeric, amountHints)
	if s.Amount == "" && len(cls.Numeric) > 0 {
		s.Amount = cls.Numeric[0]
	}
	var rest []string
	for _, col := range cls.Categorical {
		if col != s.Account {
			rest = append(rest, col)
		}
	}
	s.Entity = matchHint(rest, entityHints)
	return s
}

// matchHint returns the first column matching a hint, trying hints in order.
// Exact (normalized) matches win over substring matches.
func matchHint(cols, hints []string) string {
	for _, h := range hints {
		for _, c := range cols {
			if normalizeName(c) == h {
				return c
			}
		}
	}
	for _, h := range hints {
		for _, c := range cols {
			if strings.Contains(normalizeName(c), h) {
				return c
			}
		}
	}
	return ""
}

func looksLikeKey(col string) bool {
	n := normalizeName(col)
	return n == "id" || strings.HasSuffix(n, "_id") || strings.HasSuffix(n, "_key") ||
		strings.HasSuffix(n, "_code") || strings.HasSuffix(n, "_number") || strings.HasSuffix(n, "_no")
}

// normalizeName lowercases and maps spaces, dashes and dots to underscores.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(s)
}
