package core

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/ledgerprep/internal/core/expr"
)

// PipelineResult is the rebuilt table plus the warnings raised on the way.
type PipelineResult struct {
	Table    *Table        `json:"table"`
	Warnings []StepWarning `json:"warnings"`
}

// ApplyPipeline rebuilds a table from baseline by applying every enabled
// step of p in order.
//
// Each call starts from a fresh deep copy of baseline and of p.BaseColumns
// (or the baseline's own columns when p.BaseColumns is nil), so disabling,
// reordering or editing a step never leaves stale columns behind and two
// calls with the same inputs produce identical tables. baseline is never
// modified.
//
// Steps with configuration problems are skipped; steps with a bad regex or
// expression degrade the affected column to empty. Either way a warning is
// recorded and the remaining steps still run.
func ApplyPipeline(baseline *Table, p Pipeline) PipelineResult {
	t := baseline.Clone()
	if p.BaseColumns != nil {
		t.Columns = append([]string{}, p.BaseColumns...)
		pruneRows(t)
	}

	res := PipelineResult{Table: t, Warnings: []StepWarning{}}
	for i, s := range p.Steps {
		if !s.Enabled {
			continue
		}
		s = s.normalize()
		w := StepWarning{Step: i, Op: s.Op, Column: s.Column}

		if err := ValidateStep(s, t.Columns); err != nil {
			w.Kind, w.Message = WarningConfig, err.Error()
			res.Warnings = append(res.Warnings, w)
			continue
		}
		if err := catalog[s.Op].apply(t, s); err != nil {
			w.Kind, w.Message = WarningParse, err.Error()
			var ce *configError
			if errors.As(err, &ce) {
				w.Kind = WarningConfig
			}
			res.Warnings = append(res.Warnings, w)
		}
	}
	return res
}

// pruneRows drops cells whose key is not one of t's columns.
func pruneRows(t *Table) {
	keep := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		keep[c] = struct{}{}
	}
	for _, r := range t.Rows {
		for k := range r {
			if _, ok := keep[k]; !ok {
				delete(r, k)
			}
		}
	}
}

// ----------------------------------------------------------------------------
// Step catalog
// ----------------------------------------------------------------------------

// opSpec describes one catalog entry. apply mutates t in place; returning a
// configError means t was left untouched, a parseError means a column was
// degraded.
type opSpec struct {
	needsTarget bool
	required    []string
	added       func(s Step) []string
	apply       func(t *Table, s Step) error
}

func (o opSpec) newColumns(s Step) []string {
	if o.added == nil {
		return nil
	}
	return o.added(s)
}

var catalog = map[Op]opSpec{
	OpTrim:         {needsTarget: true, apply: mapNonNull(strings.TrimSpace)},
	OpUpper:        {needsTarget: true, apply: mapNonNull(strings.ToUpper)},
	OpLower:        {needsTarget: true, apply: mapNonNull(strings.ToLower)},
	OpTitle:        {needsTarget: true, apply: mapNonNull(TitleCase)},
	OpReplace:      {needsTarget: true, required: []string{ParamFind}, apply: applyReplace},
	OpCoerceNumber: {needsTarget: true, apply: applyCoerceNumber},
	OpCoerceDate:   {needsTarget: true, apply: applyCoerceDate},
	OpFillEmpty:    {needsTarget: true, apply: applyFillEmpty},
	OpSplit:        {needsTarget: true, required: []string{ParamDelim}, apply: applySplit},
	OpExtract: {
		needsTarget: true,
		required:    []string{ParamPattern},
		added:       func(s Step) []string { return []string{extractName(s)} },
		apply:       applyExtract,
	},
	OpDeleteCol: {needsTarget: true, apply: applyDeleteCol},
	OpRenameCol: {needsTarget: true, required: []string{ParamNewName}, apply: applyRenameCol},
	OpNewColCompute: {
		required: []string{ParamExpr},
		added:    func(s Step) []string { return []string{s.ParamOr(ParamNewName, "computed")} },
		apply:    applyCompute,
	},
	OpMergeCols: {
		required: []string{ParamCols},
		added:    func(s Step) []string { return []string{s.ParamOr(ParamNewName, "merged")} },
		apply:    applyMerge,
	},
	OpMathColConst: {needsTarget: true, required: []string{ParamConst}, apply: applyMathConst},
	OpMathTwoCols: {
		needsTarget: true,
		required:    []string{ParamOther},
		added:       func(s Step) []string { return []string{s.ParamOr(ParamNewName, s.Column)} },
		apply:       applyMathTwoCols,
	},
}

// appendColumn adds name to the registry if absent.
func (t *Table) appendColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// mapNonNull applies f to the text of every non-null cell in the target
// column. Numbers become strings.
func mapNonNull(f func(string) string) func(*Table, Step) error {
	return func(t *Table, s Step) error {
		for _, r := range t.Rows {
			v := r.Get(s.Column)
			if v.IsNull() {
				continue
			}
			r[s.Column] = Str(f(v.String()))
		}
		return nil
	}
}

var titleWord = regexp.MustCompile(`\w\S*`)

// TitleCase upper-cases the first character of every word and lower-cases
// the rest. A word starts at a letter, digit or underscore and runs to the
// next whitespace.
func TitleCase(s string) string {
	return titleWord.ReplaceAllStringFunc(s, func(w string) string {
		r, size := utf8.DecodeRuneInString(w)
		return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	})
}

func isTruthyParam(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "y", "on":
		return true
	}
	return false
}

func applyReplace(t *Table, s Step) error {
	find, repl := s.Param(ParamFind), s.Param(ParamReplace)
	if !isTruthyParam(s.Param(ParamRegex)) {
		for _, r := range t.Rows {
			r[s.Column] = Str(strings.ReplaceAll(r.Get(s.Column).String(), find, repl))
		}
		return nil
	}
	re, err := regexp.Compile(find)
	if err != nil {
		fillColumn(t, s.Column, Str(""))
		return parseErrorf("invalid regex %q: %v", find, err)
	}
	for _, r := range t.Rows {
		r[s.Column] = Str(re.ReplaceAllString(r.Get(s.Column).String(), repl))
	}
	return nil
}

func fillColumn(t *Table, col string, v Value) {
	for _, r := range t.Rows {
		r[col] = v
	}
}

func applyCoerceNumber(t *Table, s Step) error {
	for _, r := range t.Rows {
		if n, ok := ValidNumber(r.Get(s.Column)); ok {
			r[s.Column] = Num(n)
		} else {
			r[s.Column] = Str("")
		}
	}
	return nil
}

func applyCoerceDate(t *Table, s Step) error {
	for _, r := range t.Rows {
		if d, ok := ParseDateValue(r.Get(s.Column)); ok {
			r[s.Column] = Str(FormatISODate(d))
		} else {
			r[s.Column] = Str("")
		}
	}
	return nil
}

func applyFillEmpty(t *Table, s Step) error {
	fill := Str(s.Param(ParamFill))
	for _, r := range t.Rows {
		if r.Get(s.Column).IsEmpty() {
			r[s.Column] = fill
		}
	}
	return nil
}

// applySplit works in two passes: the first finds how many parts are needed
// and checks every generated name for collisions, the second writes cells.
func applySplit(t *Table, s Step) error {
	delim := s.Param(ParamDelim)
	base := s.ParamOr(ParamBase, s.Column+"_part")
	maxParts, _ := strconv.Atoi(strings.TrimSpace(s.Param(ParamMax)))

	split := make([][]string, len(t.Rows))
	width := 0
	for i, r := range t.Rows {
		parts := strings.Split(r.Get(s.Column).String(), delim)
		if maxParts > 0 && len(parts) > maxParts {
			parts = parts[:maxParts]
		}
		split[i] = parts
		if len(parts) > width {
			width = len(parts)
		}
	}

	names := make([]string, width)
	for i := range names {
		names[i] = base + "_" + strconv.Itoa(i+1)
		if t.HasColumn(names[i]) {
			return configErrorf("column %q already exists", names[i])
		}
	}
	for _, n := range names {
		t.appendColumn(n)
	}
	for i, r := range t.Rows {
		for j, p := range split[i] {
			r[names[j]] = Str(p)
		}
	}
	return nil
}

func extractName(s Step) string {
	return s.ParamOr(ParamNewName, s.Column+"_extracted")
}

func applyExtract(t *Table, s Step) error {
	name := extractName(s)
	t.appendColumn(name)
	re, err := regexp.Compile(s.Param(ParamPattern))
	if err != nil {
		fillColumn(t, name, Str(""))
		return parseErrorf("invalid regex %q: %v", s.Param(ParamPattern), err)
	}
	for _, r := range t.Rows {
		m := re.FindStringSubmatch(r.Get(s.Column).String())
		if len(m) > 1 {
			r[name] = Str(m[1])
		} else {
			r[name] = Str("")
		}
	}
	return nil
}

func applyDeleteCol(t *Table, s Step) error {
	t.Columns = removeString(t.Columns, s.Column)
	for _, r := range t.Rows {
		delete(r, s.Column)
	}
	return nil
}

func applyRenameCol(t *Table, s Step) error {
	name := s.Param(ParamNewName)
	if name == s.Column {
		return nil
	}
	for i, c := range t.Columns {
		if c == s.Column {
			t.Columns[i] = name
		}
	}
	for _, r := range t.Rows {
		if v, ok := r[s.Column]; ok {
			r[name] = v
			delete(r, s.Column)
		}
	}
	return nil
}

// rowEnv exposes a row's cells to the expression interpreter. Only
// registered columns and keys actually present in the row resolve.
type rowEnv struct {
	t   *Table
	row Row
}

func (e rowEnv) Lookup(name string) (any, bool) {
	if v, ok := e.row[name]; ok {
		return v.Any(), true
	}
	if e.t.HasColumn(name) {
		return nil, true
	}
	return nil, false
}

func applyCompute(t *Table, s Step) error {
	name := s.ParamOr(ParamNewName, "computed")
	prog, err := expr.Compile(s.Param(ParamExpr))
	t.appendColumn(name)
	if err != nil {
		fillColumn(t, name, Str(""))
		return parseErrorf("invalid expression: %v", err)
	}
	for _, r := range t.Rows {
		out, err := prog.Eval(rowEnv{t: t, row: r})
		if err != nil {
			r[name] = Str("")
			continue
		}
		r[name] = ValueOf(out)
	}
	return nil
}

func applyMerge(t *Table, s Step) error {
	cols := splitList(s.Param(ParamCols))
	name := s.ParamOr(ParamNewName, "merged")
	delim := s.Param(ParamDelim)
	t.appendColumn(name)
	parts := make([]string, len(cols))
	for _, r := range t.Rows {
		for i, c := range cols {
			parts[i] = r.Get(c).String()
		}
		r[name] = Str(strings.Join(parts, delim))
	}
	return nil
}

// doMath applies op; division by zero and non-finite results yield "".
func doMath(a, b float64, op string) Value {
	var n float64
	switch op {
	case "+":
		n = a + b
	case "-":
		n = a - b
	case "*":
		n = a * b
	case "/":
		if b == 0 {
			return Str("")
		}
		n = a / b
	}
	if !isFinite(n) {
		return Str("")
	}
	return Num(n)
}

func applyMathConst(t *Table, s Step) error {
	op := s.ParamOr(ParamOp, "+")
	k, _ := strconv.ParseFloat(strings.TrimSpace(s.Param(ParamConst)), 64)
	for _, r := range t.Rows {
		a, ok := ValidNumber(r.Get(s.Column))
		if !ok {
			r[s.Column] = Str("")
			continue
		}
		r[s.Column] = doMath(a, k, op)
	}
	return nil
}

func applyMathTwoCols(t *Table, s Step) error {
	op := s.ParamOr(ParamOp, "+")
	other := s.Param(ParamOther)
	name := s.ParamOr(ParamNewName, s.Column)
	t.appendColumn(name)
	for _, r := range t.Rows {
		a, aok := ValidNumber(r.Get(s.Column))
		b, bok := ValidNumber(r.Get(other))
		if !aok || !bok {
			r[name] = Str("")
			continue
		}
		r[name] = doMath(a, b, op)
	}
	return nil
}
