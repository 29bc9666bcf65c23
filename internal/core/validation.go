package core

// validation.go checks a step's configuration against the column registry
// before the step touches any row.
//
// Problems are reported at two levels:
//  1. Config: unknown op, missing parameter, missing column, name collision.
//     The step is skipped.
//  2. Parse: a bad regex or expression found while running the step. The
//     affected column degrades to empty and the pipeline continues.

import (
	"fmt"
	"strconv"
	"strings"
)

// WarningKind classifies a StepWarning.
type WarningKind string

const (
	WarningConfig WarningKind = "config"
	WarningParse  WarningKind = "parse"
)

// StepWarning records a skipped or degraded step.
type StepWarning struct {
	Step    int         `json:"step"` // index into Pipeline.Steps
	Op      Op          `json:"op"`
	Column  string      `json:"col,omitempty"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w StepWarning) Error() string {
	if w.Column != "" {
		return fmt.Sprintf("step %d (%s on %s): %s", w.Step+1, w.Op, w.Column, w.Message)
	}
	return fmt.Sprintf("step %d (%s): %s", w.Step+1, w.Op, w.Message)
}

// configError is returned by step validation and step functions to skip a
// step. parseError marks a degraded column.
type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

func configErrorf(format string, args ...any) error {
	return &configError{msg: fmt.Sprintf(format, args...)}
}

func parseErrorf(format string, args ...any) error {
	return &parseError{msg: fmt.Sprintf(format, args...)}
}

// mathOps is the operator set shared by math_col_const and math_two_cols.
var mathOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}

// ValidateStep reports the configuration problem that would cause s to be
// skipped when applied to a table with the given columns, or nil.
func ValidateStep(s Step, columns []string) error {
	s = s.normalize()
	spec, ok := catalog[s.Op]
	if !ok {
		return configErrorf("unknown operation %q", s.Op)
	}
	t := &Table{Columns: columns}

	if spec.needsTarget {
		if s.Column == "" {
			return configErrorf("missing target column")
		}
		if !t.HasColumn(s.Column) {
			return configErrorf("column %q does not exist", s.Column)
		}
	}
	for _, p := range spec.required {
		if !s.HasParam(p) {
			return configErrorf("missing required parameter %q", p)
		}
	}

	switch s.Op {
	case OpSplit:
		if v := s.Param(ParamMax); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err != nil || n < 0 {
				return configErrorf("invalid %s %q", ParamMax, v)
			}
		}
	case OpMathColConst:
		if !mathOps[s.ParamOr(ParamOp, "+")] {
			return configErrorf("invalid operator %q", s.Param(ParamOp))
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(s.Param(ParamConst)), 64); err != nil {
			return configErrorf("invalid constant %q", s.Param(ParamConst))
		}
	case OpMathTwoCols:
		if !mathOps[s.ParamOr(ParamOp, "+")] {
			return configErrorf("invalid operator %q", s.Param(ParamOp))
		}
		if !t.HasColumn(s.Param(ParamOther)) {
			return configErrorf("column %q does not exist", s.Param(ParamOther))
		}
	case OpRenameCol:
		name := s.Param(ParamNewName)
		if name != s.Column && t.HasColumn(name) {
			return configErrorf("rename collision: column %q already exists", name)
		}
	case OpMergeCols:
		if len(splitList(s.Param(ParamCols))) == 0 {
			return configErrorf("missing required parameter %q", ParamCols)
		}
	}

	for _, name := range spec.newColumns(s) {
		if s.Op == OpMathTwoCols && name == s.Column {
			continue
		}
		if t.HasColumn(name) {
			return configErrorf("column %q already exists", name)
		}
	}
	return nil
}

// KnownOp reports whether op is in the catalog.
func KnownOp(op Op) bool {
	_, ok := catalog[Op(strings.ToLower(string(op)))]
	return ok
}

// Ops returns the catalog's operation names in declaration order.
func Ops() []Op {
	return []Op{
		OpTrim, OpUpper, OpLower, OpTitle, OpReplace, OpCoerceNumber, OpCoerceDate,
		OpFillEmpty, OpSplit, OpExtract, OpDeleteCol, OpRenameCol, OpNewColCompute,
		OpMergeCols, OpMathColConst, OpMathTwoCols,
	}
}
