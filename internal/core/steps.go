package core

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op names a step in the transformation catalog.
type Op string

const (
	OpTrim          Op = "trim"
	OpUpper         Op = "upper"
	OpLower         Op = "lower"
	OpTitle         Op = "title"
	OpReplace       Op = "replace"
	OpCoerceNumber  Op = "coerce_number"
	OpCoerceDate    Op = "coerce_date"
	OpFillEmpty     Op = "fill_empty"
	OpSplit         Op = "split"
	OpExtract       Op = "extract"
	OpDeleteCol     Op = "delete_col"
	OpRenameCol     Op = "rename_col"
	OpNewColCompute Op = "new_col_compute"
	OpMergeCols     Op = "merge_cols"
	OpMathColConst  Op = "math_col_const"
	OpMathTwoCols   Op = "math_two_cols"
)

// Step parameter keys.
const (
	ParamFind    = "find"
	ParamReplace = "replace"
	ParamRegex   = "regex"
	ParamFill    = "fill"
	ParamDelim   = "delim"
	ParamBase    = "base"
	ParamMax     = "max"
	ParamPattern = "pattern"
	ParamNewName = "new_name"
	ParamExpr    = "expr"
	ParamCols    = "cols"
	ParamOp      = "op"
	ParamConst   = "const"
	ParamOther   = "other"
)

// legacyParams maps the form-field parameter names found in older recipe
// files to the current keys.
var legacyParams = map[string]string{
	"p-find":    ParamFind,
	"p-repl":    ParamReplace,
	"p-regex":   ParamRegex,
	"p-fill":    ParamFill,
	"p-delim":   ParamDelim,
	"p-base":    ParamBase,
	"p-max":     ParamMax,
	"p-reg":     ParamPattern,
	"p-newname": ParamNewName,
	"p-expr":    ParamExpr,
	"p-cols":    ParamCols,
	"p-opr":     ParamOp,
	"p-const":   ParamConst,
	"p-col2":    ParamOther,
}

// Step is one declarative transformation. Column is the target column; ops
// that only create a column (new_col_compute, merge_cols) ignore it.
type Step struct {
	Op      Op                `json:"op" yaml:"op"`
	Column  string            `json:"col" yaml:"col,omitempty"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Enabled bool              `json:"enabled" yaml:"enabled"`
}

// NewStep returns an enabled step.
func NewStep(op Op, col string, params map[string]string) Step {
	return Step{Op: op, Column: col, Params: params, Enabled: true}
}

// Param returns the named parameter, or "" when unset.
func (s Step) Param(key string) string {
	return s.Params[key]
}

// ParamOr returns the named parameter, or def when unset or blank.
func (s Step) ParamOr(key, def string) string {
	if v := s.Params[key]; v != "" {
		return v
	}
	return def
}

// HasParam reports whether key is set to a non-empty value. Whitespace
// counts, since " " is a valid delimiter.
func (s Step) HasParam(key string) bool {
	return s.Params[key] != ""
}

// Clone returns a deep copy.
func (s Step) Clone() Step {
	out := s
	if s.Params != nil {
		out.Params = make(map[string]string, len(s.Params))
		for k, v := range s.Params {
			out.Params[k] = v
		}
	}
	return out
}

// normalize lowercases the op and rewrites legacy parameter names.
func (s Step) normalize() Step {
	s.Op = Op(strings.ToLower(strings.TrimSpace(string(s.Op))))
	if len(s.Params) == 0 {
		return s
	}
	params := make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		if nk, ok := legacyParams[k]; ok {
			k = nk
		}
		params[k] = v
	}
	s.Params = params
	return s
}

// stepWire is the serialized form; Enabled is a pointer so an absent field
// decodes as enabled.
type stepWire struct {
	Op      Op                `json:"op" yaml:"op"`
	Column  string            `json:"col" yaml:"col"`
	Params  map[string]string `json:"params" yaml:"params"`
	Enabled *bool             `json:"enabled" yaml:"enabled"`
}

func (w stepWire) step() Step {
	s := Step{Op: w.Op, Column: w.Column, Params: w.Params, Enabled: true}
	if w.Enabled != nil {
		s.Enabled = *w.Enabled
	}
	return s.normalize()
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = w.step()
	return nil
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var w stepWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	*s = w.step()
	return nil
}

// Pipeline is an ordered list of steps applied on top of a base column list.
type Pipeline struct {
	BaseColumns []string `json:"columns" yaml:"columns"`
	Steps       []Step   `json:"pipeline" yaml:"pipeline"`
}

// Clone returns a deep copy.
func (p Pipeline) Clone() Pipeline {
	out := Pipeline{}
	if p.BaseColumns != nil {
		out.BaseColumns = append([]string(nil), p.BaseColumns...)
	}
	if p.Steps != nil {
		out.Steps = make([]Step, len(p.Steps))
		for i, s := range p.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	return out
}

// EnabledCount returns the number of enabled steps.
func (p Pipeline) EnabledCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.Enabled {
			n++
		}
	}
	return n
}
