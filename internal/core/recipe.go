package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Recipe is the portable form of a pipeline: the base column list and the
// steps, without any data.
type Recipe struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Columns   []string  `json:"columns" yaml:"columns"`
	Steps     []Step    `json:"pipeline" yaml:"pipeline"`
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// RecipeFormat selects a serialization.
type RecipeFormat string

const (
	FormatJSON RecipeFormat = "json"
	FormatYAML RecipeFormat = "yaml"
)

// ParseRecipeFormat maps a file extension, MIME type or name to a format.
func ParseRecipeFormat(s string) (RecipeFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || strings.Contains(s, "json"):
		return FormatJSON, nil
	case strings.Contains(s, "yaml") || strings.Contains(s, "yml"):
		return FormatYAML, nil
	}
	return "", fmt.Errorf("recipe format %q: %w", s, ErrInvalidRecipe)
}

// RecipeFromPipeline captures p as a recipe.
func RecipeFromPipeline(p Pipeline) Recipe {
	c := p.Clone()
	r := Recipe{Columns: c.BaseColumns, Steps: c.Steps}
	if r.Columns == nil {
		r.Columns = []string{}
	}
	if r.Steps == nil {
		r.Steps = []Step{}
	}
	return r
}

// Pipeline returns the recipe as a pipeline. An empty column list yields nil
// BaseColumns.
func (r Recipe) Pipeline() Pipeline {
	p := Pipeline{Steps: make([]Step, len(r.Steps))}
	for i, s := range r.Steps {
		p.Steps[i] = s.Clone().normalize()
	}
	if len(r.Columns) > 0 {
		p.BaseColumns = append([]string{}, r.Columns...)
	}
	return p
}

// Validate returns a warning for every step whose operation is not in the
// catalog. Such steps are kept and skipped at run time.
func (r Recipe) Validate() []StepWarning {
	var out []StepWarning
	for i, s := range r.Steps {
		if !KnownOp(s.Op) {
			out = append(out, StepWarning{
				Step: i, Op: s.Op, Column: s.Column, Kind: WarningConfig,
				Message: fmt.Sprintf("unknown operation %q", s.Op),
			})
		}
	}
	return out
}

// Encode serializes r in the given format.
func (r Recipe) Encode(format RecipeFormat) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("encode recipe yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode recipe yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode recipe json: %w", err)
		}
		return b, nil
	}
}

// DecodeRecipe parses a recipe in the given format. Legacy parameter names
// are rewritten and steps without an "enabled" field are enabled.
func DecodeRecipe(data []byte, format RecipeFormat) (Recipe, error) {
	var r Recipe
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return Recipe{}, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	if r.Columns == nil {
		r.Columns = []string{}
	}
	if r.Steps == nil {
		r.Steps = []Step{}
	}
	return r, nil
}

// DetectRecipe decodes data as JSON when it starts with '{', otherwise as
// YAML.
func DetectRecipe(data []byte) (Recipe, error) {
	if t := bytes.TrimSpace(data); len(t) > 0 && t[0] == '{' {
		return DecodeRecipe(data, FormatJSON)
	}
	return DecodeRecipe(data, FormatYAML)
}
