package core

import (
	"fmt"
	"sort"
	"sync"
)

// FieldSpec describes one expected column of a profile.
type FieldSpec struct {
	Name     string     `json:"name"`
	Role     ColumnRole `json:"role"`
	Required bool       `json:"required"`
}

// Profile describes a known dataset shape (for example a GL detail export):
// the columns it must carry, which columns form its unique key, a preset
// cleaning pipeline and the reconciliation mapping.
type Profile struct {
	Key         string           `json:"key"`   // Unique identifier: "gl_detail"
	Group       string           `json:"group"` // "GL", "TB"
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Fields      []FieldSpec      `json:"fields"`
	UniqueKey   []string         `json:"unique_key,omitempty"`
	Preset      []Step           `json:"preset,omitempty"`
	Reconcile   ReconcileColumns `json:"reconcile"`
}

// RequiredColumns returns the names of required fields in declaration order.
func (p Profile) RequiredColumns() []string {
	var out []string
	for _, f := range p.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// ScanConfig derives a scanner configuration from the field roles.
func (p Profile) ScanConfig() ScanConfig {
	cfg := DefaultScanConfig()
	cfg.KeyColumns = append([]string{}, p.UniqueKey...)
	for _, f := range p.Fields {
		switch f.Role {
		case RoleNumeric:
			cfg.NumericColumns = append(cfg.NumericColumns, f.Name)
		case RoleDate:
			cfg.DateColumns = append(cfg.DateColumns, f.Name)
		}
	}
	return cfg
}

// PresetRecipe returns the preset steps as a recipe with no base columns.
func (p Profile) PresetRecipe() Recipe {
	steps := make([]Step, len(p.Preset))
	for i, s := range p.Preset {
		steps[i] = s.Clone()
	}
	return Recipe{Name: p.Label, Columns: []string{}, Steps: steps}
}

var (
	registry   = make(map[string]Profile)
	registryMu sync.RWMutex
)

// Register adds a profile to the registry.
// Panics if a profile with the same key is already registered.
func Register(p Profile) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.Key]; exists {
		panic(fmt.Sprintf("profile already registered: %s", p.Key))
	}
	registry[p.Key] = p
}

// Get returns a profile by key.
// Returns false if not found.
func Get(key string) (Profile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[key]
	return p, ok
}

// All returns all registered profiles.
// Sorted by group then by key for consistent ordering.
func All() []Profile {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Profile, 0, len(registry))
	for _, p := range registry {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// ByGroup returns all profiles for a specific group, sorted by key.
func ByGroup(group string) []Profile {
	var result []Profile
	for _, p := range All() {
		if p.Group == group {
			result = append(result, p)
		}
	}
	return result
}

// ProfileCount returns the number of registered profiles.
func ProfileCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered profiles.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Profile)
}

// Readiness reports which required columns a table carries.
type Readiness struct {
	Ready   bool     `json:"ready"`
	Present []string `json:"present"`
	Missing []string `json:"missing"`
}

// CheckReadiness matches required names against columns, ignoring case and
// treating spaces, dashes and dots as underscores.
func CheckReadiness(columns, required []string) Readiness {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[normalizeName(c)] = true
	}
	r := Readiness{Present: []string{}, Missing: []string{}}
	for _, req := range required {
		if have[normalizeName(req)] {
			r.Present = append(r.Present, req)
		} else {
			r.Missing = append(r.Missing, req)
		}
	}
	r.Ready = len(r.Missing) == 0
	return r
}
