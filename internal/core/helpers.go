package core

import (
	"sort"
	"strconv"
	"strings"
)

// keySeparator joins composite key parts. U+241F (SYMBOL FOR UNIT SEPARATOR)
// does not occur in ordinary ledger data.
const keySeparator = "␟"

// sortedKeys returns the keys of a row in lexical order.
func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compositeKey joins the rendered values of cols with keySeparator.
func compositeKey(r Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = r.Get(c).String()
	}
	return strings.Join(parts, keySeparator)
}

// splitKey reverses compositeKey.
func splitKey(k string) []string {
	return strings.Split(k, keySeparator)
}

// UniqueColumnNames returns names with blanks replaced by "column_N" and
// repeats suffixed "_2", "_3", ... so that every name is unique.
func UniqueColumnNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			n = "column_" + strconv.Itoa(i+1)
		}
		name := n
		for k := 2; used[name]; k++ {
			name = n + "_" + strconv.Itoa(k)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// removeString returns s without any element equal to v.
func removeString(s []string, v string) []string {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// splitList parses a comma-separated parameter, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
