package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type builtin struct {
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(args []any) (any, error)
}

func (b builtin) arity() string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d argument(s)", b.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
	}
}

var builtins = map[string]builtin{
	"upper": {1, 1, func(a []any) (any, error) { return strings.ToUpper(toString(a[0])), nil }},
	"lower": {1, 1, func(a []any) (any, error) { return strings.ToLower(toString(a[0])), nil }},
	"trim":  {1, 1, func(a []any) (any, error) { return strings.TrimSpace(toString(a[0])), nil }},
	"len":   {1, 1, func(a []any) (any, error) { return float64(utf8.RuneCountInString(toString(a[0]))), nil }},
	"str":   {1, 1, func(a []any) (any, error) { return toString(a[0]), nil }},
	"concat": {0, -1, func(a []any) (any, error) {
		var b strings.Builder
		for _, v := range a {
			b.WriteString(toString(v))
		}
		return b.String(), nil
	}},
	"substr": {2, 3, builtinSubstr},
	"replace": {3, 3, func(a []any) (any, error) {
		return strings.ReplaceAll(toString(a[0]), toString(a[1]), toString(a[2])), nil
	}},
	"contains": {2, 2, func(a []any) (any, error) {
		return strings.Contains(toString(a[0]), toString(a[1])), nil
	}},
	"num": {1, 1, func(a []any) (any, error) {
		n, ok := toNumber(a[0])
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a number", ErrType, toString(a[0]))
		}
		return n, nil
	}},
	"abs":   {1, 1, numeric1(math.Abs)},
	"floor": {1, 1, numeric1(math.Floor)},
	"ceil":  {1, 1, numeric1(math.Ceil)},
	"round": {1, 2, builtinRound},
	"min":   {1, -1, extremum(func(a, b float64) bool { return a < b })},
	"max":   {1, -1, extremum(func(a, b float64) bool { return a > b })},
	"coalesce": {1, -1, func(a []any) (any, error) {
		for _, v := range a {
			if v != nil && toString(v) != "" {
				return v, nil
			}
		}
		return nil, nil
	}},
	"if": {3, 3, func(a []any) (any, error) {
		if truthy(a[0]) {
			return a[1], nil
		}
		return a[2], nil
	}},
}

func numeric1(f func(float64) float64) func([]any) (any, error) {
	return func(a []any) (any, error) {
		n, ok := toNumber(a[0])
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a number", ErrType, toString(a[0]))
		}
		return f(n), nil
	}
}

func extremum(better func(a, b float64) bool) func([]any) (any, error) {
	return func(a []any) (any, error) {
		var best float64
		for i, v := range a {
			n, ok := toNumber(v)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a number", ErrType, toString(v))
			}
			if i == 0 || better(n, best) {
				best = n
			}
		}
		return best, nil
	}
}

func builtinRound(a []any) (any, error) {
	n, ok := toNumber(a[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a number", ErrType, toString(a[0]))
	}
	places := 0.0
	if len(a) == 2 {
		p, ok := toNumber(a[1])
		if !ok || p < 0 || p > 15 {
			return nil, fmt.Errorf("%w: round places must be 0-15", ErrType)
		}
		places = math.Trunc(p)
	}
	scale := math.Pow(10, places)
	r, _ := strconv.ParseFloat(strconv.FormatFloat(math.Round(n*scale)/scale, 'f', int(places), 64), 64)
	return r, nil
}

// builtinSubstr takes a 0-based rune start and optional length; out of range
// bounds are clamped.
func builtinSubstr(a []any) (any, error) {
	rs := []rune(toString(a[0]))
	start, ok := toNumber(a[1])
	if !ok {
		return nil, fmt.Errorf("%w: substr start must be a number", ErrType)
	}
	s := clamp(int(start), 0, len(rs))
	e := len(rs)
	if len(a) == 3 {
		n, ok := toNumber(a[2])
		if !ok {
			return nil, fmt.Errorf("%w: substr length must be a number", ErrType)
		}
		e = clamp(s+int(n), s, len(rs))
	}
	return string(rs[s:e]), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
