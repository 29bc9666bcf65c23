// Package expr implements the restricted expression language used by
// computed columns.
//
// Expressions reference row fields by name (price, [Unit Price], meta.id),
// combine them with arithmetic, string concatenation and comparisons, and
// call a fixed set of pure functions. There is no assignment, no loops and
// no access to anything outside the row, so evaluating untrusted input is
// safe.
//
//	price * qty
//	upper(first) & " " & upper(last)
//	if(amount < 0, "credit", "debit")
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxSourceLength bounds the size of an expression.
const MaxSourceLength = 4096

var (
	ErrSyntax       = errors.New("expression syntax error")
	ErrUnknownFunc  = errors.New("unknown function")
	ErrArity        = errors.New("wrong number of arguments")
	ErrUnknownField = errors.New("unknown field")
	ErrType         = errors.New("type mismatch")
	ErrDivByZero    = errors.New("division by zero")
)

// Env resolves field names during evaluation. Values are nil, string,
// float64 or bool.
type Env interface {
	Lookup(name string) (any, bool)
}

// MapEnv is an Env backed by a map.
type MapEnv map[string]any

func (m MapEnv) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Program is a compiled expression. It is immutable and safe for concurrent
// use.
type Program struct {
	src  string
	root node
}

// Compile parses src. Syntax errors, unknown functions and wrong argument
// counts are reported here rather than per row.
func Compile(src string) (*Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	if len(src) > MaxSourceLength {
		return nil, fmt.Errorf("%w: expression longer than %d bytes", ErrSyntax, MaxSourceLength)
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
	return &Program{src: src, root: root}, nil
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.src }

// Eval evaluates the program against env.
func (p *Program) Eval(env Env) (any, error) {
	return p.root.eval(env)
}

// Fields returns the distinct field names referenced by the program.
func (p *Program) Fields() []string {
	var out []string
	seen := map[string]bool{}
	var walk func(n node)
	walk = func(n node) {
		switch x := n.(type) {
		case fieldRef:
			if !seen[x.name] {
				seen[x.name] = true
				out = append(out, x.name)
			}
		case unary:
			walk(x.x)
		case binary:
			walk(x.l)
			walk(x.r)
		case call:
			for _, a := range x.args {
				walk(a)
			}
		}
	}
	walk(p.root)
	return out
}

func (l literal) eval(Env) (any, error) { return l.v, nil }

func (f fieldRef) eval(env Env) (any, error) {
	v, ok := env.Lookup(f.name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, f.name)
	}
	return v, nil
}

func (u unary) eval(env Env) (any, error) {
	v, err := u.x.eval(env)
	if err != nil {
		return nil, err
	}
	switch u.op {
	case "!":
		return !truthy(v), nil
	case "-":
		n, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: cannot negate %v", ErrType, v)
		}
		return -n, nil
	default:
		n, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a number", ErrType, v)
		}
		return n, nil
	}
}

func (b binary) eval(env Env) (any, error) {
	l, err := b.l.eval(env)
	if err != nil {
		return nil, err
	}
	switch b.op {
	case "&&":
		if !truthy(l) {
			return false, nil
		}
		r, err := b.r.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	case "||":
		if truthy(l) {
			return true, nil
		}
		r, err := b.r.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	r, err := b.r.eval(env)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "&":
		return toString(l) + toString(r), nil
	case "+":
		ln, lok := toNumber(l)
		rn, rok := toNumber(r)
		if lok && rok {
			return checkFinite(ln + rn)
		}
		return toString(l) + toString(r), nil
	case "-", "*", "/", "%":
		ln, lok := toNumber(l)
		rn, rok := toNumber(r)
		if !lok || !rok {
			return nil, fmt.Errorf("%w: %q needs numbers", ErrType, b.op)
		}
		return arith(b.op, ln, rn)
	default:
		return compare(b.op, l, r), nil
	}
}

func (c call) eval(env Env) (any, error) {
	args := make([]any, len(c.args))
	for i, a := range c.args {
		v, err := a.eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return c.fn.fn(args)
}

func arith(op string, a, b float64) (any, error) {
	switch op {
	case "-":
		return checkFinite(a - b)
	case "*":
		return checkFinite(a * b)
	case "/":
		if b == 0 {
			return nil, ErrDivByZero
		}
		return checkFinite(a / b)
	default:
		if b == 0 {
			return nil, ErrDivByZero
		}
		return checkFinite(math.Mod(a, b))
	}
}

func checkFinite(n float64) (any, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%w: result is not finite", ErrType)
	}
	return n, nil
}

func compare(op string, l, r any) bool {
	var c int
	ln, lok := toNumber(l)
	rn, rok := toNumber(r)
	if lok && rok {
		switch {
		case ln < rn:
			c = -1
		case ln > rn:
			c = 1
		}
	} else {
		c = strings.Compare(toString(l), toString(r))
	}
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

// toNumber converts numbers, numeric strings and bools. Strings may carry
// thousands separators and surrounding whitespace.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
