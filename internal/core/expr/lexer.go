package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokField // [bracketed column name]
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits src into tokens. It never evaluates anything.
func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, string(rs[start:i]), start})

		case r == '"' || r == '\'':
			start := i
			quote := r
			i++
			var b strings.Builder
			closed := false
			for i < len(rs) {
				c := rs[i]
				if c == '\\' && i+1 < len(rs) {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if c == quote {
					closed = true
					i++
					break
				}
				b.WriteRune(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
			}
			toks = append(toks, token{tokString, b.String(), start})

		case r == '[':
			start := i
			end := -1
			for j := i + 1; j < len(rs); j++ {
				if rs[j] == ']' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated field reference at %d", ErrSyntax, start)
			}
			toks = append(toks, token{tokField, string(rs[i+1 : end]), start})
			i = end + 1

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_' || rs[i] == '.') {
				i++
			}
			toks = append(toks, token{tokIdent, string(rs[start:i]), start})

		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++

		default:
			if i+1 < len(rs) {
				two := string(rs[i : i+2])
				switch two {
				case "==", "!=", "<=", ">=", "&&", "||", "<>":
					if two == "<>" {
						two = "!="
					}
					toks = append(toks, token{tokOp, two, i})
					i += 2
					continue
				}
			}
			if strings.ContainsRune("+-*/%&<>!=", r) {
				op := string(r)
				if op == "=" {
					op = "=="
				}
				toks = append(toks, token{tokOp, op, i})
				i++
				continue
			}
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, r, i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(rs)})
	return toks, nil
}
