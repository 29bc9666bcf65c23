package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Kind identifies the scalar type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// Value is a single table cell: null, a string, or a number.
// The zero value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Num wraps a number.
func Num(n float64) Value { return Value{kind: KindNumber, n: n} }

// ValueOf converts a decoded scalar (as produced by encoding/json or a file
// decoder) into a Value. Unknown types are rendered with fmt.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return Str(x)
	case float64:
		return Num(x)
	case float32:
		return Num(float64(x))
	case int:
		return Num(float64(x))
	case int64:
		return Num(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Num(f)
		}
		return Str(x.String())
	case bool:
		return Str(strconv.FormatBool(x))
	default:
		return Str(fmt.Sprint(x))
	}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsEmpty reports whether the cell is null or an empty string.
func (v Value) IsEmpty() bool {
	return v.kind == KindNull || (v.kind == KindString && v.s == "")
}

// Number returns the raw number for numeric values.
func (v Value) Number() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// String renders the cell as text. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return FormatNumber(v.n)
	default:
		return ""
	}
}

// Any returns the value as a plain Go scalar (nil, string or float64).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return json.Marshal(v.n)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Str(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Str(strconv.FormatBool(b))
	case '{', '[':
		*v = Str(string(data))
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid cell value %s: %w", data, err)
		}
		*v = Num(n)
	}
	return nil
}

// Row maps column name to cell. Absent keys read as null.
type Row map[string]Value

// Get returns the cell for col, or null when the key is absent.
func (r Row) Get(col string) Value {
	return r[col]
}

// Clone returns a shallow copy; Values are immutable so this is a deep copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is the in-memory data model: ordered unique columns plus ordered rows.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable builds a table. Duplicate column names are dropped, keeping the
// first occurrence.
func NewTable(columns []string, rows []Row) *Table {
	seen := make(map[string]bool, len(columns))
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if seen[c] {
			continue
		}
		seen[c] = true
		cols = append(cols, c)
	}
	if rows == nil {
		rows = []Row{}
	}
	return &Table{Columns: cols, Rows: rows}
}

// InferColumns returns the union of row keys in first-seen order. Keys within
// one row are visited in sorted order since map iteration is unordered.
func InferColumns(rows []Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for _, k := range sortedKeys(r) {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{Columns: []string{}, Rows: []Row{}}
	}
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Clone()
	}
	return &Table{Columns: cols, Rows: rows}
}

// HasColumn reports whether name is in the column registry.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Equal reports whether both tables have the same columns in the same order
// and the same cells in every row.
func (t *Table) Equal(o *Table) bool {
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		a, b := t.Rows[i], o.Rows[i]
		if len(a) != len(b) {
			return false
		}
		for k, v := range a {
			w, ok := b[k]
			if !ok || v != w {
				return false
			}
		}
	}
	return true
}

// Records renders the table as string records in column order, header first.
// Used by exporters.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	header := make([]string, len(t.Columns))
	copy(header, t.Columns)
	out = append(out, header)
	for _, r := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = r.Get(c).String()
		}
		out = append(out, rec)
	}
	return out
}
