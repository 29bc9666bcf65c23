package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

// object is a decoded JSON object that remembers key order so columns
// follow the file.
type object struct {
	keys []string
	vals map[string]any
}

// parseJSON accepts an array of records, an object with a "data" array, or
// a single object. Nested objects are flattened with dotted keys; nested
// arrays are kept as JSON text. Scalar array elements become a "value"
// column.
func parseJSON(data []byte) (*core.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(stripBOM(data)))
	dec.UseNumber()

	root, err := decodeOrdered(dec)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid json: trailing data")
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case *object:
		if d, ok := v.vals["data"].([]any); ok {
			items = d
		} else {
			items = []any{v}
		}
	default:
		return nil, fmt.Errorf("invalid json: expected an array or object")
	}

	var cols []string
	seen := make(map[string]bool)
	rows := make([]core.Row, 0, len(items))
	for _, item := range items {
		flat := &object{vals: make(map[string]any)}
		if obj, ok := item.(*object); ok {
			flatten(obj, "", flat)
		} else {
			flat.keys = []string{"value"}
			flat.vals["value"] = item
		}

		row := make(core.Row, len(flat.keys))
		for _, k := range flat.keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
			row[k] = jsonCell(flat.vals[k])
		}
		rows = append(rows, row)
	}
	if len(cols) == 0 {
		return nil, ErrEmptyFile
	}
	return core.NewTable(cols, rows), nil
}

// KeyOrder returns the union of the top-level keys of a JSON array of
// objects in first-seen order. Non-object elements are ignored.
func KeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	root, err := decodeOrdered(dec)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	items, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid json: expected an array")
	}
	var cols []string
	seen := make(map[string]bool)
	for _, item := range items {
		obj, ok := item.(*object)
		if !ok {
			continue
		}
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols, nil
}

func flatten(obj *object, prefix string, out *object) {
	for _, k := range obj.keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := obj.vals[k].(*object); ok && len(nested.keys) > 0 {
			flatten(nested, key, out)
			continue
		}
		if _, dup := out.vals[key]; !dup {
			out.keys = append(out.keys, key)
		}
		out.vals[key] = obj.vals[k]
	}
}

func jsonCell(v any) core.Value {
	switch x := v.(type) {
	case []any, *object:
		b, err := json.Marshal(plain(x))
		if err != nil {
			return core.Str(fmt.Sprint(x))
		}
		return core.Str(string(b))
	default:
		return core.ValueOf(x)
	}
}

// plain converts ordered objects back to maps for re-encoding.
func plain(v any) any {
	switch x := v.(type) {
	case *object:
		m := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			m[k] = plain(x.vals[k])
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return x
	}
}

func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &object{vals: make(map[string]any)}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", kt)
				}
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.vals[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.vals[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return tok, nil
	}
}

// writeJSON writes the table as an array of objects with keys in column
// order.
func writeJSON(w io.Writer, t *core.Table) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  {")
		for j, c := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(c)
			if err != nil {
				return err
			}
			v, err := json.Marshal(row.Get(c))
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	if len(t.Rows) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
