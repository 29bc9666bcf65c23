package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ============================================================================
// Format detection
// ============================================================================

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{".CSV", FormatCSV},
		{"txt", FormatCSV},
		{"text/csv; charset=utf-8", FormatCSV},
		{"xlsx", FormatXLSX},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX},
		{".json", FormatJSON},
		{"application/json", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("parquet")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = DetectFormat("noext")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// ============================================================================
// CSV
// ============================================================================

func TestReadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFaccount,amount,,amount\n" +
		"00123,100.50,x,1\n" +
		"\n" +
		"4000,-20,,2\n" +
		"5000\n"

	tbl, err := Read(strings.NewReader(input), FormatCSV, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"account", "amount", "column_3", "amount_2"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3, "blank lines are skipped")

	first := tbl.Rows[0]
	assert.Equal(t, core.Str("00123"), first["account"], "leading zeros keep the string")
	assert.Equal(t, core.Num(100.5), first["amount"])
	assert.Equal(t, core.Num(1), first["amount_2"])

	second := tbl.Rows[1]
	assert.Equal(t, core.Num(4000), second["account"])
	assert.True(t, second["column_3"].IsNull(), "empty cell is null")

	third := tbl.Rows[2]
	assert.True(t, third["amount"].IsNull(), "short record is padded")
}

func TestReadCSV_Raw(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\n1,x\n"), FormatCSV, Options{Raw: true})
	require.NoError(t, err)
	assert.Equal(t, core.Str("1"), tbl.Rows[0]["a"])
}

func TestReadCSV_InvalidUTF8(t *testing.T) {
	input := []byte("name\nab\xffc\n")
	tbl, err := Read(bytes.NewReader(input), FormatCSV, Options{})
	require.NoError(t, err)
	assert.Equal(t, core.Str("ab\uFFFDc"), tbl.Rows[0]["name"])
}

func TestRead_Limits(t *testing.T) {
	_, err := Read(strings.NewReader(""), FormatCSV, Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Read(strings.NewReader("a,b\n1,2\n"), FormatCSV, Options{MaxBytes: 4})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = Read(strings.NewReader("\n\n"), FormatCSV, Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestWriteCSV(t *testing.T) {
	tbl := core.NewTable([]string{"a", "b"}, []core.Row{
		{"a": core.Str("x,y"), "b": core.Num(1.5)},
		{"a": core.Null(), "b": core.Num(2)},
	})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, FormatCSV, Options{BOM: true}))

	assert.Equal(t, "\xEF\xBB\xBFa,b\n\"x,y\",1.5\n,2\n", buf.String())
}

// ============================================================================
// XLSX
// ============================================================================

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "account")
	f.SetCellValue("Sheet1", "B1", "amount")
	f.SetCellValue("Sheet1", "A2", "1000")
	f.SetCellValue("Sheet1", "B2", 250.25)
	f.SetCellValue("Sheet1", "A3", "2000")

	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	f.SetCellValue("Other", "A1", "only")
	f.SetCellValue("Other", "A2", "x")

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	data := buf.Bytes()

	tbl, err := Read(bytes.NewReader(data), FormatXLSX, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"account", "amount"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, core.Num(1000), tbl.Rows[0]["account"])
	assert.Equal(t, core.Num(250.25), tbl.Rows[0]["amount"])
	assert.True(t, tbl.Rows[1]["amount"].IsNull())

	other, err := Read(bytes.NewReader(data), FormatXLSX, Options{Sheet: "Other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, other.Columns)

	_, err = Read(bytes.NewReader(data), FormatXLSX, Options{Sheet: "Missing"})
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestXLSXRoundTrip(t *testing.T) {
	tbl := core.NewTable([]string{"name", "amount"}, []core.Row{
		{"name": core.Str("alpha"), "amount": core.Num(10)},
		{"name": core.Str("beta"), "amount": core.Null()},
	})

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(path, tbl, Options{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	require.NoError(t, f.Close())

	back, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(back), "got %v", back.Records())
}

// ============================================================================
// JSON
// ============================================================================

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		columns []string
		rows    int
	}{
		{
			name:    "array of records",
			input:   `[{"b":1,"a":"x"},{"a":"y","c":true}]`,
			columns: []string{"b", "a", "c"},
			rows:    2,
		},
		{
			name:    "data wrapper",
			input:   `{"data":[{"id":1},{"id":2}],"meta":{}}`,
			columns: []string{"id"},
			rows:    2,
		},
		{
			name:    "single object flattened",
			input:   `{"id":7,"entity":{"code":"US1","name":"Corp"},"tags":["a","b"]}`,
			columns: []string{"id", "entity.code", "entity.name", "tags"},
			rows:    1,
		},
		{
			name:    "scalar array",
			input:   `[1,2,3]`,
			columns: []string{"value"},
			rows:    3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Read(strings.NewReader(tt.input), FormatJSON, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.columns, tbl.Columns)
			assert.Len(t, tbl.Rows, tt.rows)
		})
	}
}

func TestReadJSON_Cells(t *testing.T) {
	tbl, err := Read(strings.NewReader(`[{"n":1.5,"s":"x","b":false,"z":null,"arr":[1,{"k":2}]}]`), FormatJSON, Options{})
	require.NoError(t, err)

	row := tbl.Rows[0]
	assert.Equal(t, core.Num(1.5), row["n"])
	assert.Equal(t, core.Str("x"), row["s"])
	assert.Equal(t, core.Str("false"), row["b"])
	assert.True(t, row["z"].IsNull())
	assert.Equal(t, core.Str(`[1,{"k":2}]`), row["arr"])
}

func TestReadJSON_Invalid(t *testing.T) {
	for _, in := range []string{`{"a":`, `"text"`, `[1] [2]`} {
		_, err := Read(strings.NewReader(in), FormatJSON, Options{})
		assert.Error(t, err, in)
	}

	_, err := Read(strings.NewReader(`[]`), FormatJSON, Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestKeyOrder(t *testing.T) {
	cols, err := KeyOrder([]byte(`[{"z":1,"a":2},7,{"m":null,"a":3}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, cols)

	_, err = KeyOrder([]byte(`{"z":1}`))
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	tbl := core.NewTable([]string{"z", "a"}, []core.Row{
		{"z": core.Num(1), "a": core.Null()},
	})
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, FormatJSON, Options{}))
	assert.Equal(t, "[\n  {\"z\":1,\"a\":null}\n]\n", buf.String())

	back, err := Read(&buf, FormatJSON, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, back.Columns)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gl.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))

	tbl, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, err = ReadFile(filepath.Join(dir, "gl.parquet"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
