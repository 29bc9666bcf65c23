package core

// preview.go builds read-only views of a table for display: paging and
// free-text search. Views copy the rows they return and never modify the
// session state.

import "strings"

// Page size limits.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// Page is one window of a table or of a filtered subset of it.
type Page struct {
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalRows  int      `json:"total_rows"`
	TotalPages int      `json:"total_pages"`
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
	// Indexes holds the position of each returned row in the full table,
	// so edits from a filtered view target the right row.
	Indexes []int `json:"indexes"`
}

// Filter returns the indexes of rows where any registered column contains
// query, case-insensitively. An empty query matches every row.
func Filter(t *Table, query string) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]int, 0, len(t.Rows))
	for i, r := range t.Rows {
		if q == "" || rowContains(t, r, q) {
			out = append(out, i)
		}
	}
	return out
}

func rowContains(t *Table, r Row, q string) bool {
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(r.Get(c).String()), q) {
			return true
		}
	}
	return false
}

// PageOf returns page (1-based) of size rows. When idx is nil all rows are
// paged, otherwise only the listed row indexes. Out-of-range pages are
// clamped to the nearest valid page.
func PageOf(t *Table, idx []int, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if idx == nil {
		idx = make([]int, len(t.Rows))
		for i := range idx {
			idx[i] = i
		}
	}

	total := len(idx)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	p := Page{
		Page:       page,
		PageSize:   size,
		TotalRows:  total,
		TotalPages: pages,
		Columns:    append([]string{}, t.Columns...),
		Rows:       make([]Row, 0, end-start),
		Indexes:    make([]int, 0, end-start),
	}
	for _, i := range idx[start:end] {
		p.Rows = append(p.Rows, t.Rows[i].Clone())
		p.Indexes = append(p.Indexes, i)
	}
	return p
}
