package svg

import (
	"html/template"
	"strings"
)

// AnchorID reduces a cycle label to ASCII letters and digits so it can name a
// chart surface. Distinct labels may collapse to the same identifier.
func AnchorID(label string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, label)
}

// Board binds rendered charts to surface identifiers. Binding an identifier a
// second time replaces the first chart, so a surface never holds two charts.
type Board struct {
	charts map[string]template.HTML
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{charts: make(map[string]template.HTML)}
}

// Bind attaches chart to the surface id.
func (b *Board) Bind(id string, chart template.HTML) {
	if b.charts == nil {
		b.charts = make(map[string]template.HTML)
	}
	b.charts[id] = chart
}

// Chart returns the chart bound to id, or an empty fragment.
func (b *Board) Chart(id string) template.HTML {
	if b == nil {
		return ""
	}
	return b.charts[id]
}

// Len reports the number of bound surfaces.
func (b *Board) Len() int {
	if b == nil {
		return 0
	}
	return len(b.charts)
}
