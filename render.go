package rrcf

import (
	"strconv"
	"strings"
)

// Tree rendering shared by both variants. The skeleton uses the box-drawing
// glyphs U+2500 (─), U+2502 (│), U+251C (├) and U+2514 (└); each descent
// level indents by a four-column segment. Identical seed and input sequences
// must render to identical skeletons and leaf lines across variants (only the
// shingled branch lines carry cut and box annotations), so all numbers go
// through formatFloat.
type treeWriter struct {
	sb       strings.Builder
	segments []string
}

func newTreeWriter() *treeWriter {
	return &treeWriter{}
}

// text appends raw text at the current position.
func (w *treeWriter) text(s string) {
	w.sb.WriteString(s)
}

// connector starts a child line: the accumulated indent, then ├── for a left
// child or └── for a right child, and pushes the matching continuation
// segment for the child's subtree.
func (w *treeWriter) connector(left bool) {
	w.sb.WriteString(strings.Join(w.segments, ""))
	if left {
		w.sb.WriteString(" ├──")
		w.segments = append(w.segments, " │  ")
	} else {
		w.sb.WriteString(" └──")
		w.segments = append(w.segments, "    ")
	}
}

// pop drops the innermost indent segment.
func (w *treeWriter) pop() {
	w.segments = w.segments[:len(w.segments)-1]
}

func (w *treeWriter) String() string {
	return w.sb.String()
}

// formatFloat renders a coordinate or cut value in shortest round-trip form.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatVector renders a coordinate array as "[v0, v1, ...]".
func formatVector(coords []float64) string {
	parts := make([]string, len(coords))
	for i, v := range coords {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
