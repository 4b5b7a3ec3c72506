// Package render prints a query result as a bordered ASCII table with a
// MySQL-shell style row-count footer.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mimecast/logrok/internal/query/exec"
)

// Table prints res to w as a bordered table, with a footer reporting row
// count and elapsed query time.
func Table(w io.Writer, res *exec.Result, elapsed time.Duration) {
	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		widths[i] = len(col)
	}
	for _, row := range res.Rows {
		for i, v := range row.Values {
			if i >= len(widths) {
				continue
			}
			if l := len(v.String()); l > widths[i] {
				widths[i] = l
			}
		}
	}

	bar := buildBar(widths)
	fmt.Fprintln(w, bar)
	fmt.Fprintln(w, formatRow(widths, res.Columns))
	fmt.Fprintln(w, bar)
	for _, row := range res.Rows {
		cells := make([]string, len(row.Values))
		for i, v := range row.Values {
			cells[i] = v.String()
		}
		fmt.Fprintln(w, formatRow(widths, cells))
	}
	fmt.Fprintln(w, bar)
	fmt.Fprintf(w, "%d rows in set (%0.3f sec)\n", len(res.Rows), elapsed.Seconds())
}

func buildBar(widths []int) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for _, width := range widths {
		sb.WriteString(strings.Repeat("-", width+2))
		sb.WriteByte('+')
	}
	return sb.String()
}

func formatRow(widths []int, cells []string) string {
	var sb strings.Builder
	sb.WriteByte('|')
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		fmt.Fprintf(&sb, " %*s |", width, cell)
	}
	return sb.String()
}
