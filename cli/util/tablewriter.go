package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

/*
Table output for CLI commands.
*/

////////////////////////////////////////////////////////////////////////////////

var headerColor = color.New(color.FgCyan, color.Bold) // nolint:gochecknoglobals

func cellWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header) + 2
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell)+2 > widths[i] {
				widths[i] = len(cell) + 2
			}
		}
	}
	return widths
}

// PrintTable writes headers and rows as an aligned table.
func PrintTable(w io.Writer, headers []string, rows [][]string) {
	widths := cellWidths(headers, rows)
	fmt.Fprint(w, "|")
	for i, header := range headers {
		padding := widths[i] - len(header)
		left := padding / 2
		right := padding - left
		headerColor.Fprintf(w, "%s%s%s", strings.Repeat(" ", left), header, strings.Repeat(" ", right))
		fmt.Fprint(w, "|")
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, "|")
	for _, width := range widths {
		fmt.Fprint(w, strings.Repeat("-", width))
		fmt.Fprint(w, "|")
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		fmt.Fprint(w, "|")
		for i, cell := range row {
			fmt.Fprintf(w, " %s%s|", cell, strings.Repeat(" ", widths[i]-len(cell)-1))
		}
		fmt.Fprintln(w)
	}
}
