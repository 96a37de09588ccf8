package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/chatpilot-hq/console/internal/editor"
	"github.com/chatpilot-hq/console/internal/rbac"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	ok    = color.New(color.FgGreen).SprintFunc()
	warn  = color.New(color.FgYellow, color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

// printGrid renders one line per resource with every allowed action, granted
// ones marked and coloured.
func printGrid(w io.Writer, rows []editor.Row) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row.Label))
	}
	for _, row := range rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			if c.Granted {
				cells = append(cells, ok("[x] "+string(c.Action)))
			} else {
				cells = append(cells, faint("[ ] "+string(c.Action)))
			}
		}
		fmt.Fprintf(w, "%-*s  %s\n", width, row.Label, strings.Join(cells, "  "))
	}
}

func printMenu(w io.Writer, items []rbac.MenuItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, faint("No dashboard sections are available for your role."))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "%-15s %s\n", item.ID, bold(item.Label))
	}
}
