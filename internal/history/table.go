package history

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

var tableHeader = []string{"STARTED", "ACTION", "CONFIG", "PLATFORM", "EXIT", "ERR", "WARN", "DURATION", "PROJECT"}

// WriteTable prints entries as aligned columns. Width is measured in
// terminal cells so wide project names line up.
func WriteTable(w io.Writer, entries []Entry) error {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, tableHeader)
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Action,
			e.Configuration,
			e.Platform,
			fmt.Sprint(e.ExitCode),
			fmt.Sprint(e.Errors),
			fmt.Sprint(e.Warnings),
			e.Duration.Round(time.Millisecond).String(),
			e.Project,
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
