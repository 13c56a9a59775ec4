package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// titleWidth caps free-text columns so long movie titles wrap instead of
// stretching the table past the terminal.
const titleWidth = 48

type column struct {
	header   string
	align    text.Align
	maxWidth int
}

func num(header string) column  { return column{header: header, align: text.AlignRight} }
func word(header string) column { return column{header: header, align: text.AlignLeft} }
func prose(header string) column {
	return column{header: header, align: text.AlignLeft, maxWidth: titleWidth}
}

// renderTable draws rows with rounded borders on a terminal and plain ASCII
// otherwise so piped output stays greppable. Short rows are padded.
func renderTable(out io.Writer, columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleDefault
	if isTerminal(out) {
		style = table.StyleRounded
	}
	tw.SetStyle(style)

	header := make(table.Row, 0, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header = append(header, col.header)
		cfg := table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
		if col.maxWidth > 0 {
			cfg.WidthMax = col.maxWidth
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
