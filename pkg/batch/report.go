package batch

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/vuesetup/pkg/safeconv"
)

// Render writes the summary table. Unchanged files are listed only when
// verbose is set.
func (s *Summary) Render(w io.Writer, verbose bool) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"File", "Status", "Components", "Lines", "Changed", "Size", "Note"})

	var total int64

	for _, f := range s.Files {
		total += f.Size

		if f.Status == StatusUnchanged && !verbose {
			continue
		}

		tbl.AppendRow(table.Row{
			f.Path, f.Status, f.Components, f.Lines, f.Changed,
			humanize.Bytes(safeconv.ClampToUint64(f.Size)), note(f),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %d files", len(s.Files)),
		fmt.Sprintf("%d converted", s.Count(StatusConverted)),
		fmt.Sprintf("%d skipped", s.Count(StatusSkipped)),
		fmt.Sprintf("%d failed", s.Count(StatusFailed)),
		"",
		humanize.Bytes(safeconv.ClampToUint64(total)),
		s.Duration.Round(durationPrecision).String(),
	})

	tbl.Render()
}

func note(f FileResult) string {
	switch {
	case f.Err != nil:
		return f.Err.Error()
	case f.Reason != "":
		return f.Reason
	case len(f.Ignored) > 0:
		return fmt.Sprintf("%d ignored", len(f.Ignored))
	}

	return ""
}
