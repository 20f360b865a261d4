package benchmark

import (
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

// Report writes metrics as a table, one row per model sorted by ID.
func Report(w io.Writer, metrics map[string]domain.BenchmarkMetrics) {
	ids := make([]string, 0, len(metrics))
	for id := range metrics {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Model", "Accuracy", "Precision", "Recall", "Support"})
	for _, id := range ids {
		m := metrics[id]
		t.AppendRow(table.Row{id, pct(m.Accuracy), pct(m.Precision), pct(m.Recall), m.Support})
	}
	t.Render()
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
