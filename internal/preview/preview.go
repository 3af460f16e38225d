// Package preview renders a profiled dataset's numerical histograms to
// PNG files, for local inspection of a `cmd/profile -debug-preview-dir` run. It is
// not part of the profiling pipeline itself — the plot recommender emits
// JSON specs for a downstream UI, not raster images.
package preview

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// RenderHistograms saves one PNG per column carrying a
// `histogram_numerical` or `histogram_temporal` plot, named
// "<outputDir>/<column name>.png".
func RenderHistograms(ds *schema.Dataset, outputDir string) error {
	if len(ds.Columns) == 0 {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("preview: creating output dir: %w", err)
	}

	for _, col := range ds.Columns {
		if col.Plot == nil || len(col.Plot.Data) == 0 {
			continue
		}
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s (%s)", col.Name, col.Plot.Type)

		bars := make(plotter.Values, len(col.Plot.Data))
		for i, bin := range col.Plot.Data {
			bars[i] = float64(bin.Count)
		}
		hist, err := plotter.NewBarChart(bars, vg.Points(20))
		if err != nil {
			return fmt.Errorf("preview: building bar chart for %q: %w", col.Name, err)
		}
		p.Add(hist)

		path := filepath.Join(outputDir, sanitizeFileName(col.Name)+".png")
		if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
			return fmt.Errorf("preview: saving %q: %w", path, err)
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
