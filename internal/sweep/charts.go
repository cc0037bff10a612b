package sweep

import (
	"encoding/json"
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/security"
)

// OutputPath joins name onto dir and rejects results that escape dir.
func OutputPath(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return path, nil
}

func (r *Result) title() string {
	return fmt.Sprintf("%s: acceleration vs %s", r.ScenarioName, r.Spec.Variable)
}

// WritePNG draws acceleration against the swept value. Rejected points are
// left out of the line.
func (r *Result) WritePNG(fsys fsutil.FileSystem, path string) error {
	values, accels := r.Series()
	if len(values) == 0 {
		return fmt.Errorf("sweep %s has no evaluated points to plot", r.RunID)
	}

	p := plot.New()
	p.Title.Text = r.title()
	p.X.Label.Text = r.Spec.Variable.Label(r.Units)
	p.Y.Label.Text = "Acceleration (m/s²)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i] = plotter.XY{X: values[i], Y: accels[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 38, G: 130, B: 142, A: 255}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("acceleration", line)

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Close()
}

// WriteHTML renders an interactive line chart. Rejected points appear as gaps.
func (r *Result) WriteHTML(fsys fsutil.FileSystem, path string) error {
	x := make([]string, len(r.Points))
	accel := make([]opts.LineData, len(r.Points))
	headway := make([]opts.LineData, len(r.Points))
	for i, pt := range r.Points {
		x[i] = strconv.FormatFloat(pt.Value, 'g', 6, 64)
		if !pt.OK() {
			accel[i] = opts.LineData{Value: "-"}
			headway[i] = opts.LineData{Value: "-"}
			continue
		}
		accel[i] = opts.LineData{Value: pt.Terms.Acceleration}
		headway[i] = opts.LineData{Value: pt.Terms.Headway}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.title(), Width: "1000px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: r.title(), Subtitle: fmt.Sprintf("run=%s points=%d", r.RunID, len(r.Points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: r.Spec.Variable.Label(r.Units), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m/s² | m", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(x).
		AddSeries("acceleration", accel).
		AddSeries("headway", headway)

	page := components.NewPage()
	page.AddCharts(line)

	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := page.Render(w); err != nil {
		w.Close()
		return fmt.Errorf("render error: %w", err)
	}
	return w.Close()
}

// WriteJSON writes the result as indented JSON.
func (r *Result) WriteJSON(fsys fsutil.FileSystem, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return fsys.WriteFile(path, data, 0644)
}
