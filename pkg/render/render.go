// Package render draws PNG charts of a normalized series.
package render

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ccollicutt/sippstat/pkg/normalize"
	"github.com/ccollicutt/sippstat/pkg/series"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4 * vg.Inch
)

var (
	colorBlue   = color.RGBA{R: 54, G: 162, B: 235, A: 255}
	colorRed    = color.RGBA{R: 255, G: 99, B: 132, A: 255}
	colorGreen  = color.RGBA{R: 75, G: 192, B: 192, A: 255}
	colorYellow = color.RGBA{R: 255, G: 205, B: 86, A: 255}
)

// Chart names, used as file name suffixes.
const (
	ChartCallRate     = "call_rate"
	ChartCalls        = "calls"
	ChartTiming       = "timing"
	ChartDistribution = "distribution"
)

type chart struct {
	name string
	draw func(*series.Series) (*plot.Plot, error)
}

type curve struct {
	name  string
	color color.Color
	dash  bool
	value func(*normalize.Record) float64
}

// Render writes the chart set for s into outDir as <prefix>_<chart>.png and
// returns the written paths. The distribution chart is skipped when the
// series has no histogram columns.
func Render(ctx context.Context, s *series.Series, outDir, prefix string) ([]string, error) {
	if s.Len() == 0 {
		return nil, series.ErrEmptySeries
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	charts := []chart{
		{ChartCallRate, callRateChart},
		{ChartCalls, callsChart},
		{ChartTiming, timingChart},
	}
	if len(s.Columns) > 0 {
		charts = append(charts, chart{ChartDistribution, distributionChart})
	}

	var paths []string
	for _, c := range charts {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		p, err := c.draw(s)
		if err != nil {
			return paths, fmt.Errorf("drawing %s chart: %w", c.name, err)
		}

		path := filepath.Join(outDir, prefix+"_"+c.name+".png")
		if err := p.Save(chartWidth, chartHeight, path); err != nil {
			return paths, fmt.Errorf("saving %s chart: %w", c.name, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func callRateChart(s *series.Series) (*plot.Plot, error) {
	return lineChart(s, "Call Rate", "calls/s", []curve{
		{"Call Rate (P)", colorBlue, false, func(r *normalize.Record) float64 { return r.CallRate }},
		{"Target Rate", colorRed, true, func(r *normalize.Record) float64 { return r.TargetRate }},
	})
}

func callsChart(s *series.Series) (*plot.Plot, error) {
	return lineChart(s, "Calls per Interval", "calls", []curve{
		{"Successful", colorGreen, false, func(r *normalize.Record) float64 { return float64(r.SuccessfulCalls) }},
		{"Failed", colorRed, false, func(r *normalize.Record) float64 { return float64(r.FailedCalls) }},
	})
}

func timingChart(s *series.Series) (*plot.Plot, error) {
	return lineChart(s, "Average Response Time and Call Length", "ms", []curve{
		{"Response Time", colorBlue, false, func(r *normalize.Record) float64 { return r.ResponseTime.Milliseconds() }},
		{"Call Length", colorYellow, false, func(r *normalize.Record) float64 { return r.CallLength.Milliseconds() }},
	})
}

func lineChart(s *series.Series, title, yLabel string, curves []curve) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Elapsed time (s)"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, c := range curves {
		xys := make(plotter.XYs, len(s.Records))
		for i := range s.Records {
			xys[i].X = float64(s.Records[i].ElapsedSeconds)
			xys[i].Y = c.value(&s.Records[i])
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.Color = c.color
		line.Width = vg.Points(1.5)
		if c.dash {
			line.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		}
		p.Add(line)
		p.Legend.Add(c.name, line)
	}

	return p, nil
}

func distributionChart(s *series.Series) (*plot.Plot, error) {
	d, err := s.FinalDistribution()
	if err != nil {
		return nil, err
	}

	values := make(plotter.Values, len(d.Buckets))
	ticks := make([]plot.Tick, len(d.Buckets))
	for i, b := range d.Buckets {
		values[i] = float64(b.Count)
		ticks[i] = plot.Tick{Value: float64(i), Label: b.Label}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Response Time Distribution at %ds (cumulative)", d.ElapsedSeconds)
	p.X.Label.Text = "Response time (ms)"
	p.Y.Label.Text = "calls"

	bar, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bar.Color = colorBlue
	p.Add(bar)
	p.X.Min = -0.5
	p.X.Max = float64(len(d.Buckets)) - 0.5
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	return p, nil
}
