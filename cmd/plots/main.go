// Command plots renders the result tables from prior pipeline runs as a
// grouped bar chart and a heatmap. The numbers are transcribed by hand after
// each experiment round; this tool does no computation over live output.
package main

import (
	"flag"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Blind-set SMAPE (%) per augmentation strategy and model, transcribed from
// the 2026-08 run with seed 42.
var (
	strategies = []string{"baseline", "uniform", "aux", "selective", "twostage", "empirical"}
	models     = []string{"forest", "boost", "mlp"}

	smape = map[string]map[string]float64{
		"baseline":  {"forest": 38.2, "boost": 41.5, "mlp": 47.3},
		"uniform":   {"forest": 41.7, "boost": 44.9, "mlp": 49.8},
		"aux":       {"forest": 39.4, "boost": 42.8, "mlp": 46.1},
		"selective": {"forest": 37.6, "boost": 40.2, "mlp": 48.5},
		"twostage":  {"forest": 40.3, "boost": 43.1, "mlp": 50.2},
		"empirical": {"forest": 38.9, "boost": 41.0, "mlp": 47.9},
	}

	barColors = []color.Color{
		color.RGBA{R: 68, G: 119, B: 170, A: 255},
		color.RGBA{R: 238, G: 119, B: 51, A: 255},
		color.RGBA{R: 34, G: 136, B: 51, A: 255},
	}
)

func main() {
	out := flag.String("out", "output", "directory for rendered charts")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("[plots] create %s: %v", *out, err)
	}
	if err := barChart(filepath.Join(*out, "smape_bars.png")); err != nil {
		log.Fatalf("[plots] bar chart: %v", err)
	}
	if err := heatmap(filepath.Join(*out, "smape_heatmap.png")); err != nil {
		log.Fatalf("[plots] heatmap: %v", err)
	}
	log.Printf("[plots] wrote charts to %s", *out)
}

// barChart draws one bar group per strategy with one bar per model.
func barChart(path string) error {
	p := plot.New()
	p.Title.Text = "Blind-set SMAPE by strategy and model"
	p.Y.Label.Text = "SMAPE (%)"
	p.X.Label.Text = "augmentation strategy"

	width := vg.Points(14)
	for mi, model := range models {
		values := make(plotter.Values, len(strategies))
		for si, s := range strategies {
			values[si] = smape[s][model]
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bars.Color = barColors[mi%len(barColors)]
		bars.LineStyle.Width = 0
		bars.Offset = width * vg.Length(mi-1)
		p.Add(bars)
		p.Legend.Add(model, bars)
	}
	p.Legend.Top = true
	p.NominalX(strategies...)
	return p.Save(7*vg.Inch, 4*vg.Inch, path)
}

// smapeGrid adapts the result table to plotter.GridXYZ: x is the strategy
// index, y the model index.
type smapeGrid struct{}

func (smapeGrid) Dims() (int, int)   { return len(strategies), len(models) }
func (smapeGrid) X(c int) float64    { return float64(c) }
func (smapeGrid) Y(r int) float64    { return float64(r) }
func (smapeGrid) Z(c, r int) float64 { return smape[strategies[c]][models[r]] }

func heatmap(path string) error {
	p := plot.New()
	p.Title.Text = "Blind-set SMAPE heatmap"
	p.X.Label.Text = "augmentation strategy"
	p.Y.Label.Text = "model"

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(smapeGrid{}, pal)
	p.Add(hm)

	p.X.Tick.Marker = indexTicks(strategies)
	p.Y.Tick.Marker = indexTicks(models)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = draw.XRight
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// indexTicks labels integer positions with the given names.
type indexTicks []string

func (t indexTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, name := range t {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: name})
	}
	return ticks
}
