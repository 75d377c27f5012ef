// internal/output/plot.go
package output

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pmr-core/counts"
)

// MinPlotOverlap is the minimum per-pair overlap for a rate to enter the
// histogram. Below ~30k overlapping sites the rate estimate is too noisy
// to be worth plotting.
const MinPlotOverlap = 30000

const binWidth = 0.5 // percent

// PlotRates renders a histogram of pairwise mismatch rates (as
// percentages) with a vertical median marker. Pairs with fewer than
// MinPlotOverlap overlapping sites are excluded. Returns false without
// writing anything when no pair qualifies.
func PlotRates(c *counts.Counts, path string) (bool, error) {
	pcts := eligiblePercentages(c)
	if len(pcts) == 0 {
		return false, nil
	}

	maxPct := 0.0
	for _, p := range pcts {
		maxPct = math.Max(maxPct, p)
	}
	nBins := 100
	if maxPct >= 50 {
		n := int(math.Ceil(maxPct / binWidth))
		nBins = (n + 9) / 10 * 10
	}

	bins := make([]plotter.HistogramBin, nBins)
	for i := range bins {
		bins[i].Min = float64(i) * binWidth
		bins[i].Max = float64(i+1) * binWidth
	}
	peak := 0.0
	for _, p := range pcts {
		idx := int(p / binWidth)
		if idx >= nBins {
			idx = nBins - 1
		}
		bins[idx].Weight++
		peak = math.Max(peak, bins[idx].Weight)
	}

	pl := plot.New()
	pl.Title.Text = "Pairwise Mismatch Rate Distribution"
	pl.X.Label.Text = "Mismatch rate (%)"
	pl.Y.Label.Text = "Sample pairs"

	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     float64(nBins) * binWidth,
		FillColor: color.RGBA{R: 100, G: 149, B: 237, A: 255},
		LineStyle: plotter.DefaultLineStyle,
	}
	pl.Add(hist)

	med := median(pcts)
	line, err := plotter.NewLine(plotter.XYs{{X: med, Y: 0}, {X: med, Y: peak}})
	if err != nil {
		return false, err
	}
	line.Color = color.RGBA{R: 200, A: 255}
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	pl.Add(line)
	pl.Legend.Add(fmt.Sprintf("median: %.2f%%", med), line)
	pl.Legend.Top = true

	if err := pl.Save(12*vg.Inch, 8*vg.Inch, path); err != nil {
		return false, err
	}
	return true, nil
}

func eligiblePercentages(c *counts.Counts) []float64 {
	var pcts []float64
	n := c.NSamples()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !c.ShouldCount(i, j) || c.Overlap(i, j) < MinPlotOverlap {
				continue
			}
			if r := c.Rate(i, j); !math.IsNaN(r) && !math.IsInf(r, 0) {
				pcts = append(pcts, r*100)
			}
		}
	}
	return pcts
}

func median(vs []float64) float64 {
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
