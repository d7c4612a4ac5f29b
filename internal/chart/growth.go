package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
)

// Default image size
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var (
	balanceColor = color.RGBA{R: 0, G: 128, B: 255, A: 255}
	hwmColor     = color.RGBA{R: 0, G: 160, B: 80, A: 255}
	floorColor   = color.RGBA{R: 220, G: 0, B: 0, A: 200}
)

// ErrEmptySeries is returned when there is nothing to draw
var ErrEmptySeries = errors.New("growth series is empty")

// Growth builds the capital-growth plot: balance per operation with the
// high-water-mark and the trailing floor as overlays
func Growth(title string, series []risk.GrowthPoint) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	balance := make(plotter.XYs, len(series))
	hwm := make(plotter.XYs, len(series))
	floor := make(plotter.XYs, len(series))
	for i, pt := range series {
		x := float64(i)
		balance[i] = plotter.XY{X: x, Y: pt.Balance}
		hwm[i] = plotter.XY{X: x, Y: pt.HWM}
		floor[i] = plotter.XY{X: x, Y: pt.Floor}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Operation"
	p.Y.Label.Text = "Balance"
	p.Add(plotter.NewGrid())

	balanceLine, points, err := plotter.NewLinePoints(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to build balance line: %w", err)
	}
	balanceLine.Color = balanceColor
	balanceLine.Width = vg.Points(2)
	points.Shape = nil

	hwmLine, err := plotter.NewLine(hwm)
	if err != nil {
		return nil, fmt.Errorf("failed to build hwm line: %w", err)
	}
	hwmLine.Color = hwmColor
	hwmLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	floorLine, err := plotter.NewLine(floor)
	if err != nil {
		return nil, fmt.Errorf("failed to build floor line: %w", err)
	}
	floorLine.Color = floorColor
	floorLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(balanceLine, hwmLine, floorLine)
	p.Legend.Add("Balance", balanceLine)
	p.Legend.Add("HWM", hwmLine)
	p.Legend.Add("Floor", floorLine)
	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}

// WritePNG renders the growth chart as PNG into w
func WritePNG(w io.Writer, title string, series []risk.GrowthPoint) error {
	p, err := Growth(title, series)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}

// SavePNG renders the growth chart to a file; the extension picks the format
func SavePNG(path, title string, series []risk.GrowthPoint) error {
	p, err := Growth(title, series)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}
