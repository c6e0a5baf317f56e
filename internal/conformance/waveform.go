package conformance

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/dmgcore/gbcore/internal/apu"
)

// PlotWaveform renders the left/right channels of samples as a PNG line
// chart at path, for visually spotting a broken audio channel during a
// conformance run the way a plotted frametime trace does for frame
// pacing.
func PlotWaveform(samples []apu.Sample, path string) error {
	p := plot.New()
	p.Title.Text = "drained audio samples"
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "amplitude"

	left := make(plotter.XYs, len(samples))
	right := make(plotter.XYs, len(samples))
	for i, s := range samples {
		left[i].X, left[i].Y = float64(i), float64(s.Left)
		right[i].X, right[i].Y = float64(i), float64(s.Right)
	}

	leftLine, err := plotter.NewLine(left)
	if err != nil {
		return fmt.Errorf("conformance: left channel line: %w", err)
	}
	rightLine, err := plotter.NewLine(right)
	if err != nil {
		return fmt.Errorf("conformance: right channel line: %w", err)
	}
	p.Add(leftLine, rightLine)
	p.Legend.Add("L", leftLine)
	p.Legend.Add("R", rightLine)

	if err := p.Save(8*vg.Inch, 3*vg.Inch, path); err != nil {
		return fmt.Errorf("conformance: save waveform png: %w", err)
	}
	return nil
}
