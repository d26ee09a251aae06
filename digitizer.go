// Package digitizer recovers calibrated numeric data from an annotated SVG
// tracing of a plotted figure. The SVG overlays a scanned plot and carries
// calibration markers (pixel positions paired with known axis values) and
// one or more traced curve paths; the digitizer turns these into a table
// of unit-labelled samples.
//
// Basic usage:
//
//	table, err := digitizer.Open("figure.svg").Digitize()
//	if err != nil {
//	    // handle error
//	}
//	table.WriteCSV(os.Stdout)
//
// With options:
//
//	table, err := digitizer.Open("figure.svg").
//	    Curve("trace").
//	    SamplingInterval(0.01).
//	    Digitize()
//
// For advanced use cases the lower-level svg, calibration and sampler
// packages are also available.
package digitizer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/saraedum/digitizer/calibration"
	"github.com/saraedum/digitizer/model"
	"github.com/saraedum/digitizer/sampler"
	"github.com/saraedum/digitizer/svg"
	"github.com/saraedum/digitizer/units"
)

// ErrUnknownCurve is returned when the requested curve name does not occur
// in the scene, or when no name was given and the scene holds more than
// one curve.
var ErrUnknownCurve = errors.New("digitizer: unknown curve")

// Digitizer digitizes one annotated drawing. Configure it with the fluent
// option methods, then call a terminal operation such as Digitize. Each
// call to a terminal operation parses and calibrates independently, so a
// Digitizer value may be reused and distinct Digitizers may run in
// parallel.
type Digitizer struct {
	filename string
	reader   io.Reader
	scene    *model.Scene
	options  options
}

// Open prepares a digitizer for an SVG file on disk.
//
// Example:
//
//	table, err := digitizer.Open("figure.svg").Digitize()
func Open(filename string) *Digitizer {
	return &Digitizer{filename: filename, options: defaultOptions()}
}

// FromReader prepares a digitizer for an already-opened SVG document.
// The reader is consumed by the first terminal operation.
func FromReader(r io.Reader) *Digitizer {
	return &Digitizer{reader: r, options: defaultOptions()}
}

// FromScene prepares a digitizer for an already-parsed scene, skipping the
// SVG layer entirely.
func FromScene(scene *model.Scene) *Digitizer {
	return &Digitizer{scene: scene, options: defaultOptions()}
}

// Curve selects the named curve. Without this option the scene must
// contain exactly one curve.
func (d *Digitizer) Curve(name string) *Digitizer {
	d.options.curve = name
	return d
}

// SamplingInterval requests resampling of the curve at the given interval
// along the x axis, expressed in the x axis's unit unless SamplingUnit
// overrides it. A zero interval returns to raw mode (the default), which
// keeps the traced points as they are; a negative or non-finite interval
// makes Digitize fail with sampler.ErrInvalidSamplingInterval.
func (d *Digitizer) SamplingInterval(dx float64) *Digitizer {
	d.options.samplingInterval = dx
	d.options.resample = dx != 0
	return d
}

// SamplingUnit declares the unit the SamplingInterval is expressed in; the
// interval is converted to the x axis's native unit before sampling. The
// conversion fails if the two units are not commensurable.
func (d *Digitizer) SamplingUnit(token string) *Digitizer {
	d.options.samplingUnit = token
	return d
}

// ResidualTolerance overrides the bound on the relative calibration
// residual above which an over-determined axis fit is reported through the
// warning logger. The default is calibration.DefaultResidualTolerance.
func (d *Digitizer) ResidualTolerance(fraction float64) *Digitizer {
	d.options.residualTolerance = fraction
	return d
}

// Metadata attaches an opaque key/value block that is passed through to
// the result table unchanged.
func (d *Digitizer) Metadata(m map[string]any) *Digitizer {
	d.options.metadata = m
	return d
}

// Logger installs a sink for non-fatal quality warnings, such as a
// calibration residual exceeding the tolerance. Without it warnings are
// discarded.
func (d *Digitizer) Logger(logf func(format string, args ...any)) *Digitizer {
	d.options.logf = logf
	return d
}

// Scene parses the drawing and returns the scene without digitizing.
func (d *Digitizer) Scene() (*model.Scene, error) {
	return d.loadScene()
}

// Axes parses the drawing and solves both axis calibrations, returning the
// pixel→data transforms with their resolved units. Callers use this to
// inspect axis units before choosing a sampling interval.
func (d *Digitizer) Axes() (x, y *calibration.Transform, err error) {
	scene, err := d.loadScene()
	if err != nil {
		return nil, nil, err
	}
	return d.solve(scene)
}

// Digitize runs the full pipeline: parse, calibrate, sample. It returns
// the ordered result table with column-level unit metadata. Raw mode
// preserves path traversal order; with a sampling interval the result is
// x-ascending on the uniform grid.
func (d *Digitizer) Digitize() (*model.Table, error) {
	scene, err := d.loadScene()
	if err != nil {
		return nil, err
	}

	xt, yt, err := d.solve(scene)
	if err != nil {
		return nil, err
	}

	curve, ok := scene.Curve(d.options.curve)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurve, d.options.curve)
	}

	var samples []model.CalibratedSample
	if d.options.resample {
		dx := d.options.samplingInterval
		if d.options.samplingUnit != "" {
			dx, err = units.Convert(dx, d.options.samplingUnit, xt.Unit().Token)
			if err != nil {
				return nil, fmt.Errorf("converting sampling interval: %w", err)
			}
		}
		samples, err = sampler.Resample(curve, xt, yt, dx)
		if err != nil {
			return nil, err
		}
	} else {
		samples = sampler.Map(curve, xt, yt)
	}

	return &model.Table{
		Columns: []model.Column{
			{Name: "x", Unit: xt.Unit().Token, Scale: xt.Scale()},
			{Name: "y", Unit: yt.Unit().Token, Scale: yt.Scale()},
		},
		Samples:  samples,
		Metadata: d.options.metadata,
	}, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	table := digitizer.Must(digitizer.Open("figure.svg").Digitize())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// loadScene produces the scene from whichever source the constructor set.
func (d *Digitizer) loadScene() (*model.Scene, error) {
	switch {
	case d.scene != nil:
		return d.scene, nil
	case d.reader != nil:
		return svg.Parse(d.reader)
	default:
		f, err := os.Open(d.filename)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", d.filename, err)
		}
		defer f.Close()
		return svg.Parse(f)
	}
}

// solve calibrates both axes and reports residual-quality findings.
func (d *Digitizer) solve(scene *model.Scene) (x, y *calibration.Transform, err error) {
	x, err = calibration.Solve(scene.XAxis)
	if err != nil {
		return nil, nil, err
	}
	y, err = calibration.Solve(scene.YAxis)
	if err != nil {
		return nil, nil, err
	}

	if d.options.logf != nil {
		tol := d.options.residualTolerance
		for _, t := range []struct {
			name string
			tr   *calibration.Transform
		}{{"x", x}, {"y", y}} {
			if !t.tr.WithinTolerance(tol) {
				d.options.logf("%s axis calibration residual %.3g exceeds tolerance %.3g",
					t.name, t.tr.Residual(), tol)
			}
		}
	}
	return x, y, nil
}
