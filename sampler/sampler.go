// Package sampler turns a curve's pixel trace into calibrated samples.
//
// The raw mode maps every traversed pixel point through both axis
// transforms, preserving traversal order; folded curves (cyclic
// voltammograms) come through unchanged. The resampling mode additionally
// projects the curve onto a uniform x grid by linear interpolation, which
// requires the curve to be single-valued in x.
package sampler

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/saraedum/digitizer/calibration"
	"github.com/saraedum/digitizer/model"
)

// Sampling errors.
var (
	// ErrInvalidSamplingInterval is returned for a sampling interval that
	// is not a positive finite number.
	ErrInvalidSamplingInterval = errors.New("sampler: sampling interval must be positive and finite")
	// ErrNonFunctionCurve is returned when resampling is requested for a
	// curve that is not single-valued in x, e.g. a curve folding back on
	// itself.
	ErrNonFunctionCurve = errors.New("sampler: curve is not a function of x")
)

// gridEpsilon guards the last grid point against float drift: a point
// within this relative distance past the curve's x extent still counts.
const gridEpsilon = 1e-9

// Map applies both axis transforms to every point of the curve, in
// traversal order.
func Map(curve model.Curve, x, y *calibration.Transform) []model.CalibratedSample {
	samples := make([]model.CalibratedSample, len(curve.Points))
	for i, p := range curve.Points {
		samples[i] = model.CalibratedSample{X: x.Apply(p), Y: y.Apply(p)}
	}
	return samples
}

// Resample maps the curve and re-emits it on the uniform grid
// x0, x0+dx, x0+2dx, … spanning the curve's x extent, interpolating y
// linearly between traced points. The result is x-ascending. It fails with
// ErrInvalidSamplingInterval for a non-positive or non-finite dx and with
// ErrNonFunctionCurve when the trace is not single-valued in x.
func Resample(curve model.Curve, x, y *calibration.Transform, dx float64) ([]model.CalibratedSample, error) {
	return ResampleSamples(Map(curve, x, y), dx)
}

// ResampleSamples is Resample for samples that are already calibrated,
// for callers that post-process the mapped data (unit normalization,
// sweep splitting) before gridding.
func ResampleSamples(samples []model.CalibratedSample, dx float64) ([]model.CalibratedSample, error) {
	if !(dx > 0) || math.IsInf(dx, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidSamplingInterval, dx)
	}

	xs, ys, err := functionOfX(samples)
	if err != nil {
		return nil, err
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonFunctionCurve, err)
	}

	x0 := xs[0]
	extent := xs[len(xs)-1] - x0
	n := int(math.Floor(extent/dx + gridEpsilon))

	result := make([]model.CalibratedSample, 0, n+1)
	for i := 0; i <= n; i++ {
		xi := x0 + float64(i)*dx
		if xi > xs[len(xs)-1] {
			// Clamp the guard-admitted final point onto the curve.
			xi = xs[len(xs)-1]
		}
		result = append(result, model.CalibratedSample{X: x0 + float64(i)*dx, Y: pl.Predict(xi)})
	}
	return result, nil
}

// functionOfX validates that the mapped samples are strictly monotonic in
// x (either direction) and returns them x-ascending with exact duplicate
// points collapsed.
func functionOfX(samples []model.CalibratedSample) (xs, ys []float64, err error) {
	if len(samples) < 2 {
		return nil, nil, fmt.Errorf("%w: fewer than two distinct points", ErrNonFunctionCurve)
	}

	// Collapse runs of identical points; a repeated x with a different y
	// is a fold.
	deduped := make([]model.CalibratedSample, 0, len(samples))
	deduped = append(deduped, samples[0])
	for _, s := range samples[1:] {
		last := deduped[len(deduped)-1]
		if s.X == last.X {
			if s.Y == last.Y {
				continue
			}
			return nil, nil, fmt.Errorf("%w: two values at x = %g", ErrNonFunctionCurve, s.X)
		}
		deduped = append(deduped, s)
	}
	if len(deduped) < 2 {
		return nil, nil, fmt.Errorf("%w: fewer than two distinct points", ErrNonFunctionCurve)
	}

	ascending := deduped[1].X > deduped[0].X
	for i := 1; i < len(deduped); i++ {
		if (deduped[i].X > deduped[i-1].X) != ascending {
			return nil, nil, fmt.Errorf("%w: direction reverses at x = %g", ErrNonFunctionCurve, deduped[i].X)
		}
	}

	xs = make([]float64, len(deduped))
	ys = make([]float64, len(deduped))
	for i, s := range deduped {
		j := i
		if !ascending {
			j = len(deduped) - 1 - i
		}
		xs[j] = s.X
		ys[j] = s.Y
	}
	return xs, ys, nil
}
