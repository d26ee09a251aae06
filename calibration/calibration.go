// Package calibration fits the pixel→data transform of a plot axis from
// its calibration markers.
//
// A linear axis gets the affine map through its markers; a logarithmic
// axis gets the affine map in (pixel, log10(data)) space. Two markers
// determine the map exactly; more are fitted by least squares, with the
// relative residual surfaced as a quality signal rather than an error.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/saraedum/digitizer/model"
	"github.com/saraedum/digitizer/units"
)

// Calibration errors.
var (
	// ErrSingularCalibration indicates markers that cannot determine a
	// transform: duplicate pixel positions or duplicate data values.
	ErrSingularCalibration = errors.New("calibration: singular marker configuration")
	// ErrInvalidScale indicates data values incompatible with the axis
	// scale kind, i.e. non-positive values on a logarithmic axis.
	ErrInvalidScale = errors.New("calibration: invalid value for scale kind")
)

// DefaultResidualTolerance is the default bound on the relative fit
// residual before an over-determined calibration is flagged as suspect.
const DefaultResidualTolerance = 0.01

// Transform maps a pixel position to the data value of one axis. It is a
// pure function; a Transform is immutable after Solve returns it.
type Transform struct {
	axis     model.AxisName
	scale    model.ScaleKind
	slope    float64 // per pixel, in data space (log10 space for log axes)
	offset   float64
	unit     units.Unit
	residual float64
}

// Solve derives the axis's transform from its calibration markers and
// resolves its unit token. It fails with ErrSingularCalibration for
// degenerate marker configurations, with ErrInvalidScale for non-positive
// values on a logarithmic axis, and with the units package's error when
// the unit token cannot be parsed.
func Solve(axis model.Axis) (*Transform, error) {
	if len(axis.Points) < 2 {
		return nil, fmt.Errorf("%w: axis %s has %d markers, need at least 2",
			ErrSingularCalibration, axis.Name, len(axis.Points))
	}

	unit, err := units.Parse(axis.Unit)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", axis.Name, err)
	}

	pixels := make([]float64, len(axis.Points))
	values := make([]float64, len(axis.Points))
	for i, p := range axis.Points {
		pixels[i] = pixelCoordinate(axis.Name, p.Pixel)
		values[i] = p.Value
	}

	for i := range pixels {
		for j := i + 1; j < len(pixels); j++ {
			if pixels[i] == pixels[j] {
				return nil, fmt.Errorf("%w: axis %s markers %d and %d share pixel position %g",
					ErrSingularCalibration, axis.Name, i, j, pixels[i])
			}
			if values[i] == values[j] {
				return nil, fmt.Errorf("%w: axis %s markers %d and %d share data value %g",
					ErrSingularCalibration, axis.Name, i, j, values[i])
			}
		}
	}

	fitted := values
	if axis.Scale == model.ScaleLog {
		fitted = make([]float64, len(values))
		for i, v := range values {
			if v <= 0 {
				return nil, fmt.Errorf("%w: axis %s marker value %g on a logarithmic axis",
					ErrInvalidScale, axis.Name, v)
			}
			fitted[i] = math.Log10(v)
		}
	}

	t := &Transform{axis: axis.Name, scale: axis.Scale, unit: unit}

	if len(pixels) == 2 {
		t.slope = (fitted[1] - fitted[0]) / (pixels[1] - pixels[0])
		t.offset = fitted[0] - t.slope*pixels[0]
		return t, nil
	}

	t.offset, t.slope = stat.LinearRegression(pixels, fitted, nil, false)
	t.residual = relativeResidual(pixels, fitted, t.offset, t.slope)
	return t, nil
}

// Apply maps a pixel position to the data value along the axis.
func (t *Transform) Apply(pixel model.Point) float64 {
	v := t.offset + t.slope*pixelCoordinate(t.axis, pixel)
	if t.scale == model.ScaleLog {
		return math.Pow(10, v)
	}
	return v
}

// Unit returns the axis's resolved physical unit.
func (t *Transform) Unit() units.Unit {
	return t.unit
}

// Scale returns the axis's scale kind.
func (t *Transform) Scale() model.ScaleKind {
	return t.scale
}

// Residual is the relative least-squares residual of an over-determined
// fit: the RMS misfit divided by the calibrated data range. It is zero for
// two-marker calibrations.
func (t *Transform) Residual() float64 {
	return t.residual
}

// WithinTolerance reports whether the fit residual stays below the given
// fraction of the data range. Pass DefaultResidualTolerance unless the
// caller has its own notion of acceptable misfit.
func (t *Transform) WithinTolerance(tolerance float64) bool {
	return t.residual <= tolerance
}

// pixelCoordinate selects the pixel coordinate the axis varies along.
// Plots are assumed axis-aligned: the x axis runs along pixel x, the y
// axis along pixel y.
func pixelCoordinate(axis model.AxisName, p model.Point) float64 {
	if axis == model.AxisY {
		return p.Y
	}
	return p.X
}

// relativeResidual computes the RMS misfit of the fitted line relative to
// the spread of the fitted values.
func relativeResidual(xs, ys []float64, offset, slope float64) float64 {
	var sum float64
	lo, hi := ys[0], ys[0]
	for i, x := range xs {
		d := offset + slope*x - ys[i]
		sum += d * d
		lo = math.Min(lo, ys[i])
		hi = math.Max(hi, ys[i])
	}
	if hi == lo {
		return 0
	}
	return math.Sqrt(sum/float64(len(xs))) / (hi - lo)
}
