package sampler

import (
	"errors"
	"math"
	"testing"

	"github.com/saraedum/digitizer/calibration"
	"github.com/saraedum/digitizer/model"
)

// unitTransforms builds x and y transforms mapping pixel 0..100 onto data
// 0..1 on both axes, with the y axis running top-down as in SVG space.
func unitTransforms(t *testing.T) (x, y *calibration.Transform) {
	t.Helper()

	var err error
	x, err = calibration.Solve(model.Axis{Name: model.AxisX, Points: []model.CalibrationPoint{
		{Pixel: model.Point{X: 0}, Value: 0},
		{Pixel: model.Point{X: 100}, Value: 1},
	}})
	if err != nil {
		t.Fatalf("solving x axis: %v", err)
	}
	y, err = calibration.Solve(model.Axis{Name: model.AxisY, Points: []model.CalibrationPoint{
		{Pixel: model.Point{Y: 100}, Value: 0},
		{Pixel: model.Point{Y: 0}, Value: 1},
	}})
	if err != nil {
		t.Fatalf("solving y axis: %v", err)
	}
	return x, y
}

func TestMapPreservesTraversalOrder(t *testing.T) {
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{
		{X: 0, Y: 100}, {X: 50, Y: 50}, {X: 100, Y: 0},
	}}

	samples := Map(curve, x, y)
	want := []model.CalibratedSample{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}, {X: 1, Y: 1}}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i, w := range want {
		if math.Abs(samples[i].X-w.X) > 1e-12 || math.Abs(samples[i].Y-w.Y) > 1e-12 {
			t.Errorf("sample %d = %+v, want %+v", i, samples[i], w)
		}
	}
}

func TestMapFoldedCurve(t *testing.T) {
	// A voltammogram-like sweep out and back: raw mode keeps the fold.
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{
		{X: 0, Y: 100}, {X: 100, Y: 0}, {X: 0, Y: 50},
	}}

	samples := Map(curve, x, y)
	if len(samples) != 3 {
		t.Fatalf("got %d samples", len(samples))
	}
	if samples[2].X != 0 || math.Abs(samples[2].Y-0.5) > 1e-12 {
		t.Errorf("folded tail = %+v, want {0 0.5}", samples[2])
	}
}

func TestResampleUniformGrid(t *testing.T) {
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{
		{X: 0, Y: 100}, {X: 50, Y: 50}, {X: 100, Y: 0},
	}}

	samples, err := Resample(curve, x, y, 0.25)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}

	wantX := []float64{0, 0.25, 0.5, 0.75, 1}
	if len(samples) != len(wantX) {
		t.Fatalf("got %d samples %v, want %d", len(samples), samples, len(wantX))
	}
	for i, wx := range wantX {
		if math.Abs(samples[i].X-wx) > 1e-12 {
			t.Errorf("x[%d] = %v, want %v", i, samples[i].X, wx)
		}
		// The traced line is y = x.
		if math.Abs(samples[i].Y-wx) > 1e-12 {
			t.Errorf("y[%d] = %v, want %v", i, samples[i].Y, wx)
		}
	}
}

func TestResamplePointCount(t *testing.T) {
	// floor((xmax-xmin)/dx)+1 points, always an arithmetic sequence from
	// the curve's minimum x.
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{{X: 0, Y: 100}, {X: 100, Y: 0}}}

	tests := []struct {
		dx   float64
		want int
	}{
		{0.1, 11},
		{0.3, 4},
		{1, 2},
		{2, 1},
	}

	for _, tt := range tests {
		samples, err := Resample(curve, x, y, tt.dx)
		if err != nil {
			t.Fatalf("Resample(dx=%v) error = %v", tt.dx, err)
		}
		if len(samples) != tt.want {
			t.Errorf("Resample(dx=%v) produced %d points, want %d", tt.dx, len(samples), tt.want)
		}
		for i, s := range samples {
			if math.Abs(s.X-float64(i)*tt.dx) > 1e-12 {
				t.Errorf("dx=%v: x[%d] = %v, want %v", tt.dx, i, s.X, float64(i)*tt.dx)
			}
		}
	}
}

func TestResampleDescendingTrace(t *testing.T) {
	// A curve traced right to left resamples to the same ascending grid.
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{
		{X: 100, Y: 0}, {X: 50, Y: 50}, {X: 0, Y: 100},
	}}

	samples, err := Resample(curve, x, y, 0.5)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples", len(samples))
	}
	for i, wx := range []float64{0, 0.5, 1} {
		if math.Abs(samples[i].X-wx) > 1e-12 || math.Abs(samples[i].Y-wx) > 1e-12 {
			t.Errorf("sample %d = %+v, want {%v %v}", i, samples[i], wx, wx)
		}
	}
}

func TestResampleInvalidInterval(t *testing.T) {
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{{X: 0, Y: 100}, {X: 100, Y: 0}}}

	for _, dx := range []float64{0, -0.5, math.Inf(1), math.NaN()} {
		if _, err := Resample(curve, x, y, dx); !errors.Is(err, ErrInvalidSamplingInterval) {
			t.Errorf("Resample(dx=%v) error = %v, want ErrInvalidSamplingInterval", dx, err)
		}
	}
}

func TestResampleFoldedCurveRejected(t *testing.T) {
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{
		{X: 0, Y: 100}, {X: 100, Y: 0}, {X: 0, Y: 50},
	}}

	if _, err := Resample(curve, x, y, 0.1); !errors.Is(err, ErrNonFunctionCurve) {
		t.Errorf("Resample(folded) error = %v, want ErrNonFunctionCurve", err)
	}

	// A vertical doubling at a single x is also a fold.
	curve = model.Curve{Points: []model.Point{
		{X: 0, Y: 100}, {X: 50, Y: 50}, {X: 50, Y: 20}, {X: 100, Y: 0},
	}}
	if _, err := Resample(curve, x, y, 0.1); !errors.Is(err, ErrNonFunctionCurve) {
		t.Errorf("Resample(vertical fold) error = %v, want ErrNonFunctionCurve", err)
	}
}

func TestResampleCollapsesDuplicatePoints(t *testing.T) {
	x, y := unitTransforms(t)
	curve := model.Curve{Points: []model.Point{
		{X: 0, Y: 100}, {X: 50, Y: 50}, {X: 50, Y: 50}, {X: 100, Y: 0},
	}}

	samples, err := Resample(curve, x, y, 0.5)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(samples) != 3 {
		t.Errorf("got %d samples, want 3", len(samples))
	}
}
