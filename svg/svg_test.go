package svg

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/saraedum/digitizer/model"
)

// calibratedScene is a minimal well-formed drawing: four markers, one
// labelled curve, a scan-rate annotation.
const calibratedScene = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="200" height="200">
  <g><circle cx="0" cy="100" r="2"/><text x="2" y="112">x1: 0 mV</text></g>
  <g><circle cx="100" cy="100" r="2"/><text x="102" y="112">x2: 1000 mV</text></g>
  <g><circle cx="0" cy="100" r="2"/><text x="-20" y="100">y1: 0 A</text></g>
  <g><circle cx="0" cy="0" r="2"/><text x="-20" y="0">y2: 1 A</text></g>
  <g><path d="M 0 100 L 50 50 L 100 0"/><text x="50" y="40">curve: trace</text></g>
  <text x="10" y="190">scan rate: 50 mV/s</text>
</svg>`

func TestParseScene(t *testing.T) {
	scene, err := Parse(strings.NewReader(calibratedScene))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(scene.Curves) != 1 {
		t.Fatalf("got %d curves, want 1", len(scene.Curves))
	}
	curve, ok := scene.Curve("trace")
	if !ok {
		t.Fatal("curve \"trace\" not found")
	}
	want := []model.Point{{X: 0, Y: 100}, {X: 50, Y: 50}, {X: 100, Y: 0}}
	if len(curve.Points) != len(want) {
		t.Fatalf("curve has %d points, want %d", len(curve.Points), len(want))
	}
	for i, p := range want {
		if curve.Points[i] != p {
			t.Errorf("point %d = %+v, want %+v", i, curve.Points[i], p)
		}
	}

	if scene.XAxis.Unit != "mV" || scene.YAxis.Unit != "A" {
		t.Errorf("axis units = %q, %q", scene.XAxis.Unit, scene.YAxis.Unit)
	}
	if len(scene.XAxis.Points) != 2 || len(scene.YAxis.Points) != 2 {
		t.Fatalf("calibration point counts = %d, %d", len(scene.XAxis.Points), len(scene.YAxis.Points))
	}
	if scene.XAxis.Points[1].Value != 1000 {
		t.Errorf("x2 value = %v, want 1000", scene.XAxis.Points[1].Value)
	}
	if scene.XAxis.Points[1].Pixel != (model.Point{X: 100, Y: 100}) {
		t.Errorf("x2 pixel = %+v", scene.XAxis.Points[1].Pixel)
	}

	if got := scene.Labels["scan rate"]; got != "50 mV/s" {
		t.Errorf("scan rate label = %q", got)
	}
	if scene.XAxis.Scale != model.ScaleLinear {
		t.Errorf("x scale = %v, want linear", scene.XAxis.Scale)
	}
}

func TestParseLogScale(t *testing.T) {
	doc := strings.Replace(calibratedScene,
		`<text x="10" y="190">scan rate: 50 mV/s</text>`,
		`<text x="10" y="190">y-scale: log</text>`, 1)

	scene, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if scene.YAxis.Scale != model.ScaleLog {
		t.Error("y axis should be logarithmic")
	}
	if scene.XAxis.Scale != model.ScaleLinear {
		t.Error("x axis should stay linear")
	}
}

func TestParseMarkerFromPathEnd(t *testing.T) {
	doc := strings.Replace(calibratedScene,
		`<g><circle cx="100" cy="100" r="2"/><text x="102" y="112">x2: 1000 mV</text></g>`,
		`<g><path d="M 90 120 L 100 100"/><text x="102" y="112">x2: 1000 mV</text></g>`, 1)

	scene, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if scene.XAxis.Points[1].Pixel != (model.Point{X: 100, Y: 100}) {
		t.Errorf("marker from path end = %+v, want {100 100}", scene.XAxis.Points[1].Pixel)
	}
	// The marker path must not be mistaken for a curve.
	if len(scene.Curves) != 1 {
		t.Errorf("got %d curves, want 1", len(scene.Curves))
	}
}

func TestParseMarkerGeometryCloud(t *testing.T) {
	// A marker drawn as several elements, such as a crosshair, marks the
	// center of its geometry's bounding box.
	doc := strings.Replace(calibratedScene,
		`<g><circle cx="100" cy="100" r="2"/><text x="102" y="112">x2: 1000 mV</text></g>`,
		`<g><circle cx="95" cy="100" r="1"/><circle cx="105" cy="100" r="1"/><text x="102" y="112">x2: 1000 mV</text></g>`, 1)

	scene, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if scene.XAxis.Points[1].Pixel != (model.Point{X: 100, Y: 100}) {
		t.Errorf("marker from geometry cloud = %+v, want {100 100}", scene.XAxis.Points[1].Pixel)
	}
}

func TestParseUngroupedMarkersBindByProximity(t *testing.T) {
	// Labels drawn without a <g> bind to the nearest free-standing
	// geometry within reach of their anchor.
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg">
  <circle cx="0" cy="100" r="2"/><text x="4" y="108">x1: 0 mV</text>
  <circle cx="100" cy="100" r="2"/><text x="104" y="108">x2: 1000 mV</text>
  <circle cx="-10" cy="100" r="2"/><text x="-30" y="100">y1: 0 A</text>
  <circle cx="-10" cy="0" r="2"/><text x="-30" y="0">y2: 1 A</text>
  <path id="trace" d="M 0 100 L 100 0"/>
</svg>`

	scene, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if scene.XAxis.Points[0].Pixel != (model.Point{X: 0, Y: 100}) {
		t.Errorf("x1 pixel = %+v, want {0 100}", scene.XAxis.Points[0].Pixel)
	}
	if scene.XAxis.Points[1].Pixel != (model.Point{X: 100, Y: 100}) {
		t.Errorf("x2 pixel = %+v, want {100 100}", scene.XAxis.Points[1].Pixel)
	}
	if scene.YAxis.Points[1].Pixel != (model.Point{X: -10, Y: 0}) {
		t.Errorf("y2 pixel = %+v, want {-10 0}", scene.YAxis.Points[1].Pixel)
	}
	if _, ok := scene.Curve("trace"); !ok {
		t.Error("ungrouped path with id was not kept as a curve")
	}
}

func TestParseUngroupedMarkerOutOfReach(t *testing.T) {
	// A free-standing label farther than the binding radius from any
	// ungrouped geometry stays unbound.
	doc := strings.Replace(calibratedScene,
		`<g><circle cx="100" cy="100" r="2"/><text x="102" y="112">x2: 1000 mV</text></g>`,
		`<circle cx="100" cy="100" r="2"/><text x="300" y="112">x2: 1000 mV</text>`, 1)

	if _, err := Parse(strings.NewReader(doc)); !errors.Is(err, ErrMalformedScene) {
		t.Errorf("Parse() error = %v, want ErrMalformedScene", err)
	}
}

func TestParseTransformedCurve(t *testing.T) {
	doc := strings.Replace(calibratedScene,
		`<g><path d="M 0 100 L 50 50 L 100 0"/><text x="50" y="40">curve: trace</text></g>`,
		`<g transform="translate(10, 20)"><path d="M 0 100 L 50 50"/><text x="50" y="40">curve: trace</text></g>`, 1)

	scene, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	curve, _ := scene.Curve("trace")
	if curve.Points[0] != (model.Point{X: 10, Y: 120}) {
		t.Errorf("transformed start = %+v, want {10 120}", curve.Points[0])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			"no curve",
			strings.Replace(calibratedScene,
				`<g><path d="M 0 100 L 50 50 L 100 0"/><text x="50" y="40">curve: trace</text></g>`, "", 1),
			ErrNoCurve,
		},
		{
			"one x marker",
			strings.Replace(calibratedScene,
				`<g><circle cx="100" cy="100" r="2"/><text x="102" y="112">x2: 1000 mV</text></g>`, "", 1),
			ErrNoCalibration,
		},
		{
			"unparseable label",
			strings.Replace(calibratedScene, "x2: 1000 mV", "x2: one volt", 1),
			ErrMalformedScene,
		},
		{
			"duplicate marker index",
			strings.Replace(calibratedScene, "x2: 1000 mV", "x1: 1000 mV", 1),
			ErrMalformedScene,
		},
		{
			"mixed axis units",
			strings.Replace(calibratedScene, "x2: 1000 mV", "x2: 1 V", 1),
			ErrMalformedScene,
		},
		{
			"marker without geometry",
			strings.Replace(calibratedScene,
				`<g><circle cx="100" cy="100" r="2"/><text x="102" y="112">x2: 1000 mV</text></g>`,
				`<text x="102" y="112">x2: 1000 mV</text>`, 1),
			ErrMalformedScene,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
			// Every structural failure classifies as a malformed scene.
			if !errors.Is(err, ErrMalformedScene) {
				t.Errorf("Parse() error = %v does not wrap ErrMalformedScene", err)
			}
		})
	}
}

// ============================================================================
// Path data tests
// ============================================================================

func TestParsePathCommands(t *testing.T) {
	id := model.Identity()

	tests := []struct {
		name string
		d    string
		want []model.Point
	}{
		{"absolute lines", "M 0 0 L 10 0 L 10 10", []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}},
		{"relative lines", "m 1 1 l 2 0 l 0 3", []model.Point{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 4}}},
		{"horizontal vertical", "M 0 0 H 5 V 7 h -2 v -3", []model.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 7}, {X: 3, Y: 7}, {X: 3, Y: 4}}},
		{"implicit lineto after move", "M 0 0 10 0 10 10", []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}},
		{"close path", "M 0 0 L 10 0 L 10 10 Z", []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 0}}},
		{"compressed numbers", "M0 0L1-2", []model.Point{{X: 0, Y: 0}, {X: 1, Y: -2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePath(tt.d, id)
			if err != nil {
				t.Fatalf("parsePath(%q) error = %v", tt.d, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d points %v, want %d", len(got), got, len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(got[i].X-tt.want[i].X) > 1e-12 || math.Abs(got[i].Y-tt.want[i].Y) > 1e-12 {
					t.Errorf("point %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParsePathCubicFlattening(t *testing.T) {
	points, err := parsePath("M 0 0 C 0 10 10 10 10 0", model.Identity())
	if err != nil {
		t.Fatalf("parsePath() error = %v", err)
	}
	if len(points) < 8 {
		t.Fatalf("flattening produced only %d points", len(points))
	}

	last := points[len(points)-1]
	if math.Abs(last.X-10) > 1e-12 || math.Abs(last.Y) > 1e-12 {
		t.Errorf("curve end = %+v, want {10 0}", last)
	}

	// The polyline must stay close to the true curve: for this symmetric
	// cubic every polyline vertex lies exactly on the curve, so adjacent
	// vertices must be close together wherever the curve bends.
	for i := 1; i < len(points); i++ {
		if points[i].Distance(points[i-1]) > 2.5 {
			t.Errorf("gap of %.2f px between flattened points %d and %d",
				points[i].Distance(points[i-1]), i-1, i)
		}
	}
	// Curve apex is at y = 7.5 for these control points.
	maxY := 0.0
	for _, p := range points {
		maxY = math.Max(maxY, p.Y)
	}
	if math.Abs(maxY-7.5) > 0.1 {
		t.Errorf("flattened apex = %v, want ≈7.5", maxY)
	}
}

func TestParsePathQuadratic(t *testing.T) {
	points, err := parsePath("M 0 0 Q 5 10 10 0", model.Identity())
	if err != nil {
		t.Fatalf("parsePath() error = %v", err)
	}
	last := points[len(points)-1]
	if math.Abs(last.X-10) > 1e-12 || math.Abs(last.Y) > 1e-12 {
		t.Errorf("curve end = %+v, want {10 0}", last)
	}
	// Quadratic apex is at y = 5.
	maxY := 0.0
	for _, p := range points {
		maxY = math.Max(maxY, p.Y)
	}
	if math.Abs(maxY-5) > 0.1 {
		t.Errorf("flattened apex = %v, want ≈5", maxY)
	}
}

func TestParsePathArcRejected(t *testing.T) {
	_, err := parsePath("M 0 0 A 5 5 0 0 1 10 0", model.Identity())
	if !errors.Is(err, ErrMalformedScene) {
		t.Errorf("arc path error = %v, want ErrMalformedScene", err)
	}
}

func TestParseTransformAttr(t *testing.T) {
	tests := []struct {
		attr string
		in   model.Point
		want model.Point
	}{
		{"translate(10,20)", model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 20}},
		{"translate(10)", model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}},
		{"scale(2)", model.Point{X: 3, Y: 4}, model.Point{X: 6, Y: 8}},
		{"scale(2,3)", model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 3}},
		{"matrix(1,0,0,1,5,6)", model.Point{X: 1, Y: 1}, model.Point{X: 6, Y: 7}},
		{"translate(10,0) scale(2)", model.Point{X: 1, Y: 0}, model.Point{X: 12, Y: 0}},
		{"rotate(90)", model.Point{X: 1, Y: 0}, model.Point{X: 0, Y: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			m, err := parseTransform(tt.attr)
			if err != nil {
				t.Fatalf("parseTransform(%q) error = %v", tt.attr, err)
			}
			got := m.Transform(tt.in)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("%q · %+v = %+v, want %+v", tt.attr, tt.in, got, tt.want)
			}
		})
	}

	if _, err := parseTransform("shear(1)"); !errors.Is(err, ErrMalformedScene) {
		t.Errorf("unsupported transform error = %v", err)
	}
}
