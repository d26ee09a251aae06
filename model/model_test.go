package model

import (
	"math"
	"strings"
	"testing"
)

// ============================================================================
// Geometry tests
// ============================================================================

func TestPointDistance(t *testing.T) {
	tests := []struct {
		name     string
		p1, p2   Point
		expected float64
	}{
		{"same point", Point{0, 0}, Point{0, 0}, 0},
		{"horizontal", Point{0, 0}, Point{3, 0}, 3},
		{"diagonal 3-4-5", Point{0, 0}, Point{3, 4}, 5},
		{"negative coords", Point{-1, -1}, Point{2, 3}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p1.Distance(tt.p2); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Distance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBBoxFromPoints(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Point
		want   BBox
	}{
		{"normal", Point{10, 20}, Point{50, 70}, BBox{10, 20, 40, 50}},
		{"reversed", Point{50, 70}, Point{10, 20}, BBox{10, 20, 40, 50}},
		{"degenerate", Point{5, 5}, Point{5, 5}, BBox{5, 5, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewBBoxFromPoints(tt.p1, tt.p2); got != tt.want {
				t.Errorf("NewBBoxFromPoints() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBBoxContainsExpand(t *testing.T) {
	b := BBox{X: 10, Y: 10, Width: 20, Height: 20}
	if !b.Contains(Point{10, 10}) || !b.Contains(Point{30, 30}) {
		t.Error("edges should be inclusive")
	}
	if b.Contains(Point{31, 20}) {
		t.Error("point outside should not be contained")
	}
	e := b.Expand(5)
	if !e.Contains(Point{6, 6}) {
		t.Error("expanded box should contain nearby point")
	}
}

func TestMatrixTransform(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		in   Point
		want Point
	}{
		{"identity", Identity(), Point{3, 4}, Point{3, 4}},
		{"translate", Translate(10, -5), Point{1, 1}, Point{11, -4}},
		{"scale", Scale(2, 3), Point{1, 1}, Point{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Transform(tt.in)
			if math.Abs(got.X-tt.want.X) > 1e-12 || math.Abs(got.Y-tt.want.Y) > 1e-12 {
				t.Errorf("Transform() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMatrixMultiplyOrder(t *testing.T) {
	// Translate then scale is not scale then translate.
	m := Scale(2, 2).Multiply(Translate(1, 0))
	got := m.Transform(Point{0, 0})
	if got.X != 2 || got.Y != 0 {
		t.Errorf("scale·translate applied to origin = %+v, want {2 0}", got)
	}

	m = Translate(1, 0).Multiply(Scale(2, 2))
	got = m.Transform(Point{0, 0})
	if got.X != 1 || got.Y != 0 {
		t.Errorf("translate·scale applied to origin = %+v, want {1 0}", got)
	}
}

func TestMatrixRotate(t *testing.T) {
	m := Rotate(math.Pi / 2)
	got := m.Transform(Point{1, 0})
	if math.Abs(got.X) > 1e-12 || math.Abs(got.Y-1) > 1e-12 {
		t.Errorf("90° rotation of (1,0) = %+v, want (0,1)", got)
	}
	if !Identity().IsIdentity() || m.IsIdentity() {
		t.Error("IsIdentity misclassified a matrix")
	}
}

// ============================================================================
// Scene tests
// ============================================================================

func TestSceneCurveLookup(t *testing.T) {
	scene := &Scene{Curves: []Curve{{Name: "trace"}}}

	if _, ok := scene.Curve("trace"); !ok {
		t.Error("named lookup failed")
	}
	if _, ok := scene.Curve(""); !ok {
		t.Error("empty name should match the sole curve")
	}
	if _, ok := scene.Curve("other"); ok {
		t.Error("unknown name should not match")
	}

	scene.Curves = append(scene.Curves, Curve{Name: "second"})
	if _, ok := scene.Curve(""); ok {
		t.Error("empty name must be ambiguous with two curves")
	}
}

func TestScaleKindString(t *testing.T) {
	if ScaleLinear.String() != "linear" || ScaleLog.String() != "log" {
		t.Errorf("unexpected ScaleKind strings: %q, %q", ScaleLinear, ScaleLog)
	}
}

// ============================================================================
// Table tests
// ============================================================================

func TestTableHeader(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "E", Unit: "V"}, {Name: "j"}},
	}
	header := table.Header()
	if header[0] != "E (V)" || header[1] != "j" {
		t.Errorf("Header() = %v", header)
	}
}

func TestTableWriteCSV(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "x", Unit: "V"}, {Name: "y", Unit: "A"}},
		Samples: []CalibratedSample{{0, 0}, {0.5, 0.25}},
	}

	var sb strings.Builder
	if err := table.WriteCSV(&sb); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "x (V),y (A)" {
		t.Errorf("header line = %q", lines[0])
	}
	if lines[2] != "0.5,0.25" {
		t.Errorf("second row = %q", lines[2])
	}
}
