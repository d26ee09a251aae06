package model

// ScaleKind describes how an axis's data value varies with pixel position.
type ScaleKind int

const (
	// ScaleLinear is the default: data varies affinely with pixel position.
	ScaleLinear ScaleKind = iota
	// ScaleLog means the logarithm of the data varies affinely with pixel
	// position, as on decade-ruled plot paper.
	ScaleLog
)

// String returns "linear" or "log".
func (k ScaleKind) String() string {
	if k == ScaleLog {
		return "log"
	}
	return "linear"
}

// AxisName identifies a coordinate dimension of the plot.
type AxisName string

const (
	AxisX AxisName = "x"
	AxisY AxisName = "y"
)

// CalibrationPoint pairs a marker's pixel position with the data value the
// plot assigns to it along one axis.
type CalibrationPoint struct {
	// Pixel is the marker position in SVG user space.
	Pixel Point
	// Value is the data-space value at that position along the owning axis.
	Value float64
	// Unit is the unit token attached to the marker label, e.g. "mV".
	// Markers on one axis must agree on their unit.
	Unit string
}

// Axis describes one coordinate dimension of the traced plot: its scale
// kind, its unit token and the calibration markers that pin pixel positions
// to data values.
type Axis struct {
	Name   AxisName
	Scale  ScaleKind
	Unit   string
	Points []CalibrationPoint
}

// Curve is the flattened pixel-space trace of one drawn path, in drawing
// order. The points are dense enough that connecting them with straight
// lines is visually indistinguishable from the original path.
type Curve struct {
	Name   string
	Points []Point
}

// Scene is the parsed drawing: the traced curves plus the axis descriptors
// recovered from the calibration markers. Scenes are immutable after
// parsing.
type Scene struct {
	Curves []Curve
	XAxis  Axis
	YAxis  Axis

	// Labels holds the free-standing annotation texts that are not bound to
	// a marker or curve, keyed by their lower-cased prefix (e.g.
	// "scan rate"). Downstream layers interpret these; the scene itself
	// does not.
	Labels map[string]string
}

// Curve returns the named curve, or the sole curve when name is empty and
// the scene contains exactly one. The second return is false when no such
// curve exists.
func (s *Scene) Curve(name string) (Curve, bool) {
	if name == "" && len(s.Curves) == 1 {
		return s.Curves[0], true
	}
	for _, c := range s.Curves {
		if c.Name == name {
			return c, true
		}
	}
	return Curve{}, false
}

// Axis returns the named axis descriptor.
func (s *Scene) Axis(name AxisName) Axis {
	if name == AxisY {
		return s.YAxis
	}
	return s.XAxis
}
