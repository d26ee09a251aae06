package svg

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/saraedum/digitizer/model"
)

// parseTransform parses an SVG transform attribute such as
// "translate(10,20) scale(2)" into a single affine matrix. The functions
// compose left to right, matching the SVG rendering model.
func parseTransform(attr string) (model.Matrix, error) {
	m := model.Identity()
	rest := strings.TrimSpace(attr)

	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open < 0 || closing < open {
			return model.Matrix{}, fmt.Errorf("%w: bad transform %q", ErrMalformedScene, attr)
		}

		name := strings.TrimSpace(rest[:open])
		args, err := parseNumberList(rest[open+1 : closing])
		if err != nil {
			return model.Matrix{}, fmt.Errorf("%w: bad transform %q", ErrMalformedScene, attr)
		}

		var t model.Matrix
		switch {
		case name == "translate" && len(args) == 1:
			t = model.Translate(args[0], 0)
		case name == "translate" && len(args) == 2:
			t = model.Translate(args[0], args[1])
		case name == "scale" && len(args) == 1:
			t = model.Scale(args[0], args[0])
		case name == "scale" && len(args) == 2:
			t = model.Scale(args[0], args[1])
		case name == "rotate" && len(args) == 1:
			t = model.Rotate(args[0] * math.Pi / 180)
		case name == "rotate" && len(args) == 3:
			// Rotation about a point is translate, rotate, translate back.
			t = model.Translate(args[1], args[2]).
				Multiply(model.Rotate(args[0] * math.Pi / 180)).
				Multiply(model.Translate(-args[1], -args[2]))
		case name == "matrix" && len(args) == 6:
			t = model.Matrix{args[0], args[1], args[2], args[3], args[4], args[5]}
		case name == "skewX" && len(args) == 1:
			t = model.Matrix{1, 0, math.Tan(args[0] * math.Pi / 180), 1, 0, 0}
		case name == "skewY" && len(args) == 1:
			t = model.Matrix{1, math.Tan(args[0] * math.Pi / 180), 0, 1, 0, 0}
		default:
			return model.Matrix{}, fmt.Errorf("%w: unsupported transform %q", ErrMalformedScene, name)
		}
		m = m.Multiply(t)

		rest = strings.TrimLeft(rest[closing+1:], " \t\r\n,")
	}
	return m, nil
}

// parseNumberList splits a comma/space separated list of numbers.
func parseNumberList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
