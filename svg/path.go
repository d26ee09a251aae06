package svg

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/saraedum/digitizer/model"
)

// flattenTolerance is the maximum deviation, in pixels, between a flattened
// polyline and the true Bézier path. Traced plots carry far less than a
// twentieth of a pixel of precision, so flattening is lossless downstream.
const flattenTolerance = 0.05

// parsePath parses an SVG path data attribute and flattens it into a dense
// polyline, applying the accumulated transform m to every emitted point.
// Arc commands are rejected: traced curves are drawn with line and Bézier
// tools, and an arc in a curve path is almost certainly a leftover plot
// ornament.
func parsePath(d string, m model.Matrix) ([]model.Point, error) {
	sc := pathScanner{data: d}

	// Flattening happens in local coordinates; scale the tolerance by the
	// transform's magnification so the guarantee holds in scene space.
	tol := flattenTolerance
	if !m.IsIdentity() {
		if det := math.Abs(m[0]*m[3] - m[1]*m[2]); det > 1 {
			tol /= math.Sqrt(det)
		}
	}

	var (
		points     []model.Point
		cur, start model.Point
		prevCubic  model.Point // second control point of the previous C/S
		prevQuad   model.Point // control point of the previous Q/T
		prevCmd    byte
	)

	emit := func(p model.Point) {
		points = append(points, m.Transform(p))
	}

	for {
		cmd, ok, err := sc.command()
		if err != nil {
			return nil, fmt.Errorf("%w: path data %q: %v", ErrMalformedScene, d, err)
		}
		if !ok {
			break
		}

		relative := cmd >= 'a'
		upper := cmd &^ 0x20

		// Each command may repeat its argument group implicitly.
		first := true
		for first || sc.hasNumber() {
			first = false

			switch upper {
			case 'M':
				p, err := sc.point(cur, relative)
				if err != nil {
					return nil, pathErr(d, err)
				}
				cur, start = p, p
				emit(cur)
				// Subsequent pairs are implicit linetos.
				upper = 'L'

			case 'L':
				p, err := sc.point(cur, relative)
				if err != nil {
					return nil, pathErr(d, err)
				}
				cur = p
				emit(cur)

			case 'H':
				x, err := sc.number()
				if err != nil {
					return nil, pathErr(d, err)
				}
				if relative {
					x += cur.X
				}
				cur = model.Point{X: x, Y: cur.Y}
				emit(cur)

			case 'V':
				y, err := sc.number()
				if err != nil {
					return nil, pathErr(d, err)
				}
				if relative {
					y += cur.Y
				}
				cur = model.Point{X: cur.X, Y: y}
				emit(cur)

			case 'C', 'S':
				var c1 model.Point
				if upper == 'S' {
					c1 = reflect(cur, prevCubic, prevCmd == 'C' || prevCmd == 'S')
				} else {
					var err error
					if c1, err = sc.point(cur, relative); err != nil {
						return nil, pathErr(d, err)
					}
				}
				c2, err := sc.point(cur, relative)
				if err != nil {
					return nil, pathErr(d, err)
				}
				end, err := sc.point(cur, relative)
				if err != nil {
					return nil, pathErr(d, err)
				}
				flattenCubic(cur, c1, c2, end, tol, emit)
				prevCubic = c2
				cur = end

			case 'Q', 'T':
				var c model.Point
				if upper == 'T' {
					c = reflect(cur, prevQuad, prevCmd == 'Q' || prevCmd == 'T')
				} else {
					var err error
					if c, err = sc.point(cur, relative); err != nil {
						return nil, pathErr(d, err)
					}
				}
				end, err := sc.point(cur, relative)
				if err != nil {
					return nil, pathErr(d, err)
				}
				// Elevate the quadratic to a cubic and share the flattener.
				c1 := model.Point{X: cur.X + 2*(c.X-cur.X)/3, Y: cur.Y + 2*(c.Y-cur.Y)/3}
				c2 := model.Point{X: end.X + 2*(c.X-end.X)/3, Y: end.Y + 2*(c.Y-end.Y)/3}
				flattenCubic(cur, c1, c2, end, tol, emit)
				prevQuad = c
				cur = end

			case 'Z':
				if cur != start {
					cur = start
					emit(cur)
				}

			case 'A':
				return nil, fmt.Errorf("%w: path data %q: arc commands are not supported in traced curves", ErrMalformedScene, d)

			default:
				return nil, fmt.Errorf("%w: path data %q: unknown command %q", ErrMalformedScene, d, string(cmd))
			}

			prevCmd = upper
			if upper == 'Z' {
				break
			}
		}
	}

	return points, nil
}

func pathErr(d string, err error) error {
	return fmt.Errorf("%w: path data %q: %v", ErrMalformedScene, d, err)
}

// reflect mirrors the previous control point about the current point, the
// SVG rule for the S and T shorthand commands. When the previous command
// carried no control point the current point is used.
func reflect(cur, prev model.Point, smooth bool) model.Point {
	if !smooth {
		return cur
	}
	return model.Point{X: 2*cur.X - prev.X, Y: 2*cur.Y - prev.Y}
}

// flattenCubic emits a polyline approximation of the cubic Bézier
// (p0, c1, c2, p1) by recursive subdivision. The starting point p0 is not
// emitted; the final point p1 always is, exactly.
func flattenCubic(p0, c1, c2, p1 model.Point, tol float64, emit func(model.Point)) {
	if cubicFlat(p0, c1, c2, p1, tol) {
		emit(p1)
		return
	}

	// de Casteljau split at t = 1/2.
	ab := midpoint(p0, c1)
	bc := midpoint(c1, c2)
	cd := midpoint(c2, p1)
	abbc := midpoint(ab, bc)
	bccd := midpoint(bc, cd)
	mid := midpoint(abbc, bccd)

	flattenCubic(p0, ab, abbc, mid, tol, emit)
	flattenCubic(mid, bccd, cd, p1, tol, emit)
}

func midpoint(a, b model.Point) model.Point {
	return model.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// cubicFlat reports whether both control points lie within tol of the
// chord, which bounds the curve's deviation from the chord.
func cubicFlat(p0, c1, c2, p1 model.Point, tol float64) bool {
	return distToSegment(c1, p0, p1) <= tol && distToSegment(c2, p0, p1) <= tol
}

// distToSegment returns the distance from p to the segment a-b.
func distToSegment(p, a, b model.Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length2 := dx*dx + dy*dy
	if length2 == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / length2
	t = math.Max(0, math.Min(1, t))
	return p.Distance(model.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// pathScanner tokenizes SVG path data: single-letter commands and floats
// separated by whitespace or commas, with the usual compressed forms
// ("1-2", ".5.5") allowed.
type pathScanner struct {
	data string
	pos  int
}

func (sc *pathScanner) skipSeparators() {
	for sc.pos < len(sc.data) {
		switch sc.data[sc.pos] {
		case ' ', '\t', '\n', '\r', ',':
			sc.pos++
		default:
			return
		}
	}
}

// command returns the next command letter, or ok=false at end of input.
func (sc *pathScanner) command() (byte, bool, error) {
	sc.skipSeparators()
	if sc.pos >= len(sc.data) {
		return 0, false, nil
	}
	c := sc.data[sc.pos]
	if !isPathCommand(c) {
		return 0, false, fmt.Errorf("expected command at offset %d, found %q", sc.pos, string(c))
	}
	sc.pos++
	return c, true, nil
}

// hasNumber reports whether the next token is a number (an implicit
// repetition of the current command).
func (sc *pathScanner) hasNumber() bool {
	sc.skipSeparators()
	if sc.pos >= len(sc.data) {
		return false
	}
	c := sc.data[sc.pos]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

// number scans one float.
func (sc *pathScanner) number() (float64, error) {
	sc.skipSeparators()
	start := sc.pos
	i := sc.pos

	if i < len(sc.data) && (sc.data[i] == '-' || sc.data[i] == '+') {
		i++
	}
	seenDot := false
	for i < len(sc.data) {
		c := sc.data[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			i++
			continue
		}
		break
	}
	// Exponent part.
	if i < len(sc.data) && (sc.data[i] == 'e' || sc.data[i] == 'E') {
		j := i + 1
		if j < len(sc.data) && (sc.data[j] == '-' || sc.data[j] == '+') {
			j++
		}
		digits := j
		for j < len(sc.data) && sc.data[j] >= '0' && sc.data[j] <= '9' {
			j++
		}
		if j > digits {
			i = j
		}
	}

	if i == start {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	v, err := strconv.ParseFloat(sc.data[start:i], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q at offset %d", sc.data[start:i], start)
	}
	sc.pos = i
	return v, nil
}

// point scans an x,y pair, made absolute against cur when relative is set.
func (sc *pathScanner) point(cur model.Point, relative bool) (model.Point, error) {
	x, err := sc.number()
	if err != nil {
		return model.Point{}, err
	}
	y, err := sc.number()
	if err != nil {
		return model.Point{}, err
	}
	if relative {
		x += cur.X
		y += cur.Y
	}
	return model.Point{X: x, Y: y}, nil
}

func isPathCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtZzAa", c) >= 0
}
