package svg

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/saraedum/digitizer/model"
)

var (
	calibrationRe = regexp.MustCompile(`^([xy])\s*(\d+)\s*:\s*(.+)$`)
	curveRe       = regexp.MustCompile(`(?i)^curve\s*:\s*(.+)$`)
	scaleRe       = regexp.MustCompile(`(?i)^([xy])-scale\s*:\s*([a-z]+)$`)
	labelRe       = regexp.MustCompile(`^([^:]+?)\s*:\s*(.+)$`)
)

// Parse reads an annotated SVG drawing and assembles the scene: curves,
// axes with their calibration markers, scale kinds and free-standing
// labels. It fails with an error wrapping ErrMalformedScene when the
// drawing does not satisfy the annotation convention described in the
// package documentation.
func Parse(r io.Reader) (*model.Scene, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return nil, err
	}
	return assemble(doc)
}

// ParseBytes is Parse on an in-memory document.
func ParseBytes(data []byte) (*model.Scene, error) {
	return Parse(bytes.NewReader(data))
}

// indexedPoint is a calibration point together with its marker index, used
// to order markers x1, x2, … before they land on the axis.
type indexedPoint struct {
	index int
	point model.CalibrationPoint
}

func assemble(doc *document) (*model.Scene, error) {
	scene := &model.Scene{
		XAxis:  model.Axis{Name: model.AxisX},
		YAxis:  model.Axis{Name: model.AxisY},
		Labels: map[string]string{},
	}

	pathsByGroup := map[int][]pathElem{}
	for _, p := range doc.paths {
		pathsByGroup[p.group] = append(pathsByGroup[p.group], p)
	}
	geomsByGroup := map[int][]geomElem{}
	for _, g := range doc.geoms {
		geomsByGroup[g.group] = append(geomsByGroup[g.group], g)
	}

	markers := map[model.AxisName][]indexedPoint{}
	curveNames := map[int]string{} // group → curve name
	consumed := map[int]bool{}     // groups whose path is marker geometry

	for _, text := range doc.texts {
		switch {
		case calibrationRe.MatchString(text.content):
			m := calibrationRe.FindStringSubmatch(text.content)
			axis := model.AxisName(m[1])
			index, _ := strconv.Atoi(m[2])

			value, unit, err := parseValueLabel(m[3])
			if err != nil {
				return nil, fmt.Errorf("%w: calibration label %q: %v", ErrMalformedScene, text.content, err)
			}

			pixel, ok := markerPosition(text.group, pathsByGroup, geomsByGroup)
			if ok {
				consumed[text.group] = true
			} else {
				// Ungrouped geometry is never a curve, so a proximity
				// binding consumes nothing.
				pixel, ok = nearestGeometry(text.pos, doc.geoms)
			}
			if !ok {
				return nil, fmt.Errorf("%w: calibration label %q has no marker geometry in its group or nearby", ErrMalformedScene, text.content)
			}

			markers[axis] = append(markers[axis], indexedPoint{
				index: index,
				point: model.CalibrationPoint{Pixel: pixel, Value: value, Unit: unit},
			})

		case curveRe.MatchString(text.content):
			name := strings.TrimSpace(curveRe.FindStringSubmatch(text.content)[1])
			if text.group >= 0 {
				curveNames[text.group] = name
			}

		case scaleRe.MatchString(text.content):
			m := scaleRe.FindStringSubmatch(text.content)
			kind, err := parseScaleKind(m[2])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedScene, err)
			}
			if model.AxisName(strings.ToLower(m[1])) == model.AxisY {
				scene.YAxis.Scale = kind
			} else {
				scene.XAxis.Scale = kind
			}

		case labelRe.MatchString(text.content):
			m := labelRe.FindStringSubmatch(text.content)
			scene.Labels[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
		}
	}

	// Collect curves: labelled groups first, then ungrouped paths carrying
	// an id, all in document order.
	for _, p := range doc.paths {
		if consumed[p.group] {
			continue
		}
		name, labelled := curveNames[p.group]
		if !labelled {
			if p.id == "" {
				continue
			}
			name = p.id
		}

		points, err := parsePath(p.data, p.m)
		if err != nil {
			return nil, err
		}
		if len(points) < 2 {
			return nil, fmt.Errorf("%w: curve %q has fewer than two points", ErrMalformedScene, name)
		}
		scene.Curves = append(scene.Curves, model.Curve{Name: name, Points: points})
	}

	if len(scene.Curves) == 0 {
		return nil, ErrNoCurve
	}

	var err error
	if scene.XAxis.Points, scene.XAxis.Unit, err = axisPoints(model.AxisX, markers[model.AxisX]); err != nil {
		return nil, err
	}
	if scene.YAxis.Points, scene.YAxis.Unit, err = axisPoints(model.AxisY, markers[model.AxisY]); err != nil {
		return nil, err
	}

	return scene, nil
}

// markerPosition resolves the pixel position of a marker group: the
// center of the bounding box of its non-path geometry wins (a marker may
// be drawn as several elements, such as a crosshair), otherwise the end
// point of the group's path.
func markerPosition(group int, paths map[int][]pathElem, geoms map[int][]geomElem) (model.Point, bool) {
	if group < 0 {
		return model.Point{}, false
	}
	if gs := geoms[group]; len(gs) > 0 {
		box := model.NewBBoxFromPoints(gs[0].point, gs[0].point)
		for _, g := range gs[1:] {
			box = box.Union(model.NewBBoxFromPoints(g.point, g.point))
		}
		return box.Center(), true
	}
	for _, p := range paths[group] {
		points, err := parsePath(p.data, p.m)
		if err != nil || len(points) == 0 {
			continue
		}
		return points[len(points)-1], true
	}
	return model.Point{}, false
}

// labelBindRadius is how far, in pixels, a free-standing label may sit
// from the marker geometry it annotates.
const labelBindRadius = 50.0

// nearestGeometry binds a label without group geometry to the closest
// ungrouped marker geometry within labelBindRadius of the label anchor.
// Grouped geometry is never a candidate; it belongs to its own group's
// annotation.
func nearestGeometry(label model.Point, geoms []geomElem) (model.Point, bool) {
	var best model.Point
	bestDist := math.Inf(1)
	for _, g := range geoms {
		if g.group >= 0 {
			continue
		}
		reach := model.NewBBoxFromPoints(g.point, g.point).Expand(labelBindRadius)
		if !reach.Contains(label) {
			continue
		}
		if d := label.Distance(g.point); d < bestDist {
			bestDist, best = d, g.point
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// axisPoints orders an axis's markers by index, checks unit agreement and
// returns the calibration points with the resolved unit token.
func axisPoints(axis model.AxisName, pts []indexedPoint) ([]model.CalibrationPoint, string, error) {
	if len(pts) < 2 {
		return nil, "", fmt.Errorf("%w: axis %s has %d markers", ErrNoCalibration, axis, len(pts))
	}

	sort.Slice(pts, func(i, j int) bool { return pts[i].index < pts[j].index })

	unit := ""
	result := make([]model.CalibrationPoint, 0, len(pts))
	for i, p := range pts {
		if i > 0 && pts[i-1].index == p.index {
			return nil, "", fmt.Errorf("%w: axis %s has two markers with index %d", ErrMalformedScene, axis, p.index)
		}
		if p.point.Unit != "" {
			if unit != "" && unit != p.point.Unit {
				return nil, "", fmt.Errorf("%w: axis %s mixes units %q and %q", ErrMalformedScene, axis, unit, p.point.Unit)
			}
			unit = p.point.Unit
		}
		result = append(result, p.point)
	}
	return result, unit, nil
}

// parseValueLabel splits "0.5 mV" into the number and the unit token. The
// unit may be absent.
func parseValueLabel(s string) (float64, string, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("empty value")
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("cannot parse %q as a number", fields[0])
	}
	return value, strings.Join(fields[1:], " "), nil
}

func parseScaleKind(s string) (model.ScaleKind, error) {
	switch strings.ToLower(s) {
	case "linear", "lin":
		return model.ScaleLinear, nil
	case "log", "logarithmic":
		return model.ScaleLog, nil
	}
	return 0, fmt.Errorf("unknown scale kind %q", s)
}
