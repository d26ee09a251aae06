package svg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/saraedum/digitizer/model"
)

// Scene structure errors. All of them unwrap to ErrMalformedScene so
// callers can classify any structural input problem with a single
// errors.Is check.
var (
	// ErrMalformedScene indicates a structural problem in the drawing.
	ErrMalformedScene = errors.New("svg: malformed scene")
	// ErrNoCurve indicates that no traced curve path was found.
	ErrNoCurve = fmt.Errorf("%w: no traced curve found", ErrMalformedScene)
	// ErrNoCalibration indicates fewer than two calibration markers on an
	// axis.
	ErrNoCalibration = fmt.Errorf("%w: fewer than two calibration markers on an axis", ErrMalformedScene)
)

// pathElem is a <path> encountered during the document walk. The data is
// kept raw and flattened on demand: a curve needs the full polyline, a
// marker only its end point.
type pathElem struct {
	group int
	id    string
	data  string
	m     model.Matrix
}

// geomElem is a non-path marker geometry (circle, line, rect) reduced to
// the single point it designates.
type geomElem struct {
	group int
	point model.Point
}

// textElem is a <text> with its accumulated character data and its anchor
// position in scene space.
type textElem struct {
	group   int
	content string
	pos     model.Point
}

// document holds the raw elements collected from one SVG file, before
// scene assembly.
type document struct {
	paths []pathElem
	geoms []geomElem
	texts []textElem
}

// parseDocument walks the XML token stream, tracking the transform stack
// and <g> nesting, and collects paths, marker geometries and texts.
func parseDocument(r io.Reader) (*document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	doc := &document{}

	type frame struct {
		name  string
		m     model.Matrix
		group int
	}
	stack := []frame{{m: model.Identity(), group: -1}}
	nextGroup := 0

	var textDepth int
	var textBuf strings.Builder
	var textGroup int
	var textPos model.Point

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedScene, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			top := stack[len(stack)-1]
			m := top.m
			if attr := findAttr(t.Attr, "transform"); attr != "" {
				local, err := parseTransform(attr)
				if err != nil {
					return nil, err
				}
				m = m.Multiply(local)
			}

			group := top.group
			if t.Name.Local == "g" {
				group = nextGroup
				nextGroup++
			}
			stack = append(stack, frame{name: t.Name.Local, m: m, group: group})

			switch t.Name.Local {
			case "path":
				doc.paths = append(doc.paths, pathElem{
					group: group,
					id:    findAttr(t.Attr, "id"),
					data:  findAttr(t.Attr, "d"),
					m:     m,
				})
			case "circle", "ellipse":
				cx := floatAttr(t.Attr, "cx")
				cy := floatAttr(t.Attr, "cy")
				doc.geoms = append(doc.geoms, geomElem{group: group, point: m.Transform(model.Point{X: cx, Y: cy})})
			case "line":
				// The marker points with its second end.
				x2 := floatAttr(t.Attr, "x2")
				y2 := floatAttr(t.Attr, "y2")
				doc.geoms = append(doc.geoms, geomElem{group: group, point: m.Transform(model.Point{X: x2, Y: y2})})
			case "rect":
				x := floatAttr(t.Attr, "x")
				y := floatAttr(t.Attr, "y")
				w := floatAttr(t.Attr, "width")
				h := floatAttr(t.Attr, "height")
				doc.geoms = append(doc.geoms, geomElem{group: group, point: m.Transform(model.Point{X: x + w/2, Y: y + h/2})})
			case "text":
				if textDepth == 0 {
					textBuf.Reset()
					textGroup = group
					textPos = m.Transform(model.Point{X: floatAttr(t.Attr, "x"), Y: floatAttr(t.Attr, "y")})
				}
				textDepth++
			}

		case xml.CharData:
			if textDepth > 0 {
				textBuf.Write(t)
			}

		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Local == "text" && textDepth > 0 {
				textDepth--
				if textDepth == 0 {
					content := strings.TrimSpace(textBuf.String())
					if content != "" {
						doc.texts = append(doc.texts, textElem{group: textGroup, content: content, pos: textPos})
					}
				}
			}
		}
	}

	return doc, nil
}

// charsetReader lets the XML decoder handle SVGs whose declaration names a
// non-UTF-8 encoding, resolving the name through the IANA index.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("svg: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

func findAttr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func floatAttr(attrs []xml.Attr, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(findAttr(attrs, name), "px"), 64)
	if err != nil {
		return 0
	}
	return v
}
