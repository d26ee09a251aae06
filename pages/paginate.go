package pages

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/saraedum/digitizer/internal/pdf"
)

// Options controls pagination output.
type Options struct {
	// OutDir receives the generated files. Empty means the directory of
	// the input PDF.
	OutDir string

	// OnlyPNG suppresses the SVG wrappers.
	OnlyPNG bool

	// MaxWidth downscales scans wider than this many pixels, preserving
	// the aspect ratio. Zero keeps the original resolution.
	MaxWidth int
}

// Result names the files written for one page.
type Result struct {
	Page int
	PNG  string
	SVG  string
}

// Paginate extracts every page scan from the PDF at path and writes a
// PNG, and unless suppressed an annotation SVG, per page.
func Paginate(path string, opts Options) ([]Result, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}

	pageList, err := Pages(f)
	if err != nil {
		return nil, err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var results []Result
	for _, page := range pageList {
		img, err := page.Image()
		if err != nil {
			return results, err
		}
		if opts.MaxWidth > 0 {
			img = downscale(img, opts.MaxWidth)
		}

		name := fmt.Sprintf("%s_p%d", base, page.Number)
		pngPath := filepath.Join(outDir, name+".png")
		if err := writePNG(pngPath, img); err != nil {
			return results, err
		}
		result := Result{Page: page.Number, PNG: pngPath}

		if !opts.OnlyPNG {
			svgPath := filepath.Join(outDir, name+".svg")
			bounds := img.Bounds()
			wrapper := AnnotationSVG(name+".png", bounds.Dx(), bounds.Dy())
			if err := os.WriteFile(svgPath, []byte(wrapper), 0o644); err != nil {
				return results, fmt.Errorf("pages: writing %s: %w", svgPath, err)
			}
			result.SVG = svgPath
		}
		results = append(results, result)
	}
	return results, nil
}

// downscale shrinks img to at most maxWidth pixels wide.
func downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return img
	}
	height := bounds.Dy() * maxWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pages: writing %s: %w", path, err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("pages: encoding %s: %w", path, err)
	}
	return nil
}

// AnnotationSVG wraps a page scan in an SVG ready for tracing. The scan
// sits on a locked layer so an editor selects only the traced overlay,
// never the raster below it.
func AnnotationSVG(pngName string, width, height int) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg"
     xmlns:xlink="http://www.w3.org/1999/xlink"
     xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape"
     xmlns:sodipodi="http://sodipodi.sourceforge.net/DTD/sodipodi-0.0.dtd"
     width="%[2]dpx" height="%[3]dpx" viewBox="0 0 %[2]d %[3]d">
  <g inkscape:groupmode="layer" inkscape:label="scan" sodipodi:insensitive="true">
    <image x="0" y="0" width="%[2]d" height="%[3]d" xlink:href="%[1]s"/>
  </g>
  <g inkscape:groupmode="layer" inkscape:label="annotation">
  </g>
</svg>
`, pngName, width, height)
}
