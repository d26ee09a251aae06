package pages

import (
	"errors"
	"fmt"

	"github.com/saraedum/digitizer/internal/pdf"
)

// ErrNoImage indicates a page without any raster image XObject.
var ErrNoImage = errors.New("pages: page has no image")

// Page is one page of a document together with the attributes it
// inherits from the page tree.
type Page struct {
	// Number is the 1-based page number.
	Number int

	file      *pdf.File
	dict      pdf.Dict
	resources pdf.Dict
}

// Pages flattens the document's page tree in document order, carrying
// inherited /Resources down to each leaf.
func Pages(f *pdf.File) ([]Page, error) {
	catalog, err := f.Catalog()
	if err != nil {
		return nil, err
	}
	root, err := f.ResolveDict(catalog.Get("Pages"))
	if err != nil {
		return nil, fmt.Errorf("pages: resolving page tree root: %w", err)
	}

	var result []Page
	if err := walkPageTree(f, root, nil, &result, 0); err != nil {
		return nil, err
	}
	return result, nil
}

// walkPageTree recurses through /Kids. Intermediate nodes may carry a
// /Resources dictionary that leaf pages inherit.
func walkPageTree(f *pdf.File, node pdf.Dict, inherited pdf.Dict, result *[]Page, depth int) error {
	if depth > 64 {
		return fmt.Errorf("pages: page tree deeper than 64 levels")
	}

	resources := inherited
	if res, err := f.ResolveDict(node.Get("Resources")); err == nil && res != nil {
		resources = res
	}

	if node.NameValue("Type") == "Page" {
		*result = append(*result, Page{
			Number:    len(*result) + 1,
			file:      f,
			dict:      node,
			resources: resources,
		})
		return nil
	}

	kids, err := f.Resolve(node.Get("Kids"))
	if err != nil {
		return fmt.Errorf("pages: resolving /Kids: %w", err)
	}
	arr, ok := kids.(pdf.Array)
	if !ok {
		return fmt.Errorf("pages: page tree node without /Kids array")
	}
	for _, kid := range arr {
		child, err := f.ResolveDict(kid)
		if err != nil {
			return fmt.Errorf("pages: resolving page tree child: %w", err)
		}
		if err := walkPageTree(f, child, resources, result, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// imageXObjects returns the page's image XObject streams.
func (p Page) imageXObjects() ([]*pdf.Stream, error) {
	xobjects, err := p.file.ResolveDict(p.resources.Get("XObject"))
	if err != nil {
		return nil, nil
	}

	var images []*pdf.Stream
	for _, obj := range xobjects {
		resolved, err := p.file.Resolve(obj)
		if err != nil {
			return nil, err
		}
		stream, ok := resolved.(*pdf.Stream)
		if !ok {
			continue
		}
		if stream.Dict.NameValue("Subtype") == "Image" {
			images = append(images, stream)
		}
	}
	return images, nil
}

// scanImage returns the page's dominant image XObject: the one covering
// the most pixels. Scanned pages carry exactly one full-page scan, but
// some scanners add small decoration images beside it.
func (p Page) scanImage() (*pdf.Stream, error) {
	images, err := p.imageXObjects()
	if err != nil {
		return nil, err
	}
	var best *pdf.Stream
	var bestArea int64
	for _, stream := range images {
		width, _ := stream.Dict.Int("Width")
		height, _ := stream.Dict.Int("Height")
		if area := width * height; area > bestArea {
			best, bestArea = stream, area
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w (page %d)", ErrNoImage, p.Number)
	}
	return best, nil
}
