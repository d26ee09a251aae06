// Package pages splits a scanned article PDF into per-page images and
// annotation-ready SVG wrappers.
//
// Scanned plots arrive as one PDF per article, each page a single raster
// scan. Paginate walks the page tree, pulls the dominant image XObject
// off every page, writes it out as PNG and wraps it in an SVG whose image
// layer is locked, so the tracing tool only ever touches the overlay:
//
//	results, err := pages.Paginate("article.pdf", pages.Options{})
//
// Each page N of article.pdf becomes article_pN.png and article_pN.svg.
package pages
