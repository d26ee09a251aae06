// Package svg parses an annotated SVG drawing into a model.Scene.
//
// The drawing overlays a scanned plot. The annotation convention is the one
// used by the digitize workflow:
//
//   - A calibration marker is a <g> grouping geometric elements (path,
//     line, circle) with a <text> label of the form "x1: 0 mV" or
//     "y2: 1.5 A". The marker position is the center of the bounding box
//     of the group's non-path geometry (so a crosshair drawn as several
//     elements marks its crossing), or failing that the end point of the
//     group's path. A label without group geometry binds to the nearest
//     ungrouped geometric element within 50 pixels of its anchor. At
//     least two markers are required per axis.
//   - A traced curve is a path grouped with a "curve: <name>" <text> label;
//     an ungrouped path's id attribute serves as its name instead.
//   - Standalone labels "x-scale: log" and "y-scale: log" switch an axis to
//     the logarithmic scale kind; linear is the default. Other labels of
//     the form "key: value" (e.g. "scan rate: 50 mV/s") are collected for
//     downstream layers.
//
// Path geometry, including cubic and quadratic Bézier segments, is
// flattened to a dense polyline whose deviation from the true path stays
// below a small fraction of a pixel, so the flattening is numerically
// lossless for downstream sampling. Parsing is pure: no I/O, no state
// shared between calls.
package svg
