// Package model defines the data types shared by the digitizer pipeline:
// the parsed vector scene (curves, axes, calibration markers), the geometric
// primitives the SVG layer produces, and the calibrated result table handed
// to serialization collaborators.
//
// All types are plain values. A Scene is built once by the svg package and
// never mutated afterwards, so digitizing many scenes (or many curves of one
// scene) in parallel needs no synchronization.
package model
