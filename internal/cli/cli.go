// Package cli implements the digitizer command-line interface.
//
// The CLI turns traced SVG figures back into data files:
//   - digitize: recover calibrated values from a traced plot as CSV
//   - cv: recover a cyclic voltammogram with electrochemical defaults
//   - plot: render a traced curve back to a PNG for visual checking
//   - paginate: split a scanned article PDF into per-page SVGs
//
// All commands honor --verbose for debug-level logging. A digitizer.toml
// file in the working directory supplies per-command defaults, and every
// default yields to its command-line flag.
package cli
