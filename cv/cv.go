// Package cv post-processes a digitized scene as a cyclic voltammogram:
// the x axis is normalized to volts, the y axis to a current (A) or
// current density (A/m2), a scan-rate annotation yields a time column, and
// the result can be serialized as CSV plus a frictionless data-package
// descriptor for inclusion in electrochemistry databases.
package cv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/saraedum/digitizer"
	"github.com/saraedum/digitizer/model"
	"github.com/saraedum/digitizer/sampler"
	"github.com/saraedum/digitizer/units"
)

// ErrNotVoltammogram indicates that the traced axes do not carry the units
// of a voltammogram: a potential on x and a current or current density on y.
var ErrNotVoltammogram = errors.New("cv: axes are not potential vs current")

var (
	volt          = units.MustParse("V")
	ampere        = units.MustParse("A")
	amperePerM2   = units.MustParse("A/m2")
	voltPerSecond = units.MustParse("V/s")
)

// Options configures voltammogram processing.
type Options struct {
	// Curve selects the traced curve by name; empty selects the scene's
	// only curve.
	Curve string
	// SamplingIntervalV requests resampling at this interval, in volts.
	// Zero keeps the raw traced points. Because a voltammogram folds back
	// in x, resampling is applied per monotonic sweep.
	SamplingIntervalV float64
	// Metadata is the caller's opaque metadata block; it is carried into
	// the result and the data-package descriptor unchanged.
	Metadata map[string]any
	// Logf receives non-fatal quality warnings.
	Logf func(format string, args ...any)
}

// Voltammogram is the processed result: rows of (t,) E, I with their
// column descriptors and the merged metadata.
type Voltammogram struct {
	Columns []model.Column
	Rows    [][]float64

	// Rate is the scan rate in V/s; HasRate reports whether the drawing
	// carried a scan-rate annotation.
	Rate    float64
	HasRate bool

	Metadata map[string]any
}

// Process digitizes the scene as a cyclic voltammogram.
func Process(scene *model.Scene, opts Options) (*Voltammogram, error) {
	// Axes are solved twice, once here to inspect the units and once
	// inside Digitize; the logger is installed after this pre-pass so
	// residual warnings are reported only once.
	d := digitizer.FromScene(scene).Curve(opts.Curve)
	xt, yt, err := d.Axes()
	if err != nil {
		return nil, err
	}
	if opts.Logf != nil {
		d.Logger(opts.Logf)
	}

	// Normalize the axis units: x to V, y to A or A/m2.
	if !xt.Unit().Compatible(volt) {
		return nil, fmt.Errorf("%w: x axis unit %q is not a potential", ErrNotVoltammogram, xt.Unit())
	}
	yTarget := ampere
	switch {
	case yt.Unit().Compatible(ampere):
	case yt.Unit().Compatible(amperePerM2):
		yTarget = amperePerM2
	default:
		return nil, fmt.Errorf("%w: y axis unit %q is neither a current nor a current density", ErrNotVoltammogram, yt.Unit())
	}

	table, err := d.Digitize()
	if err != nil {
		return nil, err
	}

	samples := make([]model.CalibratedSample, table.Len())
	for i, s := range table.Samples {
		x, err := xt.Unit().ConvertTo(s.X, volt)
		if err != nil {
			return nil, err
		}
		y, err := yt.Unit().ConvertTo(s.Y, yTarget)
		if err != nil {
			return nil, err
		}
		samples[i] = model.CalibratedSample{X: x, Y: y}
	}

	// Only zero means "no resampling"; a negative or non-finite interval
	// surfaces the sampler's validation error.
	if opts.SamplingIntervalV != 0 {
		samples, err = resampleSweeps(samples, opts.SamplingIntervalV)
		if err != nil {
			return nil, err
		}
	}

	v := &Voltammogram{
		Columns: []model.Column{
			{Name: "E", Unit: "V", Scale: xt.Scale()},
			{Name: "I", Unit: yTarget.Token, Scale: yt.Scale()},
		},
	}
	if yTarget.Dim == amperePerM2.Dim {
		v.Columns[1] = model.Column{Name: "j", Unit: "A/m2", Scale: yt.Scale()}
	}

	if rate, ok, err := scanRate(scene); err != nil {
		return nil, err
	} else if ok {
		v.Rate = rate
		v.HasRate = true
	}

	v.Rows = buildRows(samples, v)
	if v.HasRate {
		v.Columns = append([]model.Column{{Name: "t", Unit: "s"}}, v.Columns...)
	}

	v.Metadata = mergeMetadata(opts.Metadata, v)
	return v, nil
}

// resampleSweeps splits the trace at x-turning points and resamples each
// monotonic sweep independently, preserving sweep order. This keeps the
// fail-fast single-valued interpolation while supporting curves that fold
// back, which every cyclic voltammogram does.
func resampleSweeps(samples []model.CalibratedSample, dx float64) ([]model.CalibratedSample, error) {
	var result []model.CalibratedSample
	for _, sweep := range splitSweeps(samples) {
		if len(sweep) < 2 {
			continue
		}
		resampled, err := sampler.ResampleSamples(sweep, dx)
		if err != nil {
			return nil, err
		}
		// Mirror the grid back onto the sweep direction so traversal
		// order is preserved across the whole voltammogram.
		if sweep[0].X > sweep[len(sweep)-1].X {
			for i, j := 0, len(resampled)-1; i < j; i, j = i+1, j-1 {
				resampled[i], resampled[j] = resampled[j], resampled[i]
			}
		}
		result = append(result, resampled...)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no resampleable sweep", sampler.ErrNonFunctionCurve)
	}
	return result, nil
}

// splitSweeps cuts the sample sequence at every reversal of the x
// direction. The turning point is shared by both adjacent sweeps.
func splitSweeps(samples []model.CalibratedSample) [][]model.CalibratedSample {
	if len(samples) < 2 {
		return [][]model.CalibratedSample{samples}
	}

	var sweeps [][]model.CalibratedSample
	start := 0
	dir := 0.0
	for i := 1; i < len(samples); i++ {
		step := samples[i].X - samples[i-1].X
		if step == 0 {
			continue
		}
		if dir == 0 {
			dir = step
			continue
		}
		if (step > 0) != (dir > 0) {
			sweeps = append(sweeps, samples[start:i])
			start = i - 1
			dir = step
		}
	}
	sweeps = append(sweeps, samples[start:])
	return sweeps
}

// buildRows lays the samples out as CSV-ready rows, prepending the time
// column when a scan rate is known: t accumulates |ΔE| / rate along the
// trace.
func buildRows(samples []model.CalibratedSample, v *Voltammogram) [][]float64 {
	rows := make([][]float64, len(samples))
	t := 0.0
	for i, s := range samples {
		if !v.HasRate {
			rows[i] = []float64{s.X, s.Y}
			continue
		}
		if i > 0 {
			t += math.Abs(s.X-samples[i-1].X) / v.Rate
		}
		rows[i] = []float64{t, s.X, s.Y}
	}
	return rows
}

// scanRate parses the drawing's "scan rate" annotation into V/s.
func scanRate(scene *model.Scene) (float64, bool, error) {
	label, ok := scene.Labels["scan rate"]
	if !ok {
		return 0, false, nil
	}

	fields := strings.Fields(label)
	if len(fields) < 2 {
		return 0, false, fmt.Errorf("cv: cannot parse scan rate %q", label)
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false, fmt.Errorf("cv: cannot parse scan rate %q", label)
	}
	unit, err := units.Parse(strings.Join(fields[1:], " "))
	if err != nil {
		return 0, false, fmt.Errorf("cv: scan rate %q: %w", label, err)
	}
	rate, err := unit.ConvertTo(value, voltPerSecond)
	if err != nil {
		return 0, false, fmt.Errorf("cv: scan rate %q: %w", label, err)
	}
	return rate, true, nil
}

// mergeMetadata copies the caller's metadata unchanged and adds the
// "figure description" entry this layer derives from the axes and the
// scan rate.
func mergeMetadata(meta map[string]any, v *Voltammogram) map[string]any {
	merged := make(map[string]any, len(meta)+1)
	for k, val := range meta {
		merged[k] = val
	}

	fields := make([]any, len(v.Columns))
	for i, c := range v.Columns {
		fields[i] = map[string]any{"name": c.Name, "unit": c.Unit}
	}
	description := map[string]any{
		"type":   "digitized cyclic voltammogram",
		"fields": fields,
	}
	if v.HasRate {
		description["scan rate"] = map[string]any{"value": v.Rate, "unit": "V / s"}
	}
	merged["figure description"] = description
	return merged
}

// WriteCSV writes the voltammogram with a header row.
func (v *Voltammogram) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		header[i] = fmt.Sprintf("%s (%s)", c.Name, c.Unit)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	record := make([]string, len(v.Columns))
	for i, row := range v.Rows {
		for j, val := range row {
			record[j] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DataPackage builds a frictionless data-package descriptor referencing
// the CSV resource at csvPath, with the column schema and the merged
// metadata inlined.
func (v *Voltammogram) DataPackage(name, csvPath string) map[string]any {
	fields := make([]any, len(v.Columns))
	for i, c := range v.Columns {
		fields[i] = map[string]any{
			"name": c.Name,
			"type": "number",
			"unit": c.Unit,
		}
	}

	descriptor := map[string]any{
		"name":    name,
		"profile": "data-package",
		"resources": []any{
			map[string]any{
				"name":      name,
				"path":      csvPath,
				"format":    "csv",
				"mediatype": "text/csv",
				"schema":    map[string]any{"fields": fields},
			},
		},
	}
	for k, val := range v.Metadata {
		if _, taken := descriptor[k]; !taken {
			descriptor[k] = val
		}
	}
	return descriptor
}
