package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CalibratedSample is one digitized point in data space.
type CalibratedSample struct {
	X, Y float64
}

// Column describes one column of a result table: its header name, the
// physical unit of its values and the scale kind of the axis it came from.
type Column struct {
	Name  string
	Unit  string
	Scale ScaleKind
}

// Table is the result of digitizing one curve: the ordered samples plus the
// per-column unit metadata and the caller's opaque metadata block, passed
// through unchanged. A Table is created once per digitization and not
// mutated afterwards.
type Table struct {
	Columns []Column
	Samples []CalibratedSample

	// Metadata is the caller-supplied key/value block. The digitizer only
	// adds its own axis fields under the "figure description" key; all
	// other entries pass through untouched.
	Metadata map[string]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Samples)
}

// XValues returns the x column as a fresh slice.
func (t *Table) XValues() []float64 {
	xs := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		xs[i] = s.X
	}
	return xs
}

// YValues returns the y column as a fresh slice.
func (t *Table) YValues() []float64 {
	ys := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		ys[i] = s.Y
	}
	return ys
}

// Header returns the column headers, e.g. ["x (mV)", "y (A)"]. Columns
// without a unit render as the bare name.
func (t *Table) Header() []string {
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if c.Unit == "" {
			header[i] = c.Name
			continue
		}
		header[i] = fmt.Sprintf("%s (%s)", c.Name, c.Unit)
	}
	return header
}

// WriteCSV writes the table as CSV with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, s := range t.Samples {
		row := []string{
			strconv.FormatFloat(s.X, 'g', -1, 64),
			strconv.FormatFloat(s.Y, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
