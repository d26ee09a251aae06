package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/saraedum/digitizer/model"
)

// tracedFigure is a minimal annotated figure: axes calibrated to volts
// and amperes, one diagonal trace.
const tracedFigure = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg">
  <g><circle cx="0" cy="100"/><text>x1: 0 V</text></g>
  <g><circle cx="100" cy="100"/><text>x2: 1 V</text></g>
  <g><circle cx="0" cy="100"/><text>y1: 0 A</text></g>
  <g><circle cx="0" cy="0"/><text>y2: 1 A</text></g>
  <g><path d="M 0 100 L 50 50 L 100 0"/><text>curve: trace</text></g>
</svg>`

func writeFigure(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "figure.svg")
	if err := os.WriteFile(path, []byte(tracedFigure), 0o644); err != nil {
		t.Fatalf("writing test figure: %v", err)
	}
	return path
}

// ============================================================================
// Configuration
// ============================================================================

func TestConfigDecode(t *testing.T) {
	const doc = `
[digitize]
sampling_interval = 0.01
outdir = "out"

[cv]
sampling_interval = 0.001

[paginate]
max_width = 2000
`
	var cfg Config
	if _, err := toml.Decode(doc, &cfg); err != nil {
		t.Fatalf("decoding config: %v", err)
	}
	if cfg.Digitize.SamplingInterval != 0.01 {
		t.Errorf("digitize sampling_interval = %v, want 0.01", cfg.Digitize.SamplingInterval)
	}
	if cfg.Digitize.OutDir != "out" {
		t.Errorf("digitize outdir = %q, want out", cfg.Digitize.OutDir)
	}
	if cfg.CV.SamplingInterval != 0.001 {
		t.Errorf("cv sampling_interval = %v, want 0.001", cfg.CV.SamplingInterval)
	}
	if cfg.Paginate.MaxWidth != 2000 {
		t.Errorf("paginate max_width = %d, want 2000", cfg.Paginate.MaxWidth)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		outDir string
		file   string
		want   string
	}{
		{"next to input", filepath.Join("figures", "a.svg"), "", "a.csv", filepath.Join("figures", "a.csv")},
		{"explicit outdir", filepath.Join("figures", "a.svg"), "out", "a.csv", filepath.Join("out", "a.csv")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := outputPath(tc.input, tc.outDir, tc.file); got != tc.want {
				t.Errorf("outputPath = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	if got := baseName(filepath.Join("figures", "scan_p1.svg")); got != "scan_p1" {
		t.Errorf("baseName = %q, want scan_p1", got)
	}
}

// ============================================================================
// digitize
// ============================================================================

func TestDigitizeOne(t *testing.T) {
	dir := t.TempDir()
	input := writeFigure(t, dir)

	opts := digitizeOpts{outDir: dir}
	if err := digitizeOne(input, opts, func(string, ...any) {}); err != nil {
		t.Fatalf("digitizeOne returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "figure.csv"))
	if err != nil {
		t.Fatalf("reading output CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "x (V),y (A)" {
		t.Errorf("CSV header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Errorf("CSV has %d lines, want header plus 3 rows:\n%s", len(lines), data)
	}
}

func TestDigitizeOneResampled(t *testing.T) {
	dir := t.TempDir()
	input := writeFigure(t, dir)

	opts := digitizeOpts{outDir: dir, samplingInterval: 0.25}
	if err := digitizeOne(input, opts, func(string, ...any) {}); err != nil {
		t.Fatalf("digitizeOne returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "figure.csv"))
	if err != nil {
		t.Fatalf("reading output CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// 0, 0.25, 0.5, 0.75, 1 plus the header.
	if len(lines) != 6 {
		t.Errorf("CSV has %d lines, want 6:\n%s", len(lines), data)
	}
}

func TestDigitizeOneNegativeInterval(t *testing.T) {
	dir := t.TempDir()
	input := writeFigure(t, dir)

	opts := digitizeOpts{outDir: dir, samplingInterval: -0.25}
	if err := digitizeOne(input, opts, func(string, ...any) {}); err == nil {
		t.Error("negative sampling interval succeeded, want a validation error")
	}
}

func TestDigitizeCommandMissingFile(t *testing.T) {
	cmd := newDigitizeCmd(DigitizeConfig{})
	cmd.SetContext(context.Background())
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.svg")})
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Error("digitize of a missing file succeeded")
	}
}

// ============================================================================
// cv
// ============================================================================

func TestRunCV(t *testing.T) {
	dir := t.TempDir()
	input := writeFigure(t, dir)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	opts := cvOpts{outDir: dir, writePackage: true}
	if err := runCV(cmd, input, opts); err != nil {
		t.Fatalf("runCV returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "figure.csv"))
	if err != nil {
		t.Fatalf("reading output CSV: %v", err)
	}
	header := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	if header != "E (V),I (A)" {
		t.Errorf("CSV header = %q, want E (V),I (A)", header)
	}

	descriptor, err := os.ReadFile(filepath.Join(dir, "figure.json"))
	if err != nil {
		t.Fatalf("reading data package descriptor: %v", err)
	}
	if !strings.Contains(string(descriptor), `"resources"`) {
		t.Errorf("descriptor has no resources block:\n%s", descriptor)
	}
}

func TestRunCVMetadata(t *testing.T) {
	dir := t.TempDir()
	input := writeFigure(t, dir)
	metaPath := filepath.Join(dir, "meta.yaml")
	if err := os.WriteFile(metaPath, []byte("source:\n  doi: 10.1000/demo\n"), 0o644); err != nil {
		t.Fatalf("writing metadata: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	opts := cvOpts{outDir: dir, metadataPath: metaPath}
	if err := runCV(cmd, input, opts); err != nil {
		t.Fatalf("runCV returned error: %v", err)
	}
}

// ============================================================================
// plot
// ============================================================================

func TestRenderTable(t *testing.T) {
	table := &model.Table{
		Columns: []model.Column{
			{Name: "x", Unit: "V"},
			{Name: "y", Unit: "A"},
		},
		Samples: []model.CalibratedSample{{X: 0, Y: 0}, {X: 0.5, Y: 0.25}, {X: 1, Y: 1}},
	}
	output := filepath.Join(t.TempDir(), "curve.png")
	if err := renderTable(table, output); err != nil {
		t.Fatalf("renderTable returned error: %v", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("stat on rendered plot: %v", err)
	}
	if info.Size() == 0 {
		t.Error("rendered plot is empty")
	}
}
