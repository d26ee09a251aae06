package cli

import (
	"fmt"
	"image/color"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/saraedum/digitizer"
	"github.com/saraedum/digitizer/model"
)

type plotOpts struct {
	curve            string
	samplingInterval float64
	output           string
	outDir           string
}

// newPlotCmd creates the plot command: a visual round trip that renders
// the digitized curve back to a raster image for comparison against the
// original scan.
func newPlotCmd(cfg DigitizeConfig) *cobra.Command {
	opts := plotOpts{
		samplingInterval: cfg.SamplingInterval,
		outDir:           cfg.OutDir,
	}

	cmd := &cobra.Command{
		Use:   "plot <figure.svg>",
		Short: "Render a digitized curve back to a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			input := args[0]

			d := digitizer.Open(input).Curve(opts.curve).Logger(logger.Warnf)
			if opts.samplingInterval != 0 {
				d = d.SamplingInterval(opts.samplingInterval)
			}
			table, err := d.Digitize()
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			output := opts.output
			if output == "" {
				output = outputPath(input, opts.outDir, baseName(input)+".png")
			}
			if err := renderTable(table, output); err != nil {
				return err
			}
			logger.Infof("wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.curve, "curve", "", "curve to plot when the figure has several")
	cmd.Flags().Float64Var(&opts.samplingInterval, "sampling-interval", opts.samplingInterval,
		"resample before plotting (0 keeps traced points)")
	cmd.Flags().StringVar(&opts.output, "output", "", "output PNG path")
	cmd.Flags().StringVar(&opts.outDir, "outdir", opts.outDir, "directory for generated files")

	return cmd
}

// renderTable draws the table as a line plot and saves it as PNG.
func renderTable(table *model.Table, output string) error {
	p := plot.New()
	header := table.Header()
	if len(header) == 2 {
		p.X.Label.Text = header[0]
		p.Y.Label.Text = header[1]
	}
	for i, c := range table.Columns {
		if c.Scale != model.ScaleLog {
			continue
		}
		// Log-calibrated axes are rendered on a log scale too.
		if i == 0 {
			p.X.Scale = plot.LogScale{}
			p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		} else {
			p.Y.Scale = plot.LogScale{}
			p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		}
	}

	points := make(plotter.XYs, table.Len())
	for i, s := range table.Samples {
		points[i].X = s.X
		points[i].Y = s.Y
	}
	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("building line plot: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(plotter.NewGrid(), line)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, output); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
