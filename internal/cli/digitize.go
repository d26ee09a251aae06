package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saraedum/digitizer"
)

type digitizeOpts struct {
	curve            string
	samplingInterval float64
	samplingUnit     string
	outDir           string
}

// newDigitizeCmd creates the digitize command. Each SVG argument becomes
// a CSV with the same base name.
func newDigitizeCmd(cfg DigitizeConfig) *cobra.Command {
	opts := digitizeOpts{
		samplingInterval: cfg.SamplingInterval,
		outDir:           cfg.OutDir,
	}

	cmd := &cobra.Command{
		Use:   "digitize <figure.svg> [more.svg ...]",
		Short: "Recover calibrated data from traced SVG plots as CSV",
		Long: `Digitize reads traced SVG figures and writes the recovered data as CSV.

Each figure needs two axis reference markers per axis (labels such as
"x1: 0 mV") and at least one traced curve. Without --sampling-interval
the traced points are reported as-is; with it the curve is resampled
onto a uniform grid.

Examples:
  digitizer digitize figure.svg
  digitizer digitize --sampling-interval 0.01 figure.svg
  digitizer digitize --sampling-interval 10 --sampling-unit mV figure.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			for _, input := range args {
				if err := digitizeOne(input, opts, logger.Warnf); err != nil {
					return fmt.Errorf("%s: %w", input, err)
				}
				logger.Infof("digitized %s", input)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.curve, "curve", "", "curve to digitize when the figure has several")
	cmd.Flags().Float64Var(&opts.samplingInterval, "sampling-interval", opts.samplingInterval,
		"resample onto a uniform grid with this spacing (0 keeps traced points)")
	cmd.Flags().StringVar(&opts.samplingUnit, "sampling-unit", "",
		"unit the sampling interval is given in (defaults to the x-axis unit)")
	cmd.Flags().StringVar(&opts.outDir, "outdir", opts.outDir, "directory for generated files")

	return cmd
}

func digitizeOne(input string, opts digitizeOpts, warnf func(string, ...any)) error {
	d := digitizer.Open(input).Curve(opts.curve).Logger(warnf)
	// Only zero means "no resampling"; anything else, including a bogus
	// negative interval, is for the sampler to judge.
	if opts.samplingInterval != 0 {
		d = d.SamplingInterval(opts.samplingInterval)
		if opts.samplingUnit != "" {
			d = d.SamplingUnit(opts.samplingUnit)
		}
	}
	table, err := d.Digitize()
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath(input, opts.outDir, baseName(input)+".csv"))
	if err != nil {
		return err
	}
	defer out.Close()
	return table.WriteCSV(out)
}
