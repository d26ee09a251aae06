package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saraedum/digitizer/cv"
	"github.com/saraedum/digitizer/svg"
)

type cvOpts struct {
	curve            string
	samplingInterval float64
	metadataPath     string
	writePackage     bool
	outDir           string
}

// newCVCmd creates the cv command, the electrochemistry-aware variant of
// digitize: axes are normalized to volts and amperes, the scan rate label
// yields a time column, and the output can be bundled as a data package.
func newCVCmd(cfg CVConfig) *cobra.Command {
	opts := cvOpts{
		samplingInterval: cfg.SamplingInterval,
		outDir:           cfg.OutDir,
	}

	cmd := &cobra.Command{
		Use:   "cv <voltammogram.svg>",
		Short: "Recover a cyclic voltammogram from a traced SVG figure",
		Long: `CV digitizes a traced cyclic voltammogram. The x axis must carry a
potential unit and the y axis a current or current density unit; both are
converted to SI. A "scan rate" label in the figure adds a time column.

Examples:
  digitizer cv voltammogram.svg
  digitizer cv --sampling-interval 0.001 --metadata sample.yaml --package voltammogram.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCV(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.curve, "curve", "", "curve to digitize when the figure has several")
	cmd.Flags().Float64Var(&opts.samplingInterval, "sampling-interval", opts.samplingInterval,
		"voltage grid spacing in volts, applied per sweep (0 keeps traced points)")
	cmd.Flags().StringVar(&opts.metadataPath, "metadata", "", "YAML file with metadata to carry into the output")
	cmd.Flags().BoolVar(&opts.writePackage, "package", false, "also write a data package descriptor (JSON)")
	cmd.Flags().StringVar(&opts.outDir, "outdir", opts.outDir, "directory for generated files")

	return cmd
}

func runCV(cmd *cobra.Command, input string, opts cvOpts) error {
	logger := loggerFromContext(cmd.Context())

	var metadata map[string]any
	if opts.metadataPath != "" {
		in, err := os.Open(opts.metadataPath)
		if err != nil {
			return err
		}
		defer in.Close()
		if metadata, err = cv.LoadMetadata(in); err != nil {
			return fmt.Errorf("%s: %w", opts.metadataPath, err)
		}
	}

	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()
	scene, err := svg.Parse(in)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	voltammogram, err := cv.Process(scene, cv.Options{
		Curve:             opts.curve,
		SamplingIntervalV: opts.samplingInterval,
		Metadata:          metadata,
		Logf:              logger.Warnf,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	name := baseName(input)
	csvPath := outputPath(input, opts.outDir, name+".csv")
	out, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := voltammogram.WriteCSV(out); err != nil {
		return err
	}
	logger.Infof("wrote %s", csvPath)

	if opts.writePackage {
		descriptor, err := json.MarshalIndent(voltammogram.DataPackage(name, csvPath), "", "  ")
		if err != nil {
			return err
		}
		packagePath := outputPath(input, opts.outDir, name+".json")
		if err := os.WriteFile(packagePath, append(descriptor, '\n'), 0o644); err != nil {
			return err
		}
		logger.Infof("wrote %s", packagePath)
	}
	return nil
}
