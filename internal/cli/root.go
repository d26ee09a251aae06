package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. It is
// called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the digitizer CLI.
//
// The logger is attached to the command context and picked up by every
// subcommand via loggerFromContext; --verbose raises it to debug level.
func Execute() error {
	var verbose bool

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := &cobra.Command{
		Use:          "digitizer",
		Short:        "Digitizer recovers data from traced SVG plots",
		Long: `Digitizer recovers calibrated numeric data from plots that were scanned,
traced in an SVG editor, and annotated with axis reference markers.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("digitizer %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newDigitizeCmd(cfg.Digitize))
	root.AddCommand(newCVCmd(cfg.CV))
	root.AddCommand(newPlotCmd(cfg.Digitize))
	root.AddCommand(newPaginateCmd(cfg.Paginate))

	return root.ExecuteContext(context.Background())
}

// outputPath places name in outDir, or next to input when outDir is empty.
func outputPath(input, outDir, name string) string {
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, name)
}

// baseName strips the directory and extension from an input path.
func baseName(input string) string {
	base := filepath.Base(input)
	return base[:len(base)-len(filepath.Ext(base))]
}
