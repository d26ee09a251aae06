package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saraedum/digitizer/pages"
)

// newPaginateCmd creates the paginate command.
func newPaginateCmd(cfg PaginateConfig) *cobra.Command {
	opts := pages.Options{
		OutDir:   cfg.OutDir,
		MaxWidth: cfg.MaxWidth,
	}

	cmd := &cobra.Command{
		Use:   "paginate <article.pdf> [more.pdf ...]",
		Short: "Split scanned article PDFs into per-page annotation SVGs",
		Long: `Paginate extracts the page scans from article PDFs. Page N of
article.pdf becomes article_pN.png plus article_pN.svg, an SVG that
embeds the scan on a locked layer ready for tracing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			for _, input := range args {
				results, err := pages.Paginate(input, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", input, err)
				}
				logger.Infof("split %s into %d pages", input, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OutDir, "outdir", opts.OutDir, "directory for generated files")
	cmd.Flags().BoolVar(&opts.OnlyPNG, "onlypng", false, "write only PNGs, no SVG wrappers")
	cmd.Flags().IntVar(&opts.MaxWidth, "max-width", opts.MaxWidth,
		"downscale scans wider than this many pixels (0 keeps full resolution)")

	return cmd
}
