package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// configFile is the per-project defaults file, looked up in the working
// directory.
const configFile = "digitizer.toml"

// Config holds per-command defaults read from digitizer.toml. Flags set
// on the command line take precedence over these values.
type Config struct {
	Digitize DigitizeConfig `toml:"digitize"`
	CV       CVConfig       `toml:"cv"`
	Paginate PaginateConfig `toml:"paginate"`
}

// DigitizeConfig configures the digitize and plot commands.
type DigitizeConfig struct {
	// SamplingInterval resamples curves onto a uniform grid with this
	// spacing, in x-axis units. Zero keeps the raw traced points.
	SamplingInterval float64 `toml:"sampling_interval"`
	// OutDir receives the generated files. Empty writes next to the input.
	OutDir string `toml:"outdir"`
}

// CVConfig configures the cv command.
type CVConfig struct {
	// SamplingInterval is the voltage grid spacing in volts.
	SamplingInterval float64 `toml:"sampling_interval"`
	OutDir           string  `toml:"outdir"`
}

// PaginateConfig configures the paginate command.
type PaginateConfig struct {
	OutDir string `toml:"outdir"`
	// MaxWidth downscales page scans wider than this many pixels.
	MaxWidth int `toml:"max_width"`
}

// loadConfig reads digitizer.toml from the working directory. A missing
// file is not an error; a malformed one is.
func loadConfig() (Config, error) {
	var cfg Config
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(configFile, &cfg); err != nil {
		return cfg, fmt.Errorf("reading %s: %w", configFile, err)
	}
	return cfg, nil
}
