package digitizer

import "github.com/saraedum/digitizer/calibration"

// options holds the configuration accumulated by the fluent methods.
type options struct {
	curve string

	resample         bool
	samplingInterval float64
	samplingUnit     string

	residualTolerance float64

	metadata map[string]any
	logf     func(format string, args ...any)
}

// defaultOptions returns the options used by a fresh Digitizer: the sole
// curve, raw sampling, the calibration package's residual tolerance.
func defaultOptions() options {
	return options{
		residualTolerance: calibration.DefaultResidualTolerance,
	}
}
