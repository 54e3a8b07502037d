package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrInvalidDPI is returned when the rasterization resolution is not positive.
	ErrInvalidDPI = errors.New("invalid dpi: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidThreshold is returned when the threshold is outside 0..255.
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 255")

	// ErrInvalidHighlight is returned when a highlight size or the label font
	// size is not positive.
	ErrInvalidHighlight = errors.New("invalid highlight settings: sizes must be positive")

	// ErrInvalidLogLevel is returned when the log level is not a zap level name.
	ErrInvalidLogLevel = errors.New("invalid log level: use debug, info, warn or error")

	// ErrInvalidLogFormat is returned when the log format is neither console nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: use console or json")
)
