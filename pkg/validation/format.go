// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"slices"

	"github.com/iwvelando/loan-leads/pkg/constants"
)

var (
	outputFormats = []string{constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON}
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"json", "console"}
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return fmt.Errorf("expected output format of %s, %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, format)
	}
	return nil
}

// ValidateLogLevel checks a logging level name. Empty means the default.
func ValidateLogLevel(level string) error {
	if level != "" && !slices.Contains(logLevels, level) {
		return fmt.Errorf("expected log level of debug, info, warn or error, got %s", level)
	}
	return nil
}

// ValidateLogFormat checks a logging encoder name. Empty means the default.
func ValidateLogFormat(format string) error {
	if format != "" && !slices.Contains(logFormats, format) {
		return fmt.Errorf("expected log format of json or console, got %s", format)
	}
	return nil
}
