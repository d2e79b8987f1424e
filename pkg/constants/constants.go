// Package constants provides shared constants for the loan-leads application.
package constants

import "time"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// BreakdownPreviewMonths caps the amortization preview returned with a simulation
	BreakdownPreviewMonths = 12
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the machine-readable JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is read for LOANLEADS_ variables when present
	DefaultEnvFile = ".env"

	// EnvPrefix prefixes environment overrides, e.g. LOANLEADS_PROSPECT_CLIENT_PASSWORD
	EnvPrefix = "LOANLEADS"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum JSON request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultDatabasePath is where tracking records are stored when none is configured
	DefaultDatabasePath = "loan-leads.db"

	// DefaultRequestTimeout bounds every HTTP request handled by the server
	DefaultRequestTimeout = 60 * time.Second
)

// Status polling defaults
const (
	// DefaultPollInterval is the delay between polls while an application is non-final
	DefaultPollInterval = 30 * time.Second

	// DefaultMaxRetries is the number of consecutive error retries before giving up
	DefaultMaxRetries = 3

	// BaseRetryDelay is the first backoff delay after a failed fetch
	BaseRetryDelay = time.Second

	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay = 30 * time.Second
)

// External API defaults
const (
	// DefaultClientID identifies this channel to the loan-prospect API
	DefaultClientID = "1003"

	// DefaultHTTPTimeout is applied to outbound API calls
	DefaultHTTPTimeout = 10 * time.Second
)
