// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/iwvelando/loan-leads/internal/poller"
	"github.com/iwvelando/loan-leads/internal/prospect"
	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for loan-leads.
type Configuration struct {
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging,omitempty"`
	Output   OutputConfig    `mapstructure:"output" yaml:"output,omitempty"`
	Polling  poller.Config   `mapstructure:"polling" yaml:"polling,omitempty"`
	Tracking TrackingConfig  `mapstructure:"tracking" yaml:"tracking,omitempty"`
	Prospect prospect.Config `mapstructure:"prospect" yaml:"prospect,omitempty"`
	Catalog  CatalogConfig   `mapstructure:"catalog" yaml:"catalog,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"output_file" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, json
}

// TrackingConfig locates the tracking status endpoint used by the CLI.
type TrackingConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// CatalogConfig overrides the built-in products when Products is non-empty.
type CatalogConfig struct {
	Products []catalog.Product `mapstructure:"products" yaml:"products,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	return decode(v)
}

// LoadEnvFile exports the variables of a dotenv file so they can override
// configuration values. Variables already set in the environment win, and a
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		// Defaults always decode.
		panic(err)
	}
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := poller.DefaultConfig()
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_file", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("polling.interval", defaults.Interval)
	v.SetDefault("polling.enabled", defaults.Enabled)
	v.SetDefault("polling.stop_on_final", defaults.StopOnFinal)
	v.SetDefault("polling.retry_on_error", defaults.RetryOnError)
	v.SetDefault("polling.max_retries", defaults.MaxRetries)
	v.SetDefault("tracking.base_url", "http://localhost"+constants.DefaultServerAddress)
	v.SetDefault("tracking.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("prospect.base_url", "")
	v.SetDefault("prospect.client_id", constants.DefaultClientID)
	v.SetDefault("prospect.client_password", "")
	v.SetDefault("prospect.mock", false)
	v.SetDefault("prospect.timeout", constants.DefaultHTTPTimeout)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Without an API to talk to, submissions go to the mock.
	if configuration.Prospect.BaseURL == "" {
		configuration.Prospect.Mock = true
	}
	for i := range configuration.Catalog.Products {
		normalizeOptionKeys(&configuration.Catalog.Products[i])
	}
	return &configuration, nil
}

// normalizeOptionKeys restores the camelCase field names viper lowercases in
// map keys.
func normalizeOptionKeys(p *catalog.Product) {
	if p.SimulatorConfig == nil || len(p.SimulatorConfig.Options) == 0 {
		return
	}
	known := []string{
		catalog.FieldLoanAmount, catalog.FieldTenor, catalog.FieldPurpose, catalog.FieldCollateralType,
		catalog.FieldDownPayment, catalog.FieldHousePrice, catalog.FieldLoanPurpose, catalog.FieldBusinessType,
	}
	options := make(map[string][]catalog.Option, len(p.SimulatorConfig.Options))
	for key, values := range p.SimulatorConfig.Options {
		for _, field := range known {
			if strings.EqualFold(key, field) {
				key = field
				break
			}
		}
		options[key] = values
	}
	p.SimulatorConfig.Options = options
}

// Products builds the product catalog, falling back to the built-in
// products when none are configured.
func (c *Configuration) Products() (*catalog.Catalog, error) {
	if len(c.Catalog.Products) == 0 {
		return catalog.Default(), nil
	}
	products, err := catalog.New(c.Catalog.Products)
	if err != nil {
		return nil, fmt.Errorf("invalid product catalog: %w", err)
	}
	return products, nil
}

// Validate returns an error for settings that make the program unusable.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	if c.Polling.Enabled && c.Polling.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive when polling is enabled, got %s", c.Polling.Interval)
	}
	if c.Polling.MaxRetries < 0 {
		return fmt.Errorf("polling max_retries must not be negative, got %d", c.Polling.MaxRetries)
	}
	if _, err := c.Products(); err != nil {
		return err
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.Catalog.Products) > 0 {
		warnings = append(warnings, validation.ValidateCatalog(c.Catalog.Products)...)
	}

	if c.Prospect.Mock {
		warnings = append(warnings, "Loan prospect API is in mock mode - submissions are not sent anywhere")
	} else if c.Prospect.ClientPassword == "" {
		warnings = append(warnings, "prospect.client_password is empty - every submission will fail")
	}

	if !c.Polling.Enabled {
		warnings = append(warnings, "Status polling is disabled - tracking fetches once")
	} else if !c.Polling.StopOnFinal {
		warnings = append(warnings, "polling.stop_on_final is false - final applications keep being polled")
	}
	if c.Polling.Enabled && c.Polling.Interval > 0 && c.Polling.Interval < time.Second {
		warnings = append(warnings, fmt.Sprintf("Polling interval %s is very short", c.Polling.Interval))
	}

	return warnings
}
