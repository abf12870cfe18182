package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aaronlmathis/cpuplot/internal/parse"
	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

// Config represents the application configuration
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Parse   ParseConfig   `yaml:"parse"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Server  ServerConfig  `yaml:"server"`
}

// InputConfig names the log file to analyze
type InputConfig struct {
	Path string `yaml:"path"`
}

// ParseConfig controls how records are parsed
type ParseConfig struct {
	Policy   string `yaml:"policy"`
	Location string `yaml:"location"`
}

// OutputConfig controls how the report and charts are rendered
type OutputConfig struct {
	Format  string   `yaml:"format"`
	Height  int      `yaml:"height"`
	Width   int      `yaml:"width"`
	Color   bool     `yaml:"color"`
	Windows []string `yaml:"windows"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig represents the Prometheus export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ServerConfig represents the serve command configuration
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// Output formats
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatWindow = "window"
)

// Load loads the configuration from environment variables and defaults
func Load() (*Config, error) {
	return loadWithDefaults("")
}

// LoadFromFile loads configuration from a YAML file, with environment variable overrides
func LoadFromFile(configPath string) (*Config, error) {
	return loadWithDefaults(configPath)
}

// loadWithDefaults loads configuration with defaults, optionally from a file
func loadWithDefaults(configPath string) (*Config, error) {
	cfg := &Config{
		Input: InputConfig{
			Path: getEnv("CPUPLOT_INPUT_PATH", ""),
		},
		Parse: ParseConfig{
			Policy:   getEnv("CPUPLOT_PARSE_POLICY", "skip"),
			Location: getEnv("CPUPLOT_PARSE_LOCATION", "UTC"),
		},
		Output: OutputConfig{
			Format:  getEnv("CPUPLOT_OUTPUT_FORMAT", FormatText),
			Height:  getEnvInt("CPUPLOT_OUTPUT_HEIGHT", 15),
			Width:   getEnvInt("CPUPLOT_OUTPUT_WIDTH", 0),
			Color:   getEnvBool("CPUPLOT_OUTPUT_COLOR", true),
			Windows: getEnvStringSlice("CPUPLOT_WINDOWS", []string{"5s", "1m", "5m"}),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "warn"),
			Format: getEnv("CPUPLOT_LOG_FORMAT", "console"),
			File:   getEnv("CPUPLOT_LOG_FILE", ""),
		},
		Metrics: MetricsConfig{
			Textfile: getEnv("CPUPLOT_METRICS_TEXTFILE", ""),
		},
		Server: ServerConfig{
			Addr:              getEnv("CPUPLOT_SERVER_ADDR", "127.0.0.1:8080"),
			RequestsPerMinute: getEnvInt("CPUPLOT_REQUESTS_PER_MINUTE", 120),
		},
	}

	// If a config file path is provided, load and merge it
	if configPath != "" {
		fileConfig, err := loadFromYAMLFile(configPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
		// Environment variables take precedence over the file
		cfg = mergeConfigs(cfg, fileConfig)
	}

	// Override port if PORT env var is set
	if port := getEnv("PORT", ""); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitList(value)
	}
	return defaultValue
}

// splitList splits a comma separated list, dropping empty items
func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// loadFromYAMLFile decodes a YAML file on top of a copy of base, so keys the
// file leaves out keep their default values
func loadFromYAMLFile(configPath string, base *Config) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := *base
	config.Output.Windows = nil
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if config.Output.Windows == nil {
		config.Output.Windows = base.Output.Windows
	}

	return &config, nil
}

// mergeConfigs merges file config with environment-based config
// Environment variables take precedence over file values
func mergeConfigs(envConfig, fileConfig *Config) *Config {
	// Start with file config as base
	result := *fileConfig

	stringVars := map[string]*string{
		"CPUPLOT_INPUT_PATH":       &result.Input.Path,
		"CPUPLOT_PARSE_POLICY":     &result.Parse.Policy,
		"CPUPLOT_PARSE_LOCATION":   &result.Parse.Location,
		"CPUPLOT_OUTPUT_FORMAT":    &result.Output.Format,
		"LOG_LEVEL":                &result.Logging.Level,
		"CPUPLOT_LOG_FORMAT":       &result.Logging.Format,
		"CPUPLOT_LOG_FILE":         &result.Logging.File,
		"CPUPLOT_METRICS_TEXTFILE": &result.Metrics.Textfile,
		"CPUPLOT_SERVER_ADDR":      &result.Server.Addr,
	}
	for key, dst := range stringVars {
		if envValue := os.Getenv(key); envValue != "" {
			*dst = envValue
		}
	}

	intVars := map[string]*int{
		"CPUPLOT_OUTPUT_HEIGHT":       &result.Output.Height,
		"CPUPLOT_OUTPUT_WIDTH":        &result.Output.Width,
		"CPUPLOT_REQUESTS_PER_MINUTE": &result.Server.RequestsPerMinute,
	}
	for key, dst := range intVars {
		if envValue := os.Getenv(key); envValue != "" {
			if parsed, err := strconv.Atoi(envValue); err == nil {
				*dst = parsed
			}
		}
	}

	if envValue := os.Getenv("CPUPLOT_OUTPUT_COLOR"); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			result.Output.Color = parsed
		}
	}
	if envValue := os.Getenv("CPUPLOT_WINDOWS"); envValue != "" {
		result.Output.Windows = envConfig.Output.Windows
	}

	return &result
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := parse.ParsePolicy(c.Parse.Policy); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatWindow:
	default:
		return fmt.Errorf("output format must be 'text', 'json', or 'window'")
	}
	if c.Output.Height < 1 {
		return fmt.Errorf("output height must be at least 1")
	}
	if c.Output.Width < 0 {
		return fmt.Errorf("output width cannot be negative")
	}
	if _, err := timeseries.ParseWindows(c.Output.Windows); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be 'debug', 'info', 'warn', or 'error'")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Server.RequestsPerMinute < 1 {
		return fmt.Errorf("requests per minute must be at least 1")
	}
	return nil
}

// Policy returns the parse failure policy
func (c *Config) Policy() parse.Policy {
	p, _ := parse.ParsePolicy(c.Parse.Policy)
	return p
}

// Location returns the zone "show clock" times are read in
func (c *Config) Location() (*time.Location, error) {
	if c.Parse.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Parse.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid parse location %q: %w", c.Parse.Location, err)
	}
	return loc, nil
}

// Windows returns the usage windows to report, in the order configured
func (c *Config) Windows() []timeseries.Window {
	ws, err := timeseries.ParseWindows(c.Output.Windows)
	if err != nil || len(ws) == 0 {
		return timeseries.AllWindows()
	}
	return ws
}

// SetWindows replaces the configured windows from a comma separated flag value
func (c *Config) SetWindows(value string) {
	c.Output.Windows = splitList(value)
}
