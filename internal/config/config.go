// Package config provides configuration structures and defaults for cocotape
package config

import (
	"fmt"
)

// MaxThreshold is the largest cycle length accepted for any classification bound
const MaxThreshold = 10000

// Config represents the complete application configuration
type Config struct {
	Decoder DecoderConfig `mapstructure:"decoder" yaml:"decoder"` // Demodulation and framing settings
	Input   InputConfig   `mapstructure:"input" yaml:"input"`     // Audio input settings
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`   // Program output settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"` // Logging configuration
}

// DecoderConfig contains the cycle classification thresholds and failure policy.
// Thresholds are counted in samples per cycle and are inclusive.
type DecoderConfig struct {
	OneLow          int  `mapstructure:"one_low" yaml:"one_low"`                     // Shortest cycle read as a 1 (2400 Hz)
	OneHigh         int  `mapstructure:"one_high" yaml:"one_high"`                   // Longest cycle read as a 1
	ZeroLow         int  `mapstructure:"zero_low" yaml:"zero_low"`                   // Shortest cycle read as a 0 (1200 Hz)
	ZeroHigh        int  `mapstructure:"zero_high" yaml:"zero_high"`                 // Longest cycle read as a 0
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error"` // Skip to the next program after a fatal decode error
}

// InputConfig contains audio input parameters
type InputConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"` // Required WAV sample rate in Hz
}

// OutputConfig contains program output parameters
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // Output format: text, json or yaml
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // Log level (debug, info, warn, error)
	File  string `mapstructure:"file" yaml:"file"`   // Optional JSON log file path
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Decoder: DefaultDecoderConfig(),
		Input: InputConfig{
			SampleRate: 44100, // CD rate, 18.4 samples per 2400 Hz cycle
		},
		Output: OutputConfig{
			Format: "text",
		},
		Logging: LoggingConfig{
			Level: "warn", // framing errors and noise stay quiet
			File:  "",
		},
	}
}

// DefaultDecoderConfig returns the thresholds measured on real CoCo recordings at 44.1 kHz
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		OneLow:   18,
		OneHigh:  31,
		ZeroLow:  31,
		ZeroHigh: 1000,
	}
}

// Validate checks the thresholds and the option values
func (c *Config) Validate() error {
	if err := c.Decoder.Validate(); err != nil {
		return err
	}

	if c.Input.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Input.SampleRate)
	}

	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid output format: %s (must be 'text', 'json', or 'yaml')", c.Output.Format)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

// Validate checks that every threshold is non-negative and bounded, and that
// each range is not inverted.
func (d DecoderConfig) Validate() error {
	bounds := []struct {
		name  string
		value int
	}{
		{"one_low", d.OneLow},
		{"one_high", d.OneHigh},
		{"zero_low", d.ZeroLow},
		{"zero_high", d.ZeroHigh},
	}
	for _, b := range bounds {
		if b.value < 0 {
			return fmt.Errorf("negative value for %s: %d", b.name, b.value)
		}
		if b.value > MaxThreshold {
			return fmt.Errorf("value too large for %s: %d (max %d)", b.name, b.value, MaxThreshold)
		}
	}

	if d.OneLow > d.OneHigh {
		return fmt.Errorf("one_low %d is above one_high %d", d.OneLow, d.OneHigh)
	}
	if d.ZeroLow > d.ZeroHigh {
		return fmt.Errorf("zero_low %d is above zero_high %d", d.ZeroLow, d.ZeroHigh)
	}

	return nil
}
