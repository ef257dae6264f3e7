// Cocotape - TRS-80 Color Computer cassette decoder
// This program recovers tokenized BASIC programs from WAV recordings of
// CoCo cassette tapes and prints them as text listings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cocotape/internal/config"
	"cocotape/internal/decoder"
	"cocotape/internal/export"
	"cocotape/internal/logging"
	"cocotape/internal/version"
	"cocotape/internal/wavfile"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile     string // Configuration file path
	verbose     bool   // Enable verbose logging
	debug       bool   // Enable debug tracing of the block state machine
	showVersion bool   // Print version and exit
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cocotape [flags] FILE.wav",
	Short: "Decode TRS-80 Color Computer cassette recordings",
	Long: `Cocotape reads a mono 16-bit PCM recording of a Color Computer cassette,
demodulates the 1200/2400 Hz tones, reassembles the tape blocks and prints
every BASIC program found as a detokenized listing.

Cycle lengths are measured in samples between falling zero crossings. Use
the threshold flags to tune classification for a given recording.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("Cocotape"))
			return
		}

		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: filename required\n")
			cmd.Usage()
			os.Exit(1)
		}

		if err := runDecoder(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// init initializes the CLI flags and configuration
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./cocotape.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "trace every decoded byte and block")

	defaults := config.DefaultConfig()

	// Classification thresholds, in samples per cycle
	rootCmd.Flags().IntP("one-low", "o", defaults.Decoder.OneLow, "shortest cycle read as a 1")
	rootCmd.Flags().IntP("one-high", "O", defaults.Decoder.OneHigh, "longest cycle read as a 1")
	rootCmd.Flags().IntP("zero-low", "z", defaults.Decoder.ZeroLow, "shortest cycle read as a 0")
	rootCmd.Flags().IntP("zero-high", "Z", defaults.Decoder.ZeroHigh, "longest cycle read as a 0")

	rootCmd.Flags().Bool("continue", false, "skip to the next program after a checksum or structure error")
	rootCmd.Flags().Int("sample-rate", defaults.Input.SampleRate, "required sample rate of the recording (Hz)")
	rootCmd.Flags().StringP("format", "f", defaults.Output.Format, "output format: text, json or yaml")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("decoder.one_low", rootCmd.Flags().Lookup("one-low"))
	viper.BindPFlag("decoder.one_high", rootCmd.Flags().Lookup("one-high"))
	viper.BindPFlag("decoder.zero_low", rootCmd.Flags().Lookup("zero-low"))
	viper.BindPFlag("decoder.zero_high", rootCmd.Flags().Lookup("zero-high"))
	viper.BindPFlag("decoder.continue_on_error", rootCmd.Flags().Lookup("continue"))
	viper.BindPFlag("input.sample_rate", rootCmd.Flags().Lookup("sample-rate"))
	viper.BindPFlag("output.format", rootCmd.Flags().Lookup("format"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cocotape")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	setDefaults(config.DefaultConfig())

	// COCOTAPE_DECODER_ONE_LOW and friends
	viper.SetEnvPrefix("cocotape")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so environment variables
// reach keys without a flag or config file entry
func setDefaults(cfg *config.Config) {
	viper.SetDefault("decoder.one_low", cfg.Decoder.OneLow)
	viper.SetDefault("decoder.one_high", cfg.Decoder.OneHigh)
	viper.SetDefault("decoder.zero_low", cfg.Decoder.ZeroLow)
	viper.SetDefault("decoder.zero_high", cfg.Decoder.ZeroHigh)
	viper.SetDefault("decoder.continue_on_error", cfg.Decoder.ContinueOnError)
	viper.SetDefault("input.sample_rate", cfg.Input.SampleRate)
	viper.SetDefault("output.format", cfg.Output.Format)
	viper.SetDefault("logging.level", cfg.Logging.Level)
	viper.SetDefault("logging.file", cfg.Logging.File)
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runDecoder is the main application logic
func runDecoder(filename string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(os.Stderr, cfg.Logging, debug, verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	meta, samples, err := wavfile.Load(filename, cfg.Input.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}
	logger.Info("loaded recording",
		"file", filename,
		"sample_rate", meta.SampleRate,
		"samples", meta.NumSamples,
		"duration", meta.Duration())

	out, err := export.NewWriter(os.Stdout, cfg.Output.Format)
	if err != nil {
		return err
	}
	defer out.Close()

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
			cancel()
		case <-ctx.Done():
		}
	}()

	d := decoder.New(cfg.Decoder, out, logger)
	stats, err := d.Run(ctx, samples)
	if err != nil {
		return err
	}
	if stats.Programs == 0 {
		logger.Warn("no programs found", "file", filename, "cycles", stats.Cycles, "unclassified", stats.Unclassified)
	}

	return out.Close()
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
