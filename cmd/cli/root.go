// Package cli provides command-line interface commands for nmapx.
// This package implements the Cobra-based CLI structure with commands for
// running the scan pipeline, inspecting the plan, re-rendering earlier runs,
// and scheduling recurring runs.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/limulus26/Nmapx/internal/config"
	"github.com/limulus26/Nmapx/internal/logging"
)

const (
	// Exit codes.
	exitFatal       = 1
	exitInterrupted = 130
)

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nmapx",
	Short: "Progressive nmap scan pipeline",
	Long: `nmapx runs an ordered plan of nmap phases against one or more targets.
Early phases discover open ports and later phases are narrowed to them.
Every phase writes its -oA artifacts into a per-run directory, so an
interrupted run can be resumed without repeating finished work.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./nmapx.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory, then the user config dir
		viper.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(dir + "/nmapx")
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("nmapx")
	}

	// NMAPX_SCANNING_RESULTS_DIR overrides scanning.results_dir
	viper.SetEnvPrefix("NMAPX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setConfigDefaults()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	initLogging()
}

// setConfigDefaults sets default values for configuration.
func setConfigDefaults() {
	defaults := config.Default()

	// Scanning configuration
	viper.SetDefault("scanning.binary", defaults.Scanning.Binary)
	viper.SetDefault("scanning.elevate", defaults.Scanning.Elevate)
	viper.SetDefault("scanning.elevation_helper", defaults.Scanning.ElevationHelper)
	viper.SetDefault("scanning.results_dir", defaults.Scanning.ResultsDir)
	viper.SetDefault("scanning.phase_timeout", defaults.Scanning.PhaseTimeout)
	viper.SetDefault("scanning.progress_interval", defaults.Scanning.ProgressInterval)
	viper.SetDefault("scanning.terminate_grace", defaults.Scanning.TerminateGrace)

	// Logging configuration
	viper.SetDefault("logging.level", string(defaults.Logging.Level))
	viper.SetDefault("logging.format", string(defaults.Logging.Format))
	viper.SetDefault("logging.output", defaults.Logging.Output)

	// Metrics configuration
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
}

// loadConfig loads the config file and applies environment and flag
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}

	if viper.IsSet("scanning.binary") {
		cfg.Scanning.Binary = viper.GetString("scanning.binary")
	}
	if viper.IsSet("scanning.elevate") {
		cfg.Scanning.Elevate = viper.GetBool("scanning.elevate")
	}
	if viper.IsSet("scanning.elevation_helper") {
		cfg.Scanning.ElevationHelper = viper.GetString("scanning.elevation_helper")
	}
	if viper.IsSet("scanning.results_dir") {
		cfg.Scanning.ResultsDir = viper.GetString("scanning.results_dir")
	}
	if viper.IsSet("scanning.phase_timeout") {
		cfg.Scanning.PhaseTimeout = viper.GetDuration("scanning.phase_timeout")
	}
	if viper.IsSet("scanning.progress_interval") {
		cfg.Scanning.ProgressInterval = viper.GetDuration("scanning.progress_interval")
	}
	if viper.IsSet("scanning.terminate_grace") {
		cfg.Scanning.TerminateGrace = viper.GetDuration("scanning.terminate_grace")
	}
	if viper.IsSet("logging.level") {
		cfg.Logging.Level = logging.LogLevel(viper.GetString("logging.level"))
	}
	if viper.IsSet("logging.format") {
		cfg.Logging.Format = logging.LogFormat(viper.GetString("logging.format"))
	}
	if viper.IsSet("logging.output") {
		cfg.Logging.Output = viper.GetString("logging.output")
	}
	if viper.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = viper.GetBool("metrics.enabled")
	}
	if viper.IsSet("metrics.textfile") {
		cfg.Metrics.Textfile = viper.GetString("metrics.textfile")
	}
	if viper.GetBool("verbose") {
		cfg.Logging.Level = logging.LevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		// Commands report the config error themselves
		logging.SetDefault(logging.NewDefault())
		return
	}

	logConfig := cfg.Logging
	logConfig.AddSource = cfg.Logging.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	logging.SetDefault(logger)

	if verbose {
		logging.Info("Structured logging initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}
}
