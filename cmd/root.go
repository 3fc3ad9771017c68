package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// logLevelEnv overrides the default of --log.
const logLevelEnv = "DIALER_LOG_LEVEL"

var (
	logLevel string // Log verbosity level
	envFile  string // dotenv file loaded before any command runs
)

// envFlags maps flag names to environment variables that supply a value when
// the flag is not given on the command line.
var envFlags = map[string]string{
	"config":   "DIALER_CONFIG",
	"calls":    "DIALER_CALLS",
	"seed":     "DIALER_SEED",
	"strategy": "DIALER_STRATEGY",
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dialer-sim",
	Short: "Discrete-time simulator for outbound predictive dialers",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := loadEnv(cmd); err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := setupLogging(cmd); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// loadEnv reads the dotenv file and applies environment defaults to flags the
// user did not set. A missing default .env is not an error.
func loadEnv(cmd *cobra.Command) error {
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	for name, key := range envFlags {
		flag := cmd.Flags().Lookup(name)
		value, ok := os.LookupEnv(key)
		if flag == nil || flag.Changed || !ok || value == "" {
			continue
		}
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("applying %s=%q to --%s: %w", key, value, name, err)
		}
		logrus.Debugf("--%s set from %s", name, key)
	}
	return nil
}

// setupLogging sets the global log level from --log, or from
// DIALER_LOG_LEVEL when --log was not given.
func setupLogging(cmd *cobra.Command) error {
	level := logLevel
	if !cmd.Flags().Changed("log") {
		if env := os.Getenv(logLevelEnv); env != "" {
			level = env
		}
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", level)
	}
	logrus.SetLevel(parsed)
	return nil
}

// Execute runs the CLI root command. An interrupt cancels long searches.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// init sets up persistent flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with DIALER_* defaults")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(tuneCmd)
}
