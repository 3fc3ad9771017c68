package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand returns a command with the persistent and config flags bound
// to their package-level variables at default values.
func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&logLevel, "log", "info", "")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "")
	registerConfigFlags(cmd)
	return cmd
}

func keepLogLevel(t *testing.T) {
	level := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(level) })
}

func TestSetupLogging_EnvironmentDefault(t *testing.T) {
	keepLogLevel(t)
	// GIVEN DIALER_LOG_LEVEL and no --log flag
	t.Setenv(logLevelEnv, "debug")
	cmd := newTestCommand()

	// WHEN logging is set up
	require.NoError(t, setupLogging(cmd))

	// THEN the environment level applies
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetupLogging_FlagBeatsEnvironment(t *testing.T) {
	keepLogLevel(t)
	t.Setenv(logLevelEnv, "debug")
	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("log", "warn"))

	require.NoError(t, setupLogging(cmd))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestSetupLogging_InvalidLevel(t *testing.T) {
	keepLogLevel(t)
	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("log", "chatty"))
	assert.Error(t, setupLogging(cmd))
}

func TestLoadEnv_DotenvSuppliesFlagDefaults(t *testing.T) {
	// GIVEN a dotenv file setting the seed and strategy
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DIALER_SEED=7\nDIALER_STRATEGY=free-agent\n"), 0644))
	t.Cleanup(func() {
		_ = os.Unsetenv("DIALER_SEED")
		_ = os.Unsetenv("DIALER_STRATEGY")
	})
	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("env-file", path))
	require.NoError(t, cmd.Flags().Set("strategy", "analytic"))

	// WHEN the environment is loaded and the config built
	require.NoError(t, loadEnv(cmd))
	cfg, err := buildConfig(cmd)
	require.NoError(t, err)

	// THEN the unset flag takes the dotenv value and the explicit flag wins
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "analytic", cfg.Dialer.Strategy)
}

func TestLoadEnv_MissingFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := newTestCommand()
	assert.NoError(t, loadEnv(cmd), "missing default .env is ignored")

	cmd = newTestCommand()
	require.NoError(t, cmd.Flags().Set("env-file", "absent.env"))
	assert.Error(t, loadEnv(cmd), "missing explicit env file is an error")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "generate", "tune"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
