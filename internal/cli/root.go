package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vigil/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Supervisor for a containerized coding agent",
	Long: `vigil supervises a coding agent running inside a long-lived container:
it feeds the agent an instruction, parses its output for completion signals,
watches the workspace for file changes, and keeps re-invoking the agent until
the task reports done or runs out of time.

Queue an instruction with 'vigil prompt', then run the loop with 'vigil start'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(doctorCmd)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to vigil.yaml config file (default: ./vigil.yaml if present)")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Workspace directory (overrides config)")
	rootCmd.PersistentFlags().String("container", "", "Agent container name (overrides config)")
	rootCmd.PersistentFlags().IntP("timeout", "t", 0, "Per-task time budget in seconds (overrides config)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the logger for the long-running supervisor.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// newQuietLogger builds the logger for short plumbing commands, which should
// only surface problems.
func newQuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// loadConfig resolves configuration in layers: .env file, built-in defaults,
// the YAML config file, environment variables, then command-line flags.
// The workspace path comes back absolute.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		if _, statErr := os.Stat("vigil.yaml"); statErr == nil {
			path = "vigil.yaml"
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if ws, _ := cmd.Flags().GetString("workspace"); ws != "" {
		cfg.Workspace = ws
	}
	if container, _ := cmd.Flags().GetString("container"); container != "" {
		cfg.Container = container
	}
	if timeout, _ := cmd.Flags().GetInt("timeout"); timeout > 0 {
		cfg.TimeoutSeconds = timeout
	}

	abs, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path %s: %w", cfg.Workspace, err)
	}
	cfg.Workspace = abs

	return cfg, nil
}
