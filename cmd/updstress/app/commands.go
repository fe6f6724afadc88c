// Package app provides the command tree for updstress.
package app

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by updstress.
const EnvPrefix = "UPDSTRESS"

// newViper returns a viper instance that reads UPDSTRESS_* environment
// variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LogLevel parses the UPDSTRESS_LOG_LEVEL environment variable and returns
// the corresponding slog.Level. It defaults to slog.LevelInfo if the variable
// is unset or invalid.
func LogLevel() slog.Level {
	levelStr := newViper().GetString("LOG_LEVEL")
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// NewRootCmd creates the root command for updstress.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "updstress",
		DisableAutoGenTag: true,
		Short:             "Stress test for latest-wins update channels",
		Long: `updstress runs concurrent updaters and receivers against an update channel
and checks that every value received is intact, ordered, and current.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}
	rootCmd.AddCommand(newRunCmd(newViper()))
	return rootCmd
}
