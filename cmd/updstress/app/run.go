package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/creachadair/update/internal/stress"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a stress test",
		Long: `Run a stress test. Settings are read from flags, from UPDSTRESS_*
environment variables, and from an optional YAML config file, in that order
of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runStress(cmd, cfg)
		},
	}

	def := stress.Default()
	cmd.Flags().String("config", "", "Path to a YAML config file")
	cmd.Flags().Int("updaters", def.Updaters, "Number of concurrent updaters")
	cmd.Flags().Int("receivers", def.Receivers, "Number of concurrent receivers")
	cmd.Flags().Int("updates", def.Updates, "Number of updates per updater")
	cmd.Flags().Bool("take", def.Take, "Receive with Take instead of Recv (requires one receiver)")
	for _, name := range []string{"config", "updaters", "receivers", "updates", "take"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}
	return cmd
}

// loadConfig reads the stress configuration from v, merging in the config
// file named by the "config" key if there is one.
func loadConfig(v *viper.Viper) (stress.Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return stress.Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("Loaded config file", "path", path)
	}
	var cfg stress.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return stress.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func runStress(cmd *cobra.Command, cfg stress.Config) error {
	slog.Info("Starting stress run",
		"updaters", cfg.Updaters,
		"receivers", cfg.Receivers,
		"updates", cfg.Updates,
		"take", cfg.Take)

	start := time.Now()
	rep, err := stress.Run(cmd.Context(), cfg)
	if err != nil {
		slog.Error("Stress run failed", "error", err)
		return err
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "writes: %d in %v\n", rep.Writes, elapsed.Round(time.Millisecond))
	for i, st := range rep.Receivers {
		fmt.Fprintf(out, "receiver %d: observed %d (%.2f%%) from %d writers, final version %d (writer %d seq %d)\n",
			i+1, st.Observed, percent(st.Observed, rep.Writes), st.Writers,
			st.Version, st.Final.Writer, st.Final.Seq)
	}
	slog.Info("Stress run complete", "writes", rep.Writes, "elapsed", elapsed)
	return nil
}

func percent(n int, of int64) float64 {
	if of == 0 {
		return 0
	}
	return 100 * float64(n) / float64(of)
}
