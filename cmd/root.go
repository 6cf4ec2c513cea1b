package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abhisek/lessonforge/internal/config"
	"github.com/abhisek/lessonforge/internal/store"
)

var (
	vp     = viper.New()
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lessonforge",
	Short: "Lesson plan generator and AI tutor",
	Long: `lessonforge drafts structured lesson plans with a generative backend,
lets a teacher refine and publish them behind an access token, and runs
multi-turn tutoring sessions grounded in the published plan.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yaml or $XDG_CONFIG_HOME/lessonforge/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LESSONFORGE_DB env var)")
	_ = vp.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and installs the default logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.Init(vp, cfgFile); err != nil {
		return err
	}

	loaded, err := config.Load(vp)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger = cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return nil
}

// resolveDBPath returns the database path using database.path (--db flag or
// config), then LESSONFORGE_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if p := cfg.Database.Path; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
