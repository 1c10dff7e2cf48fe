package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/serverbackup/internal/app"
	"github.com/semmidev/serverbackup/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"

	configFile    string
	retentionDays int
)

var rootCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up MySQL databases and website directories to object storage",
	Long: `backup dumps MySQL databases and archives website directories, uploads the
compressed artifacts to S3-compatible storage and prunes remote copies older
than the retention window.

Run it as a one-shot command from cron or a systemd timer.`,
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "env file with settings (environment variables take precedence)")

	rootCmd.AddCommand(siteCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(databaseCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(validateCmd)
}

func addRetentionFlag(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&retentionDays, "retention", "r", 7, "delete remote backups older than this many days (0 keeps everything)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withApp loads the configuration, builds the application and runs fn under
// a context that SIGINT and SIGTERM cancel.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, cfg *config.Config) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return fn(ctx, application, cfg)
}

// retention prefers the flag when given, then the configured value.
func retention(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("retention") {
		return retentionDays
	}
	return cfg.Backup.RetentionDays
}
