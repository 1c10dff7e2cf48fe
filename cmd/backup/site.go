package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/semmidev/serverbackup/internal/app"
	"github.com/semmidev/serverbackup/internal/config"
)

var siteDirectory string

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Back up a single website directory",
	Long: `Archive one directory as {name}_{timestamp}.tar.gz, upload it under the
site prefix and prune copies older than the retention window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, cfg *config.Config) error {
			return a.BackupSite(ctx, siteDirectory, retention(cmd, cfg))
		})
	},
}

func init() {
	siteCmd.Flags().StringVarP(&siteDirectory, "directory", "d", "", "directory to back up (required)")
	_ = siteCmd.MarkFlagRequired("directory")
	addRetentionFlag(siteCmd)
}
