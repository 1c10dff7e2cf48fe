package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/semmidev/serverbackup/internal/app"
	"github.com/semmidev/serverbackup/internal/config"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Back up every directory under the sites root",
	Long: `Back up each directory directly under SITES_ROOT_DIRECTORY, skipping the
entries named in SITES_IGNORE_LIST inside every site. A failed site does not
stop the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, cfg *config.Config) error {
			return a.BackupSites(ctx, retention(cmd, cfg))
		})
	},
}

func init() {
	addRetentionFlag(sitesCmd)
}
