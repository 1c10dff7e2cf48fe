package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/semmidev/serverbackup/internal/app"
	"github.com/semmidev/serverbackup/internal/config"
)

var databaseCmd = &cobra.Command{
	Use:     "database",
	Aliases: []string{"db"},
	Short:   "Back up every non-system MySQL database",
	Long: `Dump each database with mysqldump, compress it to {name}_{timestamp}.sql.gz,
upload it under the database prefix and prune copies older than the retention
window. System schemas and MYSQL_EXCLUDE are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, cfg *config.Config) error {
			return a.BackupDatabases(ctx, retention(cmd, cfg))
		})
	},
}

func init() {
	addRetentionFlag(databaseCmd)
}
