package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/semmidev/serverbackup/internal/app"
	"github.com/semmidev/serverbackup/internal/config"
)

var (
	syncDirectory string
	syncPrefix    string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload a local directory tree to the bucket",
	Long: `Upload every file under a directory, keeping its relative path below the
prefix. Defaults to BUCKET_DIRECTORY when no prefix is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, _ *config.Config) error {
			return a.Sync(ctx, syncDirectory, syncPrefix)
		})
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncDirectory, "directory", "d", "", "directory to upload (required)")
	syncCmd.Flags().StringVarP(&syncPrefix, "prefix", "p", "", "key prefix in the bucket")
	_ = syncCmd.MarkFlagRequired("directory")
}
