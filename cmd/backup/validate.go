package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/semmidev/serverbackup/internal/config"
)

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	sectionColor = color.New(color.FgCyan)
	offColor     = color.New(color.FgYellow)
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Load and validate the configuration without touching storage or MySQL.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	okColor.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)

	sectionColor.Fprintln(out, "Storage:")
	fmt.Fprintf(out, "  Driver: %s\n", cfg.Storage.Driver)
	fmt.Fprintf(out, "  Bucket: %s\n", cfg.Storage.Bucket)
	if cfg.Storage.Endpoint != "" {
		fmt.Fprintf(out, "  Endpoint: %s\n", cfg.Storage.Endpoint)
	}
	if cfg.Storage.Driver == config.DriverLocal {
		fmt.Fprintf(out, "  Local path: %s\n", cfg.Storage.LocalPath)
	} else {
		feature(out, "Credentials", cfg.Storage.AccessKey != "" && cfg.Storage.SecretKey != "")
	}
	fmt.Fprintf(out, "  Database keys: %s/\n", cfg.Storage.DatabaseDir())
	fmt.Fprintf(out, "  Site keys: %s/\n", cfg.Storage.SiteDir())
	fmt.Fprintln(out)

	sectionColor.Fprintln(out, "Backup:")
	fmt.Fprintf(out, "  Work dir: %s\n", cfg.Backup.WorkDir)
	fmt.Fprintf(out, "  Retention: %d day(s)\n", cfg.Backup.RetentionDays)
	fmt.Fprintf(out, "  Timestamp layout: %s\n", cfg.Backup.TimestampLayout())
	fmt.Fprintln(out)

	sectionColor.Fprintln(out, "Optional Features:")
	feature(out, "MySQL", cfg.ValidateMySQL() == nil)
	feature(out, "Sites root", cfg.Sites.RootDirectory != "")
	feature(out, "Telegram", cfg.Telegram.Enabled())

	return nil
}

func feature(out io.Writer, name string, enabled bool) {
	if enabled {
		fmt.Fprintf(out, "  %s: %s\n", name, okColor.Sprint("yes"))
		return
	}
	fmt.Fprintf(out, "  %s: %s\n", name, offColor.Sprint("no"))
}
