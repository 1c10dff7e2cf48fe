package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/serverbackup/internal/config"
)

func localConfig(t *testing.T) *config.Config {
	root := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Name: "serverbackup", LogLevel: "error"},
		Storage: config.StorageConfig{
			Driver:         config.DriverLocal,
			Bucket:         "backups",
			Directory:      "server1",
			DatabasePrefix: "db",
			SitePrefix:     "site",
			LocalPath:      filepath.Join(root, "store"),
		},
		Sites: config.SitesConfig{
			RootDirectory: filepath.Join(root, "www"),
			IgnoreList:    []string{"cache"},
		},
		Backup: config.BackupConfig{
			WorkDir:        filepath.Join(root, "work"),
			RetentionDays:  7,
			TimestampOrder: config.OrderDayFirst,
		},
	}
}

func storedFiles(base string) []string {
	var files []string
	_ = filepath.WalkDir(base, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rel, _ := filepath.Rel(base, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	return files
}

func TestApp(t *testing.T) {
	Convey("Given an app backed by local storage", t, func() {
		ctx := context.Background()
		cfg := localConfig(t)
		So(os.MkdirAll(cfg.Backup.WorkDir, 0755), ShouldBeNil)
		for _, site := range []string{"blog", "shop"} {
			So(os.MkdirAll(filepath.Join(cfg.Sites.RootDirectory, site, "cache"), 0755), ShouldBeNil)
			So(os.WriteFile(filepath.Join(cfg.Sites.RootDirectory, site, "index.php"), []byte("<?php"), 0644), ShouldBeNil)
		}

		application, err := New(cfg)
		So(err, ShouldBeNil)
		defer application.Shutdown()

		Convey("BackupSites should store one tarball per site", func() {
			So(application.BackupSites(ctx, 7), ShouldBeNil)

			files := storedFiles(filepath.Join(cfg.Storage.LocalPath, "backups", "server1", "site"))
			So(files, ShouldHaveLength, 2)

			work, err := os.ReadDir(cfg.Backup.WorkDir)
			So(err, ShouldBeNil)
			So(work, ShouldBeEmpty)
		})

		Convey("BackupSite should reject a missing directory", func() {
			err := application.BackupSite(ctx, filepath.Join(cfg.Sites.RootDirectory, "nope"), 7)
			So(err, ShouldNotBeNil)
		})

		Convey("Sync should mirror a directory under the configured directory", func() {
			dir := t.TempDir()
			So(os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644), ShouldBeNil)

			So(application.Sync(ctx, dir, ""), ShouldBeNil)
			So(storedFiles(filepath.Join(cfg.Storage.LocalPath, "backups")), ShouldContain, "server1/a.txt")
		})

		Convey("BackupDatabases should require mysql settings", func() {
			err := application.BackupDatabases(ctx, 7)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "MYSQL_ADDRESS")
		})
	})
}
