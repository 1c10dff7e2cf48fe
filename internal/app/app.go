package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/semmidev/serverbackup/internal/adapter/archiver"
	"github.com/semmidev/serverbackup/internal/adapter/database"
	"github.com/semmidev/serverbackup/internal/adapter/notifier"
	"github.com/semmidev/serverbackup/internal/adapter/storage"
	"github.com/semmidev/serverbackup/internal/config"
	"github.com/semmidev/serverbackup/internal/domain"
	"github.com/semmidev/serverbackup/internal/infrastructure/logger"
	"github.com/semmidev/serverbackup/internal/usecase"
)

type App struct {
	config *config.Config
	logger *logger.Logger
	mysql  *database.MySQLDatabase
	runner *usecase.Runner
	sync   *usecase.Sync
}

func New(cfg *config.Config) (*App, error) {
	base, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := base.WithRun(uuid.NewString())

	store, err := newStore(&cfg.Storage, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	mysql := database.NewMySQL(&cfg.MySQL)
	namer := usecase.NewNamer(cfg.Backup.TimestampLayout())
	retention := usecase.NewRetention(store, cfg.Storage.Bucket, namer, log)

	backupUC := usecase.NewBackup(
		mysql,
		archiver.NewGzip(),
		archiver.NewTarball(),
		store,
		retention,
		namer,
		log,
		usecase.BackupOptions{
			Bucket:      cfg.Storage.Bucket,
			DatabaseDir: cfg.Storage.DatabaseDir(),
			SiteDir:     cfg.Storage.SiteDir(),
			WorkDir:     cfg.Backup.WorkDir,
		},
	)

	return &App{
		config: cfg,
		logger: log,
		mysql:  mysql,
		runner: usecase.NewRunner(backupUC, mysql, newNotifier(&cfg.Telegram, log), log),
		sync:   usecase.NewSync(store, cfg.Storage.Bucket, log),
	}, nil
}

func newStore(cfg *config.StorageConfig, log *logger.Logger) (domain.ObjectStore, error) {
	switch cfg.Driver {
	case config.DriverLocal:
		local, err := storage.NewLocal(cfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		log.Infof("Storage: local (%s/%s)", cfg.LocalPath, cfg.Bucket)
		return local, nil
	default:
		s3, err := storage.NewS3(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		if cfg.Endpoint != "" {
			log.Infof("Storage: s3 (bucket: %s, endpoint: %s)", cfg.Bucket, cfg.Endpoint)
		} else {
			log.Infof("Storage: s3 (bucket: %s, region: %s)", cfg.Bucket, cfg.Region)
		}
		return s3, nil
	}
}

func newNotifier(cfg *config.TelegramConfig, log *logger.Logger) domain.Notifier {
	if !cfg.Enabled() {
		return domain.NopNotifier{}
	}
	tg, err := notifier.NewTelegram(cfg)
	if err != nil {
		log.Warnf("Telegram notifications disabled: %v", err)
		return domain.NopNotifier{}
	}
	return tg
}

func (a *App) BackupDatabases(ctx context.Context, retentionDays int) error {
	if err := a.config.ValidateMySQL(); err != nil {
		return err
	}
	if err := a.mysql.Ping(ctx); err != nil {
		return err
	}
	a.logger.Infof("Connected to mysql at %s:%d", a.config.MySQL.Host, a.config.MySQL.Port)

	_, err := a.runner.Databases(ctx, retentionDays)
	return err
}

func (a *App) BackupSites(ctx context.Context, retentionDays int) error {
	if a.config.Sites.RootDirectory == "" {
		return fmt.Errorf("SITES_ROOT_DIRECTORY is required")
	}
	_, err := a.runner.Sites(ctx, a.config.Sites.RootDirectory, a.config.Sites.IgnoreList, retentionDays)
	return err
}

func (a *App) BackupSite(ctx context.Context, dir string, retentionDays int) error {
	_, err := a.runner.Site(ctx, dir, a.config.Sites.IgnoreList, retentionDays)
	return err
}

func (a *App) Sync(ctx context.Context, dir, prefix string) error {
	if prefix == "" {
		prefix = a.config.Storage.Directory
	}
	_, err := a.sync.Execute(ctx, dir, prefix)
	return err
}

func (a *App) Shutdown() {
	if err := a.mysql.Close(); err != nil {
		a.logger.Warnf("Failed to close mysql connection: %v", err)
	}
	a.logger.Close()
}
