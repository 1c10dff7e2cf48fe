package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/serverbackup/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type BackupOptions struct {
	Bucket      string
	DatabaseDir string
	SiteDir     string
	WorkDir     string
}

// Backup runs one target through archive, upload, local cleanup and
// retention.
type Backup struct {
	db         domain.Database
	compressor domain.Compressor
	archiver   domain.DirectoryArchiver
	store      domain.ObjectStore
	retention  *Retention
	namer      Namer
	logger     Logger
	opts       BackupOptions
	now        func() time.Time
}

func NewBackup(
	db domain.Database,
	compressor domain.Compressor,
	archiver domain.DirectoryArchiver,
	store domain.ObjectStore,
	retention *Retention,
	namer Namer,
	logger Logger,
	opts BackupOptions,
) *Backup {
	return &Backup{
		db:         db,
		compressor: compressor,
		archiver:   archiver,
		store:      store,
		retention:  retention,
		namer:      namer,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

func (uc *Backup) Execute(ctx context.Context, target domain.Target, retentionDays int) (*domain.Result, error) {
	start := time.Now()
	name := target.LogicalName()
	result := &domain.Result{Target: target}

	filename := uc.namer.ArtifactName(target, uc.now())
	artifactPath := filepath.Join(uc.opts.WorkDir, filename)
	dir := uc.dir(target.Kind)
	key := path.Join(dir, filename)

	if err := target.ValidateName(); err != nil {
		return result, err
	}

	uc.logger.Infof("[%s] Starting %s backup...", name, target.Kind)

	if _, err := os.Stat(artifactPath); err == nil {
		return result, fmt.Errorf("%w: %s", domain.ErrArtifactExists, artifactPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("stat artifact: %w", err)
	}

	if err := uc.archive(ctx, target, artifactPath); err != nil {
		return result, err
	}

	fileInfo, err := os.Stat(artifactPath)
	if err != nil {
		return result, fmt.Errorf("stat artifact: %w", err)
	}
	result.Size = fileInfo.Size()
	uc.logger.Infof("[%s] Artifact created: %s (%.2f MB)", name, filename, float64(result.Size)/(1024*1024))

	uc.logger.Infof("[%s] Uploading to %s/%s...", name, uc.opts.Bucket, key)
	if err := uc.store.Upload(ctx, artifactPath, uc.opts.Bucket, key); err != nil {
		uc.logger.Errorf("[%s] Upload failed, local artifact kept at %s: %v", name, artifactPath, err)
		return result, fmt.Errorf("upload %s: %w", key, err)
	}
	result.Key = key
	uc.logger.Infof("[%s] Upload successful: %s to %s/%s", name, filename, uc.opts.Bucket, key)

	if err := os.Remove(artifactPath); err != nil {
		uc.logger.Warnf("[%s] Could not remove local artifact %s: %v", name, artifactPath, err)
	} else {
		uc.logger.Infof("[%s] Local artifact removed: %s", name, filename)
	}

	if uc.retention != nil && retentionDays > 0 {
		pruned, err := uc.retention.Apply(ctx, target, dir, retentionDays)
		result.Pruned = pruned
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("retention: %w", err)
		}
	}

	result.Duration = time.Since(start)
	uc.logger.Infof("[%s] Backup completed in %s: %s", name, result.Duration.Round(time.Second), key)

	return result, nil
}

func (uc *Backup) dir(kind domain.TargetKind) string {
	if kind == domain.KindSite {
		return uc.opts.SiteDir
	}
	return uc.opts.DatabaseDir
}

func (uc *Backup) archive(ctx context.Context, target domain.Target, artifactPath string) error {
	switch target.Kind {
	case domain.KindDatabase:
		return uc.dumpDatabase(ctx, target.Source, artifactPath)
	case domain.KindSite:
		if uc.archiver == nil {
			return errors.New("no directory archiver configured")
		}
		uc.logger.Infof("[%s] Creating archive of %s", target.LogicalName(), target.Source)
		if err := uc.archiver.Create(ctx, target.Source, artifactPath, target.Exclude); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown target kind: %q", target.Kind)
	}
}

// dumpDatabase writes the raw dump next to the artifact, compresses it and
// drops the raw dump only once the compressed copy is complete.
func (uc *Backup) dumpDatabase(ctx context.Context, name, artifactPath string) error {
	if uc.db == nil {
		return errors.New("no database configured")
	}

	dumpPath := strings.TrimSuffix(artifactPath, ".gz")

	uc.logger.Infof("[%s] Dumping database to %s", name, dumpPath)
	if err := uc.db.Dump(ctx, name, dumpPath); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	uc.logger.Infof("[%s] Compressing dump...", name)
	if err := uc.compressor.Compress(dumpPath, artifactPath); err != nil {
		uc.logger.Errorf("[%s] Compression failed, raw dump kept at %s", name, dumpPath)
		return fmt.Errorf("compression: %w", err)
	}

	if err := os.Remove(dumpPath); err != nil {
		uc.logger.Warnf("[%s] Could not remove dump file %s: %v", name, dumpPath, err)
	}
	return nil
}

var _ domain.BackupExecutor = (*Backup)(nil)
