package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/semmidev/serverbackup/internal/adapter/archiver"
	"github.com/semmidev/serverbackup/internal/domain"
)

// Runner walks a list of targets one at a time. A failed target is logged
// and the next one still runs.
type Runner struct {
	backup   domain.BackupExecutor
	db       domain.Database
	notifier domain.Notifier
	logger   Logger
}

func NewRunner(backup domain.BackupExecutor, db domain.Database, notifier domain.Notifier, logger Logger) *Runner {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	return &Runner{
		backup:   backup,
		db:       db,
		notifier: notifier,
		logger:   logger,
	}
}

type Summary struct {
	Succeeded int
	Failed    int
	Pruned    int
}

func (r *Runner) Databases(ctx context.Context, retentionDays int) (Summary, error) {
	if r.db == nil {
		return Summary{}, errors.New("no database configured")
	}

	r.logger.Infof("Starting mysql backup")
	names, err := r.db.ListDatabases(ctx)
	if err != nil {
		r.notify(ctx, fmt.Sprintf("database backup failed: %v", err))
		return Summary{}, fmt.Errorf("list databases: %w", err)
	}
	r.logger.Infof("Found %d database(s) to back up", len(names))

	targets := make([]domain.Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, domain.DatabaseTarget(name))
	}
	return r.run(ctx, "database", targets, retentionDays)
}

// Sites backs up every directory directly under root, including symlinks
// that point at directories.
func (r *Runner) Sites(ctx context.Context, root string, ignore []string, retentionDays int) (Summary, error) {
	r.logger.Infof("Starting site backup for %s", root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return Summary{}, fmt.Errorf("read sites root: %w", err)
	}

	var targets []domain.Target
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		// a symlink to a directory is a site too
		info, err := os.Stat(dir)
		if err != nil {
			r.logger.Warnf("Skipping %s: %v", entry.Name(), err)
			continue
		}
		if !info.IsDir() {
			r.logger.Warnf("Skipping %s: not a directory", entry.Name())
			continue
		}
		targets = append(targets, domain.SiteTarget(dir, archiver.ResolveExcludes(dir, ignore)))
	}
	return r.run(ctx, "site", targets, retentionDays)
}

func (r *Runner) Site(ctx context.Context, dir string, ignore []string, retentionDays int) (Summary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("site directory: %w", err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("site directory: %s is not a directory", dir)
	}

	target := domain.SiteTarget(dir, archiver.ResolveExcludes(dir, ignore))
	return r.run(ctx, "site", []domain.Target{target}, retentionDays)
}

func (r *Runner) run(ctx context.Context, kind string, targets []domain.Target, retentionDays int) (Summary, error) {
	var summary Summary
	var errs error

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		result, err := r.backup.Execute(ctx, target, retentionDays)
		if result != nil {
			summary.Pruned += result.Pruned
		}
		if err != nil {
			summary.Failed++
			r.logger.Errorf("[%s] Backup failed: %v", target.LogicalName(), err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", target.LogicalName(), err))
			continue
		}
		summary.Succeeded++
	}

	msg := fmt.Sprintf("%s backup finished: %d succeeded, %d failed, %d old backup(s) removed",
		kind, summary.Succeeded, summary.Failed, summary.Pruned)
	if errs != nil {
		r.logger.Errorf("%s", msg)
	} else {
		r.logger.Infof("%s", msg)
	}
	r.notify(ctx, msg)

	return summary, errs
}

func (r *Runner) notify(ctx context.Context, msg string) {
	if err := r.notifier.Notify(context.WithoutCancel(ctx), msg); err != nil {
		r.logger.Warnf("Notification failed: %v", err)
	}
}
