package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/semmidev/serverbackup/internal/domain"
)

// Retention prunes remote backups whose embedded date is older than the
// retention window.
type Retention struct {
	store  domain.ObjectStore
	bucket string
	namer  Namer
	logger Logger
	now    func() time.Time
}

func NewRetention(store domain.ObjectStore, bucket string, namer Namer, logger Logger) *Retention {
	return &Retention{
		store:  store,
		bucket: bucket,
		namer:  namer,
		logger: logger,
		now:    time.Now,
	}
}

// Cutoff is local midnight retentionDays days before now. Backups dated
// strictly before it are expired.
func Cutoff(now time.Time, retentionDays int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-retentionDays, 0, 0, 0, 0, now.Location())
}

// Apply deletes every object of target under dir dated before the cutoff.
// Delete failures do not stop the remaining deletions; they are returned
// together.
func (uc *Retention) Apply(ctx context.Context, target domain.Target, dir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	logicalName := target.LogicalName()

	now := uc.now()
	cutoff := Cutoff(now, retentionDays)
	prefix := uc.namer.KeyPrefix(dir, logicalName)

	objects, err := uc.store.List(ctx, uc.bucket, prefix)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", prefix, err)
	}

	var expired []string
	for _, obj := range objects {
		ts, err := uc.namer.ParseKey(obj.Key, dir, logicalName, target.Extension(), now.Location())
		if err != nil {
			uc.logger.Warnf("[%s] Skipping %s: %v", logicalName, obj.Key, err)
			continue
		}
		if dayOf(ts).Before(cutoff) {
			expired = append(expired, obj.Key)
		}
	}

	if len(expired) == 0 {
		uc.logger.Warnf("[%s] Nothing was removed, no backups before %s", logicalName, cutoff.Format("2006-01-02"))
		return 0, nil
	}

	deleted := 0
	var errs error
	for _, key := range expired {
		if err := uc.store.Delete(ctx, uc.bucket, key); err != nil {
			uc.logger.Errorf("[%s] Failed to delete old backup %s: %v", logicalName, key, err)
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		deleted++
		uc.logger.Infof("[%s] Removed old backup %s", logicalName, key)
	}

	uc.logger.Infof("[%s] Deleted %d old backup(s), retention: %d days", logicalName, deleted, retentionDays)
	return deleted, errs
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
