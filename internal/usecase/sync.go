package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/semmidev/serverbackup/internal/domain"
)

// Sync mirrors a local directory tree into the bucket under a prefix.
type Sync struct {
	store  domain.ObjectStore
	bucket string
	logger Logger
}

func NewSync(store domain.ObjectStore, bucket string, logger Logger) *Sync {
	return &Sync{store: store, bucket: bucket, logger: logger}
}

// Execute uploads every regular file under dir. Missing credentials stop the
// walk; any other failure is recorded and the walk continues.
func (uc *Sync) Execute(ctx context.Context, dir, prefix string) (int, error) {
	uploaded := 0
	var errs error

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		uc.logger.Infof("Uploading %s to %s/%s", p, uc.bucket, key)
		if err := uc.store.Upload(ctx, p, uc.bucket, key); err != nil {
			if errors.Is(err, domain.ErrMissingCredentials) {
				return err
			}
			uc.logger.Errorf("Failed to upload %s: %v", p, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			return nil
		}
		uploaded++
		return nil
	})
	if walkErr != nil {
		errs = multierr.Append(errs, walkErr)
	}

	uc.logger.Infof("Sync of %s finished: %d file(s) uploaded", dir, uploaded)
	return uploaded, errs
}
