package usecase

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/serverbackup/internal/adapter/archiver"
	"github.com/semmidev/serverbackup/internal/domain"
)

type fakeExecutor struct {
	targets []domain.Target
	fail    map[string]error
	cancel  context.CancelFunc
}

func (f *fakeExecutor) Execute(ctx context.Context, target domain.Target, retentionDays int) (*domain.Result, error) {
	f.targets = append(f.targets, target)
	if f.cancel != nil {
		f.cancel()
	}
	if err := f.fail[target.LogicalName()]; err != nil {
		return &domain.Result{Target: target}, err
	}
	return &domain.Result{Target: target, Key: "k/" + target.LogicalName(), Pruned: 1}, nil
}

func TestRunnerDatabases(t *testing.T) {
	Convey("Given a runner over two databases", t, func() {
		ctx := context.Background()
		logger := &testLogger{}
		exec := &fakeExecutor{fail: map[string]error{}}
		db := &fakeDB{names: []string{"app", "logs"}}
		notifier := &recordingNotifier{}
		runner := NewRunner(exec, db, notifier, logger)

		Convey("When both succeed", func() {
			summary, err := runner.Databases(ctx, 7)

			Convey("It should back up each in order and notify once", func() {
				So(err, ShouldBeNil)
				So(summary, ShouldResemble, Summary{Succeeded: 2, Pruned: 2})
				So(exec.targets, ShouldResemble, []domain.Target{domain.DatabaseTarget("app"), domain.DatabaseTarget("logs")})
				So(notifier.messages, ShouldHaveLength, 1)
				So(notifier.messages[0], ShouldContainSubstring, "2 succeeded")
			})
		})

		Convey("When the first one fails", func() {
			exec.fail["app"] = errors.New("dump: exit status 2")
			summary, err := runner.Databases(ctx, 7)

			Convey("It should still back up the second", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "app")
				So(summary.Succeeded, ShouldEqual, 1)
				So(summary.Failed, ShouldEqual, 1)
				So(exec.targets, ShouldHaveLength, 2)
			})
		})

		Convey("When listing databases fails", func() {
			db.listErr = errors.New("connection refused")
			_, err := runner.Databases(ctx, 7)

			Convey("It should run nothing", func() {
				So(err, ShouldNotBeNil)
				So(exec.targets, ShouldBeEmpty)
			})
		})

		Convey("When the context is cancelled mid-run", func() {
			ctx, cancel := context.WithCancel(ctx)
			exec.cancel = cancel
			_, err := runner.Databases(ctx, 7)

			Convey("It should stop before the next target", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(exec.targets, ShouldHaveLength, 1)
			})
		})

		Convey("When the notifier fails", func() {
			notifier.err = errors.New("bot blocked")
			_, err := runner.Databases(ctx, 7)

			Convey("It should only log a warning", func() {
				So(err, ShouldBeNil)
				So(logger.warns, ShouldNotBeEmpty)
			})
		})
	})
}

func TestRunnerSites(t *testing.T) {
	Convey("Given a sites root", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		So(os.MkdirAll(filepath.Join(root, "blog", "node_modules"), 0755), ShouldBeNil)
		So(os.MkdirAll(filepath.Join(root, "shop"), 0755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0644), ShouldBeNil)

		logger := &testLogger{}
		exec := &fakeExecutor{}
		runner := NewRunner(exec, nil, nil, logger)

		Convey("Sites should back up each directory with its ignore list resolved", func() {
			summary, err := runner.Sites(ctx, root, []string{"node_modules", ".git"}, 7)
			So(err, ShouldBeNil)
			So(summary.Succeeded, ShouldEqual, 2)
			So(exec.targets, ShouldHaveLength, 2)
			So(exec.targets[0].Source, ShouldEqual, filepath.Join(root, "blog"))
			So(exec.targets[0].Exclude, ShouldResemble, []string{filepath.Join(root, "blog", "node_modules")})
			So(exec.targets[1].Exclude, ShouldBeEmpty)
		})

		Convey("Sites should include symlinked site directories", func() {
			external := filepath.Join(t.TempDir(), "srv", "wiki")
			So(os.MkdirAll(filepath.Join(external, "node_modules"), 0755), ShouldBeNil)
			So(os.Symlink(external, filepath.Join(root, "wiki")), ShouldBeNil)
			So(os.Symlink(filepath.Join(root, "README"), filepath.Join(root, "readme-link")), ShouldBeNil)

			summary, err := runner.Sites(ctx, root, []string{"node_modules"}, 7)
			So(err, ShouldBeNil)
			So(summary.Succeeded, ShouldEqual, 3)
			So(exec.targets, ShouldHaveLength, 3)
			So(exec.targets[2].LogicalName(), ShouldEqual, "wiki")
			So(exec.targets[2].Exclude, ShouldResemble, []string{filepath.Join(root, "wiki", "node_modules")})
		})

		Convey("Site should back up a single directory", func() {
			summary, err := runner.Site(ctx, filepath.Join(root, "shop"), nil, 7)
			So(err, ShouldBeNil)
			So(summary.Succeeded, ShouldEqual, 1)
			So(exec.targets[0].LogicalName(), ShouldEqual, "shop")
		})

		Convey("Site should reject a file", func() {
			_, err := runner.Site(ctx, filepath.Join(root, "README"), nil, 7)
			So(err, ShouldNotBeNil)
			So(exec.targets, ShouldBeEmpty)
		})

		Convey("Databases without a database should fail", func() {
			_, err := runner.Databases(ctx, 7)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRunnerDatabasesEndToEnd(t *testing.T) {
	Convey("Given databases app and logs on 2024-01-10", t, func() {
		ctx := context.Background()
		logger := &testLogger{}
		store := newMemStore()
		db := &fakeDB{names: []string{"app", "logs"}}

		uc := newTestBackup(t.TempDir(), db, archiver.NewGzip(), store, logger)
		uc.opts.DatabaseDir = "db"
		runner := NewRunner(uc, db, nil, logger)

		summary, err := runner.Databases(ctx, 7)

		Convey("Listing db/ should return exactly one artifact per database", func() {
			So(err, ShouldBeNil)
			So(summary.Succeeded, ShouldEqual, 2)

			objects, err := store.List(ctx, "gorobei", "db/")
			So(err, ShouldBeNil)
			So(objects, ShouldHaveLength, 2)

			app, _ := path.Match("db/app_10012024_*.sql.gz", objects[0].Key)
			logs, _ := path.Match("db/logs_10012024_*.sql.gz", objects[1].Key)
			So(app, ShouldBeTrue)
			So(logs, ShouldBeTrue)
		})
	})
}
