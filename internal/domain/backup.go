package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type TargetKind string

const (
	KindDatabase TargetKind = "database"
	KindSite     TargetKind = "site"
)

// Target identifies one unit of backup: a database name or a site directory.
type Target struct {
	Kind    TargetKind
	Source  string
	Exclude []string
}

func DatabaseTarget(name string) Target {
	return Target{Kind: KindDatabase, Source: name}
}

func SiteTarget(dir string, exclude []string) Target {
	return Target{Kind: KindSite, Source: dir, Exclude: exclude}
}

// LogicalName is the database name, or the last segment of the absolute site
// directory, so "." names the current directory. The filesystem root yields
// "/", which ValidateName rejects.
func (t Target) LogicalName() string {
	if t.Kind == KindSite {
		dir, err := filepath.Abs(t.Source)
		if err != nil {
			dir = filepath.Clean(t.Source)
		}
		return filepath.Base(dir)
	}
	return t.Source
}

// ValidateName reports whether the logical name can be embedded in an
// artifact name and an object key.
func (t Target) ValidateName() error {
	name := t.LogicalName()
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidTarget, t.Source)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q has no usable name", ErrInvalidTarget, t.Source)
	}
	return nil
}

func (t Target) Extension() string {
	if t.Kind == KindSite {
		return "tar.gz"
	}
	return "sql.gz"
}

type RemoteObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type Result struct {
	Target   Target
	Key      string
	Size     int64
	Pruned   int
	Duration time.Duration
}

type BackupExecutor interface {
	Execute(ctx context.Context, target Target, retentionDays int) (*Result, error)
}
