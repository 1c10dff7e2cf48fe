package usecase

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/semmidev/serverbackup/internal/domain"
)

// Namer renders and parses artifact names of the form
// {logical}_{timestamp}.{ext}, where timestamp has a fixed width.
type Namer struct {
	layout string
}

func NewNamer(layout string) Namer {
	return Namer{layout: layout}
}

func (n Namer) ArtifactName(target domain.Target, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", target.LogicalName(), at.Format(n.layout), target.Extension())
}

// KeyPrefix is the listing prefix shared by every object of one logical name.
func (n Namer) KeyPrefix(dir, logicalName string) string {
	return path.Join(dir, logicalName) + "_"
}

// ParseKey extracts the capture time from a key produced for logicalName
// under dir with extension ext. Keys belonging to other names that merely
// share the prefix (app vs app_v2) or carrying another extension
// (.sql.gz.partial, .sql.bak) do not parse.
func (n Namer) ParseKey(key, dir, logicalName, ext string, loc *time.Location) (time.Time, error) {
	prefix := n.KeyPrefix(dir, logicalName)
	if !strings.HasPrefix(key, prefix) {
		return time.Time{}, fmt.Errorf("key %q is outside %q", key, prefix)
	}

	rest := strings.TrimPrefix(key, prefix)
	width := len(n.layout)
	if len(rest) < width+2 || rest[width] != '.' {
		return time.Time{}, fmt.Errorf("key %q has no timestamp", key)
	}
	if rest[width+1:] != ext {
		return time.Time{}, fmt.Errorf("key %q does not end in .%s", key, ext)
	}

	ts, err := time.ParseInLocation(n.layout, rest[:width], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp in %q: %w", key, err)
	}
	return ts, nil
}
