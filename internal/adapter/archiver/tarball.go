package archiver

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

type TarballArchiver struct {
	level int
}

func NewTarball() *TarballArchiver {
	return &TarballArchiver{level: gzip.DefaultCompression}
}

// Create writes a tar.gz of root to destPath. Directories listed in exclude
// (full paths) are not descended into and get no entry of their own. Entry
// names are relative to root; directories end in a slash.
func (t *TarballArchiver) Create(ctx context.Context, root, destPath string, exclude []string) (err error) {
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}
	// WalkDir does not follow a symlinked root.
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source is not a directory: %s", root)
	}

	absDest, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("failed to resolve dest: %w", err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, ex := range exclude {
		if ex == "" {
			continue
		}
		skip[resolvePath(ex)] = struct{}{}
	}
	walkDest := filepath.Join(resolvePath(filepath.Dir(absDest)), filepath.Base(absDest))

	destFile, err := os.OpenFile(absDest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = destFile.Close()
			_ = os.Remove(absDest)
		}
	}()

	gzipWriter, err := gzip.NewWriterLevel(destFile, t.level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tarWriter := tar.NewWriter(gzipWriter)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, ok := skip[path]; ok {
				return filepath.SkipDir
			}
			return addEntry(tarWriter, root, path, d)
		}
		if path == walkDest {
			return nil
		}
		return addEntry(tarWriter, root, path, d)
	})
	if walkErr != nil {
		_ = tarWriter.Close()
		_ = gzipWriter.Close()
		return fmt.Errorf("failed to archive %s: %w", root, walkErr)
	}

	if err = tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err = gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err = destFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync dest file: %w", err)
	}
	return destFile.Close()
}

func addEntry(tw *tar.Writer, root, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	var link string
	switch {
	case info.IsDir():
	case info.Mode()&os.ModeSymlink != 0:
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	case !info.Mode().IsRegular():
		// sockets, fifos and devices have no place in a site backup
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if link != "" || info.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// resolvePath makes p absolute and follows symlinks so it compares equal to
// paths seen while walking a resolved root. Paths that do not exist are
// returned absolute but unresolved.
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// ResolveExcludes turns ignore-list names relative to root into full paths,
// keeping only those that exist.
func ResolveExcludes(root string, names []string) []string {
	var out []string
	for _, name := range names {
		if name == "" {
			continue
		}
		full := filepath.Join(root, name)
		if _, err := os.Stat(full); err == nil {
			out = append(out, full)
		}
	}
	return out
}
