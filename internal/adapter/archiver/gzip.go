package archiver

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

type GzipCompressor struct {
	level int
}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{level: gzip.BestCompression}
}

// Compress writes a gzip copy of sourcePath to destPath. The source is left
// untouched; a partial destination is removed on failure.
func (g *GzipCompressor) Compress(sourcePath, destPath string) (err error) {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = destFile.Close()
			_ = os.Remove(destPath)
		}
	}()

	gzipWriter, err := gzip.NewWriterLevel(destFile, g.level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err = io.Copy(gzipWriter, sourceFile); err != nil {
		_ = gzipWriter.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err = gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err = destFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync dest file: %w", err)
	}
	if err = destFile.Close(); err != nil {
		return fmt.Errorf("failed to close dest file: %w", err)
	}

	return nil
}
