package domain

import "context"

type Compressor interface {
	Compress(sourcePath, destPath string) error
}

type DirectoryArchiver interface {
	Create(ctx context.Context, root, destPath string, exclude []string) error
}
