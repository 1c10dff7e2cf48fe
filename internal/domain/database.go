package domain

import "context"

type Database interface {
	Dump(ctx context.Context, name, outputPath string) error
	ListDatabases(ctx context.Context) ([]string, error)
}
