package domain

import "context"

type ObjectStore interface {
	Upload(ctx context.Context, localPath, bucket, key string) error
	List(ctx context.Context, bucket, prefix string) ([]RemoteObject, error)
	Delete(ctx context.Context, bucket, key string) error
}
