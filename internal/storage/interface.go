package storage

import (
	"context"
	"io"
)

// Archive stores generated audit workbooks.
type Archive interface {
	Upload(ctx context.Context, key string, data io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
