package catalog

import (
	"context"
	"errors"
)

// ErrNotFound indicates no service or post exists under the given slug.
var ErrNotFound = errors.New("catalog: not found")

// Store provides read access to the published catalog.
type Store interface {
	ListServices(ctx context.Context) ([]Service, error)
	GetService(ctx context.Context, slug string) (*Service, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]BlogPost, error)
	GetPost(ctx context.Context, slug string) (*BlogPost, error)
}
