package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_pos/internal/domain"
)

// SearchCache keeps recent catalog search results keyed by query text.
type SearchCache interface {
	Get(ctx context.Context, query string) ([]domain.Product, error)
	Set(ctx context.Context, query string, products []domain.Product) error
	Delete(ctx context.Context, query string) error
}

var ErrCacheMiss = errors.New("cache miss")
