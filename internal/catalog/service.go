// Package catalog implements product lookup for the sale builder: a shared
// cache-aside search service and per-session debounced searchers.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMinQueryLength = 2
	DefaultLimit          = 10
	DefaultQuietPeriod    = 300 * time.Millisecond
)

// ProductSource is the remote catalog.
type ProductSource interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
}

type Config struct {
	MinQueryLength int
	Limit          int
	QuietPeriod    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinQueryLength: DefaultMinQueryLength,
		Limit:          DefaultLimit,
		QuietPeriod:    DefaultQuietPeriod,
	}
}

type Service struct {
	source ProductSource
	cache  cache.SearchCache
	sfg    singleflight.Group // collapses identical searches from concurrent sessions
	cfg    Config
	log    *slog.Logger
}

// NewService builds the lookup service. searchCache may be nil.
func NewService(source ProductSource, searchCache cache.SearchCache, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = DefaultMinQueryLength
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	return &Service{
		source: source,
		cache:  searchCache,
		cfg:    cfg,
		log:    log,
	}
}

// Search returns candidate products for query. Short queries and lookup
// failures both yield an empty, non-nil list; search is advisory.
func (s *Service) Search(ctx context.Context, query string) []domain.Product {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < s.cfg.MinQueryLength {
		return []domain.Product{}
	}

	v, err, _ := s.sfg.Do(strings.ToLower(query), func() (interface{}, error) {
		if s.cache != nil {
			products, err := s.cache.Get(ctx, query)
			if err == nil {
				return products, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				s.log.WarnContext(ctx, "search cache get failed", "query", query, "error", err)
			}
		}

		products, err := s.source.SearchProducts(ctx, query, s.cfg.Limit)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, query, products); err != nil {
				s.log.WarnContext(ctx, "search cache set failed", "query", query, "error", err)
			}
		}
		return products, nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "product search failed", "query", query, "error", err)
		return []domain.Product{}
	}

	products := v.([]domain.Product)
	if products == nil {
		return []domain.Product{}
	}
	return products
}
