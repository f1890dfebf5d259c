package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fjod/go_pos/internal/domain"
)

// Results is what a searcher currently shows for its query text.
type Results struct {
	Query    string           `json:"query"`
	Products []domain.Product `json:"products"`
	Pending  bool             `json:"pending"`
}

// Searcher debounces one session's keystrokes. Only the settled query text is
// searched, and a response is applied only if its query is still current.
type Searcher struct {
	svc       *Service
	onResults func([]domain.Product)

	mu       sync.Mutex
	current  string
	products []domain.Product
	pending  bool
	timer    *time.Timer
	closed   bool
	wg       sync.WaitGroup
}

// NewSearcher returns a debounced searcher. onResults, if set, sees every
// product list this searcher hands out.
func (s *Service) NewSearcher(onResults func([]domain.Product)) *Searcher {
	return &Searcher{
		svc:       s,
		onResults: onResults,
		products:  []domain.Product{},
	}
}

// Search bypasses the quiet period and replaces any scheduled search.
func (sr *Searcher) Search(ctx context.Context, query string) []domain.Product {
	sr.mu.Lock()
	sr.current = query
	sr.pending = false
	sr.stopTimerLocked()
	sr.mu.Unlock()

	products := sr.svc.Search(ctx, query)

	sr.mu.Lock()
	applied := !sr.closed && sr.current == query
	if applied {
		sr.products = products
	}
	sr.mu.Unlock()

	if applied {
		sr.notify(products)
	}
	return products
}

// Query records new query text and schedules a search once the quiet period
// passes without another call.
func (sr *Searcher) Query(ctx context.Context, query string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.closed {
		return
	}

	sr.current = query
	sr.stopTimerLocked()

	if utf8.RuneCountInString(strings.TrimSpace(query)) < sr.svc.cfg.MinQueryLength {
		sr.products = []domain.Product{}
		sr.pending = false
		return
	}

	sr.pending = true
	bg := context.WithoutCancel(ctx)
	sr.wg.Add(1)
	sr.timer = time.AfterFunc(sr.svc.cfg.QuietPeriod, func() {
		defer sr.wg.Done()
		sr.resolve(bg, query)
	})
}

func (sr *Searcher) Results() Results {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	products := make([]domain.Product, len(sr.products))
	copy(products, sr.products)
	return Results{
		Query:    sr.current,
		Products: products,
		Pending:  sr.pending,
	}
}

// Close cancels a scheduled search and waits for one already running.
func (sr *Searcher) Close() {
	sr.mu.Lock()
	sr.closed = true
	sr.stopTimerLocked()
	sr.mu.Unlock()

	sr.wg.Wait()
}

func (sr *Searcher) resolve(ctx context.Context, query string) {
	products := sr.svc.Search(ctx, query)

	sr.mu.Lock()
	if sr.closed || sr.current != query {
		sr.mu.Unlock()
		sr.svc.log.DebugContext(ctx, "discarding stale search results", "query", query)
		return
	}
	sr.products = products
	sr.pending = false
	sr.mu.Unlock()

	sr.notify(products)
}

func (sr *Searcher) stopTimerLocked() {
	if sr.timer != nil && sr.timer.Stop() {
		sr.wg.Done()
	}
	sr.timer = nil
}

func (sr *Searcher) notify(products []domain.Product) {
	if sr.onResults != nil && len(products) > 0 {
		sr.onResults(products)
	}
}
