package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_pos/internal/catalog"
)

const (
	// DefaultIdleTTL is how long an untouched session is kept.
	DefaultIdleTTL = 2 * time.Hour

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

// Registry keeps the open sale sessions of the gateway, keyed by session id.
type Registry struct {
	api      SalesAPI
	catalog  *catalog.Service
	notifier ReceiptNotifier
	log      *slog.Logger
	idleTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*SaleSession

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

type RegistryOptions struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	Notifier        ReceiptNotifier
	Logger          *slog.Logger
}

// NewRegistry starts the idle-session cleanup loop. catalogSvc may be nil,
// in which case sessions have no searcher.
func NewRegistry(api SalesAPI, catalogSvc *catalog.Service, opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = CleanupInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Registry{
		api:         api,
		catalog:     catalogSvc,
		notifier:    opts.Notifier,
		log:         opts.Logger,
		idleTTL:     opts.IdleTTL,
		sessions:    make(map[string]*SaleSession),
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop(opts.CleanupInterval)

	return r
}

// Open creates a session. Notifier and logger default to the registry's.
func (r *Registry) Open(opts SessionOptions) *SaleSession {
	if opts.Notifier == nil {
		opts.Notifier = r.notifier
	}
	if opts.Logger == nil {
		opts.Logger = r.log
	}
	s := NewSaleSession(r.api, opts)
	if r.catalog != nil {
		s.attachSearcher(r.catalog)
	}

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.log.Info("sale session opened", "session_id", s.ID(), "explicit_store", opts.RequiresExplicitStore)
	return s
}

func (r *Registry) Get(id string) (*SaleSession, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

func (r *Registry) CloseSession(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the cleanup loop and closes every session.
func (r *Registry) Close() {
	close(r.stopCleanup)
	r.wg.Wait()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*SaleSession)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expireIdle(time.Now())
		case <-r.stopCleanup:
			return
		}
	}
}

// expireIdle drops sessions idle for longer than the TTL. A session with a
// submission in flight is never dropped.
func (r *Registry) expireIdle(now time.Time) {
	var expired []*SaleSession

	r.mu.Lock()
	for id, s := range r.sessions {
		if !s.expirable(now, r.idleTTL) {
			continue
		}
		delete(r.sessions, id)
		expired = append(expired, s)
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.log.Info("sale session expired", "session_id", s.ID())
		s.Close()
	}
}
