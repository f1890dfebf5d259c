package salesapi

import (
	"context"
	"sync"
)

// Tokens is the caller's credential pair. The client swaps in refreshed
// tokens so the caller can hand them back to its own client.
type Tokens struct {
	mu        sync.Mutex
	access    string
	refresh   string
	refreshed bool
}

func NewTokens(access, refresh string) *Tokens {
	return &Tokens{access: access, refresh: refresh}
}

func (t *Tokens) Access() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access
}

func (t *Tokens) Refresh() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refresh
}

func (t *Tokens) set(access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = access
	t.refresh = refresh
	t.refreshed = true
}

func (t *Tokens) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = ""
	t.refresh = ""
}

// Refreshed reports whether the pair was replaced during a call.
func (t *Tokens) Refreshed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refreshed
}

type tokensKey struct{}

func WithTokens(ctx context.Context, t *Tokens) context.Context {
	return context.WithValue(ctx, tokensKey{}, t)
}

func TokensFromContext(ctx context.Context) *Tokens {
	t, _ := ctx.Value(tokensKey{}).(*Tokens)
	return t
}
