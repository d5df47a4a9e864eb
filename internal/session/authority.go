package session

import (
	"context"
	"sync"
)

// Event describes a change to the session state.
type Event int

const (
	EventSet Event = iota
	EventEvicted
)

// Authority is the single owner of the session token. Every component reads
// the token through Current; only the Authority clears it, so there is one
// eviction path no matter which request observed the expired session.
type Authority struct {
	mu          sync.RWMutex
	store       Store
	subscribers []func(Event)
}

func NewAuthority(store Store) *Authority {
	return &Authority{store: store}
}

// Current returns the active token, or false when the user must authenticate.
func (a *Authority) Current(ctx context.Context) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	token, err := a.store.Load(ctx)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Set stores a freshly issued token, replacing any previous one.
func (a *Authority) Set(ctx context.Context, token string) error {
	a.mu.Lock()
	err := a.store.Save(ctx, token)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.notify(EventSet)
	return nil
}

// Evict clears the stored token. Safe to call when no token is held.
func (a *Authority) Evict(ctx context.Context) {
	a.mu.Lock()
	_ = a.store.Clear(ctx)
	a.mu.Unlock()
	a.notify(EventEvicted)
}

// Subscribe registers a callback invoked after every session change.
// Callbacks run synchronously on the mutating goroutine.
func (a *Authority) Subscribe(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

func (a *Authority) notify(ev Event) {
	a.mu.RLock()
	subs := make([]func(Event), len(a.subscribers))
	copy(subs, a.subscribers)
	a.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Close releases the underlying store.
func (a *Authority) Close() error {
	return a.store.Close()
}
