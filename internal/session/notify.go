package session

import (
	"context"
	"sync"
)

// Bus is a process-wide "sessions changed" broadcast with no payload.
//
// Delivery is at-least-once to every current subscriber: Publish never
// blocks, and back-to-back publishes may coalesce into a single signal.
// Observers are expected to be idempotent re-readers (re-list the index,
// re-load the active transcript) rather than delta appliers.
//
// Bus is an explicit handle, not an ambient global: obtain it from
// [Store.Notifications], subscribe, and call the returned unsubscribe
// func on teardown to avoid leaks.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]chan struct{}
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan struct{})}
}

// Subscribe registers an observer. The returned channel receives a
// signal after every mutation (possibly coalesced) and is closed by the
// unsubscribe func.
func (b *Bus) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish signals every subscriber. Fire-and-forget: a subscriber with
// a signal already pending is skipped, not blocked on.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Bridge republishes an external change feed (such as the storage
// backend's cross-process watcher) onto the bus until the feed closes
// or ctx is canceled. Same-process writes already publish directly; the
// bridge is what makes another process's writes visible, the way the
// platform storage event makes another tab's writes visible.
func (b *Bus) Bridge(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			b.Publish()
		}
	}
}
