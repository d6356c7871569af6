package utils

import (
	"context"
	"sync"
)

// Feed delivers values to subscriptions bound to a context. A subscriber that falls behind
// loses its oldest pending values, never the newest, so a slow reader still ends up with the
// latest state.
type Feed[T any] struct {
	mu     *sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	done   chan struct{}
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{
		mu:   &sync.Mutex{},
		subs: make(map[uint64]chan T),
		done: make(chan struct{}),
	}
}

// Subscribe returns a channel that receives every value sent until ctx is done or the feed is
// closed. The channel is closed then.
func (f *Feed[T]) Subscribe(ctx context.Context, buf int) <-chan T {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan T, buf)

	f.mu.Lock()
	if f.subs == nil {
		f.mu.Unlock()
		close(ch)
		return ch
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			f.remove(id)
		case <-f.done:
		}
	}()
	return ch
}

// Send returns the number of pending values discarded to make room for v.
func (f *Feed[T]) Send(v T) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	dropped := 0
	for _, ch := range f.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
			dropped++
		default:
		}
		// only senders hold the lock, so there is room now
		select {
		case ch <- v:
		default:
		}
	}
	return dropped
}

func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		return
	}
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
	close(f.done)
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		close(ch)
		delete(f.subs, id)
	}
}
