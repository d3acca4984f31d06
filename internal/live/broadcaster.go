// Package live provides in-process live subscriptions over store collections.
//
// A subscriber always receives full snapshots, never diffs. Delivery is
// latest-wins: a subscriber that falls behind skips intermediate snapshots
// and only sees the most recent one.
package live

import (
	"context"
	"sync"
)

// Broadcaster fans values out to any number of subscribers.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[chan T]struct{})}
}

// Subscribe registers a subscriber. The returned channel is closed when ctx
// is done or the broadcaster is closed.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	return b.subscribe(ctx, nil)
}

// SubscribeWith is Subscribe with first already queued on the channel.
func (b *Broadcaster[T]) SubscribeWith(ctx context.Context, first T) <-chan T {
	return b.subscribe(ctx, &first)
}

func (b *Broadcaster[T]) subscribe(ctx context.Context, first *T) <-chan T {
	ch := make(chan T, 1)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	if first != nil {
		ch <- *first
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()
	return ch
}

// Publish hands v to every subscriber without blocking. A value still
// unread by a subscriber is replaced.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		// only Publish sends, under mu, so the buffer is free now
		ch <- v
	}
}

// Len reports the number of active subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Further publishes are dropped.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
