package live

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loader reads the full current contents of a collection.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Snapshot is one delivery of a collection. Err is set when the reload
// failed; Items then carries the last good contents.
type Snapshot[T any] struct {
	Seq   uint64
	Items []T
	Err   error
	At    time.Time
}

// Collection keeps the latest snapshot of one store collection and pushes
// a fresh one to subscribers on every Refresh.
type Collection[T any] struct {
	name string
	load Loader[T]
	log  *slog.Logger

	refreshMu sync.Mutex // one reload at a time

	mu     sync.Mutex
	seq    uint64
	latest Snapshot[T]
	loaded bool
	bc     *Broadcaster[Snapshot[T]]
}

func NewCollection[T any](name string, load Loader[T], log *slog.Logger) *Collection[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Collection[T]{
		name: name,
		load: load,
		log:  log.With("component", "live", "collection", name),
		bc:   NewBroadcaster[Snapshot[T]](),
	}
}

func (c *Collection[T]) Name() string { return c.name }

// Refresh reloads the collection and publishes the result.
func (c *Collection[T]) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	items, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	snap := Snapshot[T]{Seq: c.seq, Items: items, Err: err, At: time.Now()}
	if err != nil {
		c.log.Error("reload failed", "err", err)
		snap.Items = c.latest.Items
	} else {
		c.latest = snap
		c.loaded = true
	}
	c.bc.Publish(snap)
	return err
}

// Latest returns the last successfully loaded snapshot.
func (c *Collection[T]) Latest() (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.loaded
}

// Subscribe streams snapshots until ctx is done. When the collection has
// been loaded, the current snapshot is delivered first.
func (c *Collection[T]) Subscribe(ctx context.Context) <-chan Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.bc.SubscribeWith(ctx, c.latest)
	}
	return c.bc.Subscribe(ctx)
}

// Close ends every subscription.
func (c *Collection[T]) Close() { c.bc.Close() }
