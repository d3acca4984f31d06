package live

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Refresher is a collection the Hub can reload.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// Hub turns write notifications into background reloads. Notifications that
// arrive while a reload is running are coalesced into a single follow-up reload.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	cols  map[string]Refresher
	kicks map[string]chan struct{}
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log.With("component", "live"),
		cols:  make(map[string]Refresher),
		kicks: make(map[string]chan struct{}),
	}
}

// Register adds a collection. It must be called before Run.
func (h *Hub) Register(r Refresher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cols[r.Name()] = r
	if _, ok := h.kicks[r.Name()]; !ok {
		h.kicks[r.Name()] = make(chan struct{}, 1)
	}
}

// Notify schedules a reload of collection. Unknown names are ignored.
func (h *Hub) Notify(collection string) {
	h.mu.Lock()
	kick, ok := h.kicks[collection]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

// Run loads every registered collection once and then serves reload
// requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	type entry struct {
		r    Refresher
		kick chan struct{}
	}
	entries := make([]entry, 0, len(h.cols))
	for name, r := range h.cols {
		entries = append(entries, entry{r: r, kick: h.kicks[name]})
	}
	h.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if err := e.r.Refresh(ctx); err != nil {
				h.log.Warn("initial load failed", "collection", e.r.Name(), "err", err)
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-e.kick:
					if err := e.r.Refresh(ctx); err != nil && ctx.Err() == nil {
						h.log.Warn("reload failed", "collection", e.r.Name(), "err", err)
					}
				}
			}
		})
	}
	return g.Wait()
}
