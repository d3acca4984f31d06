// Package httpapi serves the operational HTTP surface: health, metrics and a
// read-only stats snapshot for dashboards.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"groceryFulfillment/internal/fulfillment"
	"groceryFulfillment/internal/metrics"
)

// StatsSource is the part of the order board the stats endpoint reads.
type StatsSource interface {
	Stats() fulfillment.Stats
	Latest() (fulfillment.View, bool)
}

// Deps are the optional collaborators of the router. Nil fields disable the
// corresponding check or route.
type Deps struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
	Board   StatsSource
	Log     *slog.Logger
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	if d.Board != nil {
		r.Get("/stats", statsHandler(d.Board, log))
	}
	return r
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type statsResponse struct {
	Seq              uint64    `json:"seq"`
	TotalOrders      int       `json:"totalOrders"`
	TotalRevenue     string    `json:"totalRevenue"`
	CancelledRevenue string    `json:"cancelledRevenue"`
	ActiveProducts   int       `json:"activeProducts"`
	PendingOrders    int       `json:"pendingOrders"`
	Error            string    `json:"error,omitempty"`
	At               time.Time `json:"at"`
}

func statsHandler(board StatsSource, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := board.Latest()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "order board is still loading"})
			return
		}
		s := board.Stats()
		resp := statsResponse{
			Seq:              v.Seq,
			TotalOrders:      s.TotalOrders,
			TotalRevenue:     s.TotalRevenue.StringFixed(2),
			CancelledRevenue: s.CancelledRevenue.StringFixed(2),
			ActiveProducts:   s.ActiveProducts,
			PendingOrders:    s.PendingOrders,
			At:               v.At,
		}
		if v.Err != nil {
			resp.Error = v.Err.Error()
			log.Debug("stats served from a failed pass", "seq", v.Seq, "error", v.Err)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Start serves h on addr in the background and returns a shutdown function.
// An empty addr disables the listener.
func Start(addr string, h http.Handler, log *slog.Logger) func(context.Context) error {
	if addr == "" {
		return func(context.Context) error { return nil }
	}
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "addr", addr, "error", err)
		}
	}()
	return srv.Shutdown
}
