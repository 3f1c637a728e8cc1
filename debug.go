package simplemsg

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DebugServer is the optional HTTP surface spec.md's Non-goals never
// mention: a /healthz liveness check and a /metrics Prometheus scrape
// endpoint, the shape golaborate wraps around every device it exposes.
// It is informational only; no part of the protocol is reachable over it.
type DebugServer struct {
	srv *http.Server
}

// NewDebugServer builds the router. healthy is polled on every /healthz
// request; a Facade typically passes a closure that checks its
// sub-clients are still open.
func NewDebugServer(addr string, healthy func() error) *DebugServer {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := healthy(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return &DebugServer{srv: &http.Server{Addr: addr, Handler: r}}
}

// Serve blocks, running the HTTP server until Shutdown is called or it
// fails to bind.
func (d *DebugServer) Serve() error {
	err := d.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (d *DebugServer) Shutdown(ctx context.Context) error {
	return d.srv.Shutdown(ctx)
}

// Healthy reports the facade as healthy until Close has been called. This
// is intentionally shallow: it checks only the facade's closed flag, not
// the sub-clients or whether the controller is still reachable.
func (f *Facade) Healthy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errFacadeClosed
	}
	return nil
}
