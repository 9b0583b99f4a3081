// Package listener binds the gateway's accept loop: one TCP listener
// serving the client session stream, a /metrics endpoint, and a /healthz
// probe, with a bounded grace period on shutdown.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultShutdownGrace = 5 * time.Second

// Listener owns the gateway's single bound address and routes requests to
// the session stream handler, metrics, and health probe.
type Listener struct {
	Addr          string
	Handler       http.Handler
	Logger        *slog.Logger
	ShutdownGrace time.Duration

	metrics *metrics
}

// New builds a Listener. handler is expected to be a *session.Dispatcher
// but is accepted as a plain http.Handler to avoid an import cycle.
func New(addr string, handler http.Handler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		Addr:    addr,
		Handler: handler,
		Logger:  logger.With("component", "listener"),
		metrics: newMetrics(),
	}
}

func (l *Listener) grace() time.Duration {
	if l.ShutdownGrace > 0 {
		return l.ShutdownGrace
	}
	return defaultShutdownGrace
}

func (l *Listener) mux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(l.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", l.handleHealthz)
	mux.Handle("/", l.metrics.instrument("session", l.Handler))
	return mux
}

func (l *Listener) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run binds Addr and serves until ctx is cancelled, then shuts down within
// the configured grace period. Returns nil on a clean shutdown.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return fmt.Errorf("listener: bind %s: %w", l.Addr, err)
	}
	return l.Serve(ctx, ln)
}

// Serve runs the HTTP server on an already-bound listener. Split out from
// Run so tests can bind an ephemeral port and learn its address before
// serving starts.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           l.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	l.Logger.Info("listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), l.grace())
		defer cancel()
		shutdownErr := server.Shutdown(shutdownCtx)
		<-errCh
		if shutdownErr != nil {
			l.Logger.Warn("shutdown did not complete within grace period", "error", shutdownErr)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
