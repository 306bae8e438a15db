package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/ops"
)

// shutdownTimeout bounds graceful shutdown. Rounds in flight are abandoned
// after it; their results are lost but the slot was persisted at round start.
const shutdownTimeout = 5 * time.Second

// NewServer creates and configures the HTTP server for the council JSON API.
func NewServer(ctrl *ops.Controller, logger *zap.Logger, bind string, port int) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{ctrl: ctrl, logger: logger}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/session", http.StatusFound)
	})
	mux.HandleFunc("GET /api/session", h.HandleStatus)
	mux.HandleFunc("POST /api/session/problem", h.HandleSubmit)
	mux.HandleFunc("POST /api/session/toggle/{id}", h.HandleToggle)
	mux.HandleFunc("POST /api/session/begin", h.HandleBegin)
	mux.HandleFunc("POST /api/session/follow-up", h.HandleFollowUp)
	mux.HandleFunc("POST /api/session/adjust", h.HandleAdjust)
	mux.HandleFunc("POST /api/session/reset", h.HandleReset)
	mux.HandleFunc("POST /api/session/clear", h.HandleClear)
	mux.HandleFunc("GET /api/session/export.txt", h.HandleExport(ops.FormatText))
	mux.HandleFunc("GET /api/session/export.html", h.HandleExport(ops.FormatHTML))
	mux.HandleFunc("GET /api/advisors", h.HandleAdvisors)
	mux.HandleFunc("GET /api/history", h.HandleHistory)
	mux.HandleFunc("POST /api/history/{id}/open", h.HandleOpen)
	mux.HandleFunc("DELETE /api/history/{id}", h.HandleDelete)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("council API listening", zap.String("url", "http://"+srv.Addr))
	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, "[::]:") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
