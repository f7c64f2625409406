package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer is a supervised worker serving the REST API and the
// WebSocket endpoint.
type HTTPServer struct {
	log     *slog.Logger
	addr    string
	handler http.Handler
}

func NewHTTPServer(log *slog.Logger, addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{log: log, addr: addr, handler: handler}
}

// Run returns nil once ctx is canceled and the server drained, or the
// listener error otherwise so the supervisor can restart it.
func (s *HTTPServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	// Request contexts derive from ctx so that hijacked WebSocket
	// connections end with the worker.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "address", s.addr)
		errChan <- server.Serve(listener)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("HTTP server shutdown failed", "error", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
