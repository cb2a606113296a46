package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/graylake-systems/graylake/internal/config"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// Server wraps http.Server with graceful shutdown.
type Server struct {
	http *http.Server
	log  *logging.Logger
}

// New builds the HTTP server from config.
func New(cfg config.ServerConfig, handler http.Handler, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}
