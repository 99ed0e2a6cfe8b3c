package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apiauth "github.com/fula-project/gateway/pkg/api/auth"
	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/config"
	"github.com/fula-project/gateway/pkg/metrics"
)

// Server is the gateway's S3 wire-surface HTTP server.
type Server struct {
	cfg    *config.Config
	http   *http.Server
	jwtSvc *apiauth.JWTService
}

// NewServer builds a Server bound to cfg.Server.ListenAddr, serving the S3
// routes over store/mgr.
func NewServer(cfg *config.Config, store blockstore.BlockStore, mgr *bucket.Manager, m metrics.APIMetrics) *Server {
	jwtSvc := apiauth.NewJWTService(cfg.Auth.JWT)
	handler := NewRouter(cfg, store, mgr, jwtSvc, m)

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: handler,
		},
		jwtSvc: jwtSvc,
	}
}

// JWTService returns the server's token service, for admin tooling (e.g.
// 'fulactl token issue') that mints tokens out of band from the HTTP API.
func (s *Server) JWTService() *apiauth.JWTService {
	return s.jwtSvc
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully within cfg.Server.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
