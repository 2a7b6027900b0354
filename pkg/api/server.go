package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/api/docs"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
)

var _ = docs.SwaggerInfo

const shutdownCtxTimeout = 10 * time.Second

// Server serves the probes, the record endpoints, raw SQL, GraphQL and the
// swagger UI from one listener.
type Server struct {
	cfg  *config.APIConfig
	http *http.Server
	log  *logger.Logger
}

type route struct {
	pattern string
	handler http.Handler
}

func routes(h *Handler) []route {
	swagger := httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
	)

	return []route{
		{"GET /healthz", http.HandlerFunc(h.Healthz)},
		{"GET /readyz", http.HandlerFunc(h.Readyz)},

		{"GET /api/v1/chains", http.HandlerFunc(h.ListChains)},
		{"GET /api/v1/tables", http.HandlerFunc(h.ListTables)},
		{"GET /api/v1/tables/{table}/records", http.HandlerFunc(h.GetRecords)},

		{"POST /sql", http.HandlerFunc(h.ExecuteSQL)},
		{"GET /graphql", http.HandlerFunc(h.GraphQL)},
		{"POST /graphql", http.HandlerFunc(h.GraphQL)},
		{"GET /{$}", http.HandlerFunc(h.GraphQL)},
		{"POST /{$}", http.HandlerFunc(h.GraphQL)},

		{"GET /swagger/", swagger},
	}
}

// NewServer builds the API server with its routes and middleware. It does not listen
// until Start is called.
func NewServer(cfg *config.APIConfig, deps Deps, log *logger.Logger) *Server {
	log = log.WithComponent(common.ComponentAPI)

	mux := http.NewServeMux()
	for _, r := range routes(NewHandler(deps, cfg.HealthTimeout.Duration, log)) {
		mux.Handle(r.pattern, r.handler)
	}

	// outermost first
	middlewares := []func(http.Handler) http.Handler{
		LoggingMiddleware(log),
		RecoveryMiddleware(log),
	}
	if cfg.CORS.Enabled {
		middlewares = append([]func(http.Handler) http.Handler{CORSMiddleware(cfg.CORS.AllowedOrigins)}, middlewares...)
	}

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return &Server{
		cfg: cfg,
		log: log,
		http: &http.Server{
			Addr:              cfg.ListenAddress,
			Handler:           h,
			ReadHeaderTimeout: cfg.ReadTimeout.Duration,
			ReadTimeout:       cfg.ReadTimeout.Duration,
			WriteTimeout:      cfg.WriteTimeout.Duration,
			IdleTimeout:       cfg.IdleTimeout.Duration,
		},
	}
}

// Handler is the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until ctx is cancelled, then drains in-flight requests.
// A listen failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("API server is disabled")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Infof("API server listening on %s", s.cfg.ListenAddress)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownCtxTimeout)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown error: %w", err)
		}
		s.log.Info("API server stopped")
		return nil
	})

	return g.Wait()
}
