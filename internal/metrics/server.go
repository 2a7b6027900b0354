package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the default Prometheus registry on its own listener,
// separate from the query API.
type Server struct {
	cfg    *config.MetricsConfig
	log    *logger.Logger
	srv    *http.Server
	addr   net.Addr
	served chan struct{}
}

func NewServer(cfg *config.MetricsConfig, log *logger.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Start binds the listener and serves in the background. A bind failure is
// returned rather than logged so a port clash stops startup.
func (s *Server) Start(_ context.Context) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	s.addr = ln.Addr()

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          zapErrorLog{s.log},
		EnableOpenMetrics: true,
		Timeout:           10 * time.Second, //nolint:mnd
	}))

	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,  //nolint:mnd
		WriteTimeout:      15 * time.Second, //nolint:mnd
		IdleTimeout:       time.Minute,
	}
	s.served = make(chan struct{})

	go func() {
		defer close(s.served)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("metrics server error: %v", err)
		}
	}()

	return nil
}

// Addr is the bound address; useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}
	<-s.served

	return nil
}

// zapErrorLog adapts the logger to promhttp's Logger interface.
type zapErrorLog struct {
	log *logger.Logger
}

func (z zapErrorLog) Println(v ...any) {
	z.log.Error(v...)
}
