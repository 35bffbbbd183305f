package server

import (
	"context"
	"net/http"
	"time"

	"github.com/yuzvak/checkout-service/internal/config"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

type Server struct {
	server          *http.Server
	cfg             config.ServerConfig
	logger          *logger.Logger
	healthHandler   *handlers.HealthHandler
	checkoutHandler *handlers.CheckoutHandler
	pricingHandler  *handlers.PricingHandler
}

func NewServer(
	cfg config.ServerConfig,
	healthHandler *handlers.HealthHandler,
	checkoutHandler *handlers.CheckoutHandler,
	pricingHandler *handlers.PricingHandler,
	logger *logger.Logger,
) *Server {
	s := &Server{
		cfg:             cfg,
		logger:          logger,
		healthHandler:   healthHandler,
		checkoutHandler: checkoutHandler,
		pricingHandler:  pricingHandler,
	}

	writeTimeout := cfg.RequestTimeoutDuration() + 5*time.Second
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
