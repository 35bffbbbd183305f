package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
)

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(s.logger))
	r.Use(middleware.NewLoggingMiddleware(s.logger))
	r.Use(monitoring.WrapHandler)
	r.Use(middleware.NewCORSMiddleware(s.cfg.AllowedOrigins))
	if timeout := s.cfg.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	r.Handle("/metrics", monitoring.Handler())
	r.Get("/health", s.healthHandler.HandleHealth)

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/price", s.pricingHandler.HandlePrice)
		r.Post("/cards/inspect", s.pricingHandler.HandleInspectCard)
		r.Get("/transactions/{id}/status", s.checkoutHandler.HandleTransactionStatus)
		r.Get("/wompi/{id}/status", s.checkoutHandler.HandleWompiStatus)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.checkoutHandler.HandleOpen)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.checkoutHandler.RequireOwner)

				r.Get("/", s.checkoutHandler.HandleGet)
				r.Delete("/", s.checkoutHandler.HandleClose)
				r.Patch("/form", s.checkoutHandler.HandleUpdateForm)
				r.Patch("/card", s.checkoutHandler.HandleUpdateCard)
				r.Put("/payment-type", s.checkoutHandler.HandleSetPaymentType)
				r.Post("/step", s.checkoutHandler.HandleGoToStep)
				r.Post("/submit", s.checkoutHandler.HandleSubmit)
				r.Post("/reset", s.checkoutHandler.HandleReset)
				r.Delete("/error", s.checkoutHandler.HandleClearError)
				r.Get("/attempts", s.checkoutHandler.HandleAttempts)
			})
		})
	})

	return r
}
