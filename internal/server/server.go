// Package server wires the HTTP surface: routing, middleware, and
// lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finbridge/payment-gateway/internal/config"
	"github.com/finbridge/payment-gateway/internal/handler"
	"github.com/finbridge/payment-gateway/internal/middleware"
)

type Server struct {
	cfg *config.Config
	srv *http.Server
}

func New(cfg *config.Config, payins *handler.PayinHandler, payouts *handler.PayoutHandler, webhooks *handler.WebhookHandler) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)

	// webhook deliveries authenticate by signature, not bearer token
	router.Post("/v1/webhooks/events", webhooks.Receive)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.APIToken))

		r.Get("/health", handler.Health)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/payin", payins.Create)
			r.Get("/payin/{id}", payins.Get)
			r.Post("/payin/{id}/cancel", payins.Cancel)
			r.Post("/payin/{id}/refunds", payins.CreateRefund)
			r.Post("/payout", payouts.Create)
			r.Get("/payout/{id}", payouts.Get)
		})
	})

	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Run() error {
	slog.Info("server started", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.Run: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
