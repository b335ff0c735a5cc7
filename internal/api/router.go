package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/redpay/terminal-api/internal/auth"
	"github.com/redpay/terminal-api/internal/config"
	"github.com/redpay/terminal-api/internal/metrics"
	"github.com/redpay/terminal-api/internal/middleware"
	"github.com/redpay/terminal-api/internal/services"
)

type API struct {
	cfg      config.Config
	users    *services.UserService
	profiles *services.ProfileService
	ledger   *services.Ledger
}

func NewRouter(cfg config.Config, us *services.UserService, ps *services.ProfileService, ledger *services.Ledger, tm *auth.TokenManager) http.Handler {
	a := &API{cfg: cfg, users: us, profiles: ps, ledger: ledger}
	authmw := middleware.NewAuthMiddleware(tm)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", a.register)
		r.Post("/auth/login", a.login)
		r.Post("/auth/refresh", a.refresh)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Auth)

			r.Get("/profile", a.profile)
			r.Post("/payments", a.processPayment)
			r.Post("/transactions", a.createTransaction)
			r.Get("/transactions", a.listTransactions)
			r.Get("/transactions/{id}", a.getTransaction)

			r.With(middleware.RequireRole("admin")).Get("/users", a.listUsers)
		})
	})

	return r
}
