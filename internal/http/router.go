package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/mlms/internal/http/assistant"
	"github.com/MrJamesThe3rd/mlms/internal/http/auth"
	"github.com/MrJamesThe3rd/mlms/internal/http/client"
	"github.com/MrJamesThe3rd/mlms/internal/http/loan"
	authmw "github.com/MrJamesThe3rd/mlms/internal/http/middleware"
	"github.com/MrJamesThe3rd/mlms/internal/http/report"
)

type Handlers struct {
	Auth      *auth.Handler
	Clients   *client.Handler
	Loans     *loan.Handler
	Reports   *report.Handler
	Assistant *assistant.Handler
}

func New(handlers Handlers, tokens authmw.TokenParser, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			handlers.Auth.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate(tokens))

			r.Route("/clients", handlers.Clients.Routes)

			r.Route("/loans", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				handlers.Loans.Routes(r)
			})

			r.Route("/reports", handlers.Reports.Routes)

			r.Route("/assistant", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				handlers.Assistant.Routes(r)
			})
		})
	})

	return router
}
