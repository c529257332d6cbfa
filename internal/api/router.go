package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/vigil/internal/api/middleware"
)

// Handlers bundles the agent's HTTP handlers for routing.
type Handlers struct {
	Messages *MessageHandler
	Tokens   *TokenHandler
	Dispatch *DispatchHandler
	Events   *EventHandler
	Push     *PushHandler
	Fetch    *FetchHandler
}

// NewRouter builds the agent's HTTP surface.
func NewRouter(h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.Messages.Handle)

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/register", h.Tokens.Register)
			r.Post("/refresh", h.Tokens.Refresh)
			r.Post("/deactivate", h.Tokens.Deactivate)
		})

		r.Post("/notifications/dispatch", h.Dispatch.Dispatch)
		r.Post("/events", h.Events.Intake)

		r.Post("/push", h.Push.Receive)
		r.Post("/push/click", h.Push.Click)

		r.Get("/fetch", h.Fetch.Fetch)
	})

	return r
}
