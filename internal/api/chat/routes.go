package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat routes. rateLimit wraps only the chat turn itself.
func RegisterRoutes(r chi.Router, h *Handler, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/chat", func(r chi.Router) {
		r.With(rateLimit).Post("/", h.Chat)
		r.Post("/export", h.Export)
	})
	r.Get("/api/counties", h.ListCounties)
}
