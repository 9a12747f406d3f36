package document

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers corpus management routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", h.UploadDocument)
		r.Post("/text", h.IngestText)
		r.Get("/", h.ListSources)
		r.Delete("/{source}", h.DeleteSource)
	})
}
