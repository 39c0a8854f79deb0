package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the API endpoints on the given router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/process", h.Process)
		r.Get("/activity", h.Activity)

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", h.ListThreads)
			r.Get("/search", h.SearchThreads)
			r.Get("/{id}", h.GetThread)
			r.Get("/{id}/timeline", h.GetTimeline)
		})
	})
}
