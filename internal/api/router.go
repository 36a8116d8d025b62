package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"promo-engine/internal/observability"
)

func Router(h *PromotionHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Second))

	r.Get("/v1/promotions", h.Storefront)

	r.Route("/v1/admin/promotions", func(r chi.Router) {
		r.Get("/", h.AdminList)
		r.Post("/", h.AdminCreate)
		r.Get("/eligible", h.AdminEligible)
		r.Get("/preview", h.AdminPreview)
		r.Get("/priority-count", h.AdminPriorityCount)
		r.Get("/{id}", h.AdminGet)
		r.Patch("/{id}", h.AdminPatch)
		r.Delete("/{id}", h.AdminDelete)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
