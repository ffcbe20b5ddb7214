package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/catalog/rank", h.RankCatalog)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.CreateCheckout)
			r.Get("/{intentID}", h.GetCheckout)
			r.Post("/{intentID}/confirm", h.ConfirmCheckout)
			r.Post("/{intentID}/refund", h.RefundCheckout)
			r.Post("/{intentID}/cancel", h.CancelCheckout)
			r.Get("/{intentID}/refunds", h.GetRefunds)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/weights", h.GetWeights)
				r.Put("/weights", h.UpdateWeights)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
