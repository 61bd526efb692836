package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Appointments   *AppointmentsHandler
	MetricsHandler http.Handler
}

// NewRouter wires the operation surface onto a chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Appointments != nil && cfg.Appointments.log != nil {
		r.Use(RequestLogger(cfg.Appointments.log))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Appointments != nil {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", cfg.Appointments.Create)
			r.Get("/", cfg.Appointments.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Appointments.Get)
				r.Put("/", cfg.Appointments.Update)
				r.Delete("/", cfg.Appointments.Delete)
				r.Get("/history", cfg.Appointments.History)
			})
		})
		r.Get("/locations/{locationID}/slots", cfg.Appointments.Slots)
	}

	return r
}
