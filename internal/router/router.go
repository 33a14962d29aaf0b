package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-event-platform/internal/config"
	"go-event-platform/internal/handler"
	"go-event-platform/internal/middleware"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Trash     *handler.TrashHandler
	Audit     *handler.AuditHandler
	WebSocket *handler.WebSocketHandler
	Health    http.HandlerFunc
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuditIntakeRateLimitRPM)

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	health := h.Health
	if health == nil {
		health = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}
	}
	r.Get("/health", health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Websocket connections are long-lived and must not sit behind Timeout.
		api.With(authMiddleware.RequireSocketAuth).Get("/ws", h.WebSocket.Subscribe)

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(cfg.RequestTimeout))

			timed.With(authMiddleware.RequireAuth).Get("/auth/me", h.Auth.Me)

			timed.With(authMiddleware.OptionalAuth).Post("/audit", h.Audit.Record)
			timed.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Get("/audit", h.Audit.List)

			timed.Group(func(trash chi.Router) {
				trash.Use(authMiddleware.RequireAuth)

				trash.Get("/trash", h.Trash.List)
				trash.Get("/trash/count", h.Trash.Count)

				trash.Group(func(editors chi.Router) {
					editors.Use(authMiddleware.RequireRoles("editor", "admin"))
					editors.Post("/trash/{module}/restore-all", h.Trash.RestoreAll)
					editors.Post("/trash/{module}/{id}/restore", h.Trash.Restore)
					editors.Delete("/modules/{module}/items/{id}", h.Trash.SoftDelete)
				})

				trash.Group(func(admins chi.Router) {
					admins.Use(authMiddleware.RequireRoles("admin"))
					admins.Delete("/trash/{module}/{id}", h.Trash.PermanentDelete)
					admins.Delete("/trash/{module}", h.Trash.PermanentDeleteAll)
				})
			})
		})
	})

	return r
}
