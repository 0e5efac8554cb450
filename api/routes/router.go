package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MalayathiGeetha/Motor-Part/api/controllers"
	"github.com/MalayathiGeetha/Motor-Part/api/middleware"
	"github.com/MalayathiGeetha/Motor-Part/pkg/config"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
	pkgredis "github.com/MalayathiGeetha/Motor-Part/pkg/redis"
)

// NewRouter wires the operator HTTP surface. redisP and idempotencyStore may
// be nil when redis is not configured.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	partService controllers.PartService,
	alertService controllers.AlertService,
	auditService controllers.AuditService,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	catalogReplay := middleware.Idempotency(idempotencyStore, logg, middleware.CatalogReplayWindow)
	stockReplay := middleware.Idempotency(idempotencyStore, logg, middleware.StockReplayWindow)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.ListParts(partService, logg))
			r.Get("/search", controllers.SearchParts(partService, logg))
			r.With(catalogReplay).Post("/", controllers.CreatePart(partService, logg))

			r.Route("/{partId}", func(r chi.Router) {
				r.Get("/", controllers.GetPart(partService, logg))
				r.Put("/", controllers.UpdatePart(partService, logg))
				r.Delete("/", controllers.DeletePart(partService, logg))
				r.Get("/audit", controllers.PartAuditTrail(partService, logg))
				r.With(stockReplay).Post("/receive", controllers.ReceiveStock(partService, logg))
				r.With(stockReplay).Post("/deduct", controllers.DeductStock(partService, logg))
				r.With(catalogReplay).Post("/reorder", controllers.ReorderPart(partService, logg))
			})
		})

		r.Get("/inventory/stats", controllers.InventoryStats(partService, logg))

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListAlerts(alertService, logg))
			r.Get("/open", controllers.ListOpenAlerts(alertService, logg))
			r.Put("/{alertId}/acknowledge", controllers.AcknowledgeAlert(alertService, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", controllers.ListAuditLog(auditService, logg))
			r.Get("/entity/{entityType}/{entityId}", controllers.EntityAuditTrail(auditService, logg))
		})
	})

	return r
}
