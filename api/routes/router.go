package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/enriquemoya/cardstock-backend/api/controllers"
	"github.com/enriquemoya/cardstock-backend/api/middleware"
	checkoutsvc "github.com/enriquemoya/cardstock-backend/internal/checkout"
	draftsvc "github.com/enriquemoya/cardstock-backend/internal/drafts"
	inventorysvc "github.com/enriquemoya/cardstock-backend/internal/inventory"
	internalorders "github.com/enriquemoya/cardstock-backend/internal/orders"
	syncpkg "github.com/enriquemoya/cardstock-backend/internal/sync"
	"github.com/enriquemoya/cardstock-backend/pkg/config"
	"github.com/enriquemoya/cardstock-backend/pkg/db"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    db.Pinger
	RedisPinger redis.Pinger

	Drafts    draftsvc.Service
	Checkout  checkoutsvc.Service
	Orders    internalorders.Service
	Inventory inventorysvc.Service
	SyncState *syncpkg.StateRepository

	// SyncEngine may be nil when the terminal has no cloud feed configured;
	// the trigger endpoint then reports a state conflict.
	SyncEngine *syncpkg.Engine
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/drafts", func(r chi.Router) {
			r.Put("/", controllers.DraftUpsert(p.Drafts, logg))
			r.Get("/active", controllers.DraftActive(p.Drafts, logg))
			r.Post("/revalidate", controllers.DraftRevalidate(p.Drafts, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(p.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryAvailability(p.Inventory, logg))
			r.Get("/{inventoryId}", controllers.InventoryItem(p.Inventory, logg))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.StaffRoleManager, logg))
			r.Get("/status", controllers.SyncStatus(p.SyncState, cfg.Sync.POSID, logg))
			if p.SyncEngine != nil {
				r.Post("/run", controllers.SyncRun(p.SyncEngine, logg))
			} else {
				r.Post("/run", controllers.SyncRun(nil, logg))
			}
		})
	})

	return r
}
