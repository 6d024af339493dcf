package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/almutairi-dev/tawseel-backend/api/controllers"
	"github.com/almutairi-dev/tawseel-backend/api/middleware"
	"github.com/almutairi-dev/tawseel-backend/internal/branches"
	"github.com/almutairi-dev/tawseel-backend/internal/cleanup"
	"github.com/almutairi-dev/tawseel-backend/internal/dispatch"
	"github.com/almutairi-dev/tawseel-backend/internal/drivers"
	"github.com/almutairi-dev/tawseel-backend/internal/links"
	"github.com/almutairi-dev/tawseel-backend/internal/orders"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	pkgredis "github.com/almutairi-dev/tawseel-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Orders   orders.Service
	Dispatch dispatch.Service
	Branches branches.Service
	Drivers  drivers.Service
	Cleanup  *cleanup.Coordinator
	Links    *links.Generator

	Idempotency pkgredis.IdempotencyStore
	Health      map[string]controllers.Pinger
}

// New assembles the full router: health probes, the public capability-link
// surface, and the authenticated staff API under /api/v1.
func New(deps Deps) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS())

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(deps.Health, logg))

	// Capability-link surface. Authentication is the signed link itself,
	// verified inside each controller.
	r.Route("/o", func(r chi.Router) {
		r.Get("/view", controllers.PublicViewOrder(deps.Orders, deps.Links, logg))
		r.Post("/confirm", controllers.PublicConfirmOrder(deps.Orders, deps.Links, logg))
		r.Post("/complete", controllers.PublicCompleteOrder(deps.Orders, deps.Links, deps.Config.Media, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Config.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(deps.Orders, logg))
				r.Post("/driver", controllers.AssignDriver(deps.Orders, logg))
				r.Post("/archive", controllers.ArchiveOrder(deps.Orders, logg))
			})
		})

		r.Post("/dispatch", controllers.DispatchOrders(deps.Dispatch, logg))
		r.Get("/dispatch/qr", controllers.DispatchQR(deps.Links, logg))

		r.With(middleware.RequireRole(string(enums.ActorRoleAdmin), logg)).
			Post("/purge", controllers.PurgeOrders(deps.Cleanup, logg))

		r.Route("/branches", func(r chi.Router) {
			r.Post("/", controllers.CreateBranch(deps.Branches, logg))
			r.Get("/", controllers.ListBranches(deps.Branches, logg))
			r.Get("/{branchId}", controllers.GetBranch(deps.Branches, logg))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Post("/", controllers.CreateDriver(deps.Drivers, logg))
			r.Get("/", controllers.ListDrivers(deps.Drivers, logg))
			r.Get("/{driverId}", controllers.GetDriver(deps.Drivers, logg))
		})
	})

	return r
}
