package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/collections"
	"github.com/angelmondragon/storefront-backend/internal/homecontent"
	"github.com/angelmondragon/storefront-backend/internal/offers"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

var (
	readRoles     = []enums.MemberRole{enums.MemberRoleAdmin, enums.MemberRoleMerchandiser, enums.MemberRoleViewer}
	curationRoles = []enums.MemberRole{enums.MemberRoleAdmin, enums.MemberRoleMerchandiser}
	catalogRoles  = []enums.MemberRole{enums.MemberRoleAdmin}
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	catalogService catalog.Service,
	homeContentService homecontent.Service,
	collectionService collections.Service,
	offerService offers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{"db": nil, "redis": nil}
	if dbP != nil {
		readiness["db"] = dbP
	}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/home-content", controllers.PublicHomeContent(homeContentService, logg))
		r.Get("/collections/{collectionId}", controllers.PublicGetCollection(collectionService, logg))
		r.Get("/offers/active", controllers.PublicActiveOffers(offerService, logg))
		r.Get("/products/{productId}", controllers.PublicGetProduct(catalogService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRoles(logg, readRoles...))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Cache.IdempotencyTTL, logg))
		r.Get("/ping", controllers.AdminPing())

		r.Route("/v1/home-content", func(r chi.Router) {
			r.Get("/", controllers.AdminGetHomeContent(homeContentService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, curationRoles...))
				r.Put("/{listName}", controllers.AdminSetHomeContentList(homeContentService, logg))
				r.Delete("/{listName}", controllers.AdminClearHomeContentList(homeContentService, logg))
			})
		})

		r.Route("/v1/collections", func(r chi.Router) {
			r.Get("/", controllers.AdminListCollections(collectionService, logg))
			r.Get("/{collectionId}", controllers.AdminGetCollection(collectionService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, curationRoles...))
				r.Post("/", controllers.AdminCreateCollection(collectionService, logg))
				r.Patch("/{collectionId}", controllers.AdminUpdateCollection(collectionService, logg))
				r.Delete("/{collectionId}", controllers.AdminDeleteCollection(collectionService, logg))
				r.Post("/{collectionId}/products", controllers.AdminAddCollectionProduct(collectionService, logg))
				r.Delete("/{collectionId}/products/{productId}", controllers.AdminRemoveCollectionProduct(collectionService, logg))
			})
		})

		r.Route("/v1/offers", func(r chi.Router) {
			r.Get("/", controllers.AdminListOffers(offerService, logg))
			r.Get("/code/{offerCode}", controllers.AdminGetOfferByCode(offerService, logg))
			r.Get("/{offerId}", controllers.AdminGetOffer(offerService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, curationRoles...))
				r.Post("/", controllers.AdminCreateOffer(offerService, logg))
				r.Patch("/{offerId}", controllers.AdminUpdateOffer(offerService, logg))
				r.Delete("/{offerId}", controllers.AdminDeleteOffer(offerService, logg))
				r.Post("/{offerId}/status", controllers.AdminSetOfferStatus(offerService, logg))
			})
		})

		r.Route("/v1/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(catalogService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, catalogRoles...))
				r.Post("/", controllers.AdminCreateProduct(catalogService, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(catalogService, logg))
			})
		})
	})

	return r
}
