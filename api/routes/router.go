package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/wishlist-backend/api/controllers"
	"github.com/angelmondragon/wishlist-backend/api/middleware"
	"github.com/angelmondragon/wishlist-backend/internal/access"
	"github.com/angelmondragon/wishlist-backend/internal/auth"
	product "github.com/angelmondragon/wishlist-backend/internal/products"
	"github.com/angelmondragon/wishlist-backend/internal/users"
	"github.com/angelmondragon/wishlist-backend/internal/wishlist"
	"github.com/angelmondragon/wishlist-backend/pkg/auth/session"
	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/metrics"
)

// RedisStore is the Redis surface used by rate limiting and idempotency.
type RedisStore interface {
	middleware.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

type actorResolver interface {
	Resolve(ctx context.Context, rawUserID string) (access.Actor, error)
}

// Dependencies carries everything the router hands to controllers.
type Dependencies struct {
	Redis         RedisStore
	Sessions      session.AccessSessionChecker
	Actors        actorResolver
	Auth          auth.Service
	Users         users.Service
	Categories    categoryLister
	Catalog       product.Catalog
	Contributions product.Contributions
	Wishlist      wishlist.Service
	HealthChecks  []controllers.HealthCheck
	HTTPMetrics   *metrics.HTTPMetrics
	Gatherer      prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginThrottle := middleware.Throttle{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		PerIP:      cfg.AuthRateLimit.LoginIPLimit,
		PerAccount: cfg.AuthRateLimit.LoginAccountLimit,
	}
	registerThrottle := middleware.Throttle{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		PerIP:      cfg.AuthRateLimit.RegisterIPLimit,
		PerAccount: cfg.AuthRateLimit.RegisterAccountLimit,
	}
	registerReplay := middleware.IdempotencyPolicy{TTL: 24 * time.Hour, MaxBodyBytes: 64 << 10}
	submitReplay := middleware.IdempotencyPolicy{TTL: 24 * time.Hour, MaxBodyBytes: 2*cfg.Media.MaxUploadBytes() + 1<<20}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthChecks...))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginThrottle, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(
				middleware.AuthRateLimit(registerThrottle, deps.Redis, logg),
				middleware.Idempotency(deps.Redis, registerReplay, logg),
			).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})

		// public reads
		r.Group(func(r chi.Router) {
			r.Get("/categories", controllers.ListCategories(deps.Categories, logg))
			r.Get("/catalog", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/catalog/{categorySlug}", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/products/recommended", controllers.RecommendedProducts(deps.Catalog, logg))
			r.Get("/products/{slug}", controllers.ProductDetail(deps.Catalog, logg))
			r.Get("/sizes", controllers.ListSizes(deps.Catalog, logg))
			r.Get("/users/{login}/wishlist", controllers.WishlistView(deps.Wishlist, logg))
			r.Get("/users/{login}/wishlist/products", controllers.WishlistProducts(deps.Wishlist, logg))
		})

		// wishlist mutations answer anonymous callers with a denied outcome
		r.Group(func(r chi.Router) {
			r.Use(
				middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg),
				middleware.ResolveActor(deps.Actors, logg),
			)
			r.Post("/users/{login}/wishlist/{productId}", controllers.WishlistAdd(deps.Wishlist, logg))
			r.Delete("/users/{login}/wishlist/{productId}", controllers.WishlistRemove(deps.Wishlist, logg))
			r.Delete("/wishlist/{productId}", controllers.WishlistRemoveOwn(deps.Wishlist, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, deps.Sessions, logg),
				middleware.ResolveActor(deps.Actors, logg),
			)
			r.With(middleware.Idempotency(deps.Redis, submitReplay, logg)).Post("/products", controllers.SubmitProduct(deps.Contributions, cfg.Media.MaxUploadBytes(), logg))
			r.Get("/me", controllers.MeProfile(deps.Users, logg))
			r.Put("/me", controllers.MeUpdate(deps.Users, logg))
		})
	})

	return r
}
