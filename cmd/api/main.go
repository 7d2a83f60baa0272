package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/wishlist-backend/api/controllers"
	"github.com/angelmondragon/wishlist-backend/api/routes"
	"github.com/angelmondragon/wishlist-backend/internal/access"
	"github.com/angelmondragon/wishlist-backend/internal/auth"
	"github.com/angelmondragon/wishlist-backend/internal/categories"
	"github.com/angelmondragon/wishlist-backend/internal/notifications"
	product "github.com/angelmondragon/wishlist-backend/internal/products"
	"github.com/angelmondragon/wishlist-backend/internal/users"
	"github.com/angelmondragon/wishlist-backend/internal/wishlist"
	"github.com/angelmondragon/wishlist-backend/pkg/auth/session"
	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/metrics"
	"github.com/angelmondragon/wishlist-backend/pkg/migrate"
	"github.com/angelmondragon/wishlist-backend/pkg/outbox"
	"github.com/angelmondragon/wishlist-backend/pkg/process"
	"github.com/angelmondragon/wishlist-backend/pkg/pubsub"
	"github.com/angelmondragon/wishlist-backend/pkg/redis"
	"github.com/angelmondragon/wishlist-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	process.Main("api", run)
}

// infra holds the external clients, closed in reverse order of opening.
type infra struct {
	db     *db.Client
	redis  *redis.Client
	gcs    *gcs.Client
	pubsub *pubsub.Client

	process.Closers
}

func connect(ctx context.Context, cfg *config.Config, logg *logger.Logger) (in *infra, err error) {
	in = &infra{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, in.Close())
		}
	}()

	if in.db, err = db.New(ctx, cfg.DB, logg); err != nil {
		return in, fmt.Errorf("database: %w", err)
	}
	in.Add(in.db)
	if err = migrate.MaybeRunDev(ctx, cfg, logg, in.db); err != nil {
		return in, fmt.Errorf("dev migrations: %w", err)
	}
	if in.redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
		return in, fmt.Errorf("redis: %w", err)
	}
	in.Add(in.redis)
	if in.gcs, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg); err != nil {
		return in, fmt.Errorf("gcs: %w", err)
	}
	in.Add(in.gcs)
	if in.pubsub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg); err != nil {
		return in, fmt.Errorf("pubsub: %w", err)
	}
	in.Add(in.pubsub)
	return in, nil
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	in, err := connect(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := assemble(cfg, logg, in, registry)
	if err != nil {
		return err
	}

	addr := ":" + listenPort(cfg.App)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	logg.Info(logg.WithField(ctx, "addr", addr), "api.listening")

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// assemble builds the services behind the router.
func assemble(cfg *config.Config, logg *logger.Logger, in *infra, registry *prometheus.Registry) (routes.Dependencies, error) {
	conn := in.db.DB()

	sessions, err := session.NewManager(in.redis, cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("sessions: %w", err)
	}
	notifier, err := notifications.NewEnqueuer(outbox.NewWriter(outbox.NewRepository(conn), logg))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("notifier: %w", err)
	}

	userRepo := users.NewRepository(conn)
	actors, err := access.NewResolver(userRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("actors: %w", err)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		DB:             in.db,
		Notifier:       notifier,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth: %w", err)
	}
	userService, err := users.NewService(users.ServiceParams{Repo: userRepo, DB: in.db, Notifier: notifier})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("users: %w", err)
	}

	resolver, err := categories.NewResolver(categories.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("categories: %w", err)
	}
	productRepo := product.NewRepository(conn)
	catalog, err := product.NewCatalog(productRepo, resolver, in.gcs)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("catalog: %w", err)
	}

	wishlistRepo := wishlist.NewRepository(conn)
	contributions, err := product.NewContributions(product.ContributionParams{
		Repo:           productRepo,
		Categories:     resolver,
		Wishlist:       wishlistRepo,
		Notifier:       notifier,
		DB:             in.db,
		Store:          in.gcs,
		MaxUploadBytes: cfg.Media.MaxUploadBytes(),
		Metrics:        metrics.NewSubmissionMetrics(registry),
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("contributions: %w", err)
	}
	wishlists, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:     wishlistRepo,
		Products: productRepo,
		Users:    userRepo,
		URLs:     in.gcs,
		Metrics:  metrics.NewWishlistMetrics(registry),
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("wishlist: %w", err)
	}

	return routes.Dependencies{
		Redis:         in.redis,
		Sessions:      sessions,
		Actors:        actors,
		Auth:          authService,
		Users:         userService,
		Categories:    resolver,
		Catalog:       catalog,
		Contributions: contributions,
		Wishlist:      wishlists,
		HealthChecks: []controllers.HealthCheck{
			{Name: "db", Pinger: in.db},
			{Name: "redis", Pinger: in.redis},
			{Name: "gcs", Pinger: in.gcs},
			{Name: "pubsub", Pinger: in.pubsub},
		},
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Gatherer:    registry,
	}, nil
}

// listenPort lets the platform's PORT win over the configured one.
func listenPort(app config.AppConfig) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return app.Port
}
