// AngelaMos | 2026
// app.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/mediahub/internal/admin"
	"github.com/carterperez-dev/mediahub/internal/auth"
	"github.com/carterperez-dev/mediahub/internal/config"
	"github.com/carterperez-dev/mediahub/internal/content"
	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/health"
	"github.com/carterperez-dev/mediahub/internal/media"
	"github.com/carterperez-dev/mediahub/internal/middleware"
	"github.com/carterperez-dev/mediahub/internal/presence"
	"github.com/carterperez-dev/mediahub/internal/server"
	"github.com/carterperez-dev/mediahub/internal/user"
)

type app struct {
	server    *server.Server
	db        *core.Database
	redis     *core.Redis
	telemetry *core.Telemetry
	logger    *slog.Logger
}

type repositories struct {
	users   user.Repository
	content content.Repository
	media   media.Repository
}

//nolint:funlen // bootstrap code is inherently verbose
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	tel, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("tracing export disabled", "error", err)
	} else {
		a.telemetry = tel
		if cfg.Otel.Enabled {
			logger.Info("exporting traces", "endpoint", cfg.Otel.Endpoint)
		}
	}

	repos, err := a.openRepositories(ctx, cfg.Database)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.redis, err = core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	if a.redis != nil {
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	store, err := media.NewBlobStore(ctx, cfg.Media.Storage)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init blob store: %w", err)
	}
	logger.Info("media storage ready", "backend", cfg.Media.Storage.Backend)

	var events presence.Publisher = presence.Noop{}
	if cfg.Presence.Enabled && a.redis != nil {
		events = presence.NewRedisPublisher(a.redis.RawClient(), cfg.Presence.Channel)
	}

	userSvc := user.NewService(repos.users, logger)
	authSvc := auth.NewService(jwtManager, userSvc, logger)
	contentSvc := content.NewService(repos.content, events, content.Options{
		RejectStatusElevation: cfg.Content.RejectStatusElevation,
	}, logger)
	mediaSvc := media.NewService(repos.media, store, media.Options{
		PublicBaseURL: cfg.Media.PublicBaseURL,
		MaxUploadSize: cfg.Media.MaxUploadSize,
	}, logger)

	deps := []health.Dependency{}
	if c, ok := store.(health.Checker); ok {
		deps = append(deps, health.Dependency{Name: "storage", Checker: c})
	}
	adminCfg := admin.HandlerConfig{
		Content: contentSvc,
		Media:   mediaSvc,
	}
	if a.db != nil {
		deps = append(deps, health.Dependency{Name: "database", Checker: a.db})
		adminCfg.DBStats = a.db.Stats
		adminCfg.DBPing = a.db.Ping
	}
	if a.redis != nil {
		deps = append(deps, health.Dependency{
			Name:     "redis",
			Checker:  a.redis,
			Optional: true,
		})
		adminCfg.RedisStats = a.redis.PoolStats
		adminCfg.RedisPing = a.redis.Ping
	}
	healthHandler := health.NewHandler(deps...)

	proxies, err := cfg.Server.ProxyPrefixes()
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.server = server.New(server.Config{
		ServerConfig:   cfg.Server,
		HealthHandler:  healthHandler,
		Logger:         logger,
		TrustedProxies: proxies,
	})

	router := a.server.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(a.redis.RawClient(), middleware.RateLimitConfig{
			Limit: middleware.Per(
				cfg.RateLimit.Window,
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen:   true,
			BypassFunc: isProbe,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	mediaHandler := media.NewHandler(mediaSvc, cfg.Media.MaxUploadSize)
	mediaHandler.RegisterStreamRoutes(router)

	credentialLimiter := middleware.NewRateLimiter(a.redis.RawClient(), middleware.RateLimitConfig{
		Limit: middleware.Per(
			cfg.RateLimit.Window,
			cfg.RateLimit.CredentialRequests,
			cfg.RateLimit.CredentialBurst,
		),
		Scope:    "credentials",
		FailOpen: true,
	})

	uploadLimiter := middleware.NewRateLimiter(a.redis.RawClient(), middleware.RateLimitConfig{
		Limit: middleware.Per(
			cfg.RateLimit.Window,
			cfg.RateLimit.UploadRequests,
			cfg.RateLimit.UploadBurst,
		),
		Scope:    "uploads",
		KeyFunc:  middleware.KeyByUser,
		FailOpen: true,
	})

	authenticator := middleware.Authenticator(jwtManager)
	adminOnly := middleware.RequireAdmin

	router.Route("/api", func(r chi.Router) {
		r.Get("/test", ping)

		r.Group(func(r chi.Router) {
			r.Use(server.LimitBody(cfg.Server.MaxBodyBytes))

			auth.NewHandler(authSvc).RegisterRoutes(r, authenticator, credentialLimiter.Handler)
			content.NewHandler(contentSvc).RegisterRoutes(r, authenticator)
			user.NewHandler(userSvc).RegisterRoutes(r, authenticator)
			admin.NewHandler(adminCfg).RegisterRoutes(r, authenticator, adminOnly)
		})

		mediaHandler.RegisterRoutes(r, authenticator, uploadLimiter.Handler)
	})

	return a, nil
}

func (a *app) openRepositories(
	ctx context.Context,
	cfg config.DatabaseConfig,
) (*repositories, error) {
	if cfg.Driver == config.DriverMemory {
		users := user.NewMemoryRepository()
		a.logger.Warn("using in-memory repositories; data is lost on restart")
		return &repositories{
			users:   users,
			content: content.NewMemoryRepository(users),
			media:   media.NewMemoryRepository(users),
		}, nil
	}

	db, err := core.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.logger.Info("database connected",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		a.logger.Info("database migrations applied")
	}

	return &repositories{
		users:   user.NewRepository(db.DB),
		content: content.NewRepository(db.DB),
		media:   media.NewRepository(db.DB),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", "error", err)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("database close error", "error", err)
		}
	}
}

func isProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/livez", "/readyz":
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/.well-known/")
}

func ping(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, map[string]any{
		"message":   "server is running",
		"timestamp": time.Now().UTC(),
	})
}
