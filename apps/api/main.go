package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	careershandler "github.com/careerlog/careerlog-saas/domains/careers/be/handler"
	careersrepo "github.com/careerlog/careerlog-saas/domains/careers/be/repo"
	careersservice "github.com/careerlog/careerlog-saas/domains/careers/be/service"
	migrationservice "github.com/careerlog/careerlog-saas/domains/migration/be/service"
	tenantshandler "github.com/careerlog/careerlog-saas/domains/tenants/be/handler"
	tenantsprov "github.com/careerlog/careerlog-saas/domains/tenants/be/provisioning"
	tenantsrepo "github.com/careerlog/careerlog-saas/domains/tenants/be/repo"
	tenantsservice "github.com/careerlog/careerlog-saas/domains/tenants/be/service"
	platformauth "github.com/careerlog/careerlog-saas/platform/go/auth"
	"github.com/careerlog/careerlog-saas/platform/go/gcp"
	platformlogging "github.com/careerlog/careerlog-saas/platform/go/logging"
	platformmiddleware "github.com/careerlog/careerlog-saas/platform/go/middleware"
	"github.com/careerlog/careerlog-saas/platform/go/persistence"
	"github.com/careerlog/careerlog-saas/platform/go/tenant"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// Control-plane database holding the tenant registry.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Local embedded store, used until a tenant database is ready.
	LocalDBPath string `env:"LOCAL_DB_PATH" envDefault:"./.data/careerlog.db"`

	// Database hosting platform.
	PlatformAPIURL   string `env:"PLATFORM_API_URL,required"`
	PlatformAPIToken string `env:"PLATFORM_API_TOKEN,required"`
	PlatformOrg      string `env:"PLATFORM_ORG,required"`
	PlatformGroup    string `env:"PLATFORM_GROUP" envDefault:"default"`

	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | unsigned
	CredentialsPath string        `env:"FIREBASE_CREDENTIALS_PATH"`
	ConnCacheTTL    time.Duration `env:"CONN_CACHE_TTL" envDefault:"10m"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	registry := tenantsrepo.NewPostgresRegistry(pool)
	if err := registry.Init(ctx); err != nil {
		logger.Fatal("init tenant registry schema", zap.Error(err))
	}

	localStore, err := careersrepo.NewSQLiteStore(cfg.LocalDBPath)
	if err != nil {
		logger.Fatal("init local store", zap.Error(err))
	}
	defer localStore.Close() // nolint:errcheck

	platformClient := tenantsprov.NewPlatformClient(tenantsprov.PlatformClientConfig{
		BaseURL:      cfg.PlatformAPIURL,
		Organization: cfg.PlatformOrg,
		APIToken:     cfg.PlatformAPIToken,
	})
	schemaApplier := tenantsprov.NewPGSchemaApplier(tenant.BuildDSN)
	provisioner := tenantsservice.NewProvisioner(registry, platformClient, schemaApplier, cfg.PlatformGroup, logger)

	cache := tenantsservice.NewConnCache(
		registry,
		func(ctx context.Context, rec tenantsservice.TenantDatabase) (*careersrepo.PostgresStore, error) {
			tenantPool, err := pgxpool.New(ctx, tenant.BuildDSN(rec.DBURL, rec.DBName, rec.RWCredential))
			if err != nil {
				return nil, err
			}
			return careersrepo.NewPostgresStore(tenantPool), nil
		},
		func(store *careersrepo.PostgresStore) { store.Close() },
		cfg.ConnCacheTTL,
	)

	remoteResolver := func(ctx context.Context, principalID string) (careersservice.Store, error) {
		return cache.Get(ctx, principalID)
	}
	workflow := migrationservice.NewWorkflow(localStore, registry, provisioner, remoteResolver, logger)

	// Requests read and write the remote tenant database once it is ready;
	// until then they fall through to the local embedded store.
	storeResolver := func(ctx context.Context, r *http.Request) (careersservice.Store, error) {
		creds, ok := platformauth.UserFromContext(ctx)
		if !ok || creds == nil || creds.Id == "" {
			return localStore, nil
		}
		store, err := cache.Get(ctx, creds.Id)
		if errors.Is(err, tenantsservice.ErrNotFound) || errors.Is(err, tenantsservice.ErrNotReady) {
			return localStore, nil
		}
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	snapshotValidator := careersservice.NewSnapshotValidator()
	careersHTTPHandler := careershandler.New(storeResolver, snapshotValidator, logger)
	tenantsHTTPHandler := tenantshandler.New(registry, provisioner, workflow, cache.Invalidate, logger)

	authMiddleware := buildAuthMiddleware(ctx, cfg, logger)

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Mount("/careers", careersHTTPHandler.Routes())
	apiRouter.Mount("/account", tenantsHTTPHandler.Routes())

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildAuthMiddleware(ctx context.Context, cfg config, logger *zap.Logger) func(http.Handler) http.Handler {
	switch cfg.AuthProvider {
	case "unsigned":
		// Development only: trusts whatever the token claims.
		logger.Warn("using unsigned token verifier; do not run this in production")
		return platformauth.JWT(platformauth.UnsignedTokenVerifier(), nil)
	default:
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx, cfg.CredentialsPath)
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		return platformauth.JWT(platformauth.FirebaseTokenVerifier(fbAuth), nil)
	}
}
