package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/borne-automatique/api/internal/commerce"
	"github.com/borne-automatique/api/internal/handlers"
	"github.com/borne-automatique/api/internal/platform/config"
	"github.com/borne-automatique/api/internal/platform/idempotency"
	"github.com/borne-automatique/api/internal/platform/money"
	"github.com/borne-automatique/api/internal/platform/observability"
	"github.com/borne-automatique/api/internal/platform/requestctx"
	"github.com/borne-automatique/api/internal/platform/secrets"
	"github.com/borne-automatique/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("kiosk-api")
	ctx = requestctx.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)
	logger = logger.With(zap.String("environment", buildInfo.Environment), zap.String("version", buildInfo.Version))

	var (
		zones       services.ShippingZoneSource
		drafts      services.DraftOrderGateway
		products    services.ProductSource
		shopifyPing func(context.Context) error
	)
	if cfg.Shopify.Configured() {
		client, err := commerce.NewClient(commerce.Config{
			StoreDomain: cfg.Shopify.StoreDomain,
			AccessToken: cfg.Shopify.AccessToken,
			APIVersion:  cfg.Shopify.APIVersion,
			Timeout:     cfg.Shopify.Timeout,
			MaxRetries:  cfg.Shopify.MaxRetries,
		}, commerce.WithLogger(logger.Named("commerce")))
		if err != nil {
			logger.Fatal("failed to initialise commerce client", zap.Error(err))
		}
		zones, drafts, products = client, client, client
		shopifyPing = client.Ping
		logger.Info("commerce backend configured", zap.String("store", cfg.Shopify.StoreDomain))
	} else {
		logger.Warn("no commerce backend configured; draft orders and catalog are disabled")
	}
	if path := strings.TrimSpace(cfg.Shipping.ZonesFile); path != "" {
		static, err := commerce.LoadStaticZones(path)
		if err != nil {
			logger.Fatal("failed to load static shipping zones", zap.String("path", path), zap.Error(err))
		}
		zones = static
		logger.Info("using static shipping zones", zap.String("path", path))
	}

	shippingService, err := services.NewShippingService(services.ShippingServiceDeps{
		Zones:       zones,
		DraftOrders: drafts,
		CacheTTL:    cfg.Shipping.ZoneCacheTTL,
		Logger:      observability.EventLogger(logger, "shipping"),
	})
	if err != nil {
		logger.Fatal("failed to initialise shipping service", zap.Error(err))
	}
	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Shipping:    shippingService,
		DraftOrders: drafts,
		Logger:      observability.EventLogger(logger, "checkout"),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}
	var catalogService services.CatalogService
	if products != nil {
		catalogService, err = services.NewCatalogService(services.CatalogServiceDeps{
			Products: products,
			Logger:   observability.EventLogger(logger, "catalog"),
		})
		if err != nil {
			logger.Fatal("failed to initialise catalog service", zap.Error(err))
		}
	}

	systemService, err := newSystemService(shopifyPing, fetcher, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	formatter := money.NewFormatter(cfg.Display.Locale)

	idempotencyLogger := logger.Named("idempotency")
	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(idempotencyLogger),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		idempotency.Cleanup(cleanupCtx, idempotencyStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize, idempotencyLogger)
	}()

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(buildInfo)}
	if systemService != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(systemService))
	}

	routerOpts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Trace.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.KioskMiddleware,
			observability.RequestLoggerMiddleware(cfg.Trace.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithShippingRoutes(handlers.NewShippingHandlers(shippingService, formatter).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(checkoutService, formatter).Routes),
	}
	if drafts != nil {
		draftHandlers := handlers.NewDraftOrderHandlers(checkoutService, shippingService,
			handlers.WithIdempotency(idempotencyMiddleware),
			handlers.WithMoneyFormatter(formatter),
		)
		routerOpts = append(routerOpts, handlers.WithDraftOrderRoutes(draftHandlers.Routes))
	}
	if catalogService != nil {
		routerOpts = append(routerOpts, handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(catalogService).Routes))
	}

	server := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Server.Port),
		Handler:      handlers.NewRouter(routerOpts...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("kiosk api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["KIOSK_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["KIOSK_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSystemService(shopifyPing func(context.Context) error, fetcher *secrets.Fetcher, build services.BuildInfo) (services.SystemService, error) {
	checks := make([]services.DependencyCheck, 0, 2)
	if shopifyPing != nil {
		checks = append(checks, services.DependencyCheck{
			Name:    "shopify",
			Timeout: 3 * time.Second,
			Check:   shopifyPing,
		})
	}
	if fetcher != nil && fetcher.Remote() {
		const secretHealthReference = "secret://kiosk-healthz?version=latest"
		checks = append(checks, services.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil || errors.Is(err, secrets.ErrNotFound) {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	return services.NewSystemService(services.SystemServiceDeps{
		Checks: checks,
		Build:  build,
	})
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if project := lookup("KIOSK_SECRET_DEFAULT_PROJECT_ID"); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	if path := lookup("KIOSK_SECRET_FALLBACK_FILE"); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	if credentials := lookup("KIOSK_GCP_CREDENTIALS_FILE"); credentials != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentials)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the secrets that must resolve before the server starts. The access
// token is only required once a store domain is set.
func requiredSecretNames(env map[string]string) []string {
	if strings.TrimSpace(env["KIOSK_SHOPIFY_STORE_DOMAIN"]) == "" {
		return nil
	}
	return []string{config.AccessTokenSecret}
}
