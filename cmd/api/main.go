package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/a2h-store/api/internal/di"
	"github.com/a2h-store/api/internal/handlers"
	"github.com/a2h-store/api/internal/notify"
	"github.com/a2h-store/api/internal/platform/auth"
	"github.com/a2h-store/api/internal/platform/config"
	pfirestore "github.com/a2h-store/api/internal/platform/firestore"
	"github.com/a2h-store/api/internal/platform/jobs"
	"github.com/a2h-store/api/internal/platform/observability"
	"github.com/a2h-store/api/internal/platform/secrets"
	platformstorage "github.com/a2h-store/api/internal/platform/storage"
	"github.com/a2h-store/api/internal/repositories"
	firestoreRepo "github.com/a2h-store/api/internal/repositories/firestore"
	"github.com/a2h-store/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

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
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	uploader, err := platformstorage.NewUploader(storageClient)
	if err != nil {
		logger.Fatal("failed to initialise storage uploader", zap.Error(err))
	}
	proofStore, err := di.NewProofUploader(uploader, cfg.Storage.ProofsBucket)
	if err != nil {
		logger.Fatal("failed to initialise proof uploader", zap.Error(err))
	}

	var proofSigner services.ProofURLSigner
	if credentials := strings.TrimSpace(cfg.Firebase.CredentialsFile); credentials != "" {
		signer, err := platformstorage.NewServiceAccountSignerFromFile(credentials)
		if err != nil {
			logger.Fatal("failed to load storage signer credentials", zap.Error(err))
		}
		signedURLClient, err := platformstorage.NewClient(signer)
		if err != nil {
			logger.Fatal("failed to initialise signed url client", zap.Error(err))
		}
		proofSigner = signedURLClient
	} else {
		logger.Warn("storage signer credentials not configured; proof download urls disabled")
	}

	healthRepo, err := newHealthRepository(firestoreClient, fetcher)
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}

	mailer, err := notify.NewMailer(notify.MailerDeps{
		Endpoint:    cfg.Email.Endpoint,
		APIKey:      cfg.Email.APIKey,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		Logger:      zapEventLogger(logger.Named("mailer")),
	})
	if err != nil {
		logger.Fatal("failed to initialise mailer", zap.Error(err))
	}

	var orderEvents services.OrderEventPublisher
	if topicID := strings.TrimSpace(cfg.Events.OrderEventsTopic); topicID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(topicID)
		defer topic.Stop()
		publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		orderEvents = publisher
	} else {
		logger.Info("order events topic not configured; publishing disabled")
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	container, err := di.NewContainer(ctx, cfg, di.ContainerDeps{
		Registry: registry,
		Proofs:   proofStore,
		Signer:   proofSigner,
		Mailer:   mailer,
		Events:   orderEvents,
		Logger:   zapEventLogger(logger.Named("services")),
		Build:    buildInfo,
	})
	if err != nil {
		logger.Fatal("failed to initialise service container", zap.Error(err))
	}

	storefrontHandlers := handlers.NewStorefrontHandlers(container.Services.Catalog, container.Services.Currency, container.Services.Settings)
	cartHandlers := handlers.NewCartHandlers(container.Services.Cart)
	checkoutHandlers := handlers.NewCheckoutHandlers(container.Services.Checkout)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(container.Services.Orders)
	adminCatalogHandlers := handlers.NewAdminCatalogHandlers(container.Services.Catalog)
	adminSettingsHandlers := handlers.NewAdminSettingsHandlers(container.Services.Settings)
	healthHandlers := handlers.NewHealthHandlers(container.Services.System)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.ContextLoggerMiddleware(logger.Named("http")),
		observability.CloudTraceMiddleware(projectID),
		observability.PanicRecoveryMiddleware(logger.Named("http")),
		observability.AccessLogMiddleware(projectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithStorefrontRoutes(storefrontHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithAdminRoutes(func(r chi.Router) {
			r.Route("/orders", adminOrderHandlers.Routes)
			r.Route("/catalog", adminCatalogHandlers.Routes)
			r.Route("/settings", adminSettingsHandlers.Routes)
		}),
		handlers.WithSessionMiddlewares(handlers.SessionMiddleware(cfg.Session)),
		handlers.WithAdminMiddlewares(authenticator.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("a2h store api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.ToLower(strings.TrimSpace(env["API_ENVIRONMENT"]))
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

// newHealthRepository checks the dependencies the readiness endpoint reports on:
// a Firestore collection listing and a Secret Manager round trip.
func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the config fields that must resolve before the
// server starts. The email API key is only mandatory when the operator has
// pointed it at a secret reference.
func requiredSecretNames(env map[string]string) []string {
	if env == nil {
		return nil
	}
	if strings.TrimSpace(env["API_EMAIL_API_KEY"]) == "" {
		return nil
	}
	return []string{"Email.APIKey"}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}
