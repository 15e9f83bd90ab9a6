package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fdygg/growledger/internal/config"
	"github.com/fdygg/growledger/internal/handler"
	"github.com/fdygg/growledger/internal/handler/admin"
	"github.com/fdygg/growledger/internal/middleware"
	"github.com/fdygg/growledger/internal/service"
	"github.com/fdygg/growledger/internal/store"
	"github.com/fdygg/growledger/migrations"
)

const version = "1.0.0"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Str("log_level", cfg.LogLevel).Msg("unknown log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create connection pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to reach database")
	}

	st := store.NewPostgres(pool)

	credentials := service.NewCredentialService(st, cfg.RateLimitMax, cfg.RateLimitWindow)
	tokens := service.NewTokenService(st, credentials, cfg.TokenMinTTL, cfg.TokenMaxTTL, cfg.TokenDefaultTTL)
	ledger := service.NewLedgerService(st)

	if cfg.BootstrapUsername != "" {
		if err := bootstrapCredential(ctx, st, credentials, cfg.BootstrapUsername); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap credential")
		}
	}

	router := buildRouter(cfg, st, credentials, tokens, ledger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func runMigrations(databaseURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// bootstrapCredential creates a credential for username if none exists. The
// api_key and secret prefix are logged by the credential service; the full
// secret is printed to stdout once and never stored in readable form again.
func bootstrapCredential(ctx context.Context, st store.CredentialStore, credentials *service.CredentialService, username string) error {
	if _, err := st.GetPrincipal(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	result, err := credentials.Create(ctx, username)
	if err != nil {
		return err
	}

	fmt.Printf("bootstrap credential created: username=%s api_key=%s api_secret=%s\n",
		result.Principal.Username, result.APIKey, result.APISecret)
	return nil
}

func buildRouter(cfg *config.Config, st store.Store, credentials *service.CredentialService, tokens *service.TokenService, ledger *service.LedgerService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ProcessTime)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders(version))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Use(middleware.RequireJSON)

	attempts := middleware.NewAuthAttemptLimiter(5, 5*time.Minute, 15*time.Minute)
	r.Use(middleware.Auth(tokens, middleware.DefaultPublicPaths(), attempts))

	rl := middleware.NewRateLimiter()
	r.Use(middleware.RateLimitMiddleware(rl, credentials))

	r.Method(http.MethodGet, "/api/v1/health", handler.NewHealthHandler(st, version))
	r.With(middleware.AuthAttemptLimit(attempts)).
		Method(http.MethodPost, "/api/v1/auth/token", handler.NewTokenHandler(tokens))

	r.Method(http.MethodGet, "/api/v1/balance/{growid}", handler.NewGetBalanceHandler(ledger))
	r.Method(http.MethodPost, "/api/v1/balance/{growid}/update", handler.NewUpdateBalanceHandler(ledger))
	r.Method(http.MethodGet, "/api/v1/balance/{growid}/history", handler.NewBalanceHistoryHandler(ledger))

	r.Method(http.MethodGet, "/api/v1/admin/transactions", admin.NewQueryTransactionsHandler(ledger))
	r.Method(http.MethodPost, "/api/v1/admin/transactions/{id}/reverse", admin.NewReverseTransactionHandler(ledger))
	r.Method(http.MethodPost, "/api/v1/admin/credentials", admin.NewCreateCredentialHandler(credentials))
	r.Method(http.MethodGet, "/api/v1/admin/credentials", admin.NewListCredentialsHandler(credentials))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
