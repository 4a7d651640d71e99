package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskfi/marketplace/internal/api/rest/handler"
	"github.com/taskfi/marketplace/internal/api/rest/middleware"
	"github.com/taskfi/marketplace/internal/permission"
	repository "github.com/taskfi/marketplace/internal/repository/postgres"
	gigservice "github.com/taskfi/marketplace/internal/service/gig"
	jobservice "github.com/taskfi/marketplace/internal/service/job"
	orderservice "github.com/taskfi/marketplace/internal/service/order"
	"github.com/taskfi/marketplace/internal/version"
	"github.com/taskfi/marketplace/pkg/keyfetcher"
)

const (
	DefaultPort = "8080"

	TokenTTL              = 1 * time.Hour
	JWTClockSkewTolerance = 5 * time.Minute

	// Admission control: 100 requests per minute per client IP.
	RateLimitRPS     = 100.0 / 60.0
	RateLimitBurst   = 100
	RateLimitIdleTTL = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("api_starting", "version", version.Version)

	// Database connection
	dbPool, err := initializeDatabase(fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_DB"),
		os.Getenv("POSTGRES_SSL"),
	))
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	gigRepo := repository.NewGigRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	jobRepo := repository.NewJobRepository(dbPool)
	txStore := repository.NewTxStore(dbPool)

	// Permission decisions
	perms, err := permission.NewService()
	if err != nil {
		logger.Error("permission_init_failed", "error", err)
		os.Exit(1)
	}

	// Services
	orderCoordinator := orderservice.NewCoordinator(gigRepo, userRepo, txStore, logger)
	gigService := gigservice.NewService(gigRepo, categoryRepo, userRepo, perms, logger)
	jobService := jobservice.NewService(jobRepo, categoryRepo, userRepo, userRepo, perms, txStore, logger)

	// Auth config
	issuer := os.Getenv("JWT_ISSUER")
	audience := os.Getenv("JWT_AUDIENCE")

	jwtMiddleware := middleware.NewJWTAuthMiddleware(middleware.JWTConfig{
		KeyFetcher: keyfetcher.FromBase64Env("PUBLIC_KEY_BASE64"),
		Issuer:     issuer,
		Audience:   audience,
		ClockSkew:  JWTClockSkewTolerance,
	})

	// REST handlers
	authHandler := handler.NewAuthHandler(
		userRepo,
		&handler.AuthConfig{
			KeyFetcher: keyfetcher.FromBase64Env("PRIVATE_KEY_BASE64"),
			Issuer:     issuer,
			Audience:   audience,
			TokenTTL:   TokenTTL,
		},
		logger,
	)
	gigHandler := handler.NewGigHandler(gigService, logger)
	orderHandler := handler.NewOrderHandler(orderCoordinator, logger)
	jobHandler := handler.NewJobHandler(jobService, logger)
	userHandler := handler.NewUserHandler(userRepo, logger)

	// Middleware
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	rateLimit := middleware.NewRateLimitMiddleware(
		middleware.NewKeyedLimiter(RateLimitRPS, RateLimitBurst, RateLimitIdleTTL),
	)

	mux := buildServeMux(authHandler, gigHandler, orderHandler, jobHandler, userHandler, jwtMiddleware, rateLimit, metrics)

	// HTTP server with sensible timeouts
	port := os.Getenv("PORT")
	if port == "" {
		port = DefaultPort
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("api_listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("api_serve_failed", "error", err)
		os.Exit(1)
	}
}

// initializeDatabase creates a pool and verifies connectivity.
func initializeDatabase(connectionString string) (*pgxpool.Pool, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("create_pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping_db: %w", err)
	}

	return pool, nil
}

// buildServeMux wires routes. Listing and detail reads are public; mutating
// routes sit behind the JWT middleware. Every API route passes through the
// admission limiter and is measured.
func buildServeMux(
	authHandler *handler.AuthHandler,
	gigHandler *handler.GigHandler,
	orderHandler *handler.OrderHandler,
	jobHandler *handler.JobHandler,
	userHandler *handler.UserHandler,
	jwtMiddleware *middleware.JWTAuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	metrics *middleware.Metrics,
) *http.ServeMux {
	root := http.NewServeMux()
	root.Handle("GET /health", http.HandlerFunc(handleHealthCheck))
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("POST /auth/signin",
		rateLimit.Handler(metrics.Handler("auth_signin", http.HandlerFunc(authHandler.SignIn))))

	api := http.NewServeMux()
	api.Handle("GET /gigs", metrics.Handler("gigs_list", http.HandlerFunc(gigHandler.ListGigs)))
	api.Handle("GET /gigs/{id}", metrics.Handler("gigs_get", http.HandlerFunc(gigHandler.GetGig)))
	api.Handle("GET /jobs", metrics.Handler("jobs_list", http.HandlerFunc(jobHandler.ListJobs)))
	api.Handle("POST /users/check-username",
		metrics.Handler("users_check_username", http.HandlerFunc(userHandler.CheckUsername)))

	api.Handle("POST /gigs",
		metrics.Handler("gigs_create", jwtMiddleware.Handler(http.HandlerFunc(gigHandler.CreateGig))))
	api.Handle("POST /gigs/{id}/order",
		metrics.Handler("gigs_order", jwtMiddleware.Handler(http.HandlerFunc(orderHandler.PlaceOrder))))
	api.Handle("POST /jobs",
		metrics.Handler("jobs_create", jwtMiddleware.Handler(http.HandlerFunc(jobHandler.CreateJob))))
	api.Handle("POST /jobs/{id}/apply",
		metrics.Handler("jobs_apply", jwtMiddleware.Handler(http.HandlerFunc(jobHandler.Apply))))

	root.Handle("/api/v1/", http.StripPrefix("/api/v1", rateLimit.Handler(api)))
	return root
}

// handleHealthCheck returns a basic health status.
func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
