package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/auth"
	"github.com/AnshRaj112/crm-backend/internal/config"
	"github.com/AnshRaj112/crm-backend/internal/database"
	"github.com/AnshRaj112/crm-backend/internal/handlers"
	"github.com/AnshRaj112/crm-backend/internal/logger"
	"github.com/AnshRaj112/crm-backend/internal/middleware"
	"github.com/AnshRaj112/crm-backend/internal/routes"
	"github.com/AnshRaj112/crm-backend/internal/services"
	"github.com/AnshRaj112/crm-backend/internal/store"
	"github.com/AnshRaj112/crm-backend/pkg/clientip"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "crm-backend")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			zlog.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
			zlog.Info("sentry enabled")
		}
	}
	clientip.TrustForwardedFor(cfg.TrustProxy)

	zlog.Info("connecting to MongoDB", zap.String("uri", database.MaskURI(cfg.MongoURI)))
	mongoClient, db, err := database.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer database.Disconnect(mongoClient)

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureIndexes(indexCtx, db); err != nil {
		zlog.Warn("failed to ensure MongoDB indexes", zap.Error(err))
	}
	cancel()

	var (
		cache services.Cache
		feed  services.ActivityFeed
	)
	var redisClient *redis.Client
	if cfg.RedisURI != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			zlog.Warn("redis unavailable, cache and windowed rate limit disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer database.DisconnectRedis(redisClient)
			cache = services.NewCacheService(redisClient)
		}
	}

	if cfg.PostgresURI != "" {
		pg, err := database.ConnectPostgres(cfg.PostgresURI)
		if err != nil {
			zlog.Warn("postgres unavailable, activity feed disabled", zap.Error(err))
		} else {
			defer database.DisconnectPostgres(pg)
			if err := database.InitPostgresTables(context.Background(), pg); err != nil {
				zlog.Warn("failed to create activity tables", zap.Error(err))
			}
			feed = store.NewActivityStore(pg)
		}
	}

	var uploader services.ImageUploader
	if cfg.CloudinaryEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			zlog.Warn("cloudinary disabled", zap.Error(err))
		} else {
			uploader = cld
		}
	}

	users := store.NewUserStore(db)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	resolver := auth.NewResolver(tokens, users)

	userService := services.NewUserService(users, tokens, uploader, zlog, cfg.AllowAdminSignup)
	contactService := services.NewContactService(store.NewContactStore(db), feed, zlog)
	leadService := services.NewLeadService(store.NewLeadStore(db), feed, zlog)
	taskService := services.NewTaskService(store.NewTaskStore(db), feed, zlog)
	dashboardService := services.NewDashboardService(store.NewDashboardStore(db), feed, cache, cfg.QuickStatsTTL, zlog)

	rs := handlers.NewResponder(zlog, cfg.IsProduction())
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(userService, rs),
		Admin:     handlers.NewAdminHandler(userService, rs),
		Contacts:  handlers.NewContactHandler(contactService, rs),
		Leads:     handlers.NewLeadHandler(leadService, rs),
		Tasks:     handlers.NewTaskHandler(taskService, rs),
		Dashboard: handlers.NewDashboardHandler(dashboardService, rs),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(zlog))
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: security headers, host check and per-IP limits.
	// Elsewhere: the Redis windowed limit when Redis is configured.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
	} else if redisClient != nil {
		r.Use(middleware.RedisRateLimit(redisClient, zlog))
	}

	routes.SetupRoutes(r, h, resolver)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("CRM backend listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(ctx)
}
