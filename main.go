package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-checkin/internal/apply/apply_api"
	applyservice "ms-checkin/internal/apply/service"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin/checkin_api"
	checkinservice "ms-checkin/internal/checkin/service"
	"ms-checkin/internal/config"
	"ms-checkin/internal/database"
	"ms-checkin/internal/database/migrations"
	"ms-checkin/internal/imports"
	"ms-checkin/internal/imports/import_api"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/mail"
	maildb "ms-checkin/internal/mail/db"
	"ms-checkin/internal/metrics"
	participationdb "ms-checkin/internal/participations/db"
	"ms-checkin/internal/participations/participation_api"
	participationservice "ms-checkin/internal/participations/service"
	"ms-checkin/internal/qr"
	rosterdb "ms-checkin/internal/roster/db"
	"ms-checkin/internal/roster/roster_api"
	rosterservice "ms-checkin/internal/roster/service"
	"ms-checkin/internal/sse"
	"ms-checkin/internal/staff/session"
	tenantdb "ms-checkin/internal/tenants/db"
	tenantservice "ms-checkin/internal/tenants/service"
	"ms-checkin/internal/tenants/tenant_api"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
)

func newPublisher(cfg config.KafkaConfig, logger *logger.Logger) *kafka.Publisher {
	if !cfg.Enabled {
		logger.Info("KAFKA", "Kafka disabled, domain events will be dropped")
		return kafka.NewNoopPublisher()
	}

	if err := kafka.EnsureTopicsExist(cfg.Brokers, kafka.TopicNames(cfg.Topics), logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Brokers, logger)
	logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Brokers))
	return kafka.NewPublisher(producer, cfg.Topics, logger)
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, logger *logger.Logger) auth.Verifier {
	if cfg.SkipAuth {
		logger.Warn("AUTH", "SKIP_AUTH is set: bearer tokens are NOT verified")
		return auth.UnverifiedVerifier{}
	}

	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
	if err != nil {
		logger.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC verifier: %v", err))
	}
	logger.Info("AUTH", fmt.Sprintf("OIDC verifier ready for issuer %s", cfg.OIDCIssuer))
	return verifier
}

func healthHandler(bunDB *bun.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := bunDB.PingContext(ctx); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		utils.WriteJSON(w, code, status)
	}
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Check-in Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("CONFIG", err.Error())
	}
	ctx := context.Background()

	bunDB, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(cfg.Database, logger)
		if err := runner.Up(); err != nil {
			logger.Fatal("MIGRATE", err.Error())
		}
		if err := runner.Close(); err != nil {
			logger.Warn("MIGRATE", err.Error())
		}
	}

	redisClient, err := session.Connect(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	publisher := newPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	tenantService := tenantservice.NewTenantService(&tenantdb.DB{Bun: bunDB}, logger)
	participationService := participationservice.NewParticipationService(&participationdb.DB{Bun: bunDB}, logger)
	rosterService := rosterservice.NewRosterService(&rosterdb.DB{Bun: bunDB}, logger)

	trigger := mail.NewTrigger(cfg.Mail.ProcessorURL, cfg.Mail.CronSecret, cfg.Mail.TriggerTimeout, logger)
	mailQueue := mail.NewQueue(&maildb.DB{Bun: bunDB}, trigger, logger, appMetrics)
	composer := mail.NewComposer(cfg.App.BaseURL, qr.NewGenerator())
	emitter := sse.NewCheckinEventEmitter()

	applyService := applyservice.NewApplyService(tenantService, rosterService, participationService, mailQueue, composer, publisher, appMetrics, logger)
	importService := imports.NewImportService(tenantService, rosterService, participationService, mailQueue, composer, publisher, appMetrics, logger)
	checkinService := checkinservice.NewCheckinService(participationService, tenantService, publisher, emitter, appMetrics, logger)

	sessions := session.NewManager(
		tenantService,
		session.NewStore(redisClient, cfg.App.StaffSessionTTL),
		session.NewThrottle(redisClient, cfg.App.LoginMaxAttempts, cfg.App.LoginWindow),
		appMetrics,
		logger,
	)

	verifier := newVerifier(ctx, cfg.Auth, logger)

	applyHandler := apply_api.NewHandler(applyService)
	staffHandler := checkin_api.NewHandler(checkinService, sessions, cfg.App.StaffSessionTTL, cfg.App.SecureCookies)
	liveHandler := checkin_api.NewLiveHandler(tenantService, emitter, appMetrics, logger)
	tenantHandler := tenant_api.NewHandler(tenantService)
	participationHandler := participation_api.NewHandler(participationService, tenantService)
	rosterHandler := roster_api.NewHandler(rosterService)
	importHandler := import_api.NewHandler(importService)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware)

	// --- Ops ---
	r.Get("/healthz", healthHandler(bunDB, redisClient))
	r.Handle("/metrics", appMetrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		applyHandler.Routes(r)
		logger.Info("ROUTER", "Public routes registered at /api/apply and /api/tickets")

		// --- Staff Routes ---
		r.Route("/staff", staffHandler.Routes)
		logger.Info("ROUTER", "Staff routes registered under /api/staff")

		// --- Admin Routes ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Middleware(verifier))
			r.Use(auth.RequireTenant(tenantService))

			tenantHandler.AdminRoutes(r)
			participationHandler.Routes(r)
			importHandler.Routes(r)
			rosterHandler.Routes(r)
			liveHandler.Routes(r)
		})
		logger.Info("ROUTER", "Admin routes registered under /api/admin")

		// --- Super Admin Routes ---
		r.Route("/super", func(r chi.Router) {
			r.Use(auth.Middleware(verifier))
			r.Use(auth.RequireSuperAdmin(cfg.Auth.SuperAdminEmail))

			tenantHandler.SuperAdminRoutes(r)
		})
		logger.Info("ROUTER", "Super admin routes registered under /api/super")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Check-in Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Check-in Service shutdown complete")
	}
}
