package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-payanyway/internal/auth"
	"ms-payanyway/internal/config"
	"ms-payanyway/internal/database/migrations"
	"ms-payanyway/internal/kafka"
	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/order"
	orderdb "ms-payanyway/internal/order/db"
	"ms-payanyway/internal/payanyway/admin"
	"ms-payanyway/internal/payanyway/api"
	"ms-payanyway/internal/settings"
	settingsdb "ms-payanyway/internal/settings/db"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	// Ownership checks on the pay endpoints rely on the OIDC-verified subject,
	// so serving without an issuer would serve them unauthenticated.
	if cfg.Gateway.OIDCIssuer == "" {
		log.Fatal("AUTH", "OIDC_ISSUER is required; refusing to serve authenticated routes unprotected")
	}

	ctx := context.Background()

	// --- PostgreSQL ---
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Username, cfg.Database.Password, cfg.Database.Database)

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open Postgres connection: %v", err))
	}
	defer sqldb.Close()

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: dir, AutoMigrate: true})
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	} else {
		orderdb.Migrate(bunDB)
	}

	// --- Redis (settings cache) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	// --- Kafka ---
	var producer order.KafkaPublisher
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.OrderPaid}); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
		}
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.OrderPaid)
		defer kafkaProducer.Close()
		producer = kafkaProducer
	} else {
		log.Warn("KAFKA", "Kafka disabled, order paid events will not be published")
	}

	// --- Services ---
	settingsService := settings.NewService(&settingsdb.DB{Bun: bunDB}, redisClient, log)
	if err := settingsService.Install(ctx); err != nil {
		log.Fatal("SETTINGS", fmt.Sprintf("Failed to seed default settings: %v", err))
	}

	orderService := order.NewService(&orderdb.DB{Bun: bunDB}, producer, log)

	handler := api.NewHandler(orderService, settingsService, cfg.Gateway, log)
	adminHandler := admin.NewHandler(settingsService, log)

	// --- Router ---
	r := chi.NewRouter()

	// Gateway-facing endpoints. ConfirmPay authenticates with the signed
	// callback, the browser returns carry no secrets.
	r.Get("/payanyway/confirm", handler.ConfirmPay)
	r.Post("/payanyway/confirm", handler.ConfirmPay)
	r.Get("/payanyway/success", handler.Success)
	r.Get("/payanyway/cancel", handler.Cancel)
	r.Get("/payanyway/return", handler.Return)

	// Admin configure API rides the same gin engine the teacher pattern uses
	// for JSON handlers, mounted under the guarded group below.
	gin.SetMode(gin.ReleaseMode)
	adminEngine := gin.New()
	adminEngine.Use(gin.Recovery())
	adminHandler.Register(adminEngine.Group("/admin"))

	// Protected routes: customer-facing checkout endpoints and the admin
	// configure API, all behind OIDC verification.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Gateway.OIDCIssuer))
		r.Post("/api/v1/payanyway/pay/{orderId}", handler.Pay)
		r.Get("/api/v1/payanyway/pay/{orderId}/qr", handler.PayQR)
		r.Handle("/admin/*", adminEngine)
	})

	// --- HTTP server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("PayAnyWay service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
