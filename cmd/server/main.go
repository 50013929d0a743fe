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

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skynestoffc/orderku/internal/config"
	"github.com/skynestoffc/orderku/internal/handler"
	"github.com/skynestoffc/orderku/internal/middleware"
	"github.com/skynestoffc/orderku/internal/orderkuota"
	"github.com/skynestoffc/orderku/internal/repository"
	"github.com/skynestoffc/orderku/internal/service"
	"github.com/skynestoffc/orderku/pkg/helpers"
	"github.com/skynestoffc/orderku/pkg/logger"
	"github.com/skynestoffc/orderku/pkg/metrics"
)

func main() {
	// Load environment variables from config.env, falling back to .env
	if err := godotenv.Load("config.env"); err != nil {
		_ = godotenv.Load()
	}

	cfg := config.Load()
	log := logger.NewLogger("qris-service")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBDatabase,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	cancel()
	log.Info("Successfully connected to database")

	// Initialize repositories
	pendingRepo := repository.NewPendingTransactionRepository(db)
	paidRepo := repository.NewPaidTransactionRepository(db)

	// Initialize OrderKuota client and services
	okClient := orderkuota.NewClient()
	paymentService := service.NewPaymentService(
		pendingRepo,
		paidRepo,
		okClient,
		helpers.NewIDGenerator(),
		service.PaymentConfig{
			PendingTTL: cfg.PendingTTL,
			PaidTTL:    cfg.PaidTTL,
		},
	)

	// Initialize handlers
	qrisHandler := handler.NewQRISHandler(paymentService)
	authHandler := handler.NewAuthHandler(okClient)
	accountHandler := handler.NewAccountHandler(okClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/qris/generate", qrisHandler.Generate)
	mux.HandleFunc("/api/qris/check", qrisHandler.Check)
	mux.HandleFunc("/api/qris/image", qrisHandler.Image)
	mux.HandleFunc("/api/auth/otp", authHandler.RequestOTP)
	mux.HandleFunc("/api/auth/token", authHandler.GetToken)
	mux.HandleFunc("/api/account/balance", accountHandler.Balance)
	mux.HandleFunc("/api/health", handler.Health)
	mux.Handle("/metrics", promhttp.Handler())

	m := metrics.NewMetrics("qris")
	var root http.Handler = mux
	root = metrics.Middleware(m)(root)
	root = logger.Middleware(log)(root)
	root = middleware.CORSMiddleware(root)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: root,
	}

	go func() {
		log.Infof("QRIS service listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}
	log.Info("Server stopped")
}
