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

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/chamapesa/chama-engine/internal/cache"
	"github.com/chamapesa/chama-engine/internal/config"
	"github.com/chamapesa/chama-engine/internal/handler"
	"github.com/chamapesa/chama-engine/internal/repository"
	"github.com/chamapesa/chama-engine/internal/service"
	"github.com/chamapesa/chama-engine/pkg/response"
)

func main() {
	// Load configuration, .env first when present
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	sqlDB, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer sqlDB.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	db := repository.NewDB(sqlDB)

	// Initialize repositories
	memberRepo := repository.NewMemberRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	typeRepo := repository.NewContributionTypeRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Initialize services
	guard := cache.NewIdempotencyGuard(redisClient, cfg.GetPaymentRefTTL())
	notifier := service.NewLogNotifier(nil)

	ledgerService := service.NewLedgerService(db, memberRepo, ledgerRepo)
	cycleService := service.NewCycleService(db, cycleRepo, typeRepo)
	memberService := service.NewMemberService(memberRepo)
	reportService := service.NewReportService(db, memberRepo, cycleRepo, contributionRepo)
	paymentService := service.NewPaymentService(
		db, memberRepo, cycleRepo, contributionRepo, paymentRepo,
		ledgerService, cycleService, guard, notifier,
	)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(paymentService, ledgerService)
	cycleHandler := handler.NewCycleHandler(cycleService)
	memberHandler := handler.NewMemberHandler(memberService)
	reportHandler := handler.NewReportHandler(reportService)
	healthHandler := handler.NewHealthHandler(sqlDB, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(paymentHandler, cycleHandler, memberHandler, reportHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	paymentHandler *handler.PaymentHandler,
	cycleHandler *handler.CycleHandler,
	memberHandler *handler.MemberHandler,
	reportHandler *handler.ReportHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Payments and ledger
	api.HandleFunc("/payments", paymentHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/members/{memberId}/adjustments", paymentHandler.AdjustBalance).Methods("POST")
	api.HandleFunc("/members/{memberId}/ledger", paymentHandler.GetLedger).Methods("GET")
	api.HandleFunc("/contributions/{contributionId}/waive", paymentHandler.WaiveContribution).Methods("POST")
	api.HandleFunc("/contributions/{contributionId}/cancel", paymentHandler.CancelContribution).Methods("POST")

	// Cycles and types
	api.HandleFunc("/chamas/{chamaId}/cycles", cycleHandler.CreateCycle).Methods("POST")
	api.HandleFunc("/chamas/{chamaId}/cycles/active", cycleHandler.GetActiveCycle).Methods("GET")
	api.HandleFunc("/chamas/{chamaId}/cycles/{cycleId}/activate", cycleHandler.ActivateCycle).Methods("POST")
	api.HandleFunc("/cycles/{cycleId}/cancel", cycleHandler.CancelCycle).Methods("POST")
	api.HandleFunc("/cycles/{cycleId}/composition", cycleHandler.GetComposition).Methods("GET")
	api.HandleFunc("/cycles/{cycleId}/types", cycleHandler.AttachType).Methods("POST")
	api.HandleFunc("/chamas/{chamaId}/types", cycleHandler.CreateType).Methods("POST")
	api.HandleFunc("/types/{typeId}", cycleHandler.DeactivateType).Methods("DELETE")

	// Members
	api.HandleFunc("/chamas/{chamaId}/members", memberHandler.CreateMember).Methods("POST")
	api.HandleFunc("/members/{memberId}", memberHandler.GetMember).Methods("GET")
	api.HandleFunc("/members/{memberId}", memberHandler.RemoveMember).Methods("DELETE")

	// Reports
	api.HandleFunc("/members/{memberId}/summary", reportHandler.MemberSummary).Methods("GET")
	api.HandleFunc("/cycles/{cycleId}/summary", reportHandler.CycleSummary).Methods("GET")

	return router
}
