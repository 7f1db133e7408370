package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/chamapesa/chama-engine/internal/config"
	"github.com/chamapesa/chama-engine/internal/repository"
	"github.com/chamapesa/chama-engine/internal/service"
)

func main() {
	log.Println("Starting chama scheduler...")

	// Load configuration, .env first when present
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sqlDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	db := repository.NewDB(sqlDB)
	memberRepo := repository.NewMemberRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	contributionRepo := repository.NewContributionRepository(db)

	reportService := service.NewReportService(db, memberRepo, cycleRepo, contributionRepo)
	maintenance := service.NewMaintenanceService(
		cycleRepo,
		contributionRepo,
		reportService,
		service.NewLogNotifier(nil),
	)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone: %v", err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Schedule tasks
	setupCronJobs(c, cfg, maintenance)

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, maintenance *service.MaintenanceService) {
	// Daily job that flips unpaid contributions of past-due cycles to late
	_, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		log.Println("Running overdue contribution job...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		updated, err := maintenance.MarkOverdueContributions(ctx)
		if err != nil {
			log.Printf("Overdue contribution job failed: %v", err)
			return
		}
		log.Printf("Overdue contribution job done, %d contributions marked late", updated)
	})
	if err != nil {
		log.Printf("Error scheduling overdue contribution job: %v", err)
	}

	// Weekly job that reminds members with outstanding obligations
	_, err = c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		log.Println("Running contribution reminder job...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := maintenance.SendReminders(ctx); err != nil {
			log.Printf("Contribution reminder job failed: %v", err)
			return
		}
		log.Println("Contribution reminder job done")
	})
	if err != nil {
		log.Printf("Error scheduling contribution reminder job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
