package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/avetk/appointment-booking/internal/config"
	"github.com/avetk/appointment-booking/internal/database"
	"github.com/avetk/appointment-booking/internal/handler"
	"github.com/avetk/appointment-booking/internal/queue"
	"github.com/avetk/appointment-booking/internal/repository"
	"github.com/avetk/appointment-booking/internal/reservation"
	"github.com/avetk/appointment-booking/internal/router"
)

func main() {
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db, "migrations/schema.sql"); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	svc := reservation.New(reservation.NewStore(db),
		reservation.WithLeaseTTL(cfg.LeaseTTL))

	// Background lease sweeper. Expired leases are already ignored by
	// every capacity computation; the sweeper just keeps the table small.
	sched, err := svc.StartSweeper(cfg.SweepInterval)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	// Ticket events are consumed in-process for now; the queue decouples
	// issuance from delivery so a real notifier can replace this worker.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()

	e := echo.New()
	e.Validator = handler.NewValidator()

	bookingRepo := repository.NewBookingRepo(db)
	bookings := handler.NewBookingHandler(svc, bookingRepo)
	capacity := handler.NewCapacityHandler(svc)
	tickets := handler.NewTicketHandler(svc)
	admin := handler.NewAdminHandler(svc, repository.NewAuditRepo(db))

	router.RegisterRoutes(e)
	router.RegisterBooking(e, bookings, capacity, tickets, rdb)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
