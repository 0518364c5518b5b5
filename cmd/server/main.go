// Command server runs the campus space reservation API: the HTTP surface,
// the background lifecycle sweeper and the notification consumer.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/config"
	"github.com/iliyamo/campus-space-reservation/internal/database"
	"github.com/iliyamo/campus-space-reservation/internal/handler"
	"github.com/iliyamo/campus-space-reservation/internal/queue"
	"github.com/iliyamo/campus-space-reservation/internal/repository"
	"github.com/iliyamo/campus-space-reservation/internal/router"
	queuepublisher "github.com/iliyamo/campus-space-reservation/internal/service"
	"github.com/iliyamo/campus-space-reservation/internal/sweeper"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable

	// Persistence.
	reservations := repository.NewReservationRepo(db)
	resources := repository.NewResourceRepo(db)
	venues := repository.NewVenueRepo(db)
	schedules := repository.NewScheduleRepo(db)
	series := repository.NewSeriesRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	notifications := repository.NewNotificationRepo(db)

	// Engine.
	clock := booking.RealClock{}
	var sink booking.Notifier
	if cfg.RabbitURL != "" {
		sink = queuepublisher.NewPublisher(cfg.RabbitURL)
	}
	announcer := booking.NewAnnouncer(notifications, sink, clock)
	calendar := booking.NewCalendar(schedules)
	detector := booking.NewDetector(reservations)
	validator := &booking.Validator{
		Calendar:     calendar,
		Reservations: reservations,
		Series:       series,
		Policies:     config.LoadPolicies(),
		Clock:        clock,
	}
	cascade := booking.NewCascade(waitlist, announcer, clock, cfg.WaitlistResponseWindow)
	svc := booking.NewService(resources, reservations, validator, detector, calendar, cascade, announcer, clock)
	generator := booking.NewGenerator(series, reservations, resources, detector, validator, cascade, svc.Locks(), clock,
		time.Duration(cfg.HorizonDays)*24*time.Hour)

	// Background maintenance.
	sweeps := []sweeper.Sweep{
		{Name: "no-shows", Run: svc.SweepNoShows},
		{Name: "extension-offers", Run: svc.SweepExtensionOffers},
		{Name: "reminders", Run: svc.SweepReminders},
		{Name: "waitlist-expiry", Run: cascade.ExpireNotified},
		{Name: "recurrence", Run: generator.GenerateAll},
		{Name: "notification-prune", Run: func(ctx context.Context) (int, error) {
			n, err := notifications.DeleteOlderThan(ctx, time.Now().Add(-cfg.NotificationRetention))
			return int(n), err
		}},
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.NewRunner(sweeps, cfg.SweepInterval, rdb).Run(ctx)

	if cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartNotificationConsumer(); err != nil {
				log.Printf("notification-consumer: %v", err)
			}
		}()
	}

	// HTTP surface.
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.Register(e, router.Handlers{
		Reservations:  handler.NewReservationHandler(svc, reservations),
		Waitlist:      handler.NewWaitlistHandler(cascade, waitlist),
		Series:        handler.NewSeriesHandler(generator, series),
		Availability:  handler.NewAvailabilityHandler(detector, calendar, resources, venues, schedules),
		Admin:         handler.NewAdminHandler(svc, resources, venues, schedules),
		Notifications: handler.NewNotificationHandler(notifications),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()
	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
