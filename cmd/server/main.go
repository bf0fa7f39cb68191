package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/identity"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/notification"
	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/reservation"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/scheduler"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New("cinema-booking", cfg.IsDev())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// Redis only backs the cache and the rate limiter; both pass through without it.
	var rdb *redis.Client
	if c, err := config.NewRedisClient(cfg.Redis); err != nil {
		zl.Warn("redis unavailable; cache and rate limit disabled", zap.Error(err))
	} else {
		rdb = c
		defer rdb.Close()
	}

	shows := repository.NewShowRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)

	pub := queue.NewPublisher(cfg.AMQPURL, zl)
	defer pub.Close()

	gateway, err := payment.NewGateway(cfg.Payment)
	if err != nil {
		return err
	}

	engine := reservation.NewEngine(reservation.Config{
		Layout:          model.SeatLayout{Rows: cfg.Booking.SeatRows, Cols: cfg.Booking.SeatCols},
		HoldTTL:         cfg.Booking.HoldTTL,
		MaxSeats:        cfg.Booking.MaxSeats,
		MaxWriteRetries: cfg.Booking.MaxWriteRetries,
	}, shows, bookings, scheduler.NewAMQPScheduler(pub), gateway, pub, zl)

	// background workers
	var wg sync.WaitGroup
	dispatcher := notification.NewDispatcher(users, notification.NewMailer(cfg.SMTP, zl), cfg.Notify, zl)
	consumers := []*queue.Consumer{
		{URL: cfg.AMQPURL, Queue: queue.HoldExpiredQueue, Handle: scheduler.ExpiryHandler(engine, zl), Log: zl},
		{URL: cfg.AMQPURL, Queue: queue.BookingConfirmedQueue, Handle: dispatcher.HandleBookingConfirmed, Log: zl},
		// one broadcast at a time; each one paces itself
		{URL: cfg.AMQPURL, Queue: queue.ShowAddedQueue, Prefetch: 1, Handle: dispatcher.HandleShowAdded, Log: zl},
	}
	for _, c := range consumers {
		wg.Add(1)
		go func(c *queue.Consumer) {
			defer wg.Done()
			_ = c.Run(ctx)
		}(c)
	}

	sweeper := scheduler.NewSweeper(bookings, engine, scheduler.SweeperConfig{
		Interval:  cfg.Sweep.Interval,
		BatchSize: cfg.Sweep.BatchSize,
	}, zl)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{cfg.Payment.FrontendURL}}))

	router.RegisterRoutes(e)
	router.RegisterBooking(e,
		handler.NewBookingHandler(engine, users, bookings, zl),
		cfg.JWTSecret,
		middleware.NewTokenBucket(cfg.RateLimit, rdb, zl))
	router.RegisterShows(e,
		handler.NewShowHandler(shows, pub, zl),
		cfg.JWTSecret,
		middleware.NewRedisCache(cfg.Cache, rdb, zl))
	router.RegisterPayments(e, handler.NewPaymentWebhookHandler(gateway, engine, zl))
	router.RegisterUsers(e, handler.NewUserHandler(users, zl), cfg.JWTSecret)
	if cfg.IdentityWebhookSecret != "" {
		verifier, err := identity.NewVerifier(cfg.IdentityWebhookSecret)
		if err != nil {
			return err
		}
		router.RegisterIdentity(e, handler.NewIdentityWebhookHandler(verifier, users, zl))
	} else {
		zl.Warn("IDENTITY_WEBHOOK_SECRET not set; users are only learned from bookings and never removed")
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("payment", gateway.Name()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
	return nil
}
