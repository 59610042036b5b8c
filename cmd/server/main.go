package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/onnride/vehicle-rental/internal/config"
	"github.com/onnride/vehicle-rental/internal/database"
	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/gateway"
	"github.com/onnride/vehicle-rental/internal/handler"
	"github.com/onnride/vehicle-rental/internal/middleware"
	"github.com/onnride/vehicle-rental/internal/queue"
	"github.com/onnride/vehicle-rental/internal/repository"
	"github.com/onnride/vehicle-rental/internal/router"
	"github.com/onnride/vehicle-rental/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		logrus.WithError(err).Fatal("schema migration failed")
	}
	cancel()

	rdb := config.NewRedisClient() // nil disables rate limiting and caching

	// storage and collaborators
	store := repository.NewSQLStore(db)
	notifier := service.NewAMQPNotifier(cfg.AMQPURL)
	razorpay := gateway.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpaySecret, cfg.WebhookSecret)

	// engine services
	bookingSvc := engine.NewBookingService(store, notifier, cfg.BookingMinHours)
	paymentSvc := engine.NewPaymentService(store, razorpay, notifier)

	// read-side repositories
	users := repository.NewUserRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	bookings := repository.NewBookingRepo(db)
	coupons := repository.NewCouponRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users),
		Vehicles: handler.NewVehicleHandler(vehicles, bookingSvc),
		Bookings: handler.NewBookingHandler(bookingSvc, bookings),
		Payments: handler.NewPaymentHandler(paymentSvc),
		Coupons:  handler.NewCouponHandler(bookingSvc, coupons),
	}, cfg.JWTSecret, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	go queue.StartBookingConsumer(cfg.AMQPURL)

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
