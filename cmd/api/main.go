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

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/currency"
	"storefront-checkout/internal/db"
	"storefront-checkout/internal/events"
	"storefront-checkout/internal/httpserver"
	"storefront-checkout/internal/lock"
	orderrepo "storefront-checkout/internal/repository/order"
	sessionrepo "storefront-checkout/internal/repository/session"
	cartsvc "storefront-checkout/internal/service/cart"
	checkoutsvc "storefront-checkout/internal/service/checkout"
	ordersvc "storefront-checkout/internal/service/order"
	"storefront-checkout/internal/storefront"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("load .env: %v", err)
	}
	cfg := config.FromEnv()

	ctx := context.Background()

	var dbpool *pgxpool.Pool
	orders := orderrepo.NewMemory()
	if cfg.DBConnString != "" {
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect to db: %v", err)
		}
		defer pool.Close()
		dbpool = pool
		orders = orderrepo.NewPostgres(pool, logger)
	} else {
		logger.Printf("DB_DSN not set, keeping the order ledger in memory")
	}

	var (
		sessions sessionrepo.Repository
		locker   lock.Locker
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		sessions = sessionrepo.NewRedis(rdb, cfg.SessionTTL, logger)
		locker = lock.NewRedis(rdb)
	} else {
		logger.Printf("REDIS_ADDR not set, keeping sessions in memory")
		sessions = sessionrepo.NewMemory(cfg.SessionTTL)
		locker = lock.NewMemory()
	}

	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic, logger)
	if err != nil {
		logger.Fatalf("init kafka producer: %v", err)
	}
	defer producer.Close()

	backend := storefront.New(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, logger)
	converter := currency.NewConverter(cfg.RatesURL, cfg.RatesTTL, &http.Client{Timeout: cfg.BackendTimeout}, logger)

	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Sessions: sessions,
		Backend:  backend,
		Orders:   orders,
		Events:   producer,
		Locker:   locker,
		Logger:   logger,
	}, checkoutsvc.Options{SubmitTimeout: cfg.SubmitTimeout})
	cartService := cartsvc.New(backend, converter)
	orderService := ordersvc.New(orders, backend, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CheckoutSvc:  checkoutService,
		CartSvc:      cartService,
		Rates:        converter,
		OrderSvc:     orderService,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
