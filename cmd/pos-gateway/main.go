package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/config"
	h "github.com/fjod/go_pos/internal/http"
	"github.com/fjod/go_pos/internal/publisher"
	"github.com/fjod/go_pos/internal/salesapi"
	"github.com/fjod/go_pos/internal/service"
	"github.com/fjod/go_pos/pkg/circuitbreaker"
	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.ServiceName, logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	api := salesapi.NewClient(salesapi.Config{
		BaseURL: cfg.SalesAPIURL,
		Timeout: cfg.SalesAPITimeout,
		Breaker: circuitbreaker.DefaultConfig("sales-api"),
	}, logr)

	// Search cache is optional
	var searchCache cache.SearchCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("Redis unavailable at %s, searching without cache: %v", cfg.RedisAddr, err)
		} else {
			searchCache = cache.NewRedisCache(rdb, cfg.SearchCacheTTL)
			log.Printf("Search cache enabled at %s", cfg.RedisAddr)
		}
		cancel()
	}

	catalogSvc := catalog.NewService(api, searchCache, catalog.Config{
		MinQueryLength: catalog.DefaultConfig().MinQueryLength,
		Limit:          cfg.SearchLimit,
		QuietPeriod:    cfg.SearchQuietPeriod,
	}, logr)

	// Receipt publishing is optional
	var wg sync.WaitGroup
	publisherCtx, publisherCancel := context.WithCancel(context.Background())
	var notifier service.ReceiptNotifier
	var receipts *publisher.ReceiptPublisher
	if len(cfg.KafkaBrokers) > 0 {
		receipts = publisher.NewReceiptPublisher(cfg.ReceiptTopic, logr, cfg.KafkaBrokers...)
		notifier = receipts
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipts.Run(publisherCtx)
		}()
		log.Printf("Publishing receipts to %s on %v", cfg.ReceiptTopic, cfg.KafkaBrokers)
	}

	registry := service.NewRegistry(api, catalogSvc, service.RegistryOptions{
		IdleTTL:  cfg.SessionIdleTTL,
		Notifier: notifier,
		Logger:   logr,
	})

	router := h.NewRouter(
		h.NewSessionHandler(registry, cfg.StoreName, cfg.RequestTimeout, logr),
		h.NewReportHandler(api, cfg.RequestTimeout),
		h.RouterConfig{
			ServiceName:    cfg.ServiceName,
			RequestTimeout: cfg.RequestTimeout,
			MaxBodySize:    cfg.MaxRequestBodySz,
			AccessLog:      true,
		},
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("POS gateway starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	registry.Close()

	publisherCancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Println("Timed out waiting for receipt publisher")
	}
	if receipts != nil {
		if err := receipts.Close(); err != nil {
			log.Printf("error closing receipt publisher: %v", err)
		}
	}

	if err := shutdownTracing(ctx); err != nil {
		log.Printf("error shutting down tracing: %v", err)
	}

	log.Println("server exited")
}
