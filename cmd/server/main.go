package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/glkeru/loyalty/marketplace/internal/api"
	db "github.com/glkeru/loyalty/marketplace/internal/db"
	engine "github.com/glkeru/loyalty/marketplace/internal/external/engine"
	rabbit "github.com/glkeru/loyalty/marketplace/internal/external/rabbitmq"
	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	services "github.com/glkeru/loyalty/marketplace/internal/services"
	otel "github.com/glkeru/loyalty/marketplace/observability/otel"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// config
	port := os.Getenv("MARKETPLACE_PORT")
	if port == "" {
		panic("env MARKETPLACE_PORT is not set")
	}

	// tracing
	shutdownTracer := otel.InitTracer(context.Background())
	defer shutdownTracer()

	// database
	var storage interf.MarketplaceStorage
	dt, err := db.NewMarketplaceDB(logger)
	if err != nil {
		panic(err)
	}
	storage = dt

	// events
	var events interf.EventStorage
	ev, err := db.NewEventsDB()
	if err != nil {
		panic(err)
	}
	events = ev

	// cache
	var redis interf.CacheStorage
	redis, err = db.NewCacheService()
	if err != nil {
		logger.Error(err.Error())
		redis = nil
	}

	// notifications
	var notifier interf.WinnerNotifier
	rb, err := rabbit.NewRabbitNotifier()
	if err != nil {
		logger.Error(err.Error())
	} else {
		notifier = rb
		defer rb.Close()
	}

	// services
	inventory := services.NewInventoryService(logger, storage)
	awards := services.NewAwardService(logger, storage, redis)
	redemption := services.NewRedemptionService(logger, storage, redis)
	mystery := services.NewMysteryBoxService(logger, storage, events, engine.EngineResolver{}, notifier, awards)
	sweeper := services.NewSweepService(logger, storage)

	// api handlers
	r := api.NewHandler(inventory, awards, redemption, mystery, sweeper, logger)
	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", otelhttp.NewHandler(api.MiddlewareLog()(r), "marketplace"))

	srv := &http.Server{
		Handler:      root,
		Addr:         ":" + port,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	go srv.ListenAndServe()

	// shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	timeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(timeout)
	if err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
