package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"rideledger/internal/app"
	"rideledger/internal/config"
	"rideledger/internal/handler"
	"rideledger/internal/logging"
	"rideledger/internal/metrics"
	"rideledger/internal/mq"
	internalRedis "rideledger/internal/redis"
	"rideledger/internal/repository"
	"rideledger/internal/repository/memory"
	"rideledger/internal/repository/postgres"
	"rideledger/internal/service"
	"rideledger/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	// Ledger store.
	var (
		uow repository.UnitOfWork
		db  *sql.DB
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err = app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()
		uow = postgres.NewUnitOfWork(db)
		log.Info("connected to PostgreSQL")
	default:
		uow = memory.NewStore()
		log.Warn("using in-memory store, ledger state is lost on exit")
	}

	// Optional Redis: ride cache, event stream and idempotent POSTs.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info("connected to Redis")
	}

	// Optional RabbitMQ event fan-out.
	var rabbit *mq.RabbitMQ
	if cfg.AMQP.Enabled {
		rabbit, err = mq.Dial(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer rabbit.Close()
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := ws.NewHub(log)
	go hub.Run(runCtx)

	server, err := wireServer(runCtx, cfg, log, uow, redisClient, rabbit, hub, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to wire server")
	}

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	stop()

	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}
	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	ctx context.Context,
	cfg *config.Config,
	log *logrus.Logger,
	uow repository.UnitOfWork,
	redisClient *redis.Client,
	rabbit *mq.RabbitMQ,
	hub *ws.Hub,
	nrApp *newrelic.Application,
) (*http.Server, error) {
	// Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, err
	}
	total, err := uow.Repositories().Escrow.Total(ctx)
	if err != nil {
		return nil, err
	}
	recorder.SetFundsInCustody(total)

	// Event fan-out.
	publishers := service.MultiPublisher{service.NewLogPublisher(log), hub}
	var cache service.RideCache
	if redisClient != nil {
		publishers = append(publishers, internalRedis.NewStreamPublisher(redisClient, cfg.Redis.Stream))
		cache = internalRedis.NewCacheStore(redisClient, cfg.Redis.CacheTTL)
	}
	if rabbit != nil {
		publishers = append(publishers, mq.NewEventPublisher(rabbit, cfg.AMQP.Exchange))
	}

	// Initialize the ledger.
	ledger := service.NewRideLedger(service.LedgerDeps{
		UnitOfWork: uow,
		Disburser:  service.NewAccountDisburser(),
		Publisher:  publishers,
		Cache:      cache,
		Recorder:   recorder,
		Logger:     log,
	})

	// Initialize handlers.
	decimals := cfg.Ledger.FareDecimals
	router := app.NewRouter(app.RouterDeps{
		RideHandler:    handler.NewRideHandler(ledger, decimals),
		PaymentHandler: handler.NewPaymentHandler(ledger, decimals),
		AccountHandler: handler.NewAccountHandler(ledger, decimals),
		EventHandler:   handler.NewEventHandler(ledger, decimals),
		Hub:            hub,
		Metrics:        metrics.Handler(reg),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         log,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
