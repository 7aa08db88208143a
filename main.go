package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"salon-manager/config"
	"salon-manager/consumer"
	"salon-manager/handlers"
	"salon-manager/jobs"
	"salon-manager/middleware"
	"salon-manager/models"
	"salon-manager/utils"
)

const (
	serviceName = "salon-manager"
	maxRetries  = 5
	retryDelay  = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := utils.NewLogger(cfg.AppEnv)
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := utils.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.AppVersion); err != nil {
			logger.WithError(err).Warn("sentry disabled")
		} else {
			defer utils.FlushSentry()
		}
	}

	shutdownTracing, err := utils.SetupTracing(ctx, utils.TracingConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	var repo *models.GormRepository
	err = retry(logger, "database", func() error {
		var err error
		repo, err = models.NewRepository(cfg.DB)
		return err
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer repo.Close()

	if err := handlers.SeedAdmin(ctx, repo, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
		logger.WithError(err).Error("failed to seed admin account")
	}

	deps := handlers.Deps{
		Repo:              repo,
		Log:               logger,
		JWTSecret:         cfg.JWTSecret,
		LowStockThreshold: cfg.LowStockThreshold,
	}

	if cfg.RedisHost != "" {
		var cache utils.RedisClient
		err := retry(logger, "redis", func() error {
			var err error
			cache, err = utils.NewRedisClient(cfg.RedisHost, cfg.RedisPassword)
			return err
		})
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, caching disabled")
		} else {
			deps.Cache = cache
			defer cache.Close()
		}
	} else {
		logger.Warn("REDIS_HOST not set, caching disabled")
	}

	if cfg.ElasticsearchURL != "" {
		es, err := utils.NewElasticsearchClient(cfg.ElasticsearchURL)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable, searching the database")
		} else {
			deps.Search = es
			defer es.Close()
		}
	}

	var workers sync.WaitGroup
	var producer utils.KafkaProducer
	if cfg.KafkaBroker != "" {
		producer, err = utils.NewKafkaProducer(cfg.KafkaBroker)
		if err != nil {
			logger.WithError(err).Warn("kafka unavailable, events disabled")
			producer = nil
		} else {
			defer producer.Close()

			clients := consumer.NewClientConsumer(
				utils.NewKafkaReader(cfg.KafkaBroker, utils.TopicClientEvents, consumer.GroupID),
				deps.Cache, deps.Search, logger)
			stock := consumer.NewStockConsumer(
				utils.NewKafkaReader(cfg.KafkaBroker, utils.TopicStockEvents, consumer.GroupID),
				cfg.LowStockThreshold, logger)

			workers.Add(2)
			go func() { defer workers.Done(); clients.Run(ctx) }()
			go func() { defer workers.Done(); stock.Run(ctx) }()
			defer func() {
				workers.Wait()
				if err := clients.Close(); err != nil {
					logger.WithError(err).Warn("failed to close client consumer")
				}
				if err := stock.Close(); err != nil {
					logger.WithError(err).Warn("failed to close stock consumer")
				}
			}()
		}
	} else {
		logger.Warn("KAFKA_BROKER not set, events disabled")
	}
	deps.Events = utils.NewPublisher(producer, logger)
	defer deps.Events.Close()

	scheduler, err := jobs.NewScheduler(cfg.VoucherExpiryCron, jobs.NewVoucherExpiry(repo, logger), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to schedule jobs")
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	limiter := middleware.NewRateLimiter(1, 5)
	go limiter.Cleanup(ctx)

	router := handlers.NewRouter(deps, limiter)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// retry calls connect until it succeeds or maxRetries attempts have failed.
func retry(log logrus.FieldLogger, name string, connect func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = connect(); err == nil {
			return nil
		}
		log.WithError(err).WithField("attempt", i+1).Warnf("failed to connect to %s", name)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return err
}
