package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"eco_gateway/internal/auth"
	"eco_gateway/internal/billing"
	"eco_gateway/internal/carbon"
	"eco_gateway/internal/config"
	"eco_gateway/internal/eventlog"
	"eco_gateway/internal/httpapi"
	"eco_gateway/internal/insights"
	"eco_gateway/internal/logging"
	"eco_gateway/internal/models"
	"eco_gateway/internal/providers"
	"eco_gateway/internal/queue"
	"eco_gateway/internal/ratelimit"
	"eco_gateway/internal/storage"
	"eco_gateway/internal/utils"
)

// app owns every long-lived component of the gateway and closes them in
// dependency order.
type app struct {
	handler http.Handler
	logger  *utils.Logger

	redis         *redis.Client
	db            *storage.DB
	registry      *providers.Registry
	requestLogger *logging.RequestLogger
	sink          logging.Sink
	billingWorker *billing.BillingQueueWorker
	usageWorker   *storage.UsageQueueWorker
	queues        []queue.Queue
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{logger: utils.NewLogger("gateway", utils.Info)}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	profile := carbon.DefaultProfile()
	if cfg.CoefficientsFile != "" {
		if profile, err = carbon.LoadCoefficientFile(cfg.CoefficientsFile); err != nil {
			return nil, err
		}
		a.logger.Info("Loaded coefficient table", "path", cfg.CoefficientsFile, "models", len(profile.Table.Entries()))
	}

	if cfg.Redis.Enabled() {
		a.redis, err = storage.NewRedisClient(ctx, storage.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	// Billing: budgets live in Redis; without it they are not enforced.
	var billingService billing.Service = billing.NewNoopService()
	if a.redis != nil {
		billingService = billing.NewRedisService(a.redis, billing.Budgets{
			MonthlyCostEUR: cfg.Budget.MonthlyCostEUR,
			MonthlyCarbonG: cfg.Budget.MonthlyCarbonG,
		})
	} else if cfg.Budget.MonthlyCostEUR > 0 || cfg.Budget.MonthlyCarbonG > 0 {
		a.logger.Warn("Budgets are configured but REDIS_ADDRESS is empty; budgets will not be enforced")
	}

	billingQueueCfg := a.queueConfig(cfg, "billing")
	billingQueue, billingDLQ, err := queue.New(billingQueueCfg, a.redisClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create billing queue: %w", err)
	}
	a.queues = append(a.queues, billingQueue)
	publishTo := []queue.Queue{billingQueue}

	// Usage mirrors: Postgres and the S3 archive, both optional.
	var writers []storage.UsageWriter
	if cfg.Database.URL != "" {
		a.db, err = storage.NewDB(storage.DBConfig{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err = a.db.Migrate(ctx); err != nil {
			return nil, err
		}
		writers = append(writers, a.db.NewUsageRepository())
	}
	if cfg.LoggingSink.Enabled {
		sinkBuffer := queue.NewMemoryQueue(queue.DefaultConfig("s3-sink"))
		a.queues = append(a.queues, sinkBuffer)
		sink, sinkErr := logging.NewS3Sink(ctx, logging.S3SinkConfig{
			Enabled:       true,
			BufferSize:    cfg.LoggingSink.BufferSize,
			FlushSize:     cfg.LoggingSink.FlushSize,
			FlushInterval: cfg.LoggingSink.FlushInterval,
			S3Bucket:      cfg.LoggingSink.S3Bucket,
			S3Region:      cfg.LoggingSink.S3Region,
			S3Prefix:      cfg.LoggingSink.S3Prefix,
			S3Endpoint:    cfg.LoggingSink.S3Endpoint,
			PodName:       cfg.LoggingSink.PodName,
		}, sinkBuffer)
		if sinkErr != nil {
			return nil, fmt.Errorf("failed to initialize S3 sink: %w", sinkErr)
		}
		a.sink = sink
		writers = append(writers, sink)
	}

	// Workers run until Close; request contexts never reach them.
	workerCtx := context.WithoutCancel(ctx)
	a.billingWorker = billing.NewBillingQueueWorker(billingQueue, billingDLQ, billingService, billingQueueCfg)
	a.billingWorker.Start(workerCtx)

	if len(writers) > 0 {
		usageQueueCfg := a.queueConfig(cfg, "usage")
		usageQueue, usageDLQ, qErr := queue.New(usageQueueCfg, a.redisClient())
		if qErr != nil {
			return nil, fmt.Errorf("failed to create usage queue: %w", qErr)
		}
		a.queues = append(a.queues, usageQueue)
		publishTo = append(publishTo, usageQueue)
		a.usageWorker = storage.NewUsageQueueWorker(usageQueue, usageDLQ, writers, usageQueueCfg)
		a.usageWorker.Start(workerCtx)
	}

	estimator := carbon.NewEstimator(profile.Table, eventlog.NewWriter(cfg.EventLogPath),
		carbon.WithPublishers(queue.NewPublisher(publishTo...)),
		carbon.WithLogger(utils.NewLogger("estimator")),
	)

	a.registry, err = providers.NewRegistry(providers.NewProviderFactory(), providerConfigs(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider registry: %w", err)
	}

	var keyStore auth.APIKeyStore
	if cfg.APIKeyHashes != "" {
		specs, specErr := auth.ParseKeySpecs(cfg.APIKeyHashes)
		if specErr != nil {
			return nil, specErr
		}
		store := auth.NewStaticKeyStore(specs, cfg.Cache.APIKeyCacheSize, cfg.Cache.APIKeyCacheTTL)
		a.logger.Info("API key authentication enabled", "keys", store.Len())
		keyStore = store
	}

	var limiter ratelimit.Limiter = ratelimit.NewLocalLimiter()
	if a.redis != nil {
		limiter = ratelimit.NewRateLimiter(a.redis)
	}

	if cfg.RequestLogger.FilePathTemplate != "" {
		a.requestLogger, err = logging.NewRequestLogger(logging.RequestLoggerConfig{
			FileTemplate:  cfg.RequestLogger.FilePathTemplate,
			MaxSize:       cfg.RequestLogger.MaxSize,
			MaxFiles:      cfg.RequestLogger.MaxFiles,
			BufferSize:    cfg.RequestLogger.BufferSize,
			FlushInterval: cfg.RequestLogger.FlushInterval,
			MaxBodyBytes:  cfg.RequestLogger.MaxBodyBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize request logger: %w", err)
		}
	}

	a.handler = httpapi.NewRouter(&httpapi.Dependencies{
		Catalog:            models.DefaultCatalog(),
		Providers:          a.registry,
		Estimator:          estimator,
		EventLogPath:       cfg.EventLogPath,
		AnalyzerOptions:    []insights.Option{insights.WithHeavyModels(profile.HeavyModels)},
		APIKeys:            keyStore,
		JWTSecret:          cfg.JWTSecret,
		RateLimit:          limiter,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Billing:            billingService,
		RequestLogger:      a.requestLogger,
	})

	return a, nil
}

func (a *app) queueConfig(cfg *config.Config, name string) *queue.Config {
	qc := queue.DefaultConfig(name)
	qc.UseRedis = a.redis != nil
	qc.BatchSize = cfg.Queue.BatchSize
	qc.BatchTimeout = cfg.Queue.BatchTimeout
	qc.MaxRetries = cfg.Queue.MaxRetries
	qc.RetryBackoff = cfg.Queue.RetryBackoff
	return qc
}

// redisClient avoids handing a typed nil to interfaces.
func (a *app) redisClient() redis.UniversalClient {
	if a.redis == nil {
		return nil
	}
	return a.redis
}

func providerConfigs(cfg *config.Config) []providers.ProviderConfig {
	withKey := func(providerType, key string, extra map[string]any) providers.ProviderConfig {
		options := map[string]any{"timeout": cfg.Provider.RequestTimeout}
		for k, v := range extra {
			options[k] = v
		}
		return providers.ProviderConfig{
			Type:        providerType,
			Credentials: map[string]string{"api_key": key},
			Config:      options,
		}
	}

	return []providers.ProviderConfig{
		{Type: providers.TypeMock},
		withKey(providers.TypeOpenAI, cfg.Provider.OpenAIAPIKey, map[string]any{"base_url": cfg.Provider.OpenAIBaseURL}),
		withKey(providers.TypeMistral, cfg.Provider.MistralAPIKey, nil),
		withKey(providers.TypeOpenRouter, cfg.Provider.OpenRouterAPIKey, nil),
		withKey(providers.TypeHuggingFace, cfg.Provider.HuggingFaceAPIKey, nil),
	}
}

// Close stops intake first, then drains workers into the mirrors, then
// releases connections.
func (a *app) Close(ctx context.Context) error {
	var errs []error

	if a.billingWorker != nil {
		errs = append(errs, a.billingWorker.Stop())
	}
	if a.usageWorker != nil {
		errs = append(errs, a.usageWorker.Stop())
	}
	if a.sink != nil {
		if err := a.sink.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown usage sink: %w", err))
		}
	}
	for _, q := range a.queues {
		errs = append(errs, q.Close())
	}
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.requestLogger != nil {
		a.requestLogger.Shutdown()
	}

	return errors.Join(errs...)
}
