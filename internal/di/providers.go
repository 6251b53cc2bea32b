package di

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"FinFuzz/internal/domain/models"
	"FinFuzz/internal/domain/repository"
	domsvc "FinFuzz/internal/domain/service"
	"FinFuzz/internal/handler/api"
	"FinFuzz/internal/handler/ws"
	internalrepo "FinFuzz/internal/repository"
	icache "FinFuzz/internal/service/cache"
	"FinFuzz/internal/services/features"
	"FinFuzz/internal/usecase"
	pkgch "FinFuzz/pkg/clickhouse"
	"FinFuzz/pkg/config"
	xhttp "FinFuzz/pkg/http"
	pkgkafka "FinFuzz/pkg/kafka"
	applogger "FinFuzz/pkg/logger"
	"FinFuzz/pkg/metrics"
	"FinFuzz/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema exists.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", cfg.ClickHouse.Database))
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCandleStore creates the ClickHouse candle repository.
func ProvideCandleStore(ch *pkgch.Client, l *applogger.Logger) repository.CandleStore {
	s := internalrepo.NewCHCandleStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideSignalStore creates the ClickHouse signal repository.
func ProvideSignalStore(ch *pkgch.Client) repository.SignalStore {
	return internalrepo.NewCHSignalStore(ch)
}

// ProvideCandlePublisher publishes ingested candles, if Kafka is configured.
func ProvideCandlePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.CandlePublisher {
	if producer == nil || cfg.Kafka.Topics.Candles == "" {
		return nil
	}
	return internalrepo.NewKafkaCandlePublisher(producer, cfg.Kafka.Topics.Candles)
}

// ProvideSignalPublisher publishes refreshed signals, if Kafka is configured.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil || cfg.Kafka.Topics.Signals == "" {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topics.Signals)
}

// ProvideHub creates the websocket signal hub.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(
		ws.WithPingInterval(cfg.Stream.PingInterval),
		ws.WithBufferSize(cfg.Stream.BufferSize),
		ws.WithLogger(l),
	)
}

// ProvideEvaluator creates the excess-demand series evaluator.
func ProvideEvaluator(cfg *config.Config) domsvc.ExcessDemandEvaluator {
	return features.NewEvaluator(cfg.Fuzzy.Workers)
}

// ProvideExcessDemandUseCase creates the excess-demand use case with configured defaults.
func ProvideExcessDemandUseCase(store repository.CandleStore, eval domsvc.ExcessDemandEvaluator, m repository.Metrics, cfg *config.Config) *usecase.ExcessDemandUseCase {
	return usecase.NewExcessDemandUseCase(store, eval, m, models.FuzzyParams{
		Column:      cfg.Fuzzy.Column,
		ShortWindow: cfg.Fuzzy.ShortWindow,
		LongWindow:  cfg.Fuzzy.LongWindow,
		Spread:      cfg.Fuzzy.Spread,
	}, cfg.Fuzzy.History)
}

// ProvideCandlesUseCase creates the candle query use case.
func ProvideCandlesUseCase(store repository.CandleStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideSignalRefresher recomputes and fans out signals after ingestion.
func ProvideSignalRefresher(
	ed *usecase.ExcessDemandUseCase,
	signals repository.SignalStore,
	pub repository.SignalPublisher,
	hub *ws.Hub,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SignalRefresher {
	return usecase.NewSignalRefresher(ed, signals, pub, hub, m, l)
}

// ProvideCandleProcessor creates the ingestion router.
func ProvideCandleProcessor(
	pub repository.CandlePublisher,
	store repository.CandleStore,
	refresh *usecase.SignalRefresher,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.CandleProcessor {
	return usecase.NewCandleProcessor(pub, store, refresh, m, cfg.Backend.Type)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	opts := []pkgkafka.ConsumerOption{
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.AutoOffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Topics.DLQ),
		pkgkafka.WithConsumerLogger(l),
	}
	if cfg.Kafka.Consumer.RetryMax > 0 {
		opts = append(opts, pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax))
	}
	consumer, err := pkgkafka.NewConsumer(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		GiveUp: func(_ context.Context, topic string, km kafka.Message, err error) {
			m.RecordError("consumer_give_up")
			l.Warn("kafka message dead-lettered",
				applogger.String("topic", topic),
				applogger.String("key", string(km.Key)),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			)
		},
	})
	return consumer, nil
}

// ProvideKafkaCandlesHandler handles the candles topic.
func ProvideKafkaCandlesHandler(
	store repository.CandleStore,
	refresh *usecase.SignalRefresher,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaCandlesHandler {
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.Topics.Candles, store, refresh, m)
}

// ProvideCache returns Redis when configured and reachable, otherwise an in-memory TTL cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) icache.BytesCache {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache()
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unavailable, using in-memory cache", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		_ = rc.Close()
		return icache.NewTTLCache()
	}
	return rc
}

// ProvideAPIHandler creates the HTTP API handler with cache and health checks.
func ProvideAPIHandler(
	ed *usecase.ExcessDemandUseCase,
	scan *usecase.ScanUseCase,
	candles *usecase.CandlesUseCase,
	proc *usecase.CandleProcessor,
	signals repository.SignalStore,
	cache icache.BytesCache,
	ch *pkgch.Client,
	cfg *config.Config,
	l *applogger.Logger,
) *api.ExcessDemandHandler {
	h := api.NewExcessDemandHandler(ed, scan, candles, proc, signals)
	h.SetCache(cache, cfg.CacheTTL)
	h.SetLogger(l)
	h.AddHealthCheck("clickhouse", ch.Health)
	if rc, ok := cache.(*icache.RedisCache); ok {
		h.AddHealthCheck("redis", rc.Ping)
	}
	return h
}

// ProvideHTTPServer creates the Echo server serving the API and the signal stream.
func ProvideHTTPServer(cfg *config.Config, h *api.ExcessDemandHandler, hub *ws.Hub, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Server.ReadTimeout > 0 && cfg.Server.WriteTimeout > 0 {
		opts = append(opts, xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout))
	}
	if cfg.Server.SlowThreshold > 0 {
		opts = append(opts, xhttp.WithSlowThreshold(cfg.Server.SlowThreshold))
	}
	return xhttp.NewServer(xhttp.Handlers{h, hub}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	h *api.ExcessDemandHandler,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCandlesHandler,
	proc *usecase.CandleProcessor,
	ch *pkgch.Client,
	cache icache.BytesCache,
) *server.App {
	var handler pkgkafka.MessageHandler
	if consumer != nil {
		handler = kh
	}
	app := server.New(cfg, l, srv, h, hub, consumer, handler, proc, ch)
	if rc, ok := cache.(*icache.RedisCache); ok {
		app.AddCloser(rc)
	}
	return app
}
