package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domrepo "OddsEdge/internal/domain/repository"
	"OddsEdge/internal/handler/api"
	mid "OddsEdge/internal/middleware"
	internalrepo "OddsEdge/internal/repository"
	"OddsEdge/internal/service/entitlement"
	"OddsEdge/internal/service/feed"
	"OddsEdge/internal/service/stream"
	"OddsEdge/internal/usecase"
	"OddsEdge/pkg/cache"
	pkgch "OddsEdge/pkg/clickhouse"
	"OddsEdge/pkg/config"
	pkgkafka "OddsEdge/pkg/kafka"
	applogger "OddsEdge/pkg/logger"
	"OddsEdge/pkg/metrics"
	"OddsEdge/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// archive schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePostgres opens the Postgres pool backing sessions, plans, and prefs.
func ProvidePostgres(cfg *config.Config) (*sql.DB, error) {
	db, err := internalrepo.OpenPostgres(cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return db, nil
}

// ProvideCache creates the shared cache service: Redis when enabled,
// in-process memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideEntitlements creates the session/plan lookup service.
func ProvideEntitlements(db *sql.DB, c cache.Service, cfg *config.Config, l *applogger.Logger) domrepo.Entitlements {
	return entitlement.New(db, c, cfg.Delivery.EntitlementTTL, l)
}

// ProvidePrefs creates the user preference repository.
func ProvidePrefs(db *sql.DB) domrepo.UserPrefs {
	return internalrepo.NewPostgresPrefs(db)
}

// ProvideArchiver creates the ClickHouse archiver. Nil when ClickHouse is
// disabled; archival is best-effort and every caller tolerates its absence.
func ProvideArchiver(chClient *pkgch.Client) domrepo.Archiver {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(chClient.DB())
}

// ProvideQuoteBook creates the in-memory quote book.
func ProvideQuoteBook(cfg *config.Config) *usecase.QuoteBook {
	return usecase.NewQuoteBook(cfg.Engine.QuoteTTL)
}

// ProvideDetector creates the arb/EV detector from engine config.
func ProvideDetector(cfg *config.Config) *usecase.Detector {
	return usecase.NewDetector(usecase.DetectorConfig{
		SharpBooks:  cfg.Engine.SharpBooks,
		BookWeights: cfg.Engine.BookWeights,
		MinBooks:    cfg.Engine.MinSharpBooks,
		MaxSpread:   cfg.Engine.MaxConsensusSpread,
		MinEvBps:    cfg.Engine.MinEvBps,
	})
}

// ProvideRanker creates the tier-aware view builder.
func ProvideRanker(cfg *config.Config) *usecase.Ranker {
	return usecase.NewRanker(cfg.Delivery.FreeRoiCapBps, cfg.Delivery.FreeLimit, cfg.Delivery.ProLimit)
}

// ProvideEngine creates the detection engine.
func ProvideEngine(
	book *usecase.QuoteBook,
	detector *usecase.Detector,
	ranker *usecase.Ranker,
	archiver domrepo.Archiver,
	publisher domrepo.Publisher,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Engine {
	e := usecase.NewEngine(book, detector, ranker, archiver, m, l, cfg.Engine.TickInterval)
	if publisher != nil {
		e.SetPublisher(publisher)
	}
	return e
}

// ProvideFeedStream creates the odds feed WebSocket client.
func ProvideFeedStream(cfg *config.Config, l *applogger.Logger) domrepo.QuoteStream {
	return feed.New(feed.Config{
		APIKey:         cfg.Feed.APIKey,
		WebSocketURL:   cfg.Feed.WebSocketURL,
		Markets:        cfg.Feed.Markets,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		ReconnectMax:   cfg.Feed.ReconnectMax,
		MaxRetries:     cfg.Feed.MaxRetries,
		PingInterval:   cfg.Feed.PingInterval,
	}, l)
}

// ProvideQuoteProcessor creates the quote processor use case.
func ProvideQuoteProcessor(
	book *usecase.QuoteBook,
	archiver domrepo.Archiver,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.QuoteProcessor {
	return usecase.NewQuoteProcessor(book, archiver, m, l)
}

// ProvideQuoteCollector creates the feed collector with the validation and
// throttle pipeline between the socket and the quote book.
func ProvideQuoteCollector(
	qs domrepo.QuoteStream,
	proc *usecase.QuoteProcessor,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.QuoteCollector {
	pipe := mid.NewQuotePipeline(proc, m,
		mid.WithMaxRPS(200),
		mid.WithBufferSize(1000),
	)
	return usecase.NewQuoteCollector(qs, proc, pipe, m, l)
}

// ProvideKafkaProducer creates a Kafka producer for the opportunity fan-out
// topic. Returns nil when Kafka is disabled or no topic is configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.OpportunitiesTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the opportunity fan-out publisher. Nil when no
// producer is configured.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.OpportunitiesTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer for the quotes topic.
// Returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaQuotesHandler registers the handler for the quotes topic.
func ProvideKafkaQuotesHandler(proc *usecase.QuoteProcessor, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaQuotesHandler {
	return usecase.NewKafkaQuotesHandler(cfg.Kafka.Topic, proc, m)
}

// ProvideHub creates the subscription hub.
func ProvideHub(
	cfg *config.Config,
	engine *usecase.Engine,
	prefs domrepo.UserPrefs,
	ents domrepo.Entitlements,
	collector *usecase.QuoteCollector,
	m domrepo.Metrics,
	l *applogger.Logger,
) *stream.Hub {
	return stream.NewHub(stream.Config{
		LiveInterval:     cfg.Delivery.LiveInterval,
		PrematchInterval: cfg.Delivery.PrematchInterval,
		Heartbeat:        cfg.Delivery.Heartbeat,
		EntitlementTTL:   cfg.Delivery.EntitlementTTL,
	}, engine, prefs, ents, collector.State, m, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaQuotesHandler,
	hub *stream.Hub,
	ents domrepo.Entitlements,
	prefs domrepo.UserPrefs,
	pub domrepo.Publisher,
	c cache.Service,
	chClient *pkgch.Client,
	db *sql.DB,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	handler := api.NewArbsHandler(l, engine, hub, ents, prefs, c, cfg.Delivery.TeaserTTL)
	return server.New(cfg, l, engine, collector, consumer, kh, handler, pub, c, chClient, db)
}
