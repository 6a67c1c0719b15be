package server

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	domrepo "OddsEdge/internal/domain/repository"
	"OddsEdge/internal/usecase"
	"OddsEdge/pkg/cache"
	pkgch "OddsEdge/pkg/clickhouse"
	"OddsEdge/pkg/config"
	xhttp "OddsEdge/pkg/http"
	pkgkafka "OddsEdge/pkg/kafka"
	applogger "OddsEdge/pkg/logger"
)

// App encapsulates the application lifecycle: detection engine, feed
// collector, optional Kafka consumer, and the HTTP/SSE server.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	engine      *usecase.Engine
	collector   *usecase.QuoteCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	publisher   domrepo.Publisher
	cache       cache.Service
	chClient    *pkgch.Client
	db          *sql.DB
}

// New creates the App with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaQuotesHandler,
	handler xhttp.Handler,
	pub domrepo.Publisher,
	c cache.Service,
	chClient *pkgch.Client,
	db *sql.DB,
) *App {
	a := &App{
		cfg:         cfg,
		logger:      logger,
		engine:      engine,
		collector:   collector,
		httpHandler: handler,
		publisher:   pub,
		cache:       c,
		chClient:    chClient,
		db:          db,
	}
	a.consumer = consumer
	if kh != nil {
		a.kh = kh
	}
	return a
}

// Run starts everything and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Detection tick loop.
	go func() {
		if err := a.engine.Run(ctx); err != nil && ctx.Err() == nil {
			l.Error("engine stopped", applogger.Error(err))
		}
	}()
	l.Info("engine started",
		applogger.Duration("tick_interval", a.cfg.Engine.TickInterval))

	// Feed collector, when a WebSocket source is configured.
	if a.cfg.Feed.WebSocketURL != "" {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("feed start error", applogger.Error(err))
			return err
		}
		l.Info("feed collector started",
			applogger.Strings("markets", a.cfg.Feed.Markets))
	}

	// Kafka consumer, when a broker source is configured.
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.metricsPath()),
		xhttp.WithLogger(l),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

// shutdown stops services in dependency order: sources first, then the HTTP
// server, then infrastructure clients.
func (a *App) shutdown() error {
	l := a.logger
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.cfg.Feed.WebSocketURL != "" {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
