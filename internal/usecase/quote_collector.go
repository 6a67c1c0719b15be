package usecase

import (
	"context"
	"sync"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	mid "OddsEdge/internal/middleware"
	applogger "OddsEdge/pkg/logger"
)

// QuoteCollector pulls quotes off the live feed and pushes them through the
// pipeline into the quote book.
type QuoteCollector struct {
	stream  domrepo.QuoteStream
	proc    *QuoteProcessor
	pipe    *mid.QuotePipeline
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

// NewQuoteCollector creates a collector. The pipeline is optional; without it
// quotes go straight to the processor.
func NewQuoteCollector(
	stream domrepo.QuoteStream,
	proc *QuoteProcessor,
	pipe *mid.QuotePipeline,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *QuoteCollector {
	return &QuoteCollector{stream: stream, proc: proc, pipe: pipe, metrics: metrics, logger: logger}
}

// State reports the underlying feed connection state.
func (c *QuoteCollector) State() domrepo.StreamState {
	return c.stream.State()
}

// Start connects, subscribes, and launches the consume loop.
func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, qCh <-chan *models.RawQuote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			if err == nil {
				continue
			}
			c.metrics.RecordError("feed")
			c.logger.Warn("feed error, reconnecting", applogger.Error(err))
			if rerr := c.stream.Reconnect(ctx); rerr != nil {
				// Retry budget exhausted: the stream is parked in FAILED
				// and subscribers get hasFailed. Nothing left to consume.
				c.logger.Error("feed reconnect failed", applogger.Error(rerr))
				return
			}
			// The old channels closed with the failed connection.
			qCh, errCh = c.stream.Read(ctx)
		case q, ok := <-qCh:
			if !ok || q == nil {
				continue
			}
			if c.pipe != nil {
				// Drops and validation failures are logged at debug only;
				// book feeds are expected to be noisy.
				if err := c.pipe.Process(ctx, q); err != nil {
					c.logger.Debug("quote dropped", applogger.String("book", q.Book), applogger.Error(err))
				}
			} else {
				_ = c.proc.Process(ctx, q)
			}
		}
	}
}

// Shutdown stops the pipeline, flushes pending archive rows, and closes the
// feed.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if c.proc != nil {
		c.proc.Flush(ctx)
	}
	return c.stream.Close()
}

// archiveBatchSize is how many accepted quotes accumulate before one batched
// archive insert. Small enough to keep archive lag under a second at normal
// feed rates.
const archiveBatchSize = 64

// QuoteProcessor is the pipeline's downstream: it merges quotes into the book
// and archives accepted ones in batches.
type QuoteProcessor struct {
	book     *QuoteBook
	archiver domrepo.Archiver
	metrics  domrepo.Metrics
	logger   *applogger.Logger

	pendMu  sync.Mutex
	pending []*models.Quote
}

// NewQuoteProcessor creates a processor. The archiver may be nil.
func NewQuoteProcessor(book *QuoteBook, archiver domrepo.Archiver, metrics domrepo.Metrics, logger *applogger.Logger) *QuoteProcessor {
	return &QuoteProcessor{book: book, archiver: archiver, metrics: metrics, logger: logger}
}

// Process normalizes and merges one quote. Stale or unusable quotes are
// dropped silently; archival failures never fail ingestion.
func (p *QuoteProcessor) Process(ctx context.Context, raw *models.RawQuote) error {
	q, accepted, err := p.book.Apply(raw)
	if err != nil {
		p.logger.Debug("quote rejected", applogger.Error(err))
		return nil
	}
	if !accepted {
		// Superseded by a newer quote for the same selection.
		return nil
	}

	if p.archiver == nil {
		return nil
	}

	p.pendMu.Lock()
	p.pending = append(p.pending, &q)
	var batch []*models.Quote
	if len(p.pending) >= archiveBatchSize {
		batch = p.pending
		p.pending = nil
	}
	p.pendMu.Unlock()

	if batch != nil {
		p.archiveBatch(ctx, batch)
	}
	return nil
}

// Flush archives any quotes still buffered. Called on shutdown.
func (p *QuoteProcessor) Flush(ctx context.Context) {
	if p.archiver == nil {
		return
	}
	p.pendMu.Lock()
	batch := p.pending
	p.pending = nil
	p.pendMu.Unlock()

	if len(batch) > 0 {
		p.archiveBatch(ctx, batch)
	}
}

func (p *QuoteProcessor) archiveBatch(ctx context.Context, batch []*models.Quote) {
	actx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.archiver.ArchiveQuoteBatch(actx, batch); err != nil {
		p.metrics.RecordError("archive_quote")
		p.logger.Warn("quote archive failed",
			applogger.Int("rows", len(batch)),
			applogger.Error(err),
		)
	}
}
