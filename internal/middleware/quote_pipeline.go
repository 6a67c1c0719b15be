package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, q *models.RawQuote) error
}

// QuotePipeline sits between the odds feed and the quote book. It
// validates incoming quotes, throttles per book, and buffers when the
// downstream processor is unavailable.
type QuotePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.RawQuote
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	seenMu   sync.Mutex
	lastSeen map[string]time.Time // per-book last accepted time
}

type PipelineOption func(*QuotePipeline)

// WithMaxRPS sets the max quotes per second per book.
func WithMaxRPS(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewQuotePipeline creates a new pipeline.
func NewQuotePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *QuotePipeline {
	p := &QuotePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   200, // per book; books batch line moves
		bufSize:  1000,
		bufCh:    make(chan *models.RawQuote, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.RawQuote, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered quotes.
func (p *QuotePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case q := <-p.bufCh:
				if q == nil {
					continue
				}
				if err := p.proc.Process(ctx, q); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- q:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *QuotePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a quote downstream,
// buffering on errors.
func (p *QuotePipeline) Process(ctx context.Context, q *models.RawQuote) error {
	start := time.Now()
	if err := validateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		p.metrics.RecordQuote(bookLabel(q), false)
		return err
	}
	if !p.allow(q.Book, start) {
		// throttled; drop silently
		p.metrics.RecordError("pipeline_throttle")
		p.metrics.RecordQuote(q.Book, false)
		return nil
	}

	if err := p.proc.Process(ctx, q); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- q:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordQuote(q.Book, true)
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func bookLabel(q *models.RawQuote) string {
	if q == nil {
		return "unknown"
	}
	return q.Book
}

func validateQuote(q *models.RawQuote) error {
	if q == nil {
		return fmt.Errorf("quote nil")
	}
	if q.Book == "" {
		return fmt.Errorf("book empty")
	}
	if q.EventID == "" || q.Market == "" || q.Side == "" {
		return fmt.Errorf("selection incomplete")
	}
	if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return fmt.Errorf("price not finite")
	}
	if math.IsNaN(q.Line) || math.IsInf(q.Line, 0) {
		return fmt.Errorf("line not finite")
	}
	if q.Price > -100 && q.Price < 100 {
		return fmt.Errorf("price %g out of american range", q.Price)
	}
	if q.Mode != models.ModePrematch && q.Mode != models.ModeLive {
		return fmt.Errorf("mode %q invalid", q.Mode)
	}
	if q.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	return nil
}

func (p *QuotePipeline) allow(book string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	last := p.lastSeen[book]
	if last.IsZero() {
		p.lastSeen[book] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[book] = now
	return true
}
