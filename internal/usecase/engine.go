package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	applogger "OddsEdge/pkg/logger"
)

// Engine runs the shared detection loop: one goroutine, one tick at a time.
// Each tick captures the quote book, runs the detector, and publishes a new
// immutable snapshot for every subscription to read. If a tick overruns the
// interval, the queued tick is skipped rather than piled up.
type Engine struct {
	book      *QuoteBook
	detector  *Detector
	ranker    *Ranker
	archiver  domrepo.Archiver
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	interval  time.Duration

	seq  int64
	snap atomic.Pointer[models.Snapshot]

	// Per-tick memo of EV projections for user models. Reset on publish.
	modelMu   sync.Mutex
	modelSeq  int64
	modelOpps map[string][]models.Opportunity
}

// NewEngine creates the engine. The archiver may be nil; archival is
// best-effort and never blocks the tick.
func NewEngine(
	book *QuoteBook,
	detector *Detector,
	ranker *Ranker,
	archiver domrepo.Archiver,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	interval time.Duration,
) *Engine {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	e := &Engine{
		book:      book,
		detector:  detector,
		ranker:    ranker,
		archiver:  archiver,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		modelOpps: make(map[string][]models.Opportunity),
	}
	// Publish an empty snapshot so Current never returns nil.
	e.snap.Store(&models.Snapshot{At: time.Now().UTC()})
	return e
}

// SetPublisher attaches an optional broker fan-out for detected
// opportunities. Like archival, publishing is best-effort and asynchronous.
func (e *Engine) SetPublisher(p domrepo.Publisher) {
	e.publisher = p
}

// Run blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			e.Tick(now.UTC())
			// Drop a tick that queued up while we were computing.
			select {
			case <-t.C:
				e.metrics.RecordTickSkipped()
			default:
			}
		}
	}
}

// Tick runs one detection cycle and publishes the resulting snapshot.
func (e *Engine) Tick(now time.Time) *models.Snapshot {
	start := time.Now()

	groups := e.book.SnapshotGroups(now)
	ops := e.detector.Detect(groups, now)
	SortOpportunities(ops)

	snap := &models.Snapshot{
		Seq:           atomic.AddInt64(&e.seq, 1),
		At:            now,
		Opportunities: ops,
		Groups:        groups,
		Counts:        CountByMode(ops),
	}
	e.snap.Store(snap)

	e.modelMu.Lock()
	e.modelSeq = snap.Seq
	e.modelOpps = make(map[string][]models.Opportunity)
	e.modelMu.Unlock()

	e.metrics.RecordTick(time.Since(start), len(ops))

	if e.archiver != nil && len(ops) > 0 {
		go func(seq int64, ops []models.Opportunity) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.archiver.ArchiveOpportunities(ctx, seq, ops); err != nil {
				e.metrics.RecordError("archive_opportunities")
				e.logger.Warn("opportunity archive failed", applogger.Error(err))
			}
		}(snap.Seq, ops)
	}

	if e.publisher != nil && len(ops) > 0 {
		go func(seq int64, ops []models.Opportunity) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.publisher.PublishOpportunities(ctx, seq, ops); err != nil {
				e.metrics.RecordError("publish_opportunities")
				e.logger.Warn("opportunity publish failed", applogger.Error(err))
			}
		}(snap.Seq, ops)
	}

	e.logger.Debug("tick complete",
		applogger.Int64("seq", snap.Seq),
		applogger.Int("groups", len(groups)),
		applogger.Int("opportunities", len(ops)),
		applogger.Duration("took", time.Since(start)),
	)
	return snap
}

// Current returns the latest published snapshot. Never nil.
func (e *Engine) Current() *models.Snapshot {
	return e.snap.Load()
}

// Ranker exposes the shared ranking engine for subscriptions and handlers.
func (e *Engine) Ranker() *Ranker {
	return e.ranker
}

// OpportunitiesForModel re-projects the current snapshot through a user's EV
// model: shared arbitrage rows plus EV singles computed with the model's
// sharp set and weights. Results are memoized per model key for the lifetime
// of the snapshot, so many subscribers on one model cost one computation.
func (e *Engine) OpportunitiesForModel(m *models.EVModel) []models.Opportunity {
	snap := e.Current()
	if m == nil {
		return snap.Opportunities
	}

	key := m.Key()

	e.modelMu.Lock()
	if e.modelSeq == snap.Seq {
		if ops, ok := e.modelOpps[key]; ok {
			e.modelMu.Unlock()
			return ops
		}
	}
	e.modelMu.Unlock()

	ops := make([]models.Opportunity, 0, len(snap.Opportunities))
	for _, op := range snap.Opportunities {
		if op.Kind == models.KindArbitrage {
			ops = append(ops, op)
		}
	}
	ops = append(ops, e.detector.WithModel(m).DetectEV(snap.Groups, snap.At)...)
	SortOpportunities(ops)

	e.modelMu.Lock()
	if e.modelSeq == snap.Seq {
		e.modelOpps[key] = ops
	}
	e.modelMu.Unlock()
	return ops
}
