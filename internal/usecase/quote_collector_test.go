package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"OddsEdge/internal/domain/models"
)

type recordingArchiver struct {
	batches [][]*models.Quote
}

func (a *recordingArchiver) ArchiveQuoteBatch(_ context.Context, quotes []*models.Quote) error {
	a.batches = append(a.batches, quotes)
	return nil
}

func (a *recordingArchiver) ArchiveOpportunities(context.Context, int64, []models.Opportunity) error {
	return nil
}
func (a *recordingArchiver) Health(context.Context) error { return nil }
func (a *recordingArchiver) Close() error                 { return nil }

func TestProcessorBatchesArchival(t *testing.T) {
	arch := &recordingArchiver{}
	p := NewQuoteProcessor(NewQuoteBook(time.Minute), arch, &tickMetrics{}, testLogger(t))

	ctx := context.Background()
	for i := 0; i < archiveBatchSize; i++ {
		raw := rawQuote("dk", "home", -110, 1000)
		raw.EventID = fmt.Sprintf("ev%d", i) // distinct selections, all accepted
		if err := p.Process(ctx, raw); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
	}

	if len(arch.batches) != 1 {
		t.Fatalf("batches %d, want 1", len(arch.batches))
	}
	if got := len(arch.batches[0]); got != archiveBatchSize {
		t.Fatalf("batch size %d, want %d", got, archiveBatchSize)
	}
}

func TestProcessorFlushDrainsPartialBatch(t *testing.T) {
	arch := &recordingArchiver{}
	p := NewQuoteProcessor(NewQuoteBook(time.Minute), arch, &tickMetrics{}, testLogger(t))

	ctx := context.Background()
	if err := p.Process(ctx, rawQuote("dk", "home", -110, 1000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(arch.batches) != 0 {
		t.Fatalf("partial batch archived early")
	}

	p.Flush(ctx)
	if len(arch.batches) != 1 || len(arch.batches[0]) != 1 {
		t.Fatalf("flush batches %v", arch.batches)
	}

	// Nothing left after a flush.
	p.Flush(ctx)
	if len(arch.batches) != 1 {
		t.Fatalf("empty flush archived again")
	}
}

func TestProcessorSkipsArchivalForRejectedQuotes(t *testing.T) {
	arch := &recordingArchiver{}
	p := NewQuoteProcessor(NewQuoteBook(time.Minute), arch, &tickMetrics{}, testLogger(t))

	ctx := context.Background()
	if err := p.Process(ctx, rawQuote("dk", "home", -110, 2000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	// Stale duplicate: merged nowhere, archived nowhere.
	if err := p.Process(ctx, rawQuote("dk", "home", -105, 1500)); err != nil {
		t.Fatalf("process stale: %v", err)
	}

	p.Flush(ctx)
	if len(arch.batches) != 1 || len(arch.batches[0]) != 1 {
		t.Fatalf("stale quote reached the archive: %v", arch.batches)
	}
}
