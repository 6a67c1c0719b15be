package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
)

// Schema statements for the archive tables, applied idempotently at startup
// via the ClickHouse client's InitSchema.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS odds_quotes (
		observed_at DateTime64(3),
		book LowCardinality(String),
		event_id String,
		market LowCardinality(String),
		side LowCardinality(String),
		line Float64,
		price Int32,
		implied Float64,
		mode LowCardinality(String),
		event_start DateTime
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(observed_at)
	ORDER BY (event_id, market, line, side, book, observed_at)
	TTL toDateTime(observed_at) + INTERVAL 90 DAY`,

	`CREATE TABLE IF NOT EXISTS opportunities (
		detected_at DateTime64(3),
		tick_seq Int64,
		id String,
		kind LowCardinality(String),
		event_id String,
		market LowCardinality(String),
		line Float64,
		mode LowCardinality(String),
		event_start DateTime,
		roi_bps Float64,
		book_a LowCardinality(String),
		price_a Int32,
		book_b LowCardinality(String),
		price_b Int32,
		fair_prob Float64
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(detected_at)
	ORDER BY (event_id, id, tick_seq)
	TTL toDateTime(detected_at) + INTERVAL 90 DAY`,
}

// ClickHouseArchive implements Archiver over ClickHouse for offline research.
type ClickHouseArchive struct {
	db *sql.DB
}

// NewClickHouseArchive creates the archive repository.
func NewClickHouseArchive(db *sql.DB) domrepo.Archiver {
	return &ClickHouseArchive{db: db}
}

func (a *ClickHouseArchive) ArchiveQuoteBatch(ctx context.Context, quotes []*models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(quotes); start += chunkSize {
		end := start + chunkSize
		if end > len(quotes) {
			end = len(quotes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, q := range quotes[start:end] {
			if q == nil || q.Book == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				q.ObservedAt, q.Book, q.EventID, q.Market, q.Side,
				q.Line, q.Price, q.Implied, string(q.Mode), q.EventStart,
			)
		}
		if len(values) == 0 {
			continue
		}
		stmt := fmt.Sprintf(
			"INSERT INTO odds_quotes (observed_at, book, event_id, market, side, line, price, implied, mode, event_start) VALUES %s",
			strings.Join(values, ","),
		)
		if _, err := a.db.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}

func (a *ClickHouseArchive) ArchiveOpportunities(ctx context.Context, seq int64, ops []models.Opportunity) error {
	if len(ops) == 0 {
		return nil
	}

	values := make([]string, 0, len(ops))
	args := make([]interface{}, 0, len(ops)*15)
	for _, op := range ops {
		bookB := ""
		priceB := 0
		if op.SideB != nil {
			bookB = op.SideB.Book
			priceB = op.SideB.Price
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			op.DetectedAt, seq, op.ID, string(op.Kind), op.EventID, op.Market,
			op.Line, string(op.Mode), op.EventStart, op.RoiBps,
			op.SideA.Book, op.SideA.Price, bookB, priceB, op.FairProb,
		)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO opportunities (detected_at, tick_seq, id, kind, event_id, market, line, mode, event_start, roi_bps, book_a, price_a, book_b, price_b, fair_prob) VALUES %s",
		strings.Join(values, ","),
	)
	_, err := a.db.ExecContext(ctx, stmt, args...)
	return err
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // connection pool is owned by pkg/clickhouse
}
