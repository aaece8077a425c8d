// Package transcript archives chat exchanges to PostgreSQL. The archiver
// consumes exchange events from Kafka and persists them through a
// circuit-breaker-guarded store with retry.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatborg/chatborg/internal/ingest"
	"github.com/chatborg/chatborg/pkg/postgres"
	"github.com/chatborg/chatborg/pkg/resilience"
)

// Store persists exchange events in PostgreSQL.
//
// It requires a `chat_exchanges` table:
//
//	CREATE TABLE chat_exchanges (
//	    id          BIGSERIAL PRIMARY KEY,
//	    kind        TEXT NOT NULL,
//	    line        TEXT NOT NULL,
//	    response    TEXT,
//	    responded   BOOLEAN NOT NULL DEFAULT FALSE,
//	    learned     BOOLEAN NOT NULL DEFAULT FALSE,
//	    known_words INT NOT NULL DEFAULT 0,
//	    latency_ms  BIGINT NOT NULL DEFAULT 0,
//	    source      TEXT NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	db      *postgres.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// Exchange is one archived interaction as read back from the database.
type Exchange struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	Line       string    `json:"line"`
	Response   string    `json:"response,omitempty"`
	Responded  bool      `json:"responded"`
	Learned    bool      `json:"learned"`
	KnownWords int       `json:"known_words"`
	LatencyMs  int64     `json:"latency_ms"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStore creates a transcript store over the given database.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:      db,
		breaker: resilience.NewCircuitBreaker("transcript-store", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "transcript-store"),
	}
}

// SaveExchange persists one exchange event, retrying transient failures.
// The circuit breaker sheds load when PostgreSQL is down for a while.
func (s *Store) SaveExchange(ctx context.Context, event ingest.ExchangeEvent) error {
	return s.breaker.Execute(func() error {
		return resilience.Retry(ctx, "save-exchange", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			_, err := s.db.DB.ExecContext(ctx,
				`INSERT INTO chat_exchanges
				    (kind, line, response, responded, learned, known_words, latency_ms, source, occurred_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				string(event.Type), event.Line, event.Response, event.Responded,
				event.Learned, event.KnownWords, event.LatencyMs, event.Source,
				event.Timestamp,
			)
			if err != nil {
				return fmt.Errorf("inserting exchange: %w", err)
			}
			return nil
		})
	})
}

// RecentExchanges returns the most recent limit exchanges, newest first.
func (s *Store) RecentExchanges(ctx context.Context, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, kind, line, COALESCE(response, ''), responded, learned,
		        known_words, latency_ms, source, occurred_at
		   FROM chat_exchanges
		  ORDER BY occurred_at DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := make([]Exchange, 0, limit)
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(
			&e.ID, &e.Kind, &e.Line, &e.Response, &e.Responded, &e.Learned,
			&e.KnownWords, &e.LatencyMs, &e.Source, &e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scanning exchange row: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exchange rows: %w", err)
	}
	return exchanges, nil
}

// CountSince returns how many exchanges were archived at or after the cutoff.
func (s *Store) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_exchanges WHERE occurred_at >= $1`,
		cutoff,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counting exchanges: %w", err)
	}
	return count, nil
}
