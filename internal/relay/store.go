package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OpenMoove/partnerapi/webhook"
)

// StoredEvent is a webhook delivery persisted by the relay.
type StoredEvent struct {
	ID         uuid.UUID `json:"id"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}

// Store persists webhook events in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert stores a verified event. The vendor redelivers until it sees a 2xx,
// so duplicate event IDs are silently ignored to keep intake idempotent.
func (s *Store) Insert(ctx context.Context, evt webhook.Event, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_events (id, event_id, event_type, payload, received_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (event_id) DO NOTHING`,
		uuid.New(), evt.ID, evt.Type, payload,
	)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// List returns stored events, newest first, with the total count for
// pagination.
func (s *Store) List(ctx context.Context, limit, offset int) ([]StoredEvent, int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM webhook_events`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count webhook events: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, event_type, payload, received_at
		 FROM webhook_events
		 ORDER BY received_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var evt StoredEvent
		if err := rows.Scan(&evt.ID, &evt.EventID, &evt.EventType, &evt.Payload, &evt.ReceivedAt); err != nil {
			return nil, 0, fmt.Errorf("scan webhook event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate webhook events: %w", err)
	}

	return events, count, nil
}
