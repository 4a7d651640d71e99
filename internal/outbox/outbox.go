// Package outbox implements the transactional-outbox side of notification
// delivery. The API writes outbox rows in the same transaction as the
// notifications themselves; the relay drains pending rows to the broker
// after commit, so a slow or failing broker can never block or abort the
// financial transaction. Delivery is at-least-once.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TopicNotifications carries notification fan-out events.
const TopicNotifications = "notifications"

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// Store reads and settles outbox rows for the relay. Writes happen through
// the transactional store, never here.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FetchPending returns up to limit unsent records in insertion order.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	const query = `
SELECT id, event_id, topic, key, payload, created_at, sent_at
FROM outbox
WHERE sent_at IS NULL
ORDER BY id
LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// MarkSent settles a delivered record.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	const query = `UPDATE outbox SET sent_at = now() WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark outbox record %d sent: %w", id, err)
	}

	return nil
}
