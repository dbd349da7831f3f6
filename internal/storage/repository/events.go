package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// InsertEvent записывает событие движка в журнал аудита. Повторная доставка
// того же события (по ID) игнорируется.
func (s *Storage) InsertEvent(ctx context.Context, event models.Event) error {
	const op = "storage.InsertEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO engine_events (id, type, account, batch_index, batch_day,
			      desired, paid, shortfall, reason, occurred_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (id) DO NOTHING`
	_, err := s.DB.ExecContext(ctx, query,
		event.ID, string(event.Type), event.Account, event.BatchIndex, event.BatchDay,
		event.Desired, event.Paid, event.Shortfall, event.Reason, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListEvents возвращает журнал событий с пагинацией, новые события первыми.
func (s *Storage) ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	const op = "storage.ListEvents"
	query := `SELECT id, type, account, batch_index, batch_day, desired, paid, shortfall, reason, occurred_at
			  FROM engine_events
			  ORDER BY occurred_at DESC
			  LIMIT $1 OFFSET $2`
	return s.queryEvents(ctx, op, query, limit, offset)
}

// ListEventsByAccount возвращает события одного аккаунта с пагинацией.
func (s *Storage) ListEventsByAccount(ctx context.Context, account string, limit, offset int) ([]*models.Event, error) {
	const op = "storage.ListEventsByAccount"
	query := `SELECT id, type, account, batch_index, batch_day, desired, paid, shortfall, reason, occurred_at
			  FROM engine_events
			  WHERE account = $1
			  ORDER BY occurred_at DESC
			  LIMIT $2 OFFSET $3`
	return s.queryEvents(ctx, op, query, account, limit, offset)
}

func (s *Storage) queryEvents(ctx context.Context, op, query string, args ...any) ([]*models.Event, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Event
	for rows.Next() {
		var item models.Event
		var eventType string
		if err := rows.Scan(&item.ID, &eventType, &item.Account, &item.BatchIndex, &item.BatchDay,
			&item.Desired, &item.Paid, &item.Shortfall, &item.Reason, &item.OccurredAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.Type = models.EventType(eventType)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
