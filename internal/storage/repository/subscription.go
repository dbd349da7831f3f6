package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// SaveSubscription вставляет или обновляет подписку аккаунта. Новой записи
// назначается следующая позиция в реестре, у существующей позиция не меняется.
func (s *Storage) SaveSubscription(ctx context.Context, account string, sub models.Subscription) error {
	const op = "storage.SaveSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (account, tickets_per_day, days_remaining,
			      last_processed_batch_day, is_active, position)
			  VALUES ($1, $2, $3, $4, $5,
			      (SELECT COALESCE(MAX(position) + 1, 0) FROM subscriptions))
			  ON CONFLICT (account) DO UPDATE
			  SET tickets_per_day = EXCLUDED.tickets_per_day,
			      days_remaining = EXCLUDED.days_remaining,
			      last_processed_batch_day = EXCLUDED.last_processed_batch_day,
			      is_active = EXCLUDED.is_active,
			      updated_at = now()`
	_, err := s.DB.ExecContext(ctx, query,
		account, sub.TicketsPerDay, sub.DaysRemaining, sub.LastProcessedBatchDay, sub.IsActive)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveRegistry переписывает позиции реестра целиком и удаляет записи,
// отсутствующие в переданном порядке. Вызывается при добавлении подписчика
// и после уплотнения реестра на границе батч-дня.
func (s *Storage) SaveRegistry(ctx context.Context, accounts []string) error {
	const op = "storage.SaveRegistry"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE subscriptions SET position = NULL`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for position, account := range accounts {
		if _, err := tx.ExecContext(ctx,
			`UPDATE subscriptions SET position = $1 WHERE account = $2`,
			position, account); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE position IS NULL`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveBatchState сохраняет единственную строку состояния батч-дня.
func (s *Storage) SaveBatchState(ctx context.Context, state models.BatchDayState) error {
	const op = "storage.SaveBatchState"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	processed := make(map[string]bool, len(state.BatchProcessed))
	for index, done := range state.BatchProcessed {
		processed[strconv.FormatUint(index, 10)] = done
	}
	raw, err := json.Marshal(processed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO batch_state (id, current_batch_day, last_batch_timestamp, batch_processed)
			  VALUES (1, $1, $2, $3)
			  ON CONFLICT (id) DO UPDATE
			  SET current_batch_day = EXCLUDED.current_batch_day,
			      last_batch_timestamp = EXCLUDED.last_batch_timestamp,
			      batch_processed = EXCLUDED.batch_processed`
	if _, err := s.DB.ExecContext(ctx, query, state.CurrentBatchDay, state.LastBatchTimestamp, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load возвращает реестр в сохранённом порядке, подписки и состояние
// батч-дня. Если состояние ещё не сохранялось, возвращается nil.
func (s *Storage) Load(ctx context.Context) ([]string, map[string]models.Subscription, *models.BatchDayState, error) {
	const op = "storage.Load"
	select {
	case <-ctx.Done():
		return nil, nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT account, tickets_per_day, days_remaining, last_processed_batch_day, is_active
			  FROM subscriptions
			  ORDER BY position`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var accounts []string
	subs := make(map[string]models.Subscription)
	for rows.Next() {
		var account string
		var sub models.Subscription
		if err := rows.Scan(&account, &sub.TicketsPerDay, &sub.DaysRemaining,
			&sub.LastProcessedBatchDay, &sub.IsActive); err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		accounts = append(accounts, account)
		subs[account] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	state, err := s.loadBatchState(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return accounts, subs, state, nil
}

func (s *Storage) loadBatchState(ctx context.Context) (*models.BatchDayState, error) {
	var state models.BatchDayState
	var raw []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT current_batch_day, last_batch_timestamp, batch_processed FROM batch_state WHERE id = 1`).
		Scan(&state.CurrentBatchDay, &state.LastBatchTimestamp, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var processed map[string]bool
	if err := json.Unmarshal(raw, &processed); err != nil {
		return nil, err
	}
	state.BatchProcessed = make(map[uint64]bool, len(processed))
	for key, done := range processed {
		index, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, err
		}
		state.BatchProcessed[index] = done
	}
	return &state, nil
}
