// Package recorder записывает события движка из очереди в журнал базы данных.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// EventRepository вставляет события в журнал. Повторная вставка события
// с тем же ID не считается ошибкой.
type EventRepository interface {
	InsertEvent(ctx context.Context, event models.Event) error
}

// Service обрабатывает сообщения очереди engine-events.
type Service struct {
	events EventRepository
	log    *slog.Logger
}

// New создает новый Service.
func New(events EventRepository, log *slog.Logger) *Service {
	return &Service{
		events: events,
		log:    log,
	}
}

// HandleMessage разбирает тело сообщения и сохраняет событие.
// Возврат ошибки приводит к повторной доставке сообщения.
func (s *Service) HandleMessage(body []byte) error {
	const op = "recorder.HandleMessage"

	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		// Непарсящееся сообщение бессмысленно возвращать в очередь.
		s.log.Error("failed to unmarshal event, dropping message", sl.Err(err))
		return nil
	}

	if err := s.events.InsertEvent(context.Background(), event); err != nil {
		s.log.Error("failed to insert event", sl.Err(err), slog.String("event_id", event.ID))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("event recorded",
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
	)
	return nil
}
