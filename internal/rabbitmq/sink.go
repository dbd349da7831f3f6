package rabbitmq

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Sink отправляет события движка в обменник engine-events.
type Sink struct {
	ch *amqp.Channel
}

// NewSink создает издателя событий поверх открытого канала.
func NewSink(ch *amqp.Channel) *Sink {
	return &Sink{ch: ch}
}

// Emit публикует событие с единым ключом маршрутизации.
func (s *Sink) Emit(_ context.Context, event models.Event) error {
	const op = "rabbitmq.Sink.Emit"
	if err := PublishMessage(s.ch, ExchangeName, RoutingKeyEvent, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
