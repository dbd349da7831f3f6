// Package query собирает читающие операции движка в один сервис.
//
// Состояние подписок живёт в памяти движка, поэтому эти чтения дешёвые;
// кэш Redis нужен только для журнала событий, который читается из базы.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// EngineReader читающая часть движка подписок.
type EngineReader interface {
	GetSubscription(account string) (models.Subscription, bool)
	HasActiveSubscription(account string) bool
	SubscriberCount() int
	NumberOfBatches() uint64
	BatchStatus() models.BatchDayState
	IsPaused() bool
}

// EventRepository журнал событий движка в базе данных.
type EventRepository interface {
	ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error)
	ListEventsByAccount(ctx context.Context, account string, limit, offset int) ([]*models.Event, error)
}

// Cache кэш списков событий.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Service отвечает за читающие запросы HTTP-слоя.
type Service struct {
	engine EngineReader
	events EventRepository
	cache  Cache
}

// EventsCacheTTL время жизни кэшированных списков событий. Журнал
// пополняется рекордером асинхронно, короткое отставание допустимо.
const EventsCacheTTL = 10 * time.Second

// New создает новый Service.
func New(engine EngineReader, events EventRepository, cache Cache) *Service {
	return &Service{
		engine: engine,
		events: events,
		cache:  cache,
	}
}

// GetSubscription возвращает запись подписки аккаунта.
func (s *Service) GetSubscription(account string) (models.Subscription, bool) {
	return s.engine.GetSubscription(account)
}

// HasActiveSubscription сообщает, есть ли у аккаунта активная подписка.
func (s *Service) HasActiveSubscription(account string) bool {
	return s.engine.HasActiveSubscription(account)
}

// SubscriberCount возвращает число подписчиков в реестре.
func (s *Service) SubscriberCount() int {
	return s.engine.SubscriberCount()
}

// NumberOfBatches возвращает число батчей текущего реестра.
func (s *Service) NumberOfBatches() uint64 {
	return s.engine.NumberOfBatches()
}

// BatchStatus возвращает состояние батч-дня.
func (s *Service) BatchStatus() models.BatchDayState {
	return s.engine.BatchStatus()
}

// IsPaused сообщает, приостановлен ли движок.
func (s *Service) IsPaused() bool {
	return s.engine.IsPaused()
}

// ListEvents возвращает события движка из журнала, сначала свежие.
func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	key := fmt.Sprintf("events:all:%d:%d", limit, offset)
	return s.listCached(ctx, key, func() ([]*models.Event, error) {
		return s.events.ListEvents(ctx, limit, offset)
	})
}

// ListEventsByAccount возвращает события конкретного аккаунта.
func (s *Service) ListEventsByAccount(ctx context.Context, account string, limit, offset int) ([]*models.Event, error) {
	key := fmt.Sprintf("events:%s:%d:%d", account, limit, offset)
	return s.listCached(ctx, key, func() ([]*models.Event, error) {
		return s.events.ListEventsByAccount(ctx, account, limit, offset)
	})
}

func (s *Service) listCached(_ context.Context, key string, load func() ([]*models.Event, error)) ([]*models.Event, error) {
	if s.cache != nil {
		var cached []*models.Event
		if found, err := s.cache.Get(key, &cached); err == nil && found {
			return cached, nil
		}
	}

	events, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(key, events, EventsCacheTTL)
	}
	return events, nil
}
