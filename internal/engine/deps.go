package engine

import (
	"context"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// TicketService внешний сервис покупки лотерейных билетов.
type TicketService interface {
	// TicketPrice возвращает цену одного билета. Чистое чтение.
	TicketPrice(ctx context.Context) (uint64, error)
	// Purchase покупает билеты на сумму amount в пользу recipient,
	// списывая средства с резерва движка в пределах выданного allowance.
	Purchase(ctx context.Context, referrer string, amount uint64, recipient string) error
}

// TokenService примитив переводов и балансов токена. Все операции атомарны:
// ошибка означает, что средства не двигались.
type TokenService interface {
	// BalanceOf возвращает остаток аккаунта.
	BalanceOf(ctx context.Context, account string) (uint64, error)
	// Transfer переводит amount с резерва движка на аккаунт to.
	Transfer(ctx context.Context, to string, amount uint64) error
	// TransferFrom переводит amount с аккаунта from на аккаунт to.
	TransferFrom(ctx context.Context, from, to string, amount uint64) error
	// Approve разрешает spender списывать с резерва не более amount.
	Approve(ctx context.Context, spender string, amount uint64) error
}

// Store долговременное хранилище состояния движка. Память движка остаётся
// авторитетной; хранилище нужно для восстановления после рестарта.
type Store interface {
	SaveSubscription(ctx context.Context, account string, sub models.Subscription) error
	SaveRegistry(ctx context.Context, accounts []string) error
	SaveBatchState(ctx context.Context, state models.BatchDayState) error
	Load(ctx context.Context) ([]string, map[string]models.Subscription, *models.BatchDayState, error)
}

// EventSink получатель событий движка (шина сообщений).
type EventSink interface {
	Emit(ctx context.Context, event models.Event) error
}

// Metrics счётчики движка. Реализация — пакет metrics поверх prometheus.
type Metrics interface {
	SubscriberProcessed()
	SubscriberFailed()
	Shortfall(kind string)
	ImmediatePurchase()
	DayAdvanced(day uint64)
	SubscriberCount(n int)
}
