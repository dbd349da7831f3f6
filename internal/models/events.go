package models

import "time"

// EventType тип события движка, публикуемого во внешнюю шину.
type EventType string

// Типы событий движка. События о нехватке средств различают частичную
// выплату и полное отсутствие средств — это деградированный успех,
// а не ошибка операции.
const (
	EventSubscriptionCreated EventType = "subscription.created"
	EventSubscriptionMerged  EventType = "subscription.merged"
	EventSubscriptionExpired EventType = "subscription.expired"
	EventSubscriptionCancel  EventType = "subscription.cancelled"
	EventImmediatePurchase   EventType = "purchase.immediate"
	EventSubscriberProcessed EventType = "batch.subscriber_processed"
	EventSubscriberFailed    EventType = "batch.subscriber_failed"
	EventBatchDayAdvanced    EventType = "batch.day_advanced"
	EventCashbackPartial     EventType = "cashback.partial"
	EventCashbackNone        EventType = "cashback.none"
	EventRefundPartial       EventType = "refund.partial"
	EventRefundNone          EventType = "refund.none"
	EventReserveFunded       EventType = "reserve.funded"
)

// Event событие движка. Поля Desired/Paid/Shortfall заполняются для
// событий выплат, BatchIndex и BatchDay — для событий батч-обработки.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Account    string    `json:"account,omitempty"`
	BatchIndex uint64    `json:"batch_index,omitempty"`
	BatchDay   uint64    `json:"batch_day,omitempty"`
	Desired    uint64    `json:"desired,omitempty"`
	Paid       uint64    `json:"paid,omitempty"`
	Shortfall  uint64    `json:"shortfall,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
