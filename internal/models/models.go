// Package models содержит доменные структуры движка подписок на лотерейные билеты,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Subscription описывает подписку одного аккаунта: сколько билетов покупается
// за один обработанный день и сколько дней осталось. Все денежные величины
// в движке выражаются в минимальных единицах токена.
type Subscription struct {
	TicketsPerDay         uint64 // Количество билетов, покупаемых за день (> 0)
	DaysRemaining         uint64 // Оставшиеся дни, 0 — подписка исчерпана
	LastProcessedBatchDay uint64 // Значение счётчика дней на момент последней обработки
	IsActive              bool   // Участвует ли подписка в батч-обработке
}

// Eligible сообщает, подлежит ли подписка обработке в батч-день day.
// Подписка обрабатывается не более одного раза за день.
func (s Subscription) Eligible(day uint64) bool {
	return s.IsActive && s.DaysRemaining > 0 && s.LastProcessedBatchDay < day
}

// BatchDayState хранит состояние глобального батч-дня: номер текущего дня,
// момент последнего завершения дня и флаги обработанных батчей текущего дня.
type BatchDayState struct {
	CurrentBatchDay    uint64
	LastBatchTimestamp time.Time
	BatchProcessed     map[uint64]bool
}

// NewBatchDayState возвращает состояние первого батч-дня.
func NewBatchDayState(start time.Time) BatchDayState {
	return BatchDayState{
		CurrentBatchDay:    1,
		LastBatchTimestamp: start,
		BatchProcessed:     make(map[uint64]bool),
	}
}

// BatchResult итог одного вызова обработки батча.
type BatchResult struct {
	BatchIndex      uint64 `json:"batch_index"`
	ProcessedCount  int    `json:"processed_count"`
	FailedCount     int    `json:"failed_count"`
	SkippedCount    int    `json:"skipped_count"`
	DayAdvanced     bool   `json:"day_advanced"`
	CurrentBatchDay uint64 `json:"current_batch_day"`
}

// Settlement итог расторжения подписки: сколько фактически выплачено
// пользователю и сколько ушло рефереру в виде налога.
type Settlement struct {
	RefundPaid uint64 `json:"refund_paid"`
	TaxPaid    uint64 `json:"tax_paid"`
}

// DummySubscription используется для приёма данных из JSON-запроса
// на создание подписки. Верхние границы отсекают заведомо абсурдные
// значения до движка; точный контроль переполнения стоимости — в движке.
type DummySubscription struct {
	TicketsPerDay uint64 `json:"tickets_per_day" validate:"required,gt=0,lte=1000000"` // Билетов в день (>0)
	Days          uint64 `json:"days" validate:"required,gt=0,lte=36500"`              // Длительность в днях (>0)
}

// DummyUpgrade используется для приёма данных из JSON-запроса на апгрейд подписки.
type DummyUpgrade struct {
	NewTicketsPerDay uint64 `json:"new_tickets_per_day" validate:"required,gt=0,lte=1000000"` // Новое количество билетов в день
	AdditionalDays   uint64 `json:"additional_days" validate:"lte=36500"`                     // Добавляемые дни (может быть 0)
}

// DummyPurchase используется для приёма данных из JSON-запроса на разовую покупку.
type DummyPurchase struct {
	Amount uint64 `json:"amount" validate:"required,gt=0"` // Сумма покупки в единицах токена
}

// DummyCashback используется для приёма данных из JSON-запроса на изменение кэшбэка.
type DummyCashback struct {
	ImmediateBps    uint64 `json:"immediate_bps" validate:"lte=10000"`    // Кэшбэк разовой покупки в базисных пунктах
	SubscriptionBps uint64 `json:"subscription_bps" validate:"lte=10000"` // Кэшбэк подписки в базисных пунктах
}

// DummyReferrer используется для приёма данных из JSON-запроса на смену реферера.
type DummyReferrer struct {
	Account string `json:"account" validate:"required"` // Токен-аккаунт реферера
}

// DummyFund используется для приёма данных из JSON-запроса на пополнение резерва.
type DummyFund struct {
	Account string `json:"account" validate:"required"`    // Аккаунт-источник средств
	Amount  uint64 `json:"amount" validate:"required,gt=0"` // Сумма пополнения
}

// DummyLogin используется для приёма данных из JSON-запроса на вход администратора.
type DummyLogin struct {
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required"`
}
