package engine

import "errors"

// Именованные ошибки движка. Нарушения предусловий отклоняются синхронно,
// без изменения состояния; обработчики HTTP сопоставляют их со статусами.
var (
	// ErrPaused операция недоступна, пока движок на паузе.
	ErrPaused = errors.New("engine is paused")
	// ErrNotSubscriber у аккаунта нет активной подписки.
	ErrNotSubscriber = errors.New("no active subscription for account")
	// ErrDowngrade попытка уменьшить количество билетов в день при апгрейде.
	ErrDowngrade = errors.New("tickets per day cannot be decreased")
	// ErrZeroTickets количество билетов в день должно быть больше нуля.
	ErrZeroTickets = errors.New("tickets per day must be greater than zero")
	// ErrZeroDays длительность подписки должна быть больше нуля.
	ErrZeroDays = errors.New("days must be greater than zero")
	// ErrAmountTooLow сумма разовой покупки меньше цены билета.
	ErrAmountTooLow = errors.New("amount is below ticket price")
	// ErrBatchOutOfRange индекс батча выходит за пределы реестра подписчиков.
	ErrBatchOutOfRange = errors.New("batch index out of range")
	// ErrBatchAlreadyProcessed батч уже обработан в текущем батч-дне.
	ErrBatchAlreadyProcessed = errors.New("batch already processed for current day")
	// ErrDayTooSoon интервал обработки с прошлого батч-дня ещё не истёк.
	ErrDayTooSoon = errors.New("processing interval has not elapsed")
	// ErrCostOverflow сумма операции не представима: произведение или сумма
	// выходит за пределы MaxAmount.
	ErrCostOverflow = errors.New("cost exceeds maximum representable amount")
	// ErrReentrancy повторный вход в движок из колбэка внешнего сервиса.
	ErrReentrancy = errors.New("reentrant call rejected")
	// ErrCashbackTooHigh кэшбэк превышает допустимый максимум.
	ErrCashbackTooHigh = errors.New("cashback exceeds allowed maximum")
	// ErrEmptyReferrer реферер не может быть пустым.
	ErrEmptyReferrer = errors.New("referrer account is empty")
)
