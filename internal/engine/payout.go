package engine

// PayoutOutcome результат применения политики выплат.
type PayoutOutcome string

// Возможные исходы выплаты: полная, частичная (средств не хватило),
// нулевая (резерв пуст).
const (
	PayoutFull    PayoutOutcome = "full"
	PayoutPartial PayoutOutcome = "partial"
	PayoutNone    PayoutOutcome = "none"
)

// Disburse реализует политику выплат с учётом доступного остатка.
// Если остатка хватает — выплачивается вся желаемая сумма; если остаток
// положительный, но меньше желаемого — выплачивается весь остаток, а разница
// возвращается как недостача; при нулевом остатке не выплачивается ничего.
// Недостача никогда не является ошибкой: основная операция (покупка билетов,
// расторжение подписки) обязана завершиться, а дефицит лишь сигнализируется.
func Disburse(desired, available uint64) (paid, shortfall uint64, outcome PayoutOutcome) {
	switch {
	case desired == 0:
		return 0, 0, PayoutFull
	case available >= desired:
		return desired, 0, PayoutFull
	case available > 0:
		return available, desired - available, PayoutPartial
	default:
		return 0, desired, PayoutNone
	}
}
