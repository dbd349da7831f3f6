package engine

import "github.com/magabrotheeeer/ticket-subscription-engine/internal/models"

// MergeUpgrade объединяет параметры новой покупки с остаточной экономической
// ценностью существующей подписки вместо создания второй записи.
// Количество билетов в день может только расти; доплата равна разнице между
// новой и текущей ценностью и никогда не бывает отрицательной.
// Поля LastProcessedBatchDay и IsActive слияние не затрагивает.
func MergeUpgrade(existing models.Subscription, newTicketsPerDay, additionalDays, ticketPrice uint64) (models.Subscription, uint64, error) {
	if newTicketsPerDay == 0 {
		return models.Subscription{}, 0, ErrZeroTickets
	}
	if newTicketsPerDay < existing.TicketsPerDay {
		return models.Subscription{}, 0, ErrDowngrade
	}

	currentValue, err := subscriptionCost(ticketPrice, existing.TicketsPerDay, existing.DaysRemaining)
	if err != nil {
		return models.Subscription{}, 0, err
	}
	totalDays, err := addAmount(existing.DaysRemaining, additionalDays)
	if err != nil {
		return models.Subscription{}, 0, err
	}
	newValue, err := subscriptionCost(ticketPrice, newTicketsPerDay, totalDays)
	if err != nil {
		return models.Subscription{}, 0, err
	}

	var additionalCost uint64
	if newValue > currentValue {
		additionalCost = newValue - currentValue
	}

	merged := existing
	merged.TicketsPerDay = newTicketsPerDay
	merged.DaysRemaining = totalDays
	return merged, additionalCost, nil
}
