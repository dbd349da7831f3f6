package engine

import "github.com/magabrotheeeer/ticket-subscription-engine/internal/models"

// SettlementPlan рассчитанные суммы расторжения: целевые значения возврата
// и налога и фактические выплаты с учётом доступного остатка.
type SettlementPlan struct {
	TotalAmount  uint64
	RefundTarget uint64
	TaxTarget    uint64
	RefundPaid   uint64
	TaxPaid      uint64
}

// PlanSettlement рассчитывает возврат и налог при досрочном расторжении.
// Остаточная стоимость подписки возвращается пользователю за вычетом налога
// реферера; при аварийном расторжении (глобальная пауза) налог не взимается.
// При нехватке средств возврат пользователю старше налога: сначала полностью
// гасится возврат, остаток идёт в налог, и только потом — ничего.
func PlanSettlement(sub models.Subscription, ticketPrice, taxBps, availableBalance uint64, isEmergency bool) (SettlementPlan, error) {
	total, err := subscriptionCost(ticketPrice, sub.TicketsPerDay, sub.DaysRemaining)
	if err != nil {
		return SettlementPlan{}, err
	}

	plan := SettlementPlan{TotalAmount: total}
	if isEmergency {
		plan.RefundTarget = total
	} else {
		plan.TaxTarget = bpsShare(total, taxBps)
		plan.RefundTarget = total - plan.TaxTarget
	}

	switch {
	case availableBalance >= total:
		plan.RefundPaid = plan.RefundTarget
		plan.TaxPaid = plan.TaxTarget
	case availableBalance >= plan.RefundTarget:
		plan.RefundPaid = plan.RefundTarget
		plan.TaxPaid = availableBalance - plan.RefundTarget
	default:
		plan.RefundPaid = availableBalance
	}
	return plan, nil
}
