package engine

import "math/bits"

// MaxAmount верхняя граница денежных величин и счётчиков дней. Совпадает с
// ёмкостью BIGINT в хранилище: значения выше не могут быть ни сохранены,
// ни выплачены, поэтому отклоняются на входе, а не молча обрезаются.
const MaxAmount uint64 = 1<<63 - 1

// mulAmount перемножает две величины с контролем переполнения.
func mulAmount(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 || lo > MaxAmount {
		return 0, ErrCostOverflow
	}
	return lo, nil
}

// addAmount складывает две величины с контролем переполнения.
func addAmount(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a || sum > MaxAmount {
		return 0, ErrCostOverflow
	}
	return sum, nil
}

// subscriptionCost считает полную стоимость price * ticketsPerDay * days.
func subscriptionCost(price, ticketsPerDay, days uint64) (uint64, error) {
	perDay, err := mulAmount(price, ticketsPerDay)
	if err != nil {
		return 0, err
	}
	return mulAmount(perDay, days)
}

// bpsShare возвращает долю amount в базисных пунктах. Произведение считается
// в 128 битах, поэтому доля не переполняется ни при какой сумме; bps выше
// 10000 означает долю больше целого и обрезается до целого.
func bpsShare(amount, bps uint64) uint64 {
	if bps >= 10000 {
		return amount
	}
	hi, lo := bits.Mul64(amount, bps)
	share, _ := bits.Div64(hi, lo, 10000)
	return share
}
