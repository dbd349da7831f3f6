package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

func TestPlanSettlement(t *testing.T) {
	sub := models.Subscription{TicketsPerDay: 2, DaysRemaining: 5, IsActive: true}

	tests := []struct {
		name        string
		price       uint64
		taxBps      uint64
		available   uint64
		isEmergency bool
		want        SettlementPlan
	}{
		{
			name:      "full funds pay both targets exactly",
			price:     1_000_000,
			taxBps:    2000,
			available: 50_000_000,
			want: SettlementPlan{
				TotalAmount:  10_000_000,
				RefundTarget: 8_000_000,
				TaxTarget:    2_000_000,
				RefundPaid:   8_000_000,
				TaxPaid:      2_000_000,
			},
		},
		{
			name:      "balance covers refund, remainder goes to tax",
			price:     1_000_000,
			taxBps:    2000,
			available: 9_000_000,
			want: SettlementPlan{
				TotalAmount:  10_000_000,
				RefundTarget: 8_000_000,
				TaxTarget:    2_000_000,
				RefundPaid:   8_000_000,
				TaxPaid:      1_000_000,
			},
		},
		{
			name:      "balance below refund goes entirely to user",
			price:     1_000_000,
			taxBps:    2000,
			available: 3_000_000,
			want: SettlementPlan{
				TotalAmount:  10_000_000,
				RefundTarget: 8_000_000,
				TaxTarget:    2_000_000,
				RefundPaid:   3_000_000,
				TaxPaid:      0,
			},
		},
		{
			name:      "empty reserve pays nothing",
			price:     1_000_000,
			taxBps:    2000,
			available: 0,
			want: SettlementPlan{
				TotalAmount:  10_000_000,
				RefundTarget: 8_000_000,
				TaxTarget:    2_000_000,
			},
		},
		{
			name:        "emergency cancellation waives tax",
			price:       1_000_000,
			taxBps:      2000,
			available:   50_000_000,
			isEmergency: true,
			want: SettlementPlan{
				TotalAmount:  10_000_000,
				RefundTarget: 10_000_000,
				RefundPaid:   10_000_000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSettlement(sub, tt.price, tt.taxBps, tt.available, tt.isEmergency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan)
			// Возврат пользователю старше налога: налог платится только
			// после полного возврата.
			if plan.TaxPaid > 0 {
				assert.Equal(t, plan.RefundTarget, plan.RefundPaid)
			}
		})
	}
}

func TestPlanSettlement_OverflowRejected(t *testing.T) {
	// Остаточная стоимость не представима при выросшей цене билета.
	sub := models.Subscription{TicketsPerDay: 1 << 32, DaysRemaining: 1 << 32, IsActive: true}

	_, err := PlanSettlement(sub, 100, 2000, 1_000_000, false)
	assert.ErrorIs(t, err, ErrCostOverflow)
}
