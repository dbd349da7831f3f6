package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

func TestRegistry_AppendIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Append("acc-1")
	r.Append("acc-1")
	r.Append("acc-2")

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.IsSubscriber("acc-1"))
	assert.False(t, r.IsSubscriber("acc-3"))
}

func TestRegistry_Slice(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 7; i++ {
		r.Append(fmt.Sprintf("acc-%d", i))
	}

	assert.Len(t, r.Slice(0, 3), 3)
	assert.Len(t, r.Slice(1, 3), 3)
	assert.Len(t, r.Slice(2, 3), 1)
	assert.Empty(t, r.Slice(3, 3))
	assert.Equal(t, uint64(3), r.NumberOfBatches(3))
}

func TestRegistry_CompactRemovesInactive(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		account := fmt.Sprintf("acc-%d", i)
		r.Append(account)
		r.Upsert(account, models.Subscription{TicketsPerDay: 1, DaysRemaining: 1, IsActive: i%2 == 0})
	}

	removed := r.Compact()

	assert.ElementsMatch(t, []string{"acc-1", "acc-3"}, removed)
	assert.Equal(t, 3, r.Len())
	for _, account := range r.Accounts() {
		sub, ok := r.Get(account)
		require.True(t, ok)
		assert.True(t, sub.IsActive)
		assert.True(t, r.IsSubscriber(account))
	}
	// Порядок после уплотнения не сохраняется (swap-with-last), поэтому
	// проверяется только состав.
	assert.ElementsMatch(t, []string{"acc-0", "acc-2", "acc-4"}, r.Accounts())
}

func TestRegistry_CompactRecomputesBatches(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 250; i++ {
		account := fmt.Sprintf("acc-%d", i)
		r.Append(account)
		r.Upsert(account, models.Subscription{TicketsPerDay: 1, DaysRemaining: 1, IsActive: i < 150})
	}
	require.Equal(t, uint64(3), r.NumberOfBatches(100))

	r.Compact()

	assert.Equal(t, 150, r.Len())
	assert.Equal(t, uint64(2), r.NumberOfBatches(100))
}

func TestRegistry_Restore(t *testing.T) {
	subs := map[string]models.Subscription{
		"acc-1": {TicketsPerDay: 2, DaysRemaining: 3, IsActive: true},
		"acc-2": {TicketsPerDay: 1, DaysRemaining: 0},
	}
	r := NewRegistry()
	r.Restore([]string{"acc-1", "acc-2"}, subs)

	assert.Equal(t, []string{"acc-1", "acc-2"}, r.Accounts())
	got, ok := r.Get("acc-1")
	require.True(t, ok)
	assert.Equal(t, subs["acc-1"], got)
}
