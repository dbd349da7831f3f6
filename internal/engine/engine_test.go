package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

const (
	reserveAccount = "reserve"
	ticketAccount  = "lottery"
	referrer       = "referrer"
)

type purchaseCall struct {
	referrer  string
	amount    uint64
	recipient string
}

// fakeTickets имитация внешнего лотерейного сервиса.
type fakeTickets struct {
	price     uint64
	priceErr  error
	purchases []purchaseCall
	failFor   map[string]error // recipient -> ошибка покупки
}

func (f *fakeTickets) TicketPrice(_ context.Context) (uint64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func (f *fakeTickets) Purchase(_ context.Context, ref string, amount uint64, recipient string) error {
	if err := f.failFor[recipient]; err != nil {
		return err
	}
	f.purchases = append(f.purchases, purchaseCall{referrer: ref, amount: amount, recipient: recipient})
	return nil
}

// fakeTokens имитация токен-банка с настоящими балансами: перевод либо
// проходит целиком, либо не двигает средства вовсе.
type fakeTokens struct {
	balances   map[string]uint64
	allowances []uint64 // история Approve для ticketAccount
	failFor    map[string]error
	approveErr error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{balances: make(map[string]uint64), failFor: make(map[string]error)}
}

func (f *fakeTokens) BalanceOf(_ context.Context, account string) (uint64, error) {
	return f.balances[account], nil
}

func (f *fakeTokens) Transfer(_ context.Context, to string, amount uint64) error {
	return f.move(reserveAccount, to, amount)
}

func (f *fakeTokens) TransferFrom(_ context.Context, from, to string, amount uint64) error {
	return f.move(from, to, amount)
}

func (f *fakeTokens) Approve(_ context.Context, spender string, amount uint64) error {
	if f.approveErr != nil {
		return f.approveErr
	}
	if spender == ticketAccount {
		f.allowances = append(f.allowances, amount)
	}
	return nil
}

func (f *fakeTokens) move(from, to string, amount uint64) error {
	if err := f.failFor[from]; err != nil {
		return err
	}
	if err := f.failFor[to]; err != nil {
		return err
	}
	if f.balances[from] < amount {
		return fmt.Errorf("insufficient balance of %s", from)
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	return nil
}

// sinkRecorder накапливает события движка.
type sinkRecorder struct {
	events []models.Event
}

func (s *sinkRecorder) Emit(_ context.Context, event models.Event) error {
	s.events = append(s.events, event)
	return nil
}

func (s *sinkRecorder) ofType(t models.EventType) []models.Event {
	var out []models.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testParams() Params {
	return Params{
		BatchSize:               100,
		ProcessingInterval:      24 * time.Hour,
		ImmediateCashbackBps:    500,
		SubscriptionCashbackBps: 300,
		CancellationTaxBps:      2000,
		Referrer:                referrer,
		ReserveAccount:          reserveAccount,
		TicketAccount:           ticketAccount,
	}
}

func newTestEngine(t *testing.T, params Params, tickets *fakeTickets, tokens *fakeTokens) (*Engine, *sinkRecorder) {
	t.Helper()
	sink := &sinkRecorder{}
	e := New(params, tickets, tokens, nil, sink, nil, newNoopLogger())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }
	e.sched = NewScheduler(params.BatchSize, params.ProcessingInterval, base.Add(-params.ProcessingInterval))
	return e, sink
}

// advanceClock сдвигает время движка вперёд.
func advanceClock(e *Engine, d time.Duration) {
	current := e.now()
	e.now = func() time.Time { return current.Add(d) }
}

func TestEngine_CreateSubscription(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 100_000_000
	e, sink := newTestEngine(t, testParams(), tickets, tokens)

	cost, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000), cost)
	assert.Equal(t, uint64(90_000_000), tokens.balances["alice"])
	assert.Equal(t, uint64(10_000_000), tokens.balances[reserveAccount])
	assert.True(t, e.HasActiveSubscription("alice"))
	assert.Equal(t, 1, e.SubscriberCount())
	assert.Len(t, sink.ofType(models.EventSubscriptionCreated), 1)
}

func TestEngine_CreateSubscription_MergesForActiveSubscriber(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 100_000
	e, sink := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	// Повторное создание не плодит вторую запись, а доплачивает разницу.
	cost, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 3, Days: 5})
	require.NoError(t, err)

	assert.Equal(t, uint64(3*10*100-2*5*100), cost)
	assert.Equal(t, 1, e.SubscriberCount())
	sub, ok := e.GetSubscription("alice")
	require.True(t, ok)
	assert.Equal(t, uint64(3), sub.TicketsPerDay)
	assert.Equal(t, uint64(10), sub.DaysRemaining)
	assert.Len(t, sink.ofType(models.EventSubscriptionMerged), 1)

	// Понижение количества билетов при слиянии отклоняется.
	_, err = e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 1, Days: 1})
	assert.ErrorIs(t, err, ErrDowngrade)
}

func TestEngine_CreateSubscription_InsufficientBalance(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 10
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 1, Days: 1})
	require.Error(t, err)
	// Ничего не изменилось: ни записи, ни списания.
	assert.False(t, e.HasActiveSubscription("alice"))
	assert.Equal(t, uint64(10), tokens.balances["alice"])
}

func TestEngine_CreateSubscription_CostOverflowRejected(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["mallory"] = 1
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	// Произведение цены, билетов и дней переполняет uint64: без проверки
	// стоимость свернулась бы в ноль и подписка досталась бы даром.
	_, err := e.CreateSubscription(context.Background(), "mallory",
		models.DummySubscription{TicketsPerDay: 1 << 32, Days: 1 << 32})
	require.ErrorIs(t, err, ErrCostOverflow)

	assert.False(t, e.HasActiveSubscription("mallory"))
	assert.Equal(t, uint64(1), tokens.balances["mallory"])
	assert.Zero(t, tokens.balances[reserveAccount])

	_, err = e.CalculateSubscriptionCost(context.Background(), 1<<32, 1<<32)
	assert.ErrorIs(t, err, ErrCostOverflow)
}

func TestEngine_AmountAboveCapRejected(t *testing.T) {
	tokens := newFakeTokens()
	tokens.balances["alice"] = 10
	e, _ := newTestEngine(t, testParams(), &fakeTickets{price: 100}, tokens)

	// Суммы выше MaxAmount не принимаются даже при достаточном балансе
	// у фальшивого токен-банка.
	_, err := e.PurchaseNow(context.Background(), "alice", MaxAmount+1)
	assert.ErrorIs(t, err, ErrCostOverflow)
	assert.ErrorIs(t, e.Fund(context.Background(), "alice", MaxAmount+1), ErrCostOverflow)
	assert.Equal(t, uint64(10), tokens.balances["alice"])
}

func TestEngine_Upgrade(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 100_000
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.Upgrade(context.Background(), "alice", models.DummyUpgrade{NewTicketsPerDay: 2})
	assert.ErrorIs(t, err, ErrNotSubscriber)

	_, err = e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	gotCost, err := e.CalculateUpgradeCost(context.Background(), "alice", 4, 2)
	require.NoError(t, err)
	paid, err := e.Upgrade(context.Background(), "alice", models.DummyUpgrade{NewTicketsPerDay: 4, AdditionalDays: 2})
	require.NoError(t, err)
	assert.Equal(t, gotCost, paid)

	sub, _ := e.GetSubscription("alice")
	assert.Equal(t, uint64(4), sub.TicketsPerDay)
	assert.Equal(t, uint64(7), sub.DaysRemaining)
}

func TestEngine_Cancel(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 20_000_000
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	settlement, err := e.Cancel(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, uint64(8_000_000), settlement.RefundPaid)
	assert.Equal(t, uint64(2_000_000), settlement.TaxPaid)
	assert.Equal(t, uint64(18_000_000), tokens.balances["alice"])
	assert.Equal(t, uint64(2_000_000), tokens.balances[referrer])
	assert.False(t, e.HasActiveSubscription("alice"))

	// Повторное расторжение отклоняется: подписка уже деактивирована.
	_, err = e.Cancel(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotSubscriber)
}

func TestEngine_Cancel_UnderPauseWaivesTax(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 20_000_000
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	e.Pause()

	// Создание на паузе запрещено, расторжение — нет.
	_, err = e.CreateSubscription(context.Background(), "bob", models.DummySubscription{TicketsPerDay: 1, Days: 1})
	assert.ErrorIs(t, err, ErrPaused)

	settlement, err := e.Cancel(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), settlement.RefundPaid)
	assert.Zero(t, settlement.TaxPaid)
}

func TestEngine_Cancel_PartialRefundShortfall(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 10_000_000
	e, sink := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	// Резерв опустошается до расторжения.
	require.NoError(t, tokens.move(reserveAccount, "drain", 7_000_000))

	settlement, err := e.Cancel(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000), settlement.RefundPaid)
	assert.Zero(t, settlement.TaxPaid)
	require.Len(t, sink.ofType(models.EventRefundPartial), 1)
	shortfall := sink.ofType(models.EventRefundPartial)[0]
	assert.Equal(t, uint64(5_000_000), shortfall.Shortfall)
}

func TestEngine_Cancel_RefundTransferFailureRollsBack(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 20_000_000
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.CreateSubscription(context.Background(), "alice", models.DummySubscription{TicketsPerDay: 2, Days: 5})
	require.NoError(t, err)

	tokens.failFor["alice"] = errors.New("token service unavailable")
	_, err = e.Cancel(context.Background(), "alice")
	require.Error(t, err)

	// Деактивация откатилась: подписка по-прежнему активна.
	assert.True(t, e.HasActiveSubscription("alice"))
	sub, _ := e.GetSubscription("alice")
	assert.Equal(t, uint64(5), sub.DaysRemaining)
}

func TestEngine_PurchaseNow(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 10_000_000
	e, sink := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.PurchaseNow(context.Background(), "alice", 500)
	assert.ErrorIs(t, err, ErrAmountTooLow)

	paid, err := e.PurchaseNow(context.Background(), "alice", 2_000_000)
	require.NoError(t, err)

	// Кэшбэк 5% от суммы, из резерва, пополненного самой покупкой.
	assert.Equal(t, uint64(100_000), paid)
	assert.Equal(t, uint64(8_100_000), tokens.balances["alice"])
	require.Len(t, tickets.purchases, 1)
	assert.Equal(t, purchaseCall{referrer: referrer, amount: 2_000_000, recipient: "alice"}, tickets.purchases[0])
	assert.Len(t, sink.ofType(models.EventImmediatePurchase), 1)
}

func TestEngine_PurchaseNow_FailureRollsBackPayment(t *testing.T) {
	tickets := &fakeTickets{price: 1_000_000, failFor: map[string]error{"alice": errors.New("lottery is closed")}}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 10_000_000
	e, _ := newTestEngine(t, testParams(), tickets, tokens)

	_, err := e.PurchaseNow(context.Background(), "alice", 2_000_000)
	require.Error(t, err)

	// Списание возвращено, билетов нет.
	assert.Equal(t, uint64(10_000_000), tokens.balances["alice"])
	assert.Empty(t, tickets.purchases)
}

func subscribeMany(t *testing.T, e *Engine, tokens *fakeTokens, n int, ticketsPerDay, days uint64) {
	t.Helper()
	for i := 0; i < n; i++ {
		account := fmt.Sprintf("acc-%d", i)
		tokens.balances[account] = 1_000_000_000
		_, err := e.CreateSubscription(context.Background(), account, models.DummySubscription{TicketsPerDay: ticketsPerDay, Days: days})
		require.NoError(t, err)
	}
}

func TestEngine_ProcessBatch_DayAdvancesOnceAfterAllBatches(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 250, 1, 10)
	require.Equal(t, uint64(3), e.NumberOfBatches())

	require.Equal(t, uint64(1), e.BatchStatus().CurrentBatchDay)

	res0, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, res0.DayAdvanced)
	assert.Equal(t, 100, res0.ProcessedCount)

	res1, err := e.ProcessBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, res1.DayAdvanced)

	res2, err := e.ProcessBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, res2.DayAdvanced)
	assert.Equal(t, 50, res2.ProcessedCount)

	// День увеличился ровно один раз, флаги сброшены.
	status := e.BatchStatus()
	assert.Equal(t, uint64(2), status.CurrentBatchDay)
	assert.Empty(t, status.BatchProcessed)
}

func TestEngine_ProcessBatch_SecondCallSameDayRejected(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 250, 1, 10)

	_, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	before, _ := e.GetSubscription("acc-0")
	purchasesBefore := len(tickets.purchases)

	_, err = e.ProcessBatch(context.Background(), 0)
	require.ErrorIs(t, err, ErrBatchAlreadyProcessed)

	// Отклонённый вызов не тронул ни подписку, ни внешний сервис.
	after, _ := e.GetSubscription("acc-0")
	assert.Equal(t, before, after)
	assert.Equal(t, purchasesBefore, len(tickets.purchases))
}

func TestEngine_ProcessBatch_TimeGateOnNewDay(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 50, 1, 10)

	_, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	// Новый день начинается только спустя интервал обработки.
	_, err = e.ProcessBatch(context.Background(), 0)
	require.ErrorIs(t, err, ErrDayTooSoon)

	advanceClock(e, 24*time.Hour)
	res, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, res.ProcessedCount)
}

func TestEngine_ProcessBatch_SubscriberStateAfterProcessing(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 1, 2, 5)

	_, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	sub, _ := e.GetSubscription("acc-0")
	assert.Equal(t, uint64(4), sub.DaysRemaining)
	assert.Equal(t, uint64(1), sub.LastProcessedBatchDay)
	assert.True(t, sub.IsActive)

	// Покупка на цену*билетов, кэшбэк 3% вернулся подписчику.
	require.Len(t, tickets.purchases, 1)
	assert.Equal(t, uint64(200), tickets.purchases[0].amount)
}

func TestEngine_ProcessBatch_LastDayDeactivatesAndCompacts(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, sink := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 1, 1, 1)

	res, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, res.DayAdvanced)

	// Последний день: деактивация и уплотнение на границе дня.
	assert.False(t, e.HasActiveSubscription("acc-0"))
	assert.Equal(t, 0, e.SubscriberCount())
	assert.Equal(t, uint64(0), e.NumberOfBatches())
	assert.Len(t, sink.ofType(models.EventSubscriptionExpired), 1)
}

func TestEngine_ProcessBatch_ZeroEligibleStillCountsTowardsDay(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 150, 1, 5)

	// Второй батч целиком деактивируется расторжениями, но до уплотнения
	// остаётся в реестре и обязан быть вызван для завершения дня.
	for i := 100; i < 150; i++ {
		_, err := e.Cancel(context.Background(), fmt.Sprintf("acc-%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(2), e.NumberOfBatches())

	res0, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 100, res0.ProcessedCount)
	assert.False(t, res0.DayAdvanced)

	res1, err := e.ProcessBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res1.ProcessedCount)
	assert.Equal(t, 50, res1.SkippedCount)
	assert.True(t, res1.DayAdvanced)

	// Уплотнение на границе дня выкинуло расторгнутые записи.
	assert.Equal(t, 100, e.SubscriberCount())
	assert.Equal(t, uint64(1), e.NumberOfBatches())
}

func TestEngine_ProcessBatch_FailedSubscriberDoesNotAbortBatch(t *testing.T) {
	tickets := &fakeTickets{price: 100, failFor: map[string]error{"acc-1": errors.New("purchase rejected")}}
	tokens := newFakeTokens()
	e, sink := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 3, 1, 5)

	res, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, res.ProcessedCount)
	assert.Equal(t, 1, res.FailedCount)
	require.Len(t, sink.ofType(models.EventSubscriberFailed), 1)
	assert.Equal(t, "acc-1", sink.ofType(models.EventSubscriberFailed)[0].Account)

	// Известная особенность: батч остаётся помеченным, неудавшийся
	// подписчик пропускает день целиком.
	_, err = e.ProcessBatch(context.Background(), 0)
	assert.ErrorIs(t, err, ErrBatchAlreadyProcessed)
	failed, _ := e.GetSubscription("acc-1")
	assert.Equal(t, uint64(5), failed.DaysRemaining)
	assert.Zero(t, failed.LastProcessedBatchDay)
}

func TestEngine_ProcessBatch_UnrepresentableSpendFailsOnlyThatSubscriber(t *testing.T) {
	// Запись с непредставимым дневным расходом попадает в реестр только через
	// восстановление из хранилища: оформление такую подписку не пропустит.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &storeStub{
		accounts: []string{"acc-0", "acc-1"},
		subs: map[string]models.Subscription{
			"acc-0": {TicketsPerDay: 1, DaysRemaining: 5, IsActive: true},
			"acc-1": {TicketsPerDay: 1 << 60, DaysRemaining: 5, IsActive: true},
		},
		state: &models.BatchDayState{
			CurrentBatchDay:    1,
			LastBatchTimestamp: base.Add(-24 * time.Hour),
			BatchProcessed:     map[uint64]bool{},
		},
	}
	tickets := &fakeTickets{price: 100}
	sink := &sinkRecorder{}
	e := New(testParams(), tickets, newFakeTokens(), store, sink, nil, newNoopLogger())
	e.now = func() time.Time { return base }
	require.NoError(t, e.RestoreState(context.Background()))

	res, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, 1, res.FailedCount)
	require.Len(t, sink.ofType(models.EventSubscriberFailed), 1)
	failed := sink.ofType(models.EventSubscriberFailed)[0]
	assert.Equal(t, "acc-1", failed.Account)
	assert.Equal(t, ErrCostOverflow.Error(), failed.Reason)

	// Здоровый подписчик обработан, переполнившийся пропустил день без списаний.
	healthy, _ := e.GetSubscription("acc-0")
	assert.Equal(t, uint64(4), healthy.DaysRemaining)
	skipped, _ := e.GetSubscription("acc-1")
	assert.Equal(t, uint64(5), skipped.DaysRemaining)
	require.Len(t, tickets.purchases, 1)
	assert.Equal(t, "acc-0", tickets.purchases[0].recipient)
}

func TestEngine_ProcessBatch_AllowanceScopedToBatchSpend(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 3, 2, 5)

	_, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	// Allowance выдан ровно на суммарный расход батча и снят после него.
	require.Equal(t, []uint64{600, 0}, tokens.allowances)
}

func TestEngine_ProcessBatch_ApproveFailureLeavesFlagUnset(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 3, 1, 5)

	tokens.approveErr = errors.New("token service unavailable")
	_, err := e.ProcessBatch(context.Background(), 0)
	require.Error(t, err)

	// Вызов не состоялся целиком: флаг не поставлен, повтор возможен.
	tokens.approveErr = nil
	res, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ProcessedCount)
}

func TestEngine_ProcessBatch_CashbackShortfallSignals(t *testing.T) {
	params := testParams()
	params.SubscriptionCashbackBps = 10000 // кэшбэк равен расходу, резерв заведомо мал
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, sink := newTestEngine(t, params, tickets, tokens)
	subscribeMany(t, e, tokens, 2, 1, 5)

	// Резерв почти пуст: первого подписчика хватает частично, второго — нет.
	require.NoError(t, tokens.move(reserveAccount, "drain", tokens.balances[reserveAccount]-40))

	res, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)

	// Недостача не мешает обработке.
	assert.Equal(t, 2, res.ProcessedCount)
	assert.Len(t, sink.ofType(models.EventCashbackPartial), 1)
	assert.Len(t, sink.ofType(models.EventCashbackNone), 1)
}

func TestEngine_ProcessBatch_PausedRejected(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 3, 1, 5)

	e.Pause()
	_, err := e.ProcessBatch(context.Background(), 0)
	assert.ErrorIs(t, err, ErrPaused)

	e.Unpause()
	_, err = e.ProcessBatch(context.Background(), 0)
	assert.NoError(t, err)
}

func TestEngine_ProcessBatch_OutOfRange(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 50, 1, 5)

	_, err := e.ProcessBatch(context.Background(), 1)
	assert.ErrorIs(t, err, ErrBatchOutOfRange)
}

func TestEngine_AdminSetters(t *testing.T) {
	e, _ := newTestEngine(t, testParams(), &fakeTickets{price: 100}, newFakeTokens())

	assert.ErrorIs(t, e.SetCashback(MaxCashbackBps+1, 0), ErrCashbackTooHigh)
	assert.NoError(t, e.SetCashback(1000, 500))
	assert.ErrorIs(t, e.SetReferrer(""), ErrEmptyReferrer)
	assert.NoError(t, e.SetReferrer("new-referrer"))
}

func TestEngine_Fund(t *testing.T) {
	tokens := newFakeTokens()
	tokens.balances["treasury"] = 1_000_000
	e, sink := newTestEngine(t, testParams(), &fakeTickets{price: 100}, tokens)

	require.NoError(t, e.Fund(context.Background(), "treasury", 400_000))
	assert.Equal(t, uint64(400_000), tokens.balances[reserveAccount])
	assert.Len(t, sink.ofType(models.EventReserveFunded), 1)
}

// reentrantTickets лотерейный сервис, который из Purchase зовёт движок
// обратно той же горутиной.
type reentrantTickets struct {
	fakeTickets
	engine   *Engine
	innerErr error
}

func (f *reentrantTickets) Purchase(ctx context.Context, ref string, amount uint64, recipient string) error {
	_, f.innerErr = f.engine.Cancel(ctx, recipient)
	return f.fakeTickets.Purchase(ctx, ref, amount, recipient)
}

func TestEngine_ReentrantCallbackRejected(t *testing.T) {
	tickets := &reentrantTickets{fakeTickets: fakeTickets{price: 1_000_000}}
	tokens := newFakeTokens()
	tokens.balances["alice"] = 10_000_000
	sink := &sinkRecorder{}
	e := New(testParams(), tickets, tokens, nil, sink, nil, newNoopLogger())
	tickets.engine = e

	paid, err := e.PurchaseNow(context.Background(), "alice", 2_000_000)
	require.NoError(t, err)

	// Вложенный вызов отклонён без взаимоблокировки, внешняя операция
	// завершилась как обычно.
	require.ErrorIs(t, tickets.innerErr, ErrReentrancy)
	assert.Equal(t, uint64(100_000), paid)
	require.Len(t, tickets.purchases, 1)
	assert.Len(t, sink.ofType(models.EventImmediatePurchase), 1)
}

func TestEngine_ResubscribeAfterExpiry(t *testing.T) {
	tickets := &fakeTickets{price: 100}
	tokens := newFakeTokens()
	e, _ := newTestEngine(t, testParams(), tickets, tokens)
	subscribeMany(t, e, tokens, 1, 1, 1)

	_, err := e.ProcessBatch(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, e.HasActiveSubscription("acc-0"))

	// Повторная подписка после исчерпания: свежий срок, аккаунт снова в реестре.
	_, err = e.CreateSubscription(context.Background(), "acc-0", models.DummySubscription{TicketsPerDay: 3, Days: 7})
	require.NoError(t, err)
	sub, _ := e.GetSubscription("acc-0")
	assert.Equal(t, uint64(3), sub.TicketsPerDay)
	assert.Equal(t, uint64(7), sub.DaysRemaining)
	assert.True(t, sub.IsActive)
	assert.Equal(t, 1, e.SubscriberCount())
}

func TestEngine_RestoreState(t *testing.T) {
	store := &storeStub{
		accounts: []string{"acc-0", "acc-1"},
		subs: map[string]models.Subscription{
			"acc-0": {TicketsPerDay: 2, DaysRemaining: 3, LastProcessedBatchDay: 4, IsActive: true},
			"acc-1": {TicketsPerDay: 1, DaysRemaining: 0, LastProcessedBatchDay: 5},
		},
		state: &models.BatchDayState{
			CurrentBatchDay:    5,
			LastBatchTimestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			BatchProcessed:     map[uint64]bool{0: true},
		},
	}
	e := New(testParams(), &fakeTickets{price: 100}, newFakeTokens(), store, nil, nil, newNoopLogger())

	require.NoError(t, e.RestoreState(context.Background()))

	assert.Equal(t, 2, e.SubscriberCount())
	assert.True(t, e.HasActiveSubscription("acc-0"))
	status := e.BatchStatus()
	assert.Equal(t, uint64(5), status.CurrentBatchDay)
	assert.True(t, status.BatchProcessed[0])
}

// storeStub минимальная реализация Store для теста восстановления.
type storeStub struct {
	accounts []string
	subs     map[string]models.Subscription
	state    *models.BatchDayState
}

func (s *storeStub) SaveSubscription(context.Context, string, models.Subscription) error { return nil }
func (s *storeStub) SaveRegistry(context.Context, []string) error                        { return nil }
func (s *storeStub) SaveBatchState(context.Context, models.BatchDayState) error          { return nil }
func (s *storeStub) Load(context.Context) ([]string, map[string]models.Subscription, *models.BatchDayState, error) {
	return s.accounts, s.subs, s.state, nil
}
