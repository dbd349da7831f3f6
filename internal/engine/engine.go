package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// MaxCashbackBps верхняя граница кэшбэка, которую не может превысить администратор.
const MaxCashbackBps = 5000

// Params параметры движка. Кэшбэк и налог задаются в базисных пунктах.
type Params struct {
	BatchSize               uint64
	ProcessingInterval      time.Duration
	ImmediateCashbackBps    uint64
	SubscriptionCashbackBps uint64
	CancellationTaxBps      uint64
	Referrer                string
	ReserveAccount          string // токен-аккаунт движка, хранящий резерв
	TicketAccount           string // токен-аккаунт лотерейного сервиса (spender для allowance)
}

// Engine ядро движка подписок. Все мутирующие операции сериализуются одним
// мьютексом: ни одна пара операций не перемежает свои чтения и записи реестра
// или состояния батч-дня. Операции с внешними вызовами дополнительно ставят
// флаг inFlight: повторный вход из колбэка внешнего сервиса (та же горутина,
// мьютекс уже занят этой же операцией) отклоняется с ErrReentrancy вместо
// взаимоблокировки; конкурирующий вызов, заставший флаг, отклоняется так же.
type Engine struct {
	mu       sync.Mutex
	inFlight atomic.Bool
	registry *Registry
	sched    *Scheduler
	params   Params
	paused   bool

	tickets TicketService
	tokens  TokenService
	store   Store
	events  EventSink
	metrics Metrics
	log     *slog.Logger
	now     func() time.Time
}

// New создает движок с пустым реестром и первым батч-днём.
func New(params Params, tickets TicketService, tokens TokenService, store Store,
	events EventSink, metrics Metrics, log *slog.Logger) *Engine {
	now := time.Now
	return &Engine{
		registry: NewRegistry(),
		sched:    NewScheduler(params.BatchSize, params.ProcessingInterval, now()),
		params:   params,
		tickets:  tickets,
		tokens:   tokens,
		store:    store,
		events:   events,
		metrics:  metrics,
		log:      log,
		now:      now,
	}
}

// begin захватывает движок для операции с внешними вызовами. Флаг проверяется
// до мьютекса: вложенный вызов из колбэка TicketService/TokenService видит
// занятый движок и отклоняется, не доходя до взаимоблокировки на мьютексе.
func (e *Engine) begin() error {
	if e.inFlight.Load() {
		return ErrReentrancy
	}
	e.mu.Lock()
	e.inFlight.Store(true)
	return nil
}

func (e *Engine) end() {
	e.inFlight.Store(false)
	e.mu.Unlock()
}

// RestoreState восстанавливает реестр и состояние батч-дня из хранилища.
// Вызывается один раз при старте приложения, до приёма запросов.
func (e *Engine) RestoreState(ctx context.Context) error {
	const op = "engine.RestoreState"
	if e.store == nil {
		return nil
	}
	accounts, subs, state, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Restore(accounts, subs)
	if state != nil {
		e.sched.Restore(*state)
	}
	e.log.Info("engine state restored",
		slog.Int("subscribers", e.registry.Len()),
		slog.Uint64("batch_day", e.sched.CurrentDay()))
	return nil
}

// CreateSubscription оформляет подписку аккаунта. Если у аккаунта уже есть
// активная подписка, запрос проходит через слияние вместо создания дубликата.
// Стоимость списывается с аккаунта до фиксации изменений.
func (e *Engine) CreateSubscription(ctx context.Context, account string, req models.DummySubscription) (uint64, error) {
	const op = "engine.CreateSubscription"
	if req.TicketsPerDay == 0 {
		return 0, ErrZeroTickets
	}
	if req.Days == 0 {
		return 0, ErrZeroDays
	}

	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()
	if e.paused {
		return 0, ErrPaused
	}

	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	existing, found := e.registry.Get(account)
	if found && existing.IsActive {
		merged, cost, err := MergeUpgrade(existing, req.TicketsPerDay, req.Days, price)
		if err != nil {
			return 0, err
		}
		if cost > 0 {
			if err := e.tokens.TransferFrom(ctx, account, e.params.ReserveAccount, cost); err != nil {
				return 0, fmt.Errorf("%s: collect merge cost: %w", op, err)
			}
		}
		e.registry.Upsert(account, merged)
		e.persistSubscription(ctx, account, merged)
		e.emit(ctx, models.Event{Type: models.EventSubscriptionMerged, Account: account, Paid: cost})
		e.log.Info("subscription merged", slog.String("account", account), slog.Uint64("cost", cost))
		return cost, nil
	}

	cost, err := subscriptionCost(price, req.TicketsPerDay, req.Days)
	if err != nil {
		return 0, err
	}
	if err := e.tokens.TransferFrom(ctx, account, e.params.ReserveAccount, cost); err != nil {
		return 0, fmt.Errorf("%s: collect cost: %w", op, err)
	}

	sub := models.Subscription{
		TicketsPerDay: req.TicketsPerDay,
		DaysRemaining: req.Days,
		IsActive:      true,
	}
	if found {
		// Повторная подписка на неактивной записи: запись переиспользуется,
		// LastProcessedBatchDay сохраняется, чтобы не обработать аккаунт
		// дважды в том же дне.
		sub.LastProcessedBatchDay = existing.LastProcessedBatchDay
	}
	e.registry.Upsert(account, sub)
	e.registry.Append(account)
	e.persistSubscription(ctx, account, sub)
	e.persistRegistry(ctx)
	e.emit(ctx, models.Event{Type: models.EventSubscriptionCreated, Account: account, Paid: cost})
	e.metricsSubscriberCount()
	e.log.Info("subscription created",
		slog.String("account", account),
		slog.Uint64("tickets_per_day", req.TicketsPerDay),
		slog.Uint64("days", req.Days),
		slog.Uint64("cost", cost))
	return cost, nil
}

// Upgrade повышает параметры активной подписки через слияние остаточной
// ценности, собирая с аккаунта только доплату.
func (e *Engine) Upgrade(ctx context.Context, account string, req models.DummyUpgrade) (uint64, error) {
	const op = "engine.Upgrade"
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()
	if e.paused {
		return 0, ErrPaused
	}

	existing, found := e.registry.Get(account)
	if !found || !existing.IsActive {
		return 0, ErrNotSubscriber
	}

	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	merged, cost, err := MergeUpgrade(existing, req.NewTicketsPerDay, req.AdditionalDays, price)
	if err != nil {
		return 0, err
	}
	if cost > 0 {
		if err := e.tokens.TransferFrom(ctx, account, e.params.ReserveAccount, cost); err != nil {
			return 0, fmt.Errorf("%s: collect upgrade cost: %w", op, err)
		}
	}
	e.registry.Upsert(account, merged)
	e.persistSubscription(ctx, account, merged)
	e.emit(ctx, models.Event{Type: models.EventSubscriptionMerged, Account: account, Paid: cost})
	e.log.Info("subscription upgraded", slog.String("account", account), slog.Uint64("cost", cost))
	return cost, nil
}

// Cancel досрочно расторгает подписку и проводит расчёт: возврат пользователю
// старше налога реферера, при паузе налог не взимается. Подписка
// деактивируется до переводов, чтобы повторный вход не запустил расчёт снова.
func (e *Engine) Cancel(ctx context.Context, account string) (models.Settlement, error) {
	const op = "engine.Cancel"
	if err := e.begin(); err != nil {
		return models.Settlement{}, err
	}
	defer e.end()
	// Расторжение разрешено и на паузе: это аварийный выход пользователя.

	sub, found := e.registry.Get(account)
	if !found || !sub.IsActive || sub.DaysRemaining == 0 {
		return models.Settlement{}, ErrNotSubscriber
	}

	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("%s: %w", op, err)
	}
	available, err := e.tokens.BalanceOf(ctx, e.params.ReserveAccount)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("%s: reserve balance: %w", op, err)
	}

	plan, err := PlanSettlement(sub, price, e.params.CancellationTaxBps, available, e.paused)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("%s: %w", op, err)
	}

	cancelled := sub
	cancelled.IsActive = false
	cancelled.DaysRemaining = 0
	e.registry.Upsert(account, cancelled)

	if plan.RefundPaid > 0 {
		if err := e.tokens.Transfer(ctx, account, plan.RefundPaid); err != nil {
			// Перевод не состоялся — откатываем деактивацию, операция
			// не оставляет видимых изменений.
			e.registry.Upsert(account, sub)
			return models.Settlement{}, fmt.Errorf("%s: refund transfer: %w", op, err)
		}
	}
	if plan.TaxPaid > 0 {
		if err := e.tokens.Transfer(ctx, e.params.Referrer, plan.TaxPaid); err != nil {
			// Возврат уже ушёл пользователю, откат невозможен. Налог
			// считается невыплаченным и фиксируется в логе.
			e.log.Error("referrer tax transfer failed", slog.String("account", account), sl.Err(err))
			plan.TaxPaid = 0
		}
	}

	e.persistSubscription(ctx, account, cancelled)
	e.emitRefundShortfall(ctx, account, plan)
	e.emit(ctx, models.Event{
		Type:      models.EventSubscriptionCancel,
		Account:   account,
		Desired:   plan.TotalAmount,
		Paid:      plan.RefundPaid,
		Shortfall: plan.RefundTarget - plan.RefundPaid,
	})
	e.log.Info("subscription cancelled",
		slog.String("account", account),
		slog.Uint64("refund_paid", plan.RefundPaid),
		slog.Uint64("tax_paid", plan.TaxPaid))
	return models.Settlement{RefundPaid: plan.RefundPaid, TaxPaid: plan.TaxPaid}, nil
}

// PurchaseNow разовая покупка билетов с немедленным кэшбэком, без батча.
// Неудача внешней покупки откатывает всю операцию, включая списание.
func (e *Engine) PurchaseNow(ctx context.Context, payer string, amount uint64) (uint64, error) {
	const op = "engine.PurchaseNow"
	if amount > MaxAmount {
		return 0, ErrCostOverflow
	}
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()
	if e.paused {
		return 0, ErrPaused
	}

	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if amount < price {
		return 0, ErrAmountTooLow
	}

	if err := e.tokens.TransferFrom(ctx, payer, e.params.ReserveAccount, amount); err != nil {
		return 0, fmt.Errorf("%s: collect amount: %w", op, err)
	}
	if err := e.tickets.Purchase(ctx, e.params.Referrer, amount, payer); err != nil {
		if refundErr := e.tokens.Transfer(ctx, payer, amount); refundErr != nil {
			e.log.Error("rollback of immediate purchase failed",
				slog.String("payer", payer), sl.Err(refundErr))
		}
		return 0, fmt.Errorf("%s: ticket purchase: %w", op, err)
	}

	desired := bpsShare(amount, e.params.ImmediateCashbackBps)
	paid := e.payCashback(ctx, payer, desired)
	if e.metrics != nil {
		e.metrics.ImmediatePurchase()
	}
	e.emit(ctx, models.Event{Type: models.EventImmediatePurchase, Account: payer, Desired: amount, Paid: paid})
	e.log.Info("immediate purchase settled",
		slog.String("payer", payer),
		slog.Uint64("amount", amount),
		slog.Uint64("cashback_paid", paid))
	return paid, nil
}

// ProcessBatch обрабатывает один батч реестра в текущем батч-дне.
// Флаг батча ставится до итерации: повторный вызов отклоняется, даже если
// часть подписчиков не была обработана, поэтому обработка каждого подписчика
// независима и нечувствительна к порядку. Неудача покупки одного подписчика
// не прерывает остальных. Когда обработаны все батчи дня, счётчик дня
// увеличивается, флаги сбрасываются и реестр уплотняется.
func (e *Engine) ProcessBatch(ctx context.Context, batchIndex uint64) (models.BatchResult, error) {
	const op = "engine.ProcessBatch"
	if err := e.begin(); err != nil {
		return models.BatchResult{}, err
	}
	defer e.end()
	if e.paused {
		return models.BatchResult{}, ErrPaused
	}

	now := e.now()
	if err := e.sched.Gate(batchIndex, e.registry.Len(), now); err != nil {
		return models.BatchResult{}, fmt.Errorf("%s: batch %d: %w", op, batchIndex, err)
	}

	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return models.BatchResult{}, fmt.Errorf("%s: %w", op, err)
	}

	day := e.sched.CurrentDay()
	slice := e.registry.Slice(batchIndex, e.params.BatchSize)

	var eligible []string
	var overflowed []string
	var totalSpend uint64
	for _, account := range slice {
		sub, _ := e.registry.Get(account)
		if !sub.Eligible(day) {
			continue
		}
		amount, err := mulAmount(price, sub.TicketsPerDay)
		if err == nil {
			totalSpend, err = addAmount(totalSpend, amount)
		}
		if err != nil {
			// Расход не представим: подписчик пропускает день, как при
			// неудаче покупки, остальные обрабатываются.
			overflowed = append(overflowed, account)
			continue
		}
		eligible = append(eligible, account)
	}

	// Allowance выдаётся ровно на суммарную стоимость батча и снимается
	// после цикла: постоянного неограниченного разрешения не существует.
	if totalSpend > 0 {
		if err := e.tokens.Approve(ctx, e.params.TicketAccount, totalSpend); err != nil {
			return models.BatchResult{}, fmt.Errorf("%s: approve batch spend: %w", op, err)
		}
	}

	e.sched.MarkProcessed(batchIndex)

	result := models.BatchResult{
		BatchIndex:   batchIndex,
		SkippedCount: len(slice) - len(eligible) - len(overflowed),
	}
	for _, account := range overflowed {
		result.FailedCount++
		if e.metrics != nil {
			e.metrics.SubscriberFailed()
		}
		e.emit(ctx, models.Event{
			Type:       models.EventSubscriberFailed,
			Account:    account,
			BatchIndex: batchIndex,
			BatchDay:   day,
			Reason:     ErrCostOverflow.Error(),
		})
		e.log.Error("subscriber spend is not representable",
			slog.String("account", account),
			slog.Uint64("batch_index", batchIndex))
	}
	for _, account := range eligible {
		sub, _ := e.registry.Get(account)
		amount, _ := mulAmount(price, sub.TicketsPerDay)
		if err := e.tickets.Purchase(ctx, e.params.Referrer, amount, account); err != nil {
			// Подписчик пропускается до следующего дня, батч продолжается.
			result.FailedCount++
			if e.metrics != nil {
				e.metrics.SubscriberFailed()
			}
			e.emit(ctx, models.Event{
				Type:       models.EventSubscriberFailed,
				Account:    account,
				BatchIndex: batchIndex,
				BatchDay:   day,
				Desired:    amount,
				Reason:     err.Error(),
			})
			e.log.Error("subscriber purchase failed",
				slog.String("account", account),
				slog.Uint64("batch_index", batchIndex),
				slog.Uint64("amount", amount),
				sl.Err(err))
			continue
		}

		desired := bpsShare(amount, e.params.SubscriptionCashbackBps)
		e.payCashback(ctx, account, desired)

		sub.LastProcessedBatchDay = day
		sub.DaysRemaining--
		if sub.DaysRemaining == 0 {
			// Ленивая деактивация: запись остаётся до уплотнения.
			sub.IsActive = false
			e.emit(ctx, models.Event{Type: models.EventSubscriptionExpired, Account: account, BatchDay: day})
		}
		e.registry.Upsert(account, sub)
		e.persistSubscription(ctx, account, sub)

		result.ProcessedCount++
		if e.metrics != nil {
			e.metrics.SubscriberProcessed()
		}
		e.emit(ctx, models.Event{
			Type:       models.EventSubscriberProcessed,
			Account:    account,
			BatchIndex: batchIndex,
			BatchDay:   day,
			Paid:       amount,
		})
	}

	if totalSpend > 0 {
		if err := e.tokens.Approve(ctx, e.params.TicketAccount, 0); err != nil {
			e.log.Warn("failed to release batch allowance", sl.Err(err))
		}
	}

	if e.sched.AllBatchesProcessed(e.registry.Len()) {
		e.sched.AdvanceDay(now)
		removed := e.registry.Compact()
		e.persistRegistry(ctx)
		e.persistBatchState(ctx)
		result.DayAdvanced = true
		if e.metrics != nil {
			e.metrics.DayAdvanced(e.sched.CurrentDay())
		}
		e.metricsSubscriberCount()
		e.emit(ctx, models.Event{Type: models.EventBatchDayAdvanced, BatchDay: e.sched.CurrentDay()})
		e.log.Info("batch day advanced",
			slog.Uint64("day", e.sched.CurrentDay()),
			slog.Int("compacted", len(removed)))
	} else {
		e.persistBatchState(ctx)
	}

	result.CurrentBatchDay = e.sched.CurrentDay()
	e.log.Info("batch processed",
		slog.Uint64("batch_index", batchIndex),
		slog.Uint64("day", day),
		slog.Int("processed", result.ProcessedCount),
		slog.Int("failed", result.FailedCount),
		slog.Int("skipped", result.SkippedCount))
	return result, nil
}

// Fund пополняет резерв кэшбэка обычным переводом с аккаунта from.
func (e *Engine) Fund(ctx context.Context, from string, amount uint64) error {
	const op = "engine.Fund"
	if amount > MaxAmount {
		return ErrCostOverflow
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	if err := e.tokens.TransferFrom(ctx, from, e.params.ReserveAccount, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.emit(ctx, models.Event{Type: models.EventReserveFunded, Account: from, Paid: amount})
	e.log.Info("reserve funded", slog.String("from", from), slog.Uint64("amount", amount))
	return nil
}

// SetCashback задаёт проценты кэшбэка, ограниченные MaxCashbackBps.
func (e *Engine) SetCashback(immediateBps, subscriptionBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if immediateBps > MaxCashbackBps || subscriptionBps > MaxCashbackBps {
		return ErrCashbackTooHigh
	}
	e.params.ImmediateCashbackBps = immediateBps
	e.params.SubscriptionCashbackBps = subscriptionBps
	e.log.Info("cashback updated",
		slog.Uint64("immediate_bps", immediateBps),
		slog.Uint64("subscription_bps", subscriptionBps))
	return nil
}

// SetReferrer задаёт аккаунт реферера.
func (e *Engine) SetReferrer(account string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if account == "" {
		return ErrEmptyReferrer
	}
	e.params.Referrer = account
	e.log.Info("referrer updated", slog.String("account", account))
	return nil
}

// Pause останавливает все мутирующие операции, кроме расторжения.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.log.Warn("engine paused")
}

// Unpause возобновляет работу движка.
func (e *Engine) Unpause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.log.Info("engine unpaused")
}

// IsPaused сообщает, находится ли движок на паузе.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// GetSubscription возвращает подписку аккаунта.
func (e *Engine) GetSubscription(account string) (models.Subscription, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Get(account)
}

// HasActiveSubscription сообщает, есть ли у аккаунта активная подписка.
func (e *Engine) HasActiveSubscription(account string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.registry.Get(account)
	return ok && sub.IsActive
}

// SubscriberCount возвращает размер реестра, включая неактивные записи.
func (e *Engine) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// NumberOfBatches возвращает число батчей текущего реестра.
func (e *Engine) NumberOfBatches() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NumberOfBatches(e.params.BatchSize)
}

// BatchStatus возвращает копию состояния батч-дня.
func (e *Engine) BatchStatus() models.BatchDayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.State()
}

// CalculateSubscriptionCost считает полную стоимость новой подписки.
func (e *Engine) CalculateSubscriptionCost(ctx context.Context, ticketsPerDay, days uint64) (uint64, error) {
	const op = "engine.CalculateSubscriptionCost"
	if ticketsPerDay == 0 {
		return 0, ErrZeroTickets
	}
	if days == 0 {
		return 0, ErrZeroDays
	}
	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return subscriptionCost(price, ticketsPerDay, days)
}

// CalculateUpgradeCost считает доплату за апгрейд существующей подписки.
func (e *Engine) CalculateUpgradeCost(ctx context.Context, account string, newTicketsPerDay, additionalDays uint64) (uint64, error) {
	const op = "engine.CalculateUpgradeCost"
	e.mu.Lock()
	defer e.mu.Unlock()
	existing, found := e.registry.Get(account)
	if !found || !existing.IsActive {
		return 0, ErrNotSubscriber
	}
	price, err := e.tickets.TicketPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	_, cost, err := MergeUpgrade(existing, newTicketsPerDay, additionalDays, price)
	if err != nil {
		return 0, err
	}
	return cost, nil
}

// payCashback применяет политику выплат к кэшбэку: остаток резерва каждый раз
// запрашивается заново, недостача сигнализируется событием и не прерывает
// основную операцию. Возвращает фактически выплаченную сумму.
func (e *Engine) payCashback(ctx context.Context, account string, desired uint64) uint64 {
	if desired == 0 {
		return 0
	}
	available, err := e.tokens.BalanceOf(ctx, e.params.ReserveAccount)
	if err != nil {
		e.log.Error("reserve balance lookup failed", slog.String("account", account), sl.Err(err))
		e.emit(ctx, models.Event{Type: models.EventCashbackNone, Account: account, Desired: desired, Shortfall: desired, Reason: err.Error()})
		return 0
	}
	paid, shortfall, outcome := Disburse(desired, available)
	if paid > 0 {
		if err := e.tokens.Transfer(ctx, account, paid); err != nil {
			e.log.Error("cashback transfer failed", slog.String("account", account), sl.Err(err))
			e.emit(ctx, models.Event{Type: models.EventCashbackNone, Account: account, Desired: desired, Shortfall: desired, Reason: err.Error()})
			return 0
		}
	}
	switch outcome {
	case PayoutPartial:
		if e.metrics != nil {
			e.metrics.Shortfall("cashback")
		}
		e.emit(ctx, models.Event{Type: models.EventCashbackPartial, Account: account, Desired: desired, Paid: paid, Shortfall: shortfall})
		e.log.Warn("cashback paid partially",
			slog.String("account", account),
			slog.Uint64("paid", paid),
			slog.Uint64("shortfall", shortfall))
	case PayoutNone:
		if e.metrics != nil {
			e.metrics.Shortfall("cashback")
		}
		e.emit(ctx, models.Event{Type: models.EventCashbackNone, Account: account, Desired: desired, Shortfall: shortfall})
		e.log.Warn("cashback not paid, reserve is empty",
			slog.String("account", account),
			slog.Uint64("shortfall", shortfall))
	}
	return paid
}

func (e *Engine) emitRefundShortfall(ctx context.Context, account string, plan SettlementPlan) {
	if plan.RefundPaid >= plan.RefundTarget {
		return
	}
	shortfall := plan.RefundTarget - plan.RefundPaid
	eventType := models.EventRefundPartial
	if plan.RefundPaid == 0 {
		eventType = models.EventRefundNone
	}
	if e.metrics != nil {
		e.metrics.Shortfall("refund")
	}
	e.emit(ctx, models.Event{Type: eventType, Account: account, Desired: plan.RefundTarget, Paid: plan.RefundPaid, Shortfall: shortfall})
	e.log.Warn("refund underfunded",
		slog.String("account", account),
		slog.Uint64("paid", plan.RefundPaid),
		slog.Uint64("shortfall", shortfall))
}

func (e *Engine) emit(ctx context.Context, event models.Event) {
	if e.events == nil {
		return
	}
	event.ID = uuid.NewString()
	event.OccurredAt = e.now()
	if err := e.events.Emit(ctx, event); err != nil {
		e.log.Warn("failed to emit event", slog.String("type", string(event.Type)), sl.Err(err))
	}
}

func (e *Engine) persistSubscription(ctx context.Context, account string, sub models.Subscription) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveSubscription(ctx, account, sub); err != nil {
		e.log.Error("failed to persist subscription", slog.String("account", account), sl.Err(err))
	}
}

func (e *Engine) persistRegistry(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRegistry(ctx, e.registry.Accounts()); err != nil {
		e.log.Error("failed to persist registry", sl.Err(err))
	}
}

func (e *Engine) persistBatchState(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveBatchState(ctx, e.sched.State()); err != nil {
		e.log.Error("failed to persist batch state", sl.Err(err))
	}
}

func (e *Engine) metricsSubscriberCount() {
	if e.metrics != nil {
		e.metrics.SubscriberCount(e.registry.Len())
	}
}
