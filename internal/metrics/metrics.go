// Package metrics содержит счётчики движка для prometheus.
// Реализует интерфейс engine.Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор метрик движка. Регистрируется в переданном Registerer,
// чтобы тесты могли использовать изолированные реестры.
type Metrics struct {
	subscribersProcessed prometheus.Counter
	subscribersFailed    prometheus.Counter
	shortfalls           *prometheus.CounterVec
	immediatePurchases   prometheus.Counter
	daysAdvanced         prometheus.Counter
	currentBatchDay      prometheus.Gauge
	subscriberCount      prometheus.Gauge
}

// New создает и регистрирует метрики движка.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		subscribersProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_subscribers_processed_total",
			Help: "Количество успешно обработанных подписчиков.",
		}),
		subscribersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_subscribers_failed_total",
			Help: "Количество подписчиков с неудавшейся покупкой билетов.",
		}),
		shortfalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_payout_shortfalls_total",
			Help: "Количество выплат с недостачей средств.",
		}, []string{"kind"}),
		immediatePurchases: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_immediate_purchases_total",
			Help: "Количество разовых покупок билетов.",
		}),
		daysAdvanced: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_batch_days_advanced_total",
			Help: "Количество завершённых батч-дней.",
		}),
		currentBatchDay: factory.NewGauge(prometheus.GaugeOpts{
			Name: "engine_current_batch_day",
			Help: "Номер текущего батч-дня.",
		}),
		subscriberCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "engine_subscriber_count",
			Help: "Размер реестра подписчиков, включая неактивные записи.",
		}),
	}
}

// SubscriberProcessed учитывает успешно обработанного подписчика.
func (m *Metrics) SubscriberProcessed() {
	m.subscribersProcessed.Inc()
}

// SubscriberFailed учитывает подписчика с неудавшейся покупкой.
func (m *Metrics) SubscriberFailed() {
	m.subscribersFailed.Inc()
}

// Shortfall учитывает недостачу выплаты указанного вида ("cashback", "refund").
func (m *Metrics) Shortfall(kind string) {
	m.shortfalls.WithLabelValues(kind).Inc()
}

// ImmediatePurchase учитывает разовую покупку.
func (m *Metrics) ImmediatePurchase() {
	m.immediatePurchases.Inc()
}

// DayAdvanced фиксирует завершение батч-дня.
func (m *Metrics) DayAdvanced(day uint64) {
	m.daysAdvanced.Inc()
	m.currentBatchDay.Set(float64(day))
}

// SubscriberCount обновляет размер реестра.
func (m *Metrics) SubscriberCount(n int) {
	m.subscriberCount.Set(float64(n))
}
