package engine

import (
	"time"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Scheduler владеет состоянием батч-дня и проверяет переходы машины
// состояний: Idle(day) -> Processing(day) -> DayComplete(day) -> Idle(day+1).
// Состояние передаётся явным значением, а не глобальной переменной, чтобы
// несколько планировщиков можно было тестировать независимо.
type Scheduler struct {
	state     models.BatchDayState
	batchSize uint64
	interval  time.Duration
}

// NewScheduler создаёт планировщик с первым батч-днём.
func NewScheduler(batchSize uint64, interval time.Duration, start time.Time) *Scheduler {
	return &Scheduler{
		state:     models.NewBatchDayState(start),
		batchSize: batchSize,
		interval:  interval,
	}
}

// State возвращает копию состояния батч-дня.
func (s *Scheduler) State() models.BatchDayState {
	processed := make(map[uint64]bool, len(s.state.BatchProcessed))
	for k, v := range s.state.BatchProcessed {
		processed[k] = v
	}
	st := s.state
	st.BatchProcessed = processed
	return st
}

// Restore замещает состояние батч-дня сохранённым.
func (s *Scheduler) Restore(state models.BatchDayState) {
	if state.BatchProcessed == nil {
		state.BatchProcessed = make(map[uint64]bool)
	}
	s.state = state
}

// CurrentDay возвращает номер текущего батч-дня.
func (s *Scheduler) CurrentDay() uint64 {
	return s.state.CurrentBatchDay
}

// BatchSize возвращает размер батча.
func (s *Scheduler) BatchSize() uint64 {
	return s.batchSize
}

// Gate проверяет предусловия обработки батча batchIndex при длине реестра
// registryLen. Нулевой батч — единственная точка входа в новый день, поэтому
// только он ограничен интервалом обработки с момента прошлого завершения дня.
func (s *Scheduler) Gate(batchIndex uint64, registryLen int, now time.Time) error {
	if batchIndex*s.batchSize >= uint64(registryLen) {
		return ErrBatchOutOfRange
	}
	if s.state.BatchProcessed[batchIndex] {
		return ErrBatchAlreadyProcessed
	}
	if batchIndex == 0 && now.Before(s.state.LastBatchTimestamp.Add(s.interval)) {
		return ErrDayTooSoon
	}
	return nil
}

// MarkProcessed помечает батч обработанным в текущем дне. Флаг ставится до
// итерации по подписчикам: повторный вызов того же батча отклоняется, даже
// если часть подписчиков не была обработана.
func (s *Scheduler) MarkProcessed(batchIndex uint64) {
	s.state.BatchProcessed[batchIndex] = true
}

// AllBatchesProcessed истинно, когда каждый батч с хотя бы одним подписчиком
// помечен обработанным в текущем дне.
func (s *Scheduler) AllBatchesProcessed(registryLen int) bool {
	total := (uint64(registryLen) + s.batchSize - 1) / s.batchSize
	if total == 0 {
		return false
	}
	for i := uint64(0); i < total; i++ {
		if !s.state.BatchProcessed[i] {
			return false
		}
	}
	return true
}

// AdvanceDay завершает текущий батч-день: увеличивает счётчик, сбрасывает
// флаги батчей и фиксирует момент завершения.
func (s *Scheduler) AdvanceDay(now time.Time) {
	s.state.CurrentBatchDay++
	s.state.BatchProcessed = make(map[uint64]bool)
	s.state.LastBatchTimestamp = now
}
