package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_GateTimeOnlyForFirstBatch(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(100, 24*time.Hour, start)

	// Нулевой батч открывает день и ограничен интервалом.
	err := s.Gate(0, 250, start.Add(time.Hour))
	require.ErrorIs(t, err, ErrDayTooSoon)
	require.NoError(t, s.Gate(0, 250, start.Add(24*time.Hour)))

	// Остальные индексы того же дня по времени не ограничены.
	require.NoError(t, s.Gate(1, 250, start.Add(time.Minute)))
	require.NoError(t, s.Gate(2, 250, start.Add(time.Minute)))
}

func TestScheduler_GateRejectsOutOfRange(t *testing.T) {
	s := NewScheduler(100, 0, time.Now())

	assert.ErrorIs(t, s.Gate(3, 250, time.Now()), ErrBatchOutOfRange)
	assert.ErrorIs(t, s.Gate(0, 0, time.Now()), ErrBatchOutOfRange)
	assert.NoError(t, s.Gate(2, 250, time.Now()))
}

func TestScheduler_GateRejectsDoubleProcessing(t *testing.T) {
	s := NewScheduler(100, 0, time.Now())
	s.MarkProcessed(1)

	assert.ErrorIs(t, s.Gate(1, 250, time.Now()), ErrBatchAlreadyProcessed)
	assert.NoError(t, s.Gate(0, 250, time.Now()))
}

func TestScheduler_AllBatchesProcessed(t *testing.T) {
	s := NewScheduler(100, 0, time.Now())

	assert.False(t, s.AllBatchesProcessed(250), "пустой день не завершён")
	s.MarkProcessed(0)
	s.MarkProcessed(2)
	assert.False(t, s.AllBatchesProcessed(250))
	s.MarkProcessed(1)
	assert.True(t, s.AllBatchesProcessed(250))
	// Пустой реестр никогда не считается завершённым днём.
	assert.False(t, s.AllBatchesProcessed(0))
}

func TestScheduler_AdvanceDayResetsFlags(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(100, 24*time.Hour, start)
	s.MarkProcessed(0)
	s.MarkProcessed(1)

	finish := start.Add(25 * time.Hour)
	s.AdvanceDay(finish)

	assert.Equal(t, uint64(2), s.CurrentDay())
	assert.Empty(t, s.State().BatchProcessed)
	assert.Equal(t, finish, s.State().LastBatchTimestamp)
	// Новый день снова ограничен интервалом для нулевого батча.
	assert.ErrorIs(t, s.Gate(0, 250, finish.Add(time.Hour)), ErrDayTooSoon)
}
