package batchrunner

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
)

// EngineAPI операции движка, нужные драйверу батчей.
type EngineAPI interface {
	NumberOfBatches(ctx context.Context) (uint64, error)
	ProcessBatch(ctx context.Context, batchIndex uint64) (rejected bool, err error)
}

// Runner запускает обработку батчей по таймеру.
type Runner struct {
	api      EngineAPI
	interval time.Duration
	log      *slog.Logger
}

// NewRunner создает новый Runner.
func NewRunner(api EngineAPI, interval time.Duration, log *slog.Logger) *Runner {
	return &Runner{
		api:      api,
		interval: interval,
		log:      log,
	}
}

// Run крутит цикл до отмены контекста. Первый проход выполняется сразу.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce пытается обработать все батчи текущего реестра по одному разу.
func (r *Runner) RunOnce(ctx context.Context) {
	const op = "batchrunner.Runner.RunOnce"
	log := r.log.With(slog.String("op", op))

	count, err := r.api.NumberOfBatches(ctx)
	if err != nil {
		log.Error("failed to get number of batches", sl.Err(err))
		return
	}

	var processed, rejected uint64
	for i := uint64(0); i < count; i++ {
		wasRejected, err := r.api.ProcessBatch(ctx, i)
		if err != nil {
			log.Error("failed to process batch", sl.Err(err), slog.Uint64("batch_index", i))
			continue
		}
		if wasRejected {
			rejected++
			continue
		}
		processed++
	}

	log.Info("batch pass finished",
		slog.Uint64("batches", count),
		slog.Uint64("processed", processed),
		slog.Uint64("rejected", rejected),
	)
}
