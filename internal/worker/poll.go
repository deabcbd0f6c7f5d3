package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/coordinator"
	"schulmanager-sync/internal/logger"
)

// PollWorker drives the periodic refresh cycle. Manual refreshes go
// through the API and its cooldown gate; this worker only handles the
// scheduled interval.
type PollWorker struct {
	cfg   *config.Config
	coord *coordinator.Coordinator
	log   zerolog.Logger
}

func NewPollWorker(cfg *config.Config, coord *coordinator.Coordinator) *PollWorker {
	return &PollWorker{
		cfg:   cfg,
		coord: coord,
		log:   logger.Component("poll-worker"),
	}
}

func (w *PollWorker) Start(ctx context.Context) error {
	interval := w.cfg.RefreshInterval()
	w.log.Info().Dur("interval", interval).Msg("Starting poll worker")

	if w.cfg.Refresh.RunOnStart {
		w.runOnce(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Poll worker context cancelled")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *PollWorker) runOnce(ctx context.Context) {
	start := time.Now()
	data, err := w.coord.Refresh(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Scheduled refresh failed")
		return
	}
	w.log.Info().
		Dur("duration", time.Since(start)).
		Int("students", len(data.Students)).
		Msg("Scheduled refresh completed")
}
