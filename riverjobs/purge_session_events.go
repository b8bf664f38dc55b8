package riverjobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type PurgeSessionEventsArgs struct {
	RetentionDays int `json:"retention_days,omitempty"`
	BatchSize     int `json:"batch_size,omitempty"`
}

func (PurgeSessionEventsArgs) Kind() string { return "authcore_purge_session_events" }

func (args PurgeSessionEventsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
		},
	}
}

// SessionEventPurger deletes session events older than a cutoff, at most
// limit rows per call.
type SessionEventPurger interface {
	PurgeSessionEventsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// PurgeSessionEventsWorker trims the session event log to RetentionDays.
// Batches repeat until a short batch signals the backlog is gone.
type PurgeSessionEventsWorker struct {
	river.WorkerDefaults[PurgeSessionEventsArgs]
	purger SessionEventPurger
	now    func() time.Time
	logger *slog.Logger
}

func NewPurgeSessionEventsWorker(p SessionEventPurger, logger *slog.Logger) *PurgeSessionEventsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeSessionEventsWorker{purger: p, now: time.Now, logger: logger}
}

func (w *PurgeSessionEventsWorker) Timeout(*river.Job[PurgeSessionEventsArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *PurgeSessionEventsWorker) Work(ctx context.Context, job *river.Job[PurgeSessionEventsArgs]) error {
	if w == nil || w.purger == nil {
		return errors.New("authcore purge: event log not configured")
	}
	retention := job.Args.RetentionDays
	if retention <= 0 {
		retention = 90
	}
	batch := job.Args.BatchSize
	if batch <= 0 {
		batch = 1000
	}

	cutoff := w.now().AddDate(0, 0, -retention)
	var total int64
	for {
		n, err := w.purger.PurgeSessionEventsBefore(ctx, cutoff, batch)
		if err != nil {
			return err
		}
		total += n
		if n < int64(batch) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	w.logger.Info("purged session events", "deleted", total, "cutoff", cutoff)
	return nil
}
