package riverjobs

import (
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

// RegisterPurgeSessionEventsWorker registers the purge worker into a River workers registry.
func RegisterPurgeSessionEventsWorker(ws *river.Workers, p SessionEventPurger, logger *slog.Logger) {
	river.AddWorker(ws, NewPurgeSessionEventsWorker(p, logger))
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(cronSpec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	return schedule, nil
}

// PeriodicPurgeJob builds a periodic job that enqueues the purge on a cron
// schedule, for river.Config.PeriodicJobs.
//
// Example cron: "30 3 * * *" (daily at 03:30).
func PeriodicPurgeJob(cronSpec string, args PurgeSessionEventsArgs, runOnStart bool) (*river.PeriodicJob, error) {
	schedule, err := ParseSchedule(cronSpec)
	if err != nil {
		return nil, err
	}
	opts := args.InsertOpts()
	return river.NewPeriodicJob(
		schedule,
		func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
		&river.PeriodicJobOpts{RunOnStart: runOnStart},
	), nil
}
