// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// StartDailyScheduler runs task once a day at hour:minute UTC until the
// returned scheduler is shut down.
func StartDailyScheduler(clock clockwork.Clock, hour, minute uint, log *zap.Logger, name string, task func(ctx context.Context) error) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func(ctx context.Context) {
			log.Info("scheduled_job_started", zap.String("job", name))
			if err := task(ctx); err != nil {
				log.Error("scheduled_job_failed", zap.String("job", name), zap.Error(err))
				return
			}
			log.Info("scheduled_job_finished", zap.String("job", name))
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("scheduling %s: %w", name, err)
	}

	sched.Start()
	return sched, nil
}
