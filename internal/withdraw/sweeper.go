package withdraw

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// StartSweeper expires stale intents every interval until ctx is done. It
// returns a nil scheduler when expiry is disabled.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	if s.cfg.IntentTTL <= 0 || interval <= 0 {
		return nil, nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := s.ExpireStale(ctx)
			if err != nil {
				logrus.WithError(err).Error("Withdrawal sweep failed")
				return
			}
			if n > 0 {
				logrus.WithField("expired", n).Info("Expired stale withdrawals")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	sched.Start()

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			logrus.WithError(err).Warn("Failed to stop withdrawal sweeper")
		}
	}()
	return sched, nil
}
