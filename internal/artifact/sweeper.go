package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Sweeper periodically runs fn, which recovers invoice jobs that were
// abandoned mid-flight (crash, redeploy).
type Sweeper struct {
	scheduler gocron.Scheduler
	log       *zap.Logger
}

func NewSweeper(interval, timeout time.Duration, fn func(ctx context.Context) error, log *zap.Logger) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	log = log.With(zap.String("component", "artifact_sweeper"))

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				log.Error("Artifact sweep failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("register sweep job: %w", err)
	}

	return &Sweeper{scheduler: s, log: log}, nil
}

func (s *Sweeper) Start() {
	s.scheduler.Start()
	s.log.Info("Artifact sweeper started")
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
