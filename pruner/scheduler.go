package pruner

import (
	"context"
	"io"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/nickmjain/PokerTracker-Hand-pruner/utils"
)

// Scheduler runs the pruner on a cron schedule. Each scheduled run is a
// complete, independent run with a freshly resolved active player set.
// Overlapping executions are skipped, never queued.
type Scheduler struct {
	logger  logrus.FieldLogger
	pruner  *Pruner
	cron    *cron.Cron
	out     io.Writer
	running sync.Mutex
}

// NewScheduler wraps the pruner with a cron schedule writing reports to out.
func NewScheduler(pruner *Pruner, out io.Writer) *Scheduler {
	return &Scheduler{
		logger: logrus.StandardLogger().WithField("module", "scheduler"),
		pruner: pruner,
		cron:   cron.New(),
		out:    out,
	}
}

// Run blocks until the context is cancelled, triggering pruning runs per the
// cron expression.
func (s *Scheduler) Run(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Infof("scheduling %v runs: %v", s.pruner.Mode(), schedule)
	s.cron.Start()

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warnf("previous run still in progress, skipping scheduled run")
		return
	}
	defer s.running.Unlock()

	summary, err := s.pruner.Run(ctx)
	if err != nil {
		utils.LogError(err, "scheduled run failed", 0)
	}
	if summary != nil {
		summary.WriteReport(s.out)
	}
}
