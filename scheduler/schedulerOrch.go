package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"stormStakes/services/cashoutService"
)

// SetupCron registers the periodic polling pass. The realtime
// weather_update trigger funnels into the same single-flight Tick, so
// the two paths cannot race each other into duplicate passes.
// The returned cron must be stopped on shutdown together with the
// orchestrator, leaving no dangling timers.
func SetupCron(orch *cashoutService.Orchestrator, pollSeconds int, logger *logrus.Logger) (*cron.Cron, error) {
	if pollSeconds <= 0 {
		pollSeconds = 30
	}

	cronService := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("*/%d * * * * *", pollSeconds)
	_, err := cronService.AddFunc(spec, func() {
		orch.Tick(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("register polling task: %w", err)
	}

	cronService.Start()
	logger.WithField("interval_seconds", pollSeconds).Info("cash-out polling scheduler started")
	return cronService, nil
}
