// scheduler runs the periodic background jobs, currently only the
// relation table refresh.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/nekomata-dev/subdex/pkg/main/apiexternal"
	"github.com/nekomata-dev/subdex/pkg/main/config"
	"github.com/nekomata-dev/subdex/pkg/main/logger"
)

var crontab *cron.Cron

// InitScheduler starts the cron loop and registers the relation refresh
// job on the configured schedule. The job itself revalidates through the
// cached client, so an unchanged upstream costs one date probe.
func InitScheduler() error {
	crontab = cron.New(cron.WithSeconds(),
		cron.WithLogger(cron.PrintfLogger(logger.GetLogger())))

	settings := config.GetSettingsRelations()
	if _, err := crontab.AddFunc(settings.RefreshCron, refreshRelations); err != nil {
		return err
	}

	crontab.Start()
	logger.LogDynamicany(logger.StrInfo, "scheduler started", "relations_cron", settings.RefreshCron)

	// Warm the cache once at startup instead of waiting for the first tick.
	go refreshRelations()
	return nil
}

func refreshRelations() {
	logger.LogDynamicany(logger.StrDebug, "relation refresh tick")
	apiexternal.CurrentRelations(context.Background())
}

// StopScheduler stops the cron loop, waiting for a running job to finish.
func StopScheduler() {
	if crontab != nil {
		<-crontab.Stop().Done()
	}
}
