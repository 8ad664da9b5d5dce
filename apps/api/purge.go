package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/confradar/core"
)

type purger interface {
	Purge(ctx context.Context) (int, error)
}

// schedulePurge closes idle wizard sessions on the configured cron schedule.
// The returned cron is already started; stopping it waits for a running purge.
func schedulePurge(ctx context.Context, conf *core.Config, svc purger, logger core.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(conf.Wizard.PurgeSchedule, func() {
		n, err := svc.Purge(ctx)
		if err != nil {
			logger.Error(fmt.Sprintf("purging idle sessions: %v", err), err)
			return
		}
		if n > 0 {
			logger.Info(fmt.Sprintf("purged %d idle session(s)", n))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid purge schedule %q", conf.Wizard.PurgeSchedule)
	}
	c.Start()
	return c, nil
}
