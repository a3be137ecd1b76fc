package task

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"citygrid/internal/config"
)

type Tasks struct {
	cron       *cron.Cron
	cnfg       config.AppConfigTasks
	ReportTask func()
}

func NewTasks(reports ReportSource, store ReportStore, runs RunIDSource, cnfg config.AppConfigTasks) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:       cron.New(),
		cnfg:       cnfg,
		ReportTask: NewReportTask(logger.With(slog.String("task", "report")), reports, store, runs),
	}
}

func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.GetReportRunAt(), t.ReportTask); err != nil {
		return err
	}
	t.cron.Start()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
