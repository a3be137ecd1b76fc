package task

import (
	"context"
	"log/slog"
	"time"

	"citygrid/internal/model"
	"citygrid/internal/report"
)

// ReportSource hands out the live run's log. Resets wait while fn runs.
type ReportSource interface {
	WithLog(fn func(log []model.StepRecord))
}

type ReportStore interface {
	SaveReport(ctx context.Context, runID string, r model.Report) error
}

type RunIDSource interface {
	RunID() string
}

// NewReportTask snapshots the reports of the live run. Every bucket of every
// period is stored, so buckets closed between two runs of the task are not
// lost. With no store the task only logs the latest yearly totals.
func NewReportTask(logger *slog.Logger, reports ReportSource, store ReportStore, runs RunIDSource) func() {
	return func() {
		logger.Debug("running report task...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var (
			log   []model.StepRecord
			runID string
		)
		reports.WithLog(func(l []model.StepRecord) {
			log = l
			if runs != nil {
				runID = runs.RunID()
			}
		})
		if len(log) == 0 {
			logger.Debug("no steps to report yet")
			return
		}

		saved := 0
		for _, p := range model.Periods {
			all := report.Aggregate(log, p)

			if p == model.PeriodYear {
				latest := all[len(all)-1]
				logger.Info("year to date",
					slog.Int("steps", latest.Steps),
					slog.String("demand_kwh", report.KWh(latest.TotalDemandKWh)),
					slog.String("grid_kwh", report.KWh(latest.TotalGridUsageKWh)),
					slog.String("cost", report.Money(latest.TotalCost)),
					slog.String("savings", report.Money(latest.TotalSavings)))
			}

			if store == nil {
				continue
			}
			for _, rep := range all {
				if err := store.SaveReport(ctx, runID, rep); err != nil {
					logger.Error("report task error, saving report", slog.String("period", string(p)), slog.Any("error", err))
					return
				}
				saved++
			}
		}

		logger.Info("report task done", slog.Int("saved", saved))
	}
}
