package recorder

import (
	"context"
	"fmt"
	"time"

	"citygrid/internal/model"
)

// SaveReport stores a report snapshot, replacing an earlier snapshot of the
// same bucket.
func (d *Database) SaveReport(ctx context.Context, runID string, r model.Report) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT OR REPLACE INTO report (
			run_id,
			period,
			period_start,
			period_end,
			steps,
			demand,
			hydro,
			solar,
			wind,
			total_generation,
			grid_usage,
			cost,
			savings,
			avg_battery_level,
			avg_temperature,
			end_health
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		string(r.Period),
		r.Start.UTC().Format(timeFormat),
		r.End.UTC().Format(timeFormat),
		r.Steps,
		r.TotalDemandKWh,
		r.TotalHydroKWh,
		r.TotalSolarKWh,
		r.TotalWindKWh,
		r.TotalGenerationKWh,
		r.TotalGridUsageKWh,
		r.TotalCost,
		r.TotalSavings,
		r.AverageBatteryLevelKWh,
		r.AverageTemperatureC,
		r.EndHealthPercent)
	if err != nil {
		return fmt.Errorf("saving %s report: %w", r.Period, err)
	}
	return nil
}

// GetReports returns the stored reports of a run for one period, oldest
// bucket first.
func (d *Database) GetReports(ctx context.Context, runID string, period model.Period) ([]model.Report, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT
			period_start,
			period_end,
			steps,
			demand,
			hydro,
			solar,
			wind,
			total_generation,
			grid_usage,
			cost,
			savings,
			avg_battery_level,
			avg_temperature,
			end_health
		FROM report
		WHERE run_id = ? AND period = ?
		ORDER BY period_start`,
		runID, string(period))
	if err != nil {
		return nil, fmt.Errorf("fetching reports: %w", err)
	}
	defer rows.Close()

	var start, end string
	var reports []model.Report
	for rows.Next() {
		r := model.Report{Period: period}
		err := rows.Scan(
			&start,
			&end,
			&r.Steps,
			&r.TotalDemandKWh,
			&r.TotalHydroKWh,
			&r.TotalSolarKWh,
			&r.TotalWindKWh,
			&r.TotalGenerationKWh,
			&r.TotalGridUsageKWh,
			&r.TotalCost,
			&r.TotalSavings,
			&r.AverageBatteryLevelKWh,
			&r.AverageTemperatureC,
			&r.EndHealthPercent)
		if err != nil {
			return nil, err
		}
		if r.Start, err = time.Parse(timeFormat, start); err != nil {
			return nil, fmt.Errorf("parsing period start: %w", err)
		}
		if r.End, err = time.Parse(timeFormat, end); err != nil {
			return nil, fmt.Errorf("parsing period end: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
