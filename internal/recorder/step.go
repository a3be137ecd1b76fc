package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"citygrid/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func (d *Database) SaveStep(ctx context.Context, runID string, r model.StepRecord) error {
	return d.saveStep(ctx, d.write, runID, r)
}

func (d *Database) saveStep(ctx context.Context, db execer, runID string, r model.StepRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO step (
			run_id,
			step,
			timestamp,
			step_hours,
			temperature,
			wind_speed,
			solar_irradiance,
			water_flow,
			demand,
			hydro,
			solar,
			wind,
			total_generation,
			net_energy,
			battery_level,
			battery_health,
			cycle_count,
			grid_usage,
			grid_cost,
			savings
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		r.Step,
		r.Timestamp.UTC().Format(timeFormat),
		r.StepHours,
		r.Weather.TemperatureC,
		r.Weather.WindSpeedMs,
		r.Weather.SolarIrradianceWm2,
		r.Weather.WaterFlow,
		r.DemandKWh,
		r.HydroKW,
		r.SolarKW,
		r.WindKW,
		r.TotalGenerationKWh,
		r.NetEnergyKWh,
		r.BatteryLevelKWh,
		r.BatteryHealthPercent,
		r.CycleCount,
		r.GridUsageKWh,
		r.GridCost,
		r.Savings)
	if err != nil {
		return fmt.Errorf("saving step %d: %w", r.Step, err)
	}
	return nil
}

// GetSteps returns the steps of a run with timestamps in [from, to).
func (d *Database) GetSteps(ctx context.Context, runID string, from, to time.Time) ([]model.StepRecord, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT
			step,
			timestamp,
			step_hours,
			temperature,
			wind_speed,
			solar_irradiance,
			water_flow,
			demand,
			hydro,
			solar,
			wind,
			total_generation,
			net_energy,
			battery_level,
			battery_health,
			cycle_count,
			grid_usage,
			grid_cost,
			savings
		FROM step
		WHERE run_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY step`,
		runID,
		from.UTC().Format(timeFormat),
		to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("fetching steps: %w", err)
	}
	defer rows.Close()

	var ts string
	var steps []model.StepRecord
	for rows.Next() {
		var r model.StepRecord
		err := rows.Scan(
			&r.Step,
			&ts,
			&r.StepHours,
			&r.Weather.TemperatureC,
			&r.Weather.WindSpeedMs,
			&r.Weather.SolarIrradianceWm2,
			&r.Weather.WaterFlow,
			&r.DemandKWh,
			&r.HydroKW,
			&r.SolarKW,
			&r.WindKW,
			&r.TotalGenerationKWh,
			&r.NetEnergyKWh,
			&r.BatteryLevelKWh,
			&r.BatteryHealthPercent,
			&r.CycleCount,
			&r.GridUsageKWh,
			&r.GridCost,
			&r.Savings)
		if err != nil {
			return nil, err
		}
		if r.Timestamp, err = time.Parse(timeFormat, ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		r.Weather.Month = int(r.Timestamp.Month())
		r.Weather.Hour = r.Timestamp.Hour()
		steps = append(steps, r)
	}
	return steps, rows.Err()
}
