package model

import (
	"fmt"
	"time"
)

// BatteryState is a snapshot of the battery store.
type BatteryState struct {
	CapacityKWh   float64 `json:"capacity_kwh"`
	LevelKWh      float64 `json:"level_kwh"`
	HealthPercent float64 `json:"health_percent"`
	CycleCount    int     `json:"cycle_count"`
	ThroughputKWh float64 `json:"throughput_kwh"`
	AgeHours      float64 `json:"age_hours"`
	Enabled       bool    `json:"enabled"`
}

// AgeYears returns the battery age in years of 365 days.
func (b BatteryState) AgeYears() float64 {
	return b.AgeHours / (365 * 24)
}

// StepRecord is the immutable outcome of one simulation step.
type StepRecord struct {
	Step      int           `json:"step"`
	Timestamp time.Time     `json:"timestamp"`
	StepHours float64       `json:"step_hours"`
	Weather   WeatherSample `json:"weather"`

	DemandKWh          float64 `json:"demand_kwh"`
	HydroKW            float64 `json:"hydro_kw"`
	SolarKW            float64 `json:"solar_kw"`
	WindKW             float64 `json:"wind_kw"`
	TotalGenerationKWh float64 `json:"total_generation_kwh"`
	NetEnergyKWh       float64 `json:"net_energy_kwh"`

	BatteryLevelKWh      float64 `json:"battery_level_kwh"`
	BatteryHealthPercent float64 `json:"battery_health_percent"`
	CycleCount           int     `json:"cycle_count"`

	GridUsageKWh float64 `json:"grid_usage_kwh"`
	GridCost     float64 `json:"grid_cost"`
	Savings      float64 `json:"savings"`
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every report period from shortest to longest.
var Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

// ParsePeriod converts a period name into a Period.
func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Report summarises the step records of one calendar bucket.
type Report struct {
	Period Period    `json:"period"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"` // exclusive
	Steps  int       `json:"steps"`

	TotalDemandKWh     float64 `json:"total_demand_kwh"`
	TotalHydroKWh      float64 `json:"total_hydro_kwh"`
	TotalSolarKWh      float64 `json:"total_solar_kwh"`
	TotalWindKWh       float64 `json:"total_wind_kwh"`
	TotalGenerationKWh float64 `json:"total_generation_kwh"`
	TotalGridUsageKWh  float64 `json:"total_grid_usage_kwh"`
	TotalCost          float64 `json:"total_cost"`
	TotalSavings       float64 `json:"total_savings"`

	AverageBatteryLevelKWh float64 `json:"average_battery_level_kwh"`
	AverageTemperatureC    float64 `json:"average_temperature_c"`
	EndHealthPercent       float64 `json:"end_health_percent"`
}

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
