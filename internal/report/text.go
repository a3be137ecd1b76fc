package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"citygrid/internal/model"
)

var titles = map[model.Period]string{
	model.PeriodDay:   "Daily Report",
	model.PeriodWeek:  "Weekly Report",
	model.PeriodMonth: "Monthly Report",
	model.PeriodYear:  "Yearly Report",
}

// Title returns the heading used for a period's report.
func Title(p model.Period) string {
	if t, ok := titles[p]; ok {
		return t
	}
	return "Report"
}

// Money renders an amount in pounds with two decimals.
func Money(v float64) string {
	return "£" + decimal.NewFromFloat(v).StringFixed(2)
}

// KWh renders an energy amount with two decimals.
func KWh(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Text renders a report for display or export, headed by the plant it was
// produced with.
func Text(r model.Report, cfg model.CapacityConfig, battery model.BatteryState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", Title(r.Period))
	fmt.Fprintf(&b, "%s to %s (%d steps)\n\n",
		r.Start.Format("2006-01-02 15:04"), r.End.Format("2006-01-02 15:04"), r.Steps)

	b.WriteString("Current Capacities:\n")
	fmt.Fprintf(&b, "  Hydro: %.2f kW%s\n", cfg.HydroCapacityKW, offLabel(cfg.Enabled.Hydro))
	fmt.Fprintf(&b, "  Solar: %.2f kW%s\n", cfg.SolarCapacityKW, offLabel(cfg.Enabled.Solar))
	fmt.Fprintf(&b, "  Wind: %.2f kW%s\n", cfg.WindCapacityKW, offLabel(cfg.Enabled.Wind))
	fmt.Fprintf(&b, "  Battery: %.2f kWh%s\n", cfg.BatteryCapacityKWh, offLabel(cfg.Enabled.Battery))
	fmt.Fprintf(&b, "  Grid Cost: %s per kWh\n\n", Money(cfg.GridCostPerKWh))

	fmt.Fprintf(&b, "Energy Usage: %.2f kWh\n", r.TotalDemandKWh)
	fmt.Fprintf(&b, "Hydro Power: %.2f kWh\n", r.TotalHydroKWh)
	fmt.Fprintf(&b, "Solar Power: %.2f kWh\n", r.TotalSolarKWh)
	fmt.Fprintf(&b, "Wind Power: %.2f kWh\n", r.TotalWindKWh)
	fmt.Fprintf(&b, "Total Generation: %.2f kWh\n", r.TotalGenerationKWh)
	fmt.Fprintf(&b, "Grid Usage: %.2f kWh\n", r.TotalGridUsageKWh)
	fmt.Fprintf(&b, "Grid Usage Cost: %s\n", Money(r.TotalCost))
	fmt.Fprintf(&b, "Total Savings: %s\n", Money(r.TotalSavings))
	fmt.Fprintf(&b, "Average Battery Level: %.2f kWh\n", r.AverageBatteryLevelKWh)
	fmt.Fprintf(&b, "Average Temperature: %.2f °C\n", r.AverageTemperatureC)
	fmt.Fprintf(&b, "Battery Health: %.2f%%\n\n", r.EndHealthPercent)

	fmt.Fprintf(&b, "Battery Level: %.2f kWh\n", battery.LevelKWh)
	fmt.Fprintf(&b, "Battery Age: %.2f years\n", battery.AgeYears())
	fmt.Fprintf(&b, "Charge Cycles: %d\n", battery.CycleCount)

	return b.String()
}

func offLabel(enabled bool) string {
	if enabled {
		return ""
	}
	return " (off)"
}
