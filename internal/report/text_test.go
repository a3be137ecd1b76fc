package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"citygrid/internal/model"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "£0.15", Money(0.15))
	assert.Equal(t, "£1234.57", Money(1234.567))
	assert.Equal(t, "£0.00", Money(0))
}

func TestKWh(t *testing.T) {
	assert.Equal(t, "1000.00", KWh(1000))
	assert.Equal(t, "0.33", KWh(1.0/3))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Daily Report", Title(model.PeriodDay))
	assert.Equal(t, "Yearly Report", Title(model.PeriodYear))
	assert.Equal(t, "Report", Title(model.Period("fortnight")))
}

func TestText(t *testing.T) {
	reports := Aggregate(hourly(24, 100), model.PeriodDay)
	cfg := model.DefaultCapacityConfig()
	cfg.Enabled.Wind = false
	battery := model.BatteryState{LevelKWh: 250, AgeHours: 365 * 24 / 2, CycleCount: 3}

	out := Text(reports[0], cfg, battery)

	assert.Contains(t, out, "Daily Report\n")
	assert.Contains(t, out, "2025-01-01 00:00 to 2025-01-02 00:00 (24 steps)")
	assert.Contains(t, out, "Hydro: 1000.00 kW\n")
	assert.Contains(t, out, "Wind: 1000.00 kW (off)\n")
	assert.Contains(t, out, "Grid Cost: £0.15 per kWh")
	assert.Contains(t, out, "Energy Usage: 2400.00 kWh")
	assert.Contains(t, out, "Grid Usage Cost: £144.00")
	assert.Contains(t, out, "Total Savings: £216.00")
	assert.Contains(t, out, "Battery Age: 0.50 years")
	assert.Contains(t, out, "Charge Cycles: 3")
}
