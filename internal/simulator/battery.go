package simulator

import (
	"math"

	"citygrid/internal/model"
)

// TwoYearCalendarFadePerHour drains a fresh battery to 0% health in two
// years of simulated time.
const TwoYearCalendarFadePerHour = 100.0 / (2 * 365 * 24)

// BatteryConfig holds the ageing parameters of the battery store.
// Capacity and starting level come from model.CapacityConfig.
type BatteryConfig struct {
	// Health lost every CyclesPerFade equivalent full cycles.
	FadePercent   float64 `json:"fade_percent"`
	CyclesPerFade int     `json:"cycles_per_fade"`
	// Health lost per simulated hour regardless of use. Zero disables it.
	CalendarFadePerHour float64 `json:"calendar_fade_per_hour"`
}

// DefaultBatteryConfig loses 0.2% health every 10 full cycles.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		FadePercent:   0.2,
		CyclesPerFade: 10,
	}
}

// Battery simulates the city battery store.
type Battery struct {
	config      BatteryConfig
	capacityKWh float64
	initialKWh  float64
	enabled     bool

	// State
	LevelKWh      float64
	HealthPercent float64
	CycleCount    int
	AgeHours      float64

	// Stats
	TotalThroughputKWh float64
	cycleProgress      float64 // fraction of the next full cycle
}

// NewBattery creates an enabled battery at full health holding initialKWh.
func NewBattery(cfg BatteryConfig, capacityKWh, initialKWh float64) *Battery {
	if cfg.CyclesPerFade <= 0 {
		cfg.CyclesPerFade = 1
	}
	b := &Battery{
		config:      cfg,
		capacityKWh: capacityKWh,
		initialKWh:  initialKWh,
		enabled:     true,
	}
	b.Reset()
	return b
}

// ChargeOrDischarge applies one step of net energy and returns the part of a
// deficit the battery could not cover.
//
// Charging is scaled by health and curtailed at capacity. Discharging is not
// scaled; the level is floored at 0 and the remainder goes to the grid.
func (b *Battery) ChargeOrDischarge(netEnergyKWh float64) float64 {
	if !b.enabled {
		return math.Max(-netEnergyKWh, 0)
	}

	switch {
	case netEnergyKWh > 0:
		if b.LevelKWh >= b.capacityKWh {
			return 0
		}
		added := math.Min(netEnergyKWh*b.HealthPercent/100, b.capacityKWh-b.LevelKWh)
		b.LevelKWh += added
		if b.LevelKWh > b.capacityKWh {
			b.LevelKWh = b.capacityKWh
		}
		b.recordThroughput(added)
		return 0

	case netEnergyKWh < 0:
		deficit := -netEnergyKWh
		if b.LevelKWh >= deficit {
			b.LevelKWh -= deficit
			b.recordThroughput(deficit)
			return 0
		}
		drawn := b.LevelKWh
		b.LevelKWh = 0
		b.recordThroughput(drawn)
		return deficit - drawn
	}

	return 0
}

// recordThroughput counts energy moved in or out. Every 2x capacity of
// throughput is one equivalent full cycle.
func (b *Battery) recordThroughput(kwh float64) {
	if kwh <= 0 {
		return
	}
	b.TotalThroughputKWh += kwh
	if b.capacityKWh <= 0 {
		return
	}

	b.cycleProgress += kwh / (2 * b.capacityKWh)
	for b.cycleProgress >= 1 {
		b.cycleProgress--
		b.CycleCount++
		if b.CycleCount%b.config.CyclesPerFade == 0 {
			b.fade(b.config.FadePercent)
		}
	}
}

// Age advances the battery clock and applies calendar fade.
func (b *Battery) Age(hours float64) {
	if hours <= 0 {
		return
	}
	b.AgeHours += hours
	b.fade(b.config.CalendarFadePerHour * hours)
}

func (b *Battery) fade(pct float64) {
	if pct <= 0 {
		return
	}
	b.HealthPercent = math.Max(0, b.HealthPercent-pct)
}

// Cycles returns the equivalent full cycle count including the partial one.
func (b *Battery) Cycles() float64 {
	return float64(b.CycleCount) + b.cycleProgress
}

// SetCapacity changes the storage ceiling, clamping the level if it shrank.
func (b *Battery) SetCapacity(kwh float64) {
	b.capacityKWh = kwh
	if b.LevelKWh > kwh {
		b.LevelKWh = kwh
	}
}

// SetEnabled switches the battery in or out of the balance.
func (b *Battery) SetEnabled(enabled bool) {
	b.enabled = enabled
}

func (b *Battery) Enabled() bool {
	return b.enabled
}

func (b *Battery) CapacityKWh() float64 {
	return b.capacityKWh
}

// State returns a snapshot of the battery.
func (b *Battery) State() model.BatteryState {
	return model.BatteryState{
		CapacityKWh:   b.capacityKWh,
		LevelKWh:      b.LevelKWh,
		HealthPercent: b.HealthPercent,
		CycleCount:    b.CycleCount,
		ThroughputKWh: b.TotalThroughputKWh,
		AgeHours:      b.AgeHours,
		Enabled:       b.enabled,
	}
}

// Reset restores the initial level, full health and zeroed counters.
func (b *Battery) Reset() {
	b.LevelKWh = math.Max(0, math.Min(b.initialKWh, b.capacityKWh))
	b.HealthPercent = 100
	b.CycleCount = 0
	b.AgeHours = 0
	b.TotalThroughputKWh = 0
	b.cycleProgress = 0
}
