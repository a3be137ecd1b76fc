package simulator

import (
	"errors"
	"fmt"
	"math"

	"citygrid/internal/model"
)

var (
	// ErrInvalidConfiguration is returned when a configuration is rejected.
	// The engine state is left untouched.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrStateInvariant means a step produced an impossible state. The run
	// is unusable until the engine is reset.
	ErrStateInvariant = errors.New("state invariant violation")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateInvariant, fmt.Sprintf(format, args...))
}

// ValidateConfig checks capacities, efficiencies, tariff and initial charge.
func ValidateConfig(c model.CapacityConfig) error {
	capacities := []struct {
		name  string
		value float64
	}{
		{"hydro capacity", c.HydroCapacityKW},
		{"solar capacity", c.SolarCapacityKW},
		{"wind capacity", c.WindCapacityKW},
		{"battery capacity", c.BatteryCapacityKWh},
	}
	for _, cp := range capacities {
		if !isFinite(cp.value) || cp.value < 0 {
			return invalidf("%s must be a non-negative number, got %v", cp.name, cp.value)
		}
	}

	efficiencies := []struct {
		name  string
		value float64
	}{
		{"hydro efficiency", c.HydroEfficiency},
		{"solar efficiency", c.SolarEfficiency},
		{"wind efficiency", c.WindEfficiency},
	}
	for _, ef := range efficiencies {
		if !isFinite(ef.value) || ef.value < 0 || ef.value > 1 {
			return invalidf("%s must be within [0, 1], got %v", ef.name, ef.value)
		}
	}

	if !isFinite(c.GridCostPerKWh) || c.GridCostPerKWh <= 0 {
		return invalidf("grid cost per kWh must be positive, got %v", c.GridCostPerKWh)
	}
	if !isFinite(c.InitialBatteryKWh) || c.InitialBatteryKWh < 0 || c.InitialBatteryKWh > c.BatteryCapacityKWh {
		return invalidf("initial battery level %v outside [0, %v]", c.InitialBatteryKWh, c.BatteryCapacityKWh)
	}
	return nil
}

// checkRecord verifies a step record before it is appended to the log.
func checkRecord(r model.StepRecord, capacityKWh, prevHealth float64) error {
	if r.BatteryLevelKWh < 0 || r.BatteryLevelKWh > capacityKWh {
		return invariantf("battery level %v outside [0, %v]", r.BatteryLevelKWh, capacityKWh)
	}
	for name, v := range map[string]float64{
		"hydro": r.HydroKW,
		"solar": r.SolarKW,
		"wind":  r.WindKW,
	} {
		if v < 0 || !isFinite(v) {
			return invariantf("%s generation %v is not a non-negative number", name, v)
		}
	}
	if !isFinite(r.DemandKWh) || !isFinite(r.NetEnergyKWh) {
		return invariantf("demand %v or net energy %v is not a number", r.DemandKWh, r.NetEnergyKWh)
	}
	if math.Abs(r.TotalGenerationKWh-r.DemandKWh-r.NetEnergyKWh) > 1e-6 {
		return invariantf("net energy %v does not match generation %v minus demand %v",
			r.NetEnergyKWh, r.TotalGenerationKWh, r.DemandKWh)
	}
	if r.GridUsageKWh < 0 {
		return invariantf("grid usage %v is negative", r.GridUsageKWh)
	}
	if r.BatteryHealthPercent > prevHealth {
		return invariantf("battery health rose from %v to %v", prevHealth, r.BatteryHealthPercent)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
