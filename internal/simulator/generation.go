package simulator

import (
	"math"

	"citygrid/internal/model"
)

// Gravity is the acceleration used by the hydro power estimate (m/s²).
const Gravity = 9.81

// Generation is the output of every source for one step.
type Generation struct {
	HydroKW float64
	SolarKW float64
	WindKW  float64
}

// TotalKW returns the combined output.
func (g Generation) TotalKW() float64 {
	return g.HydroKW + g.SolarKW + g.WindKW
}

// Generate converts weather into per-source output. Disabled sources produce
// nothing and every figure is clamped to [0, capacity].
func Generate(w model.WeatherSample, cfg model.CapacityConfig) Generation {
	var g Generation
	if cfg.Enabled.Hydro {
		g.HydroKW = hydroPower(w.WaterFlow, cfg.HydroEfficiency, cfg.HydroCapacityKW)
	}
	if cfg.Enabled.Solar {
		g.SolarKW = solarPower(w.SolarIrradianceWm2, cfg.SolarEfficiency, cfg.SolarCapacityKW)
	}
	if cfg.Enabled.Wind {
		g.WindKW = windPower(w.WindSpeedMs, cfg.WindEfficiency, cfg.WindCapacityKW)
	}
	return g
}

// hydroPower uses capacity both as a scale and as the rated ceiling.
func hydroPower(flow, efficiency, capacity float64) float64 {
	return clampOutput(flow*efficiency*Gravity*capacity, capacity)
}

func solarPower(irradiance, efficiency, capacity float64) float64 {
	return clampOutput(irradiance*efficiency*capacity/1000, capacity)
}

// windPower follows the cube law up to the turbine rating.
func windPower(speed, efficiency, capacity float64) float64 {
	return clampOutput(speed*speed*speed*efficiency*capacity/1000, capacity)
}

func clampOutput(v, capacity float64) float64 {
	if capacity <= 0 || v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v, capacity)
}
