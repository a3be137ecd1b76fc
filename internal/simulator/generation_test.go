package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"citygrid/internal/model"
)

func TestGenerate_Scenario(t *testing.T) {
	cfg := model.DefaultCapacityConfig()
	cfg.HydroCapacityKW = 100
	cfg.SolarCapacityKW = 50
	cfg.WindCapacityKW = 50

	w := model.WeatherSample{WaterFlow: 1, SolarIrradianceWm2: 500, WindSpeedMs: 5, TemperatureC: 20}
	g := Generate(w, cfg)

	assert.InDelta(t, 100.0, g.HydroKW, 1e-9, "hydro clamps at capacity")
	assert.InDelta(t, 5.0, g.SolarKW, 1e-9)
	assert.InDelta(t, 2.5, g.WindKW, 1e-9)
	assert.InDelta(t, 107.5, g.TotalKW(), 1e-9)
}

func TestGenerate_DisabledSources(t *testing.T) {
	w := model.WeatherSample{WaterFlow: 300, SolarIrradianceWm2: 900, WindSpeedMs: 15}

	for _, src := range model.GenerationSources {
		t.Run(string(src), func(t *testing.T) {
			cfg := model.DefaultCapacityConfig()
			cfg.Enabled = cfg.Enabled.With(src, false)
			g := Generate(w, cfg)

			switch src {
			case model.SourceHydro:
				assert.Zero(t, g.HydroKW)
				assert.Greater(t, g.SolarKW, 0.0)
			case model.SourceSolar:
				assert.Zero(t, g.SolarKW)
				assert.Greater(t, g.WindKW, 0.0)
			case model.SourceWind:
				assert.Zero(t, g.WindKW)
				assert.Greater(t, g.HydroKW, 0.0)
			}
		})
	}
}

func TestGenerate_ClampedToCapacity(t *testing.T) {
	cfg := model.DefaultCapacityConfig()
	w := model.WeatherSample{WaterFlow: 500, SolarIrradianceWm2: 1361, WindSpeedMs: 75}
	cfg.SolarEfficiency = 1
	cfg.WindEfficiency = 1

	g := Generate(w, cfg)
	assert.Equal(t, cfg.HydroCapacityKW, g.HydroKW)
	assert.LessOrEqual(t, g.SolarKW, cfg.SolarCapacityKW)
	assert.Equal(t, cfg.WindCapacityKW, g.WindKW)
}

func TestPowerCurves(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"hydro below capacity", hydroPower(0.01, 0.9, 1000), 0.01 * 0.9 * Gravity * 1000},
		{"hydro zero flow", hydroPower(0, 0.9, 1000), 0},
		{"solar night", solarPower(0, 0.2, 1000), 0},
		{"solar noon", solarPower(800, 0.2, 1000), 160},
		{"wind cube law", windPower(10, 0.4, 1000), 400},
		{"wind calm", windPower(0, 0.4, 1000), 0},
		{"wind above rating", windPower(20, 0.4, 1000), 1000},
		{"zero capacity", windPower(10, 0.4, 0), 0},
		{"negative input", solarPower(-100, 0.2, 1000), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 1e-9)
		})
	}
}
