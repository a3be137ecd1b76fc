package weather

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestSample_WinterMeanWithinRange(t *testing.T) {
	m := DefaultModel()
	rng := newRNG(42)

	temps := make([]float64, 1000)
	for i := range temps {
		temps[i] = m.Sample(1, 12, rng).TemperatureC
	}

	mean := stat.Mean(temps, nil)
	assert.GreaterOrEqual(t, mean, m.Winter.Min)
	assert.LessOrEqual(t, mean, m.Winter.Max)
	// 1000 uniform draws over a 15 degree range land close to the midpoint.
	assert.InDelta(t, m.Winter.Mid(), mean, 1.0)
}

func TestSample_TemperatureFollowsSeason(t *testing.T) {
	m := DefaultModel()
	rng := newRNG(7)

	tests := []struct {
		month int
		want  Range
	}{
		{12, m.Winter}, {1, m.Winter}, {2, m.Winter},
		{3, m.Spring}, {5, m.Spring},
		{6, m.Summer}, {8, m.Summer},
		{9, m.Autumn}, {11, m.Autumn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.SeasonRange(tt.month), "month %d", tt.month)
		for i := 0; i < 200; i++ {
			s := m.Sample(tt.month, 3, rng)
			assert.GreaterOrEqual(t, s.TemperatureC, tt.want.Min)
			assert.LessOrEqual(t, s.TemperatureC, tt.want.Max)
		}
	}
}

func TestSample_SolarZeroAtNight(t *testing.T) {
	m := DefaultModel()
	rng := newRNG(1)

	for _, h := range []int{0, 1, 2, 3, 4, 5, 19, 20, 21, 22, 23} {
		for i := 0; i < 50; i++ {
			s := m.Sample(6, h, rng)
			assert.Zero(t, s.SolarIrradianceWm2, "hour %d", h)
		}
	}
}

func TestSample_SolarPeaksAtMidday(t *testing.T) {
	m := DefaultModel()
	rng := newRNG(3)

	avg := func(hour int) float64 {
		vals := make([]float64, 2000)
		for i := range vals {
			vals[i] = m.Sample(7, hour, rng).SolarIrradianceWm2
		}
		return stat.Mean(vals, nil)
	}

	noon := avg(12)
	morning := avg(7)
	assert.Greater(t, noon, morning)
	assert.InDelta(t, m.PeakIrradianceWm2/2, noon, 50)
}

func TestSample_Bounds(t *testing.T) {
	m := DefaultModel()
	rng := newRNG(99)

	for month := 1; month <= 12; month++ {
		for hour := 0; hour < 24; hour++ {
			s := m.Sample(month, hour, rng)
			assert.Equal(t, month, s.Month)
			assert.Equal(t, hour, s.Hour)

			if hour >= 6 && hour <= 18 {
				assert.LessOrEqual(t, s.WindSpeedMs, m.DayWind.Max)
			} else {
				assert.LessOrEqual(t, s.WindSpeedMs, m.NightWind.Max)
			}
			assert.GreaterOrEqual(t, s.WindSpeedMs, 0.0)
			assert.GreaterOrEqual(t, s.SolarIrradianceWm2, 0.0)
			assert.LessOrEqual(t, s.SolarIrradianceWm2, m.PeakIrradianceWm2)
			assert.GreaterOrEqual(t, s.WaterFlow, m.WaterFlow.Min)
			assert.LessOrEqual(t, s.WaterFlow, m.WaterFlow.Max)
		}
	}
}

func TestSample_ClampsToSaneRange(t *testing.T) {
	m := DefaultModel()
	m.Summer = Range{Min: 80, Max: 90}
	m.DayWind = Range{Min: 100, Max: 100}

	s := m.Sample(7, 12, newRNG(5))
	assert.Equal(t, MaxTemperatureC, s.TemperatureC)
	assert.Equal(t, MaxWindSpeedMs, s.WindSpeedMs)
}

func TestSample_Reproducible(t *testing.T) {
	m := DefaultModel()
	a, b := newRNG(2024), newRNG(2024)

	for i := 0; i < 100; i++ {
		assert.Equal(t, m.Sample(4, i%24, a), m.Sample(4, i%24, b))
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultModel().Validate())

	m := DefaultModel()
	m.Summer = Range{Min: 30, Max: 10}
	assert.Error(t, m.Validate())

	m = DefaultModel()
	m.NightWind = Range{Min: -1, Max: 5}
	assert.Error(t, m.Validate())

	m = DefaultModel()
	m.PeakIrradianceWm2 = 2000
	assert.Error(t, m.Validate())
}

func TestFixed(t *testing.T) {
	f := Fixed{TemperatureC: 20, WindSpeedMs: 5, SolarIrradianceWm2: 500, WaterFlow: 1}
	s := f.Sample(3, 14, nil)

	assert.Equal(t, 20.0, s.TemperatureC)
	assert.Equal(t, 5.0, s.WindSpeedMs)
	assert.Equal(t, 500.0, s.SolarIrradianceWm2)
	assert.Equal(t, 1.0, s.WaterFlow)
	assert.Equal(t, 3, s.Month)
	assert.Equal(t, 14, s.Hour)
}
