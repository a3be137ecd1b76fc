package weather

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"citygrid/internal/model"
	"citygrid/internal/solar"
)

// Physical sanity limits applied to every sample.
const (
	MinTemperatureC  = -60.0
	MaxTemperatureC  = 60.0
	MaxWindSpeedMs   = 75.0
	SolarConstantWm2 = 1361.0
	DefaultPeakSolar = 1000.0
	DefaultFlowMin   = 50.0
	DefaultFlowMax   = 500.0
)

// Range is a closed [Min, Max] interval for uniform draws.
type Range struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max"`
}

func (r Range) draw(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return distuv.Uniform{Min: r.Min, Max: r.Max, Src: rng}.Rand()
}

// Mid returns the centre of the range.
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Model is a stochastic weather generator keyed by calendar position.
type Model struct {
	Winter Range `json:"winter"` // Dec-Feb
	Spring Range `json:"spring"` // Mar-May
	Summer Range `json:"summer"` // Jun-Aug
	Autumn Range `json:"autumn"` // Sep-Nov

	DayWind   Range `json:"day_wind"`
	NightWind Range `json:"night_wind"`

	PeakIrradianceWm2 float64 `json:"peak_irradiance_wm2"`
	WaterFlow         Range   `json:"water_flow"`

	Daylight solar.DaylightProfile `json:"-"`
}

// DefaultModel returns a temperate-climate model: cold winters, warm summers,
// stronger daytime wind and a 06:00-18:00 solar window.
func DefaultModel() *Model {
	return &Model{
		Winter:            Range{Min: -5, Max: 10},
		Spring:            Range{Min: 5, Max: 20},
		Summer:            Range{Min: 15, Max: 35},
		Autumn:            Range{Min: 5, Max: 25},
		DayWind:           Range{Min: 0, Max: 20},
		NightWind:         Range{Min: 0, Max: 10},
		PeakIrradianceWm2: DefaultPeakSolar,
		WaterFlow:         Range{Min: DefaultFlowMin, Max: DefaultFlowMax},
		Daylight:          solar.DefaultProfile(),
	}
}

// Validate checks that every range is ordered and physically plausible.
func (m *Model) Validate() error {
	ranges := map[string]Range{
		"winter":     m.Winter,
		"spring":     m.Spring,
		"summer":     m.Summer,
		"autumn":     m.Autumn,
		"day_wind":   m.DayWind,
		"night_wind": m.NightWind,
		"water_flow": m.WaterFlow,
	}
	for name, r := range ranges {
		if r.Min > r.Max {
			return fmt.Errorf("weather range %s: min %.2f above max %.2f", name, r.Min, r.Max)
		}
	}
	if m.DayWind.Min < 0 || m.NightWind.Min < 0 {
		return fmt.Errorf("wind speed range must not be negative")
	}
	if m.WaterFlow.Min < 0 {
		return fmt.Errorf("water flow range must not be negative")
	}
	if m.PeakIrradianceWm2 < 0 || m.PeakIrradianceWm2 > SolarConstantWm2 {
		return fmt.Errorf("peak irradiance %.1f outside [0, %.0f]", m.PeakIrradianceWm2, SolarConstantWm2)
	}
	return nil
}

// SeasonRange returns the temperature range for a month (1-12).
func (m *Model) SeasonRange(month int) Range {
	switch month {
	case 12, 1, 2:
		return m.Winter
	case 3, 4, 5:
		return m.Spring
	case 6, 7, 8:
		return m.Summer
	default:
		return m.Autumn
	}
}

// Sample draws the weather for (month, hour). Draw order is fixed
// (temperature, wind, solar, water flow) so a seeded rng reproduces a run.
func (m *Model) Sample(month, hour int, rng *rand.Rand) model.WeatherSample {
	temp := m.SeasonRange(month).draw(rng)

	wind := m.NightWind
	if m.Daylight.IsDaylight(hour) {
		wind = m.DayWind
	}
	windSpeed := wind.draw(rng)

	irradiance := 0.0
	if m.Daylight.IsDaylight(hour) {
		irradiance = Range{Max: m.PeakIrradianceWm2}.draw(rng) * m.Daylight.Factor(hour)
	}

	flow := m.WaterFlow.draw(rng)

	return model.WeatherSample{
		TemperatureC:       clamp(temp, MinTemperatureC, MaxTemperatureC),
		WindSpeedMs:        clamp(windSpeed, 0, MaxWindSpeedMs),
		SolarIrradianceWm2: clamp(irradiance, 0, SolarConstantWm2),
		WaterFlow:          math.Max(flow, 0),
		Month:              month,
		Hour:               hour,
	}
}

// Fixed returns the same weather every step. Month and hour are filled in
// from the caller so records still carry their calendar position.
type Fixed struct {
	TemperatureC       float64
	WindSpeedMs        float64
	SolarIrradianceWm2 float64
	WaterFlow          float64
}

func (f Fixed) Sample(month, hour int, _ *rand.Rand) model.WeatherSample {
	return model.WeatherSample{
		TemperatureC:       f.TemperatureC,
		WindSpeedMs:        f.WindSpeedMs,
		SolarIrradianceWm2: f.SolarIrradianceWm2,
		WaterFlow:          f.WaterFlow,
		Month:              month,
		Hour:               hour,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
