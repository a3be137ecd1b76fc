package model

// SourceSet holds the on/off state of every source.
type SourceSet struct {
	Hydro   bool `json:"hydro" yaml:"hydro" mapstructure:"hydro"`
	Solar   bool `json:"solar" yaml:"solar" mapstructure:"solar"`
	Wind    bool `json:"wind" yaml:"wind" mapstructure:"wind"`
	Battery bool `json:"battery" yaml:"battery" mapstructure:"battery"`
}

// AllSources returns a set with every source enabled.
func AllSources() SourceSet {
	return SourceSet{Hydro: true, Solar: true, Wind: true, Battery: true}
}

// Has reports whether src is enabled. Unknown sources are never enabled.
func (s SourceSet) Has(src Source) bool {
	switch src {
	case SourceHydro:
		return s.Hydro
	case SourceSolar:
		return s.Solar
	case SourceWind:
		return s.Wind
	case SourceBattery:
		return s.Battery
	}
	return false
}

// With returns a copy of s with src switched on or off.
func (s SourceSet) With(src Source, enabled bool) SourceSet {
	switch src {
	case SourceHydro:
		s.Hydro = enabled
	case SourceSolar:
		s.Solar = enabled
	case SourceWind:
		s.Wind = enabled
	case SourceBattery:
		s.Battery = enabled
	}
	return s
}

// CapacityConfig describes the installed plant and tariff.
type CapacityConfig struct {
	HydroCapacityKW    float64 `json:"hydro_capacity_kw"`
	SolarCapacityKW    float64 `json:"solar_capacity_kw"`
	WindCapacityKW     float64 `json:"wind_capacity_kw"`
	BatteryCapacityKWh float64 `json:"battery_capacity_kwh"`

	HydroEfficiency float64 `json:"hydro_efficiency"`
	SolarEfficiency float64 `json:"solar_efficiency"`
	WindEfficiency  float64 `json:"wind_efficiency"`

	Enabled SourceSet `json:"enabled"`

	GridCostPerKWh    float64 `json:"grid_cost_per_kwh"`
	InitialBatteryKWh float64 `json:"initial_battery_kwh"`
}

// DefaultCapacityConfig returns the stock city plant: 1 MW of each source,
// 1 MWh of storage half full, and a 0.15 GBP/kWh grid tariff.
func DefaultCapacityConfig() CapacityConfig {
	return CapacityConfig{
		HydroCapacityKW:    1000,
		SolarCapacityKW:    1000,
		WindCapacityKW:     1000,
		BatteryCapacityKWh: 1000,
		HydroEfficiency:    0.9,
		SolarEfficiency:    0.2,
		WindEfficiency:     0.4,
		Enabled:            AllSources(),
		GridCostPerKWh:     0.15,
		InitialBatteryKWh:  500,
	}
}

// Capacity returns the rated capacity of a generation source.
func (c CapacityConfig) Capacity(src Source) float64 {
	switch src {
	case SourceHydro:
		return c.HydroCapacityKW
	case SourceSolar:
		return c.SolarCapacityKW
	case SourceWind:
		return c.WindCapacityKW
	case SourceBattery:
		return c.BatteryCapacityKWh
	}
	return 0
}

// CapacityUpdate is a partial CapacityConfig. Nil fields are left unchanged.
type CapacityUpdate struct {
	HydroCapacityKW    *float64 `json:"hydro_capacity_kw,omitempty" yaml:"hydro_capacity_kw" mapstructure:"hydro_capacity_kw"`
	SolarCapacityKW    *float64 `json:"solar_capacity_kw,omitempty" yaml:"solar_capacity_kw" mapstructure:"solar_capacity_kw"`
	WindCapacityKW     *float64 `json:"wind_capacity_kw,omitempty" yaml:"wind_capacity_kw" mapstructure:"wind_capacity_kw"`
	BatteryCapacityKWh *float64 `json:"battery_capacity_kwh,omitempty" yaml:"battery_capacity_kwh" mapstructure:"battery_capacity_kwh"`

	HydroEfficiency *float64 `json:"hydro_efficiency,omitempty" yaml:"hydro_efficiency" mapstructure:"hydro_efficiency"`
	SolarEfficiency *float64 `json:"solar_efficiency,omitempty" yaml:"solar_efficiency" mapstructure:"solar_efficiency"`
	WindEfficiency  *float64 `json:"wind_efficiency,omitempty" yaml:"wind_efficiency" mapstructure:"wind_efficiency"`

	HydroEnabled   *bool `json:"hydro_enabled,omitempty" yaml:"hydro_enabled" mapstructure:"hydro_enabled"`
	SolarEnabled   *bool `json:"solar_enabled,omitempty" yaml:"solar_enabled" mapstructure:"solar_enabled"`
	WindEnabled    *bool `json:"wind_enabled,omitempty" yaml:"wind_enabled" mapstructure:"wind_enabled"`
	BatteryEnabled *bool `json:"battery_enabled,omitempty" yaml:"battery_enabled" mapstructure:"battery_enabled"`

	GridCostPerKWh    *float64 `json:"grid_cost_per_kwh,omitempty" yaml:"grid_cost_per_kwh" mapstructure:"grid_cost_per_kwh"`
	InitialBatteryKWh *float64 `json:"initial_battery_kwh,omitempty" yaml:"initial_battery_kwh" mapstructure:"initial_battery_kwh"`
}

// IsEmpty reports whether the update changes nothing.
func (u CapacityUpdate) IsEmpty() bool {
	return u == CapacityUpdate{}
}

// Apply returns base with every non-nil field of u copied over it.
func (u CapacityUpdate) Apply(base CapacityConfig) CapacityConfig {
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	c := base
	setFloat(&c.HydroCapacityKW, u.HydroCapacityKW)
	setFloat(&c.SolarCapacityKW, u.SolarCapacityKW)
	setFloat(&c.WindCapacityKW, u.WindCapacityKW)
	setFloat(&c.BatteryCapacityKWh, u.BatteryCapacityKWh)
	setFloat(&c.HydroEfficiency, u.HydroEfficiency)
	setFloat(&c.SolarEfficiency, u.SolarEfficiency)
	setFloat(&c.WindEfficiency, u.WindEfficiency)
	setBool(&c.Enabled.Hydro, u.HydroEnabled)
	setBool(&c.Enabled.Solar, u.SolarEnabled)
	setBool(&c.Enabled.Wind, u.WindEnabled)
	setBool(&c.Enabled.Battery, u.BatteryEnabled)
	setFloat(&c.GridCostPerKWh, u.GridCostPerKWh)
	setFloat(&c.InitialBatteryKWh, u.InitialBatteryKWh)
	return c
}

// Merge overlays other on top of u: fields set in other win.
func (u CapacityUpdate) Merge(other CapacityUpdate) CapacityUpdate {
	pickF := func(a, b *float64) *float64 {
		if b != nil {
			return b
		}
		return a
	}
	pickB := func(a, b *bool) *bool {
		if b != nil {
			return b
		}
		return a
	}
	return CapacityUpdate{
		HydroCapacityKW:    pickF(u.HydroCapacityKW, other.HydroCapacityKW),
		SolarCapacityKW:    pickF(u.SolarCapacityKW, other.SolarCapacityKW),
		WindCapacityKW:     pickF(u.WindCapacityKW, other.WindCapacityKW),
		BatteryCapacityKWh: pickF(u.BatteryCapacityKWh, other.BatteryCapacityKWh),
		HydroEfficiency:    pickF(u.HydroEfficiency, other.HydroEfficiency),
		SolarEfficiency:    pickF(u.SolarEfficiency, other.SolarEfficiency),
		WindEfficiency:     pickF(u.WindEfficiency, other.WindEfficiency),
		HydroEnabled:       pickB(u.HydroEnabled, other.HydroEnabled),
		SolarEnabled:       pickB(u.SolarEnabled, other.SolarEnabled),
		WindEnabled:        pickB(u.WindEnabled, other.WindEnabled),
		BatteryEnabled:     pickB(u.BatteryEnabled, other.BatteryEnabled),
		GridCostPerKWh:     pickF(u.GridCostPerKWh, other.GridCostPerKWh),
		InitialBatteryKWh:  pickF(u.InitialBatteryKWh, other.InitialBatteryKWh),
	}
}
