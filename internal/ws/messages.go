package ws

import (
	"encoding/json"
	"time"

	"citygrid/internal/model"
	"citygrid/internal/runner"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type SetSpeedPayload struct {
	Speed float64 `json:"speed"`
}

type ToggleSourcePayload struct {
	Source  string `json:"source"`
	Enabled bool   `json:"enabled"`
}

// ConfigResetPayload restarts the run. Update is applied on top of the
// active configuration, or on top of the defaults when Defaults is set.
type ConfigResetPayload struct {
	Defaults bool                  `json:"defaults"`
	Update   *model.CapacityUpdate `json:"config,omitempty"`
}

type ReportRequestPayload struct {
	Period string `json:"period"`
}

// Server -> Client messages

type SimStatePayload struct {
	Time    string  `json:"time"`
	Step    int     `json:"step"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
	Error   string  `json:"error,omitempty"`
}

type StepRecordPayload struct {
	Step         int     `json:"step"`
	Timestamp    string  `json:"timestamp"`
	TemperatureC float64 `json:"temperature_c"`
	WindSpeedMs  float64 `json:"wind_speed_ms"`
	IrradianceWm float64 `json:"solar_irradiance_wm2"`
	WaterFlow    float64 `json:"water_flow"`
	DemandKWh    float64 `json:"demand_kwh"`
	HydroKW      float64 `json:"hydro_kw"`
	SolarKW      float64 `json:"solar_kw"`
	WindKW       float64 `json:"wind_kw"`
	GenerationKW float64 `json:"total_generation_kwh"`
	NetEnergyKWh float64 `json:"net_energy_kwh"`
	GridUsageKWh float64 `json:"grid_usage_kwh"`
	GridCost     float64 `json:"grid_cost"`
	Savings      float64 `json:"savings"`
}

type BatteryStatePayload struct {
	LevelKWh      float64 `json:"level_kwh"`
	CapacityKWh   float64 `json:"capacity_kwh"`
	HealthPercent float64 `json:"health_percent"`
	CycleCount    int     `json:"cycle_count"`
	AgeYears      float64 `json:"age_years"`
	Enabled       bool    `json:"enabled"`
}

type ConfigPayload struct {
	HydroCapacityKW    float64         `json:"hydro_capacity_kw"`
	SolarCapacityKW    float64         `json:"solar_capacity_kw"`
	WindCapacityKW     float64         `json:"wind_capacity_kw"`
	BatteryCapacityKWh float64         `json:"battery_capacity_kwh"`
	HydroEfficiency    float64         `json:"hydro_efficiency"`
	SolarEfficiency    float64         `json:"solar_efficiency"`
	WindEfficiency     float64         `json:"wind_efficiency"`
	GridCostPerKWh     float64         `json:"grid_cost_per_kwh"`
	InitialBatteryKWh  float64         `json:"initial_battery_kwh"`
	Enabled            map[string]bool `json:"enabled"`
}

type ReportResultPayload struct {
	Title  string       `json:"title"`
	Report model.Report `json:"report"`
	Text   string       `json:"text"`
}

type ErrorPayload struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}

// Message type constants
const (
	// Client -> Server
	TypeSimStart      = "sim:start"
	TypeSimPause      = "sim:pause"
	TypeSimStep       = "sim:step"
	TypeSimSetSpeed   = "sim:set_speed"
	TypeConfigUpdate  = "config:update"
	TypeConfigReset   = "config:reset"
	TypeSourceToggle  = "source:toggle"
	TypeReportRequest = "report:request"

	// Server -> Client
	TypeSimState      = "sim:state"
	TypeSimReset      = "sim:reset"
	TypeStepRecord    = "step:record"
	TypeBatteryState  = "battery:state"
	TypeConfigCurrent = "config:current"
	TypeReportResult  = "report:result"
	TypeError         = "error"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SimStateFromRunner(s runner.State) SimStatePayload {
	return SimStatePayload{
		Time:    s.Time.Format(time.RFC3339),
		Step:    s.Step,
		Speed:   s.Speed,
		Running: s.Running,
		Error:   s.Error,
	}
}

func StepFromRecord(r model.StepRecord) StepRecordPayload {
	return StepRecordPayload{
		Step:         r.Step,
		Timestamp:    r.Timestamp.Format(time.RFC3339),
		TemperatureC: r.Weather.TemperatureC,
		WindSpeedMs:  r.Weather.WindSpeedMs,
		IrradianceWm: r.Weather.SolarIrradianceWm2,
		WaterFlow:    r.Weather.WaterFlow,
		DemandKWh:    r.DemandKWh,
		HydroKW:      r.HydroKW,
		SolarKW:      r.SolarKW,
		WindKW:       r.WindKW,
		GenerationKW: r.TotalGenerationKWh,
		NetEnergyKWh: r.NetEnergyKWh,
		GridUsageKWh: r.GridUsageKWh,
		GridCost:     r.GridCost,
		Savings:      r.Savings,
	}
}

func BatteryFromState(b model.BatteryState) BatteryStatePayload {
	return BatteryStatePayload{
		LevelKWh:      b.LevelKWh,
		CapacityKWh:   b.CapacityKWh,
		HealthPercent: b.HealthPercent,
		CycleCount:    b.CycleCount,
		AgeYears:      b.AgeYears(),
		Enabled:       b.Enabled,
	}
}

func ConfigFromModel(c model.CapacityConfig) ConfigPayload {
	enabled := make(map[string]bool, len(model.SourceCatalog))
	for src := range model.SourceCatalog {
		enabled[string(src)] = c.Enabled.Has(src)
	}
	return ConfigPayload{
		HydroCapacityKW:    c.HydroCapacityKW,
		SolarCapacityKW:    c.SolarCapacityKW,
		WindCapacityKW:     c.WindCapacityKW,
		BatteryCapacityKWh: c.BatteryCapacityKWh,
		HydroEfficiency:    c.HydroEfficiency,
		SolarEfficiency:    c.SolarEfficiency,
		WindEfficiency:     c.WindEfficiency,
		GridCostPerKWh:     c.GridCostPerKWh,
		InitialBatteryKWh:  c.InitialBatteryKWh,
		Enabled:            enabled,
	}
}
