package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"citygrid/internal/model"
	"citygrid/internal/runner"
)

// Metrics exposes the live run as Prometheus gauges and counters. It
// implements runner.Callback.
type Metrics struct {
	runner.NopCallback

	registry *prometheus.Registry

	steps         prometheus.Gauge
	running       prometheus.Gauge
	speed         prometheus.Gauge
	demand        prometheus.Gauge
	generation    *prometheus.GaugeVec
	batteryLevel  prometheus.Gauge
	batteryHealth prometheus.Gauge
	batteryCycles prometheus.Gauge
	gridUsage     prometheus.Counter
	gridCost      prometheus.Counter
	savings       prometheus.Counter
	capacity      *prometheus.GaugeVec
	enabled       *prometheus.GaugeVec
}

var _ runner.Callback = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		steps: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_steps",
			Help: "Number of completed simulation steps.",
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_running",
			Help: "1 while the simulation is playing.",
		}),
		speed: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_speed_steps_per_second",
			Help: "Playback speed in simulation steps per second.",
		}),
		demand: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_demand_kwh",
			Help: "City demand in the latest step.",
		}),
		generation: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "citygrid_generation_kw",
			Help: "Output of each generation source in the latest step.",
		}, []string{"source"}),
		batteryLevel: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_battery_level_kwh",
			Help: "Energy held by the battery store.",
		}),
		batteryHealth: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_battery_health_percent",
			Help: "Battery health.",
		}),
		batteryCycles: f.NewGauge(prometheus.GaugeOpts{
			Name: "citygrid_battery_cycles",
			Help: "Completed equivalent full battery cycles.",
		}),
		gridUsage: f.NewCounter(prometheus.CounterOpts{
			Name: "citygrid_grid_usage_kwh_total",
			Help: "Energy imported from the grid since the server started.",
		}),
		gridCost: f.NewCounter(prometheus.CounterOpts{
			Name: "citygrid_grid_cost_total",
			Help: "Cost of grid imports since the server started.",
		}),
		savings: f.NewCounter(prometheus.CounterOpts{
			Name: "citygrid_savings_total",
			Help: "Grid cost avoided by local generation since the server started.",
		}),
		capacity: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "citygrid_capacity",
			Help: "Configured capacity per source, kW for generators and kWh for the battery.",
		}, []string{"source"}),
		enabled: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "citygrid_source_enabled",
			Help: "1 if the source takes part in the simulation.",
		}, []string{"source"}),
	}
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OnState(s runner.State) {
	m.steps.Set(float64(s.Step))
	m.speed.Set(s.Speed)
	if s.Running {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}

func (m *Metrics) OnStep(r model.StepRecord) {
	m.demand.Set(r.DemandKWh)
	m.generation.WithLabelValues(string(model.SourceHydro)).Set(r.HydroKW)
	m.generation.WithLabelValues(string(model.SourceSolar)).Set(r.SolarKW)
	m.generation.WithLabelValues(string(model.SourceWind)).Set(r.WindKW)
	m.batteryLevel.Set(r.BatteryLevelKWh)
	m.batteryHealth.Set(r.BatteryHealthPercent)
	m.batteryCycles.Set(float64(r.CycleCount))
	m.gridUsage.Add(r.GridUsageKWh)
	m.gridCost.Add(r.GridCost)
	m.savings.Add(r.Savings)
}

func (m *Metrics) OnConfig(cfg model.CapacityConfig, battery model.BatteryState) {
	for src := range model.SourceCatalog {
		m.capacity.WithLabelValues(string(src)).Set(cfg.Capacity(src))
		v := 0.0
		if cfg.Enabled.Has(src) {
			v = 1
		}
		m.enabled.WithLabelValues(string(src)).Set(v)
	}
	m.batteryLevel.Set(battery.LevelKWh)
	m.batteryHealth.Set(battery.HealthPercent)
}
