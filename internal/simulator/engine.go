package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"citygrid/internal/model"
	"citygrid/internal/store"
	"citygrid/internal/weather"
)

// WeatherSource produces the weather for a calendar position.
type WeatherSource interface {
	Sample(month, hour int, rng *rand.Rand) model.WeatherSample
}

// DemandSource produces hourly consumption for a temperature.
type DemandSource interface {
	Demand(temperatureC float64, rng *rand.Rand) float64
}

// Options holds the parts of a run that are fixed at construction.
type Options struct {
	Seed        uint64
	StepsPerDay int       // default 24
	Start       time.Time // default DefaultStart
	Weather     WeatherSource
	Demand      DemandSource
	Battery     *BatteryConfig
}

// Engine steps the city model. It is safe for concurrent use: Advance,
// Configure and Reset are serialised, and readers get snapshots.
type Engine struct {
	mu sync.Mutex

	seed    uint64
	rng     *rand.Rand
	clock   Clock
	weather WeatherSource
	demand  DemandSource

	cfg     model.CapacityConfig
	battery *Battery
	log     *store.Log

	prevHealth float64
	failed     error
}

// New validates cfg and returns an engine at step 0.
func New(cfg model.CapacityConfig, opts Options) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	stepsPerDay := opts.StepsPerDay
	if stepsPerDay == 0 {
		stepsPerDay = 24
	}
	clock, err := NewClock(opts.Start, stepsPerDay)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		seed:    opts.Seed,
		clock:   clock,
		weather: opts.Weather,
		demand:  opts.Demand,
		log:     store.New(),
	}
	if e.weather == nil {
		e.weather = weather.DefaultModel()
	}
	if e.demand == nil {
		e.demand = DefaultDemandModel()
	}

	batteryCfg := DefaultBatteryConfig()
	if opts.Battery != nil {
		batteryCfg = *opts.Battery
	}
	e.battery = NewBattery(batteryCfg, cfg.BatteryCapacityKWh, cfg.InitialBatteryKWh)

	e.init(cfg)
	return e, nil
}

// init restarts the run with cfg. Must be called with mu held.
func (e *Engine) init(cfg model.CapacityConfig) {
	e.cfg = cfg
	e.rng = rand.New(rand.NewPCG(e.seed, 0))
	e.clock.reset()
	e.log.Clear()

	e.battery.initialKWh = cfg.InitialBatteryKWh
	e.battery.SetCapacity(cfg.BatteryCapacityKWh)
	e.battery.SetEnabled(cfg.Enabled.Battery)
	e.battery.Reset()

	e.prevHealth = e.battery.HealthPercent
	e.failed = nil
}

// Advance runs one step: weather, demand and generation, balance, record.
func (e *Engine) Advance() (model.StepRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failed != nil {
		return model.StepRecord{}, e.failed
	}

	step := e.clock.Elapsed()
	ts, month, hour := e.clock.At(step)
	hours := e.clock.StepHours()

	w := e.weather.Sample(month, hour, e.rng)
	demandKWh := math.Max(e.demand.Demand(w.TemperatureC, e.rng), 0) * hours
	gen := Generate(w, e.cfg)
	genKWh := gen.TotalKW() * hours

	bal := GridBalancer{CostPerKWh: e.cfg.GridCostPerKWh}.Balance(demandKWh, genKWh, e.battery)
	e.battery.Age(hours)

	rec := model.StepRecord{
		Step:                 step,
		Timestamp:            ts,
		StepHours:            hours,
		Weather:              w,
		DemandKWh:            demandKWh,
		HydroKW:              gen.HydroKW,
		SolarKW:              gen.SolarKW,
		WindKW:               gen.WindKW,
		TotalGenerationKWh:   genKWh,
		NetEnergyKWh:         bal.NetEnergyKWh,
		BatteryLevelKWh:      e.battery.LevelKWh,
		BatteryHealthPercent: e.battery.HealthPercent,
		CycleCount:           e.battery.CycleCount,
		GridUsageKWh:         bal.GridUsageKWh,
		GridCost:             bal.GridCost,
		Savings:              bal.Savings,
	}

	if err := checkRecord(rec, e.battery.CapacityKWh(), e.prevHealth); err != nil {
		e.failed = fmt.Errorf("step %d: %w", step, err)
		return model.StepRecord{}, e.failed
	}
	if err := e.log.Append(rec); err != nil {
		e.failed = fmt.Errorf("step %d: %w: %v", step, ErrStateInvariant, err)
		return model.StepRecord{}, e.failed
	}

	e.prevHealth = rec.BatteryHealthPercent
	e.clock.advance()
	return rec, nil
}

// Reset validates cfg, then restarts the run: battery back to its initial
// level and full health, clock at step 0, log cleared, rng reseeded.
func (e *Engine) Reset(cfg model.CapacityConfig) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.init(cfg)
	return nil
}

// Configure applies a partial update from the next step on. History and
// battery health are kept; a smaller battery clamps the current level.
// When the update shrinks the battery below the configured initial level
// and does not set InitialBatteryKWh itself, the initial level is lowered
// to the new capacity.
func (e *Engine) Configure(update model.CapacityUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := update.Apply(e.cfg)
	// The initial level only matters at reset; keep it consistent with a
	// shrunken battery instead of rejecting an otherwise valid update.
	if update.InitialBatteryKWh == nil && next.InitialBatteryKWh > next.BatteryCapacityKWh {
		next.InitialBatteryKWh = next.BatteryCapacityKWh
	}
	if err := ValidateConfig(next); err != nil {
		return err
	}

	e.cfg = next
	e.battery.initialKWh = next.InitialBatteryKWh
	e.battery.SetCapacity(next.BatteryCapacityKWh)
	e.battery.SetEnabled(next.Enabled.Battery)
	return nil
}

// ToggleSource switches a source on or off from the next step on.
func (e *Engine) ToggleSource(src model.Source, enabled bool) error {
	if _, ok := model.SourceCatalog[src]; !ok {
		return invalidf("unknown source %q", src)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg.Enabled = e.cfg.Enabled.With(src, enabled)
	if src == model.SourceBattery {
		e.battery.SetEnabled(enabled)
	}
	return nil
}

// Log returns a snapshot of every step record so far.
func (e *Engine) Log() []model.StepRecord {
	return e.log.Snapshot()
}

// Store exposes the step log for range queries.
func (e *Engine) Store() store.Reader {
	return e.log
}

// Battery returns a snapshot of the battery.
func (e *Engine) Battery() model.BatteryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.battery.State()
}

// Config returns the active configuration.
func (e *Engine) Config() model.CapacityConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Steps returns the number of completed steps.
func (e *Engine) Steps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Elapsed()
}

// Now returns the timestamp the next step will carry.
func (e *Engine) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts, _, _ := e.clock.At(e.clock.Elapsed())
	return ts
}

// Clock returns a copy of the simulation clock.
func (e *Engine) Clock() Clock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

// Err returns the invariant violation that stopped the run, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}
