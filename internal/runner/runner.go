package runner

import (
	"log/slog"
	"sync"
	"time"

	"citygrid/internal/model"
	"citygrid/internal/report"
	"citygrid/internal/simulator"
)

// State is the playback state of a run.
type State struct {
	Time    time.Time `json:"time"` // timestamp of the next step
	Step    int       `json:"step"` // completed steps
	Speed   float64   `json:"speed"`
	Running bool      `json:"running"`
	Error   string    `json:"error,omitempty"`
}

// Callback receives everything the runner produces. Calls come from the
// runner goroutine or the caller of a command. OnStep and OnReset are
// delivered in run order and never concurrently with each other.
type Callback interface {
	OnState(state State)
	OnStep(rec model.StepRecord)
	OnConfig(cfg model.CapacityConfig, battery model.BatteryState)
	OnReset()
}

// NopCallback can be embedded to implement only part of Callback.
type NopCallback struct{}

func (NopCallback) OnState(State)                                     {}
func (NopCallback) OnStep(model.StepRecord)                           {}
func (NopCallback) OnConfig(model.CapacityConfig, model.BatteryState) {}
func (NopCallback) OnReset()                                          {}

const (
	tickInterval = 100 * time.Millisecond
	MinSpeed     = 0.1
	MaxSpeed     = 10000
)

// Runner plays an engine in real time at a number of steps per second.
type Runner struct {
	engine    *simulator.Engine
	logger    *slog.Logger
	callbacks []Callback

	// stepMu is held across an advance and its OnStep fan-out, and across
	// a reset and its OnReset fan-out.
	stepMu sync.Mutex

	mu      sync.Mutex
	speed   float64
	pending float64
	running bool
	stopCh  chan struct{}
}

func New(engine *simulator.Engine, speed float64, callbacks ...Callback) *Runner {
	return &Runner{
		engine:    engine,
		logger:    slog.Default().With("module", "runner"),
		callbacks: callbacks,
		speed:     clampSpeed(speed),
	}
}

// Engine returns the engine being played.
func (r *Runner) Engine() *simulator.Engine {
	return r.engine
}

// State returns the current playback state.
func (r *Runner) State() State {
	r.mu.Lock()
	speed, running := r.speed, r.running
	r.mu.Unlock()

	s := State{
		Time:    r.engine.Now(),
		Step:    r.engine.Steps(),
		Speed:   speed,
		Running: running,
	}
	if err := r.engine.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}

// Start begins playback. It does nothing if already running.
func (r *Runner) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.pending = 0
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	r.logger.Info("simulation started")
	r.broadcastState()
	go r.loop(stopCh)
}

// Pause stops playback after the step in progress.
func (r *Runner) Pause() {
	if r.stop() {
		r.logger.Info("simulation paused", slog.Int("step", r.engine.Steps()))
		r.broadcastState()
	}
}

func (r *Runner) stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	r.running = false
	close(r.stopCh)
	return true
}

// SetSpeed sets playback speed in steps per second.
func (r *Runner) SetSpeed(speed float64) {
	r.mu.Lock()
	r.speed = clampSpeed(speed)
	r.mu.Unlock()

	r.broadcastState()
}

func clampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// Step advances exactly one step, whether or not playback is running.
func (r *Runner) Step() (model.StepRecord, error) {
	rec, err := r.advance()
	r.broadcastState()
	return rec, err
}

// Configure applies a partial capacity update from the next step on.
func (r *Runner) Configure(update model.CapacityUpdate) error {
	if err := r.engine.Configure(update); err != nil {
		return err
	}
	r.logger.Info("configuration updated", slog.Any("config", r.engine.Config()))
	r.broadcastConfig()
	return nil
}

// ToggleSource switches one source on or off from the next step on.
func (r *Runner) ToggleSource(src model.Source, enabled bool) error {
	if err := r.engine.ToggleSource(src, enabled); err != nil {
		return err
	}
	r.logger.Info("source toggled", slog.String("source", string(src)), slog.Bool("enabled", enabled))
	r.broadcastConfig()
	return nil
}

// Reset restarts the run with cfg, or with the active configuration when
// cfg is nil. Playback keeps its running state.
func (r *Runner) Reset(cfg *model.CapacityConfig) error {
	r.stepMu.Lock()
	next := r.engine.Config()
	if cfg != nil {
		next = *cfg
	}
	if err := r.engine.Reset(next); err != nil {
		r.stepMu.Unlock()
		return err
	}

	r.mu.Lock()
	r.pending = 0
	r.mu.Unlock()

	r.logger.Info("simulation reset")
	for _, cb := range r.callbacks {
		cb.OnReset()
	}
	r.stepMu.Unlock()

	r.broadcastConfig()
	r.broadcastState()
	return nil
}

// Report summarises the bucket of the given period that holds the latest
// step.
func (r *Runner) Report(period model.Period) (model.Report, bool) {
	return report.Latest(r.engine.Log(), period)
}

// Reports summarises the whole run in buckets of the given period.
func (r *Runner) Reports(period model.Period) []model.Report {
	return report.Aggregate(r.engine.Log(), period)
}

// WithLog calls fn with a snapshot of the current run's log. Steps and
// resets wait for fn, so state that callbacks keep per run, such as a
// recorder's run id, matches the snapshot while fn runs. fn must not call
// back into the runner.
func (r *Runner) WithLog(fn func(log []model.StepRecord)) {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()
	fn(r.engine.Log())
}

func (r *Runner) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if r.tick(stopCh) {
				return
			}
		}
	}
}

// tick runs the steps owed since the last tick. Returns true once playback
// has stopped, by Pause or by a failed step.
func (r *Runner) tick(stopCh chan struct{}) bool {
	r.mu.Lock()
	r.pending += r.speed * tickInterval.Seconds()
	n := int(r.pending)
	r.pending -= float64(n)
	r.mu.Unlock()

	for i := 0; i < n; i++ {
		stopped, err := r.tickStep(stopCh)
		if stopped {
			return true
		}
		if err != nil {
			r.logger.Error("simulation stopped", slog.Any("error", err))
			r.stop()
			r.broadcastState()
			return true
		}
	}

	if n > 0 {
		r.broadcastState()
	}
	return false
}

// tickStep advances one step unless playback stopped while it waited for
// the step lock.
func (r *Runner) tickStep(stopCh chan struct{}) (bool, error) {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()

	select {
	case <-stopCh:
		return true, nil
	default:
	}
	_, err := r.advanceLocked()
	return false, err
}

func (r *Runner) advance() (model.StepRecord, error) {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()
	return r.advanceLocked()
}

// advanceLocked runs one step and fans it out. stepMu must be held.
func (r *Runner) advanceLocked() (model.StepRecord, error) {
	rec, err := r.engine.Advance()
	if err != nil {
		return rec, err
	}
	for _, cb := range r.callbacks {
		cb.OnStep(rec)
	}
	return rec, nil
}

func (r *Runner) broadcastState() {
	s := r.State()
	for _, cb := range r.callbacks {
		cb.OnState(s)
	}
}

func (r *Runner) broadcastConfig() {
	cfg, battery := r.engine.Config(), r.engine.Battery()
	for _, cb := range r.callbacks {
		cb.OnConfig(cfg, battery)
	}
}
