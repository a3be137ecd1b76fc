package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"citygrid/internal/model"
	"citygrid/internal/runner"
)

// ConfigSource provides the configuration a new run starts with.
type ConfigSource interface {
	Config() model.CapacityConfig
}

// item is a step waiting to be written under the run it belongs to.
type item struct {
	runID string
	step  model.StepRecord
}

const (
	batchSize    = 256
	writeTimeout = 10 * time.Second
)

// Recorder persists every step of the live run. It implements
// runner.Callback; steps are written on a background goroutine in batches.
// A reset saves the new run at once and switches the run id before any step
// of the new run arrives.
type Recorder struct {
	runner.NopCallback

	db     *Database
	config ConfigSource
	seed   uint64
	logger *slog.Logger

	items chan item
	done  chan struct{}

	runMu sync.RWMutex
	runID string

	mu     sync.RWMutex // guards closed and sends on items
	closed bool
}

var _ runner.Callback = (*Recorder)(nil)

func New(db *Database, config ConfigSource, seed uint64) *Recorder {
	return &Recorder{
		db:     db,
		config: config,
		seed:   seed,
		logger: slog.Default().With("module", "recorder"),
		items:  make(chan item, 4*batchSize),
		done:   make(chan struct{}),
	}
}

// Start records the initial run and starts the writer.
func (r *Recorder) Start(ctx context.Context) error {
	run := NewRun(r.seed, r.config.Config())
	if err := r.db.SaveRun(ctx, run); err != nil {
		return err
	}
	r.setRunID(run.ID)
	r.logger.Info("recording run", slog.String("run", run.ID))

	go r.loop()
	return nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	r.runMu.RLock()
	defer r.runMu.RUnlock()
	return r.runID
}

func (r *Recorder) setRunID(id string) {
	r.runMu.Lock()
	r.runID = id
	r.runMu.Unlock()
}

func (r *Recorder) OnStep(rec model.StepRecord) {
	r.enqueue(item{runID: r.RunID(), step: rec})
}

// OnReset starts a new run. Steps still queued keep the id of the run they
// were produced in.
func (r *Recorder) OnReset() {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return
	}

	run := NewRun(r.seed, r.config.Config())

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.db.SaveRun(ctx, run); err != nil {
		r.logger.Error("error saving run", slog.String("run", run.ID), slog.Any("error", err))
	}

	r.setRunID(run.ID)
	r.logger.Info("recording run", slog.String("run", run.ID))
}

func (r *Recorder) enqueue(it item) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.items <- it
}

// Close flushes pending writes and stops the writer. The database stays
// open.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.items)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)

	batch := make([]item, 0, batchSize)
	for it := range r.items {
		batch = append(batch[:0], it)
	drain:
		for len(batch) < batchSize {
			select {
			case next, ok := <-r.items:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		r.write(batch)
	}
}

func (r *Recorder) write(batch []item) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	tx, err := r.db.write.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("error starting batch", slog.Any("error", err))
		return
	}

	for _, it := range batch {
		if err := r.db.saveStep(ctx, tx, it.runID, it.step); err != nil {
			r.logger.Error("error saving step", slog.String("run", it.runID), slog.Int("step", it.step.Step), slog.Any("error", err))
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("error committing batch", slog.Int("items", len(batch)), slog.Any("error", err))
	}
}
