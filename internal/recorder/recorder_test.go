package recorder

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citygrid/internal/model"
	"citygrid/internal/report"
	"citygrid/internal/runner"
	"citygrid/internal/simulator"
	"citygrid/internal/task"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "citygrid.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citygrid.db")
	ctx := context.Background()

	db, err := Open(ctx, path)
	require.NoError(t, err)

	var ver int
	require.NoError(t, db.read.QueryRowContext(ctx, "PRAGMA user_version").Scan(&ver))
	assert.Equal(t, 1, ver)
	db.Close()

	// Reopening an up to date database applies nothing.
	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.read.QueryRowContext(ctx, "PRAGMA user_version").Scan(&ver))
	assert.Equal(t, 1, ver)
}

func TestDatabase_Runs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cfg := model.DefaultCapacityConfig()
	cfg.WindCapacityKW = 321
	run := NewRun(7, cfg)
	require.NoError(t, db.SaveRun(ctx, run))

	runs, err := db.GetRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, uint64(7), runs[0].Seed)
	assert.Equal(t, cfg, runs[0].Config)
	assert.WithinDuration(t, run.StartedAt, runs[0].StartedAt, time.Second)

	assert.Error(t, db.SaveRun(ctx, run), "duplicate run id")
}

func TestDatabase_Steps(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e, err := simulator.New(model.DefaultCapacityConfig(), simulator.Options{Seed: 3})
	require.NoError(t, err)
	run := NewRun(3, e.Config())
	require.NoError(t, db.SaveRun(ctx, run))

	for i := 0; i < 48; i++ {
		rec, err := e.Advance()
		require.NoError(t, err)
		require.NoError(t, db.SaveStep(ctx, run.ID, rec))
	}

	from := simulator.DefaultStart.Add(24 * time.Hour)
	steps, err := db.GetSteps(ctx, run.ID, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, steps, 24)

	want := e.Log()[24:]
	for i := range steps {
		assert.Equal(t, want[i], steps[i])
	}

	assert.Error(t, db.SaveStep(ctx, "no-such-run", want[0]), "foreign key enforced")
}

func TestDatabase_Reports(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	run := NewRun(1, model.DefaultCapacityConfig())
	require.NoError(t, db.SaveRun(ctx, run))

	rep := model.Report{
		Period:              model.PeriodDay,
		Start:               simulator.DefaultStart,
		End:                 simulator.DefaultStart.AddDate(0, 0, 1),
		Steps:               12,
		TotalDemandKWh:      12000,
		TotalGridUsageKWh:   300,
		TotalCost:           45,
		EndHealthPercent:    100,
		AverageTemperatureC: -3,
	}
	require.NoError(t, db.SaveReport(ctx, run.ID, rep))

	// A later snapshot of the same bucket replaces the first.
	rep.Steps = 24
	rep.TotalDemandKWh = 24000
	require.NoError(t, db.SaveReport(ctx, run.ID, rep))

	got, err := db.GetReports(ctx, run.ID, model.PeriodDay)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rep, got[0])

	none, err := db.GetReports(ctx, run.ID, model.PeriodWeek)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecorder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e, err := simulator.New(model.DefaultCapacityConfig(), simulator.Options{Seed: 11})
	require.NoError(t, err)

	rec := New(db, e, 11)
	require.NoError(t, rec.Start(ctx))
	first := rec.RunID()
	require.NotEmpty(t, first)

	r := runner.New(e, 1, rec)
	for i := 0; i < 30; i++ {
		_, err := r.Step()
		require.NoError(t, err)
	}
	require.NoError(t, r.Reset(nil))
	for i := 0; i < 5; i++ {
		_, err := r.Step()
		require.NoError(t, err)
	}
	rec.Close()

	second := rec.RunID()
	assert.NotEqual(t, first, second)

	runs, err := db.GetRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	far := simulator.DefaultStart.AddDate(1, 0, 0)
	steps, err := db.GetSteps(ctx, first, simulator.DefaultStart, far)
	require.NoError(t, err)
	assert.Len(t, steps, 30)

	steps, err = db.GetSteps(ctx, second, simulator.DefaultStart, far)
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, e.Log(), steps)

	// Reports rebuilt from stored steps match those from the live log.
	assert.Equal(t, report.Aggregate(e.Log(), model.PeriodDay), report.Aggregate(steps, model.PeriodDay))

	// Steps after Close are ignored.
	rec.OnStep(model.StepRecord{Step: 99})
	rec.Close()
}

func TestRecorder_ResetSwitchesRunAtOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e, err := simulator.New(model.DefaultCapacityConfig(), simulator.Options{Seed: 4})
	require.NoError(t, err)
	rec := New(db, e, 4)
	require.NoError(t, rec.Start(ctx))
	t.Cleanup(rec.Close)
	first := rec.RunID()

	r := runner.New(e, 1, rec)
	snapshot := task.NewReportTask(slog.Default(), r, db, rec)

	for range 48 {
		_, err := r.Step()
		require.NoError(t, err)
	}
	snapshot()
	want := r.Reports(model.PeriodDay)
	require.Len(t, want, 2)

	cfg := model.DefaultCapacityConfig()
	cfg.SolarCapacityKW = 10
	require.NoError(t, r.Reset(&cfg))
	second := rec.RunID()
	assert.NotEqual(t, first, second)

	// A snapshot right after the first step of the new run stays with it.
	_, err = r.Step()
	require.NoError(t, err)
	snapshot()

	got, err := db.GetReports(ctx, first, model.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = db.GetReports(ctx, second, model.PeriodDay)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Steps)

	runs, err := db.GetRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, 10.0, runs[0].Config.SolarCapacityKW)
}

func TestRecorder_ResetWhileRunning(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e, err := simulator.New(model.DefaultCapacityConfig(), simulator.Options{Seed: 6})
	require.NoError(t, err)
	rec := New(db, e, 6)
	require.NoError(t, rec.Start(ctx))

	r := runner.New(e, 500, rec)
	r.Start()
	for range 5 {
		time.Sleep(30 * time.Millisecond)
		require.NoError(t, r.Reset(nil))
	}
	time.Sleep(30 * time.Millisecond)
	r.Pause()
	// Wait for a step in flight.
	r.WithLog(func([]model.StepRecord) {})
	rec.Close()

	runs, err := db.GetRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 6)

	far := simulator.DefaultStart.AddDate(10, 0, 0)
	for _, run := range runs {
		steps, err := db.GetSteps(ctx, run.ID, simulator.DefaultStart, far)
		require.NoError(t, err)
		for i, s := range steps {
			require.Equal(t, i, s.Step, "run %s", run.ID)
		}
		if run.ID == rec.RunID() {
			assert.Equal(t, e.Log(), steps)
		}
	}
}
