package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citygrid/internal/model"
	"citygrid/internal/runner"
)

func TestMetrics_OnStep(t *testing.T) {
	m := New()

	rec := model.StepRecord{
		DemandKWh:            1100,
		HydroKW:              97.2,
		SolarKW:              160,
		WindKW:               2.4,
		BatteryLevelKWh:      300,
		BatteryHealthPercent: 99.6,
		CycleCount:           20,
		GridUsageKWh:         40,
		GridCost:             6,
		Savings:              10,
	}
	m.OnStep(rec)
	m.OnStep(rec)

	assert.Equal(t, 1100.0, testutil.ToFloat64(m.demand))
	assert.Equal(t, 160.0, testutil.ToFloat64(m.generation.WithLabelValues("solar")))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.batteryLevel))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.batteryCycles))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.gridUsage))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.gridCost))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.savings))
}

func TestMetrics_OnStateAndConfig(t *testing.T) {
	m := New()

	m.OnState(runner.State{Step: 48, Speed: 24, Running: true})
	assert.Equal(t, 48.0, testutil.ToFloat64(m.steps))
	assert.Equal(t, 24.0, testutil.ToFloat64(m.speed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.running))

	m.OnState(runner.State{Step: 48, Speed: 24})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running))

	cfg := model.DefaultCapacityConfig()
	cfg.Enabled.Wind = false
	cfg.BatteryCapacityKWh = 750
	m.OnConfig(cfg, model.BatteryState{LevelKWh: 500, HealthPercent: 100})

	assert.Equal(t, 750.0, testutil.ToFloat64(m.capacity.WithLabelValues("battery")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.enabled.WithLabelValues("wind")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enabled.WithLabelValues("hydro")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.batteryLevel))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OnStep(model.StepRecord{DemandKWh: 900})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "citygrid_demand_kwh 900")
	assert.Contains(t, string(body), "citygrid_grid_usage_kwh_total")
}
