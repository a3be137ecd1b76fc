package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citygrid/internal/model"
	"citygrid/internal/runner"
	"citygrid/internal/simulator"
)

// testRunner wires an engine, runner and bridge onto a fresh hub.
func testRunner(t *testing.T) (*Hub, *runner.Runner) {
	t.Helper()
	e, err := simulator.New(model.DefaultCapacityConfig(), simulator.Options{Seed: 9})
	require.NoError(t, err)
	hub := NewHub()
	return hub, runner.New(e, 1, NewBridge(hub, e))
}

// dialHandler sets up a test server with the handler and returns a WS connection.
func dialHandler(t *testing.T, handler *Handler) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

// readJSON reads the next JSON message from the connection.
func readJSON(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

// readType skips messages until one of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, msgType string) Envelope {
	t.Helper()
	for i := 0; i < 500; i++ {
		env := readJSON(t, conn)
		if env.Type == msgType {
			return env
		}
	}
	t.Fatalf("no %s message received", msgType)
	return Envelope{}
}

// sendJSON sends a JSON message on the connection.
func sendJSON(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	data, err := NewEnvelope(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// connect dials the handler and drains the greeting.
func connect(t *testing.T) (*websocket.Conn, *runner.Runner, func()) {
	t.Helper()
	hub, r := testRunner(t)
	conn, cleanup := dialHandler(t, NewHandler(hub, r))
	readJSON(t, conn) // config:current
	readJSON(t, conn) // battery:state
	readJSON(t, conn) // sim:state
	return conn, r, cleanup
}

func TestHandler_InitialMessages(t *testing.T) {
	hub, r := testRunner(t)
	conn, cleanup := dialHandler(t, NewHandler(hub, r))
	defer cleanup()

	env1 := readJSON(t, conn)
	assert.Equal(t, TypeConfigCurrent, env1.Type)
	var cfg ConfigPayload
	require.NoError(t, json.Unmarshal(env1.Payload, &cfg))
	assert.Equal(t, 1000.0, cfg.SolarCapacityKW)
	assert.True(t, cfg.Enabled["battery"])

	env2 := readJSON(t, conn)
	assert.Equal(t, TypeBatteryState, env2.Type)
	var b BatteryStatePayload
	require.NoError(t, json.Unmarshal(env2.Payload, &b))
	assert.Equal(t, 500.0, b.LevelKWh)
	assert.Equal(t, 100.0, b.HealthPercent)

	env3 := readJSON(t, conn)
	assert.Equal(t, TypeSimState, env3.Type)
	var ss SimStatePayload
	require.NoError(t, json.Unmarshal(env3.Payload, &ss))
	assert.False(t, ss.Running)
	assert.Equal(t, 0, ss.Step)
	assert.Equal(t, "2025-01-01T00:00:00Z", ss.Time)

	assert.Equal(t, 1, hub.ClientCount())
}

func TestHandler_StartPause(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	sendJSON(t, conn, TypeSimStart, nil)
	env := readType(t, conn, TypeSimState)
	var ss SimStatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &ss))
	assert.True(t, ss.Running)

	sendJSON(t, conn, TypeSimPause, nil)
	assert.Eventually(t, func() bool { return !r.State().Running }, time.Second, 10*time.Millisecond)
}

func TestHandler_Step(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	sendJSON(t, conn, TypeSimStep, nil)

	env := readType(t, conn, TypeStepRecord)
	var p StepRecordPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 0, p.Step)
	assert.Equal(t, "2025-01-01T00:00:00Z", p.Timestamp)

	readType(t, conn, TypeBatteryState)
	assert.Equal(t, 1, r.Engine().Steps())
}

func TestHandler_SetSpeed(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	sendJSON(t, conn, TypeSimSetSpeed, SetSpeedPayload{Speed: 48})
	readType(t, conn, TypeSimState)

	assert.Equal(t, 48.0, r.State().Speed)
}

func TestHandler_ConfigUpdate(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	wind := 2500.0
	sendJSON(t, conn, TypeConfigUpdate, model.CapacityUpdate{WindCapacityKW: &wind})

	env := readType(t, conn, TypeConfigCurrent)
	var p ConfigPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 2500.0, p.WindCapacityKW)
	assert.Equal(t, 2500.0, r.Engine().Config().WindCapacityKW)
}

func TestHandler_ConfigUpdateRejected(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	eff := 1.5
	sendJSON(t, conn, TypeConfigUpdate, model.CapacityUpdate{SolarEfficiency: &eff})

	env := readType(t, conn, TypeError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, TypeConfigUpdate, p.Request)
	assert.Contains(t, p.Message, "invalid configuration")
	assert.Equal(t, 0.2, r.Engine().Config().SolarEfficiency)
}

func TestHandler_ConfigReset(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		_, err := r.Step()
		require.NoError(t, err)
	}

	hydro := 10.0
	sendJSON(t, conn, TypeConfigReset, ConfigResetPayload{
		Update: &model.CapacityUpdate{HydroCapacityKW: &hydro},
	})
	readType(t, conn, TypeSimReset)

	assert.Equal(t, 0, r.Engine().Steps())
	assert.Equal(t, 10.0, r.Engine().Config().HydroCapacityKW)

	sendJSON(t, conn, TypeConfigReset, ConfigResetPayload{Defaults: true})
	readType(t, conn, TypeSimReset)
	assert.Equal(t, model.DefaultCapacityConfig(), r.Engine().Config())
}

func TestHandler_SourceToggle(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	sendJSON(t, conn, TypeSourceToggle, ToggleSourcePayload{Source: "battery", Enabled: false})
	readType(t, conn, TypeConfigCurrent)

	assert.False(t, r.Engine().Config().Enabled.Battery)
	assert.False(t, r.Engine().Battery().Enabled)
}

func TestHandler_UnknownSource(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	before := r.Engine().Config()
	sendJSON(t, conn, TypeSourceToggle, ToggleSourcePayload{Source: "nuclear", Enabled: true})

	env := readType(t, conn, TypeError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, TypeSourceToggle, p.Request)
	assert.Equal(t, before, r.Engine().Config())
}

func TestHandler_ReportRequest(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	sendJSON(t, conn, TypeReportRequest, ReportRequestPayload{Period: "day"})
	env := readType(t, conn, TypeError)
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &e))
	assert.Equal(t, errNoSteps.Error(), e.Message)

	for i := 0; i < 30; i++ {
		_, err := r.Step()
		require.NoError(t, err)
	}

	sendJSON(t, conn, TypeReportRequest, ReportRequestPayload{Period: "day"})
	env = readType(t, conn, TypeReportResult)

	var p ReportResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "Daily Report", p.Title)
	assert.Equal(t, model.PeriodDay, p.Report.Period)
	assert.Equal(t, 6, p.Report.Steps)
	assert.Contains(t, p.Text, "Daily Report")
}

func TestHandler_InvalidMessage(t *testing.T) {
	conn, r, cleanup := connect(t)
	defer cleanup()

	// Invalid JSON gets an error reply, not a dropped connection
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	readType(t, conn, TypeError)

	sendJSON(t, conn, "sim:rewind", nil)
	env := readType(t, conn, TypeError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Contains(t, p.Message, "unknown message type")

	sendJSON(t, conn, TypeReportRequest, ReportRequestPayload{Period: "decade"})
	readType(t, conn, TypeError)

	// Connection should still be alive; runner state unchanged
	assert.False(t, r.State().Running)
	assert.Equal(t, 0, r.Engine().Steps())
}
