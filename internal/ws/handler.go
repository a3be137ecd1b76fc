package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"citygrid/internal/model"
	"citygrid/internal/report"
	"citygrid/internal/runner"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errNoSteps = errors.New("no steps simulated yet")

// Handler manages WebSocket connections and routes messages to the runner.
type Handler struct {
	hub    *Hub
	runner *runner.Runner
	logger *slog.Logger
}

func NewHandler(hub *Hub, r *runner.Runner) *Handler {
	return &Handler{
		hub:    hub,
		runner: r,
		logger: slog.Default().With("module", "ws"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", slog.Any("error", err))
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	// A new client first learns the plant, then the battery and playback.
	engine := h.runner.Engine()
	h.send(client, TypeConfigCurrent, ConfigFromModel(engine.Config()))
	h.send(client, TypeBatteryState, BatteryFromState(engine.Battery()))
	h.send(client, TypeSimState, SimStateFromRunner(h.runner.State()))

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Warn("invalid message", slog.Any("error", err))
		h.sendError(c, "", fmt.Errorf("invalid message: %w", err))
		return
	}

	if err := h.dispatch(c, env); err != nil {
		h.logger.Warn("request failed", slog.String("type", env.Type), slog.Any("error", err))
		h.sendError(c, env.Type, err)
	}
}

func (h *Handler) dispatch(c *Client, env Envelope) error {
	switch env.Type {
	case TypeSimStart:
		h.runner.Start()

	case TypeSimPause:
		h.runner.Pause()

	case TypeSimStep:
		if _, err := h.runner.Step(); err != nil {
			return err
		}

	case TypeSimSetSpeed:
		var p SetSpeedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid set_speed payload: %w", err)
		}
		h.runner.SetSpeed(p.Speed)

	case TypeConfigUpdate:
		var p model.CapacityUpdate
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid config:update payload: %w", err)
		}
		return h.runner.Configure(p)

	case TypeConfigReset:
		var p ConfigResetPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return fmt.Errorf("invalid config:reset payload: %w", err)
			}
		}
		base := h.runner.Engine().Config()
		if p.Defaults {
			base = model.DefaultCapacityConfig()
		}
		if p.Update != nil {
			base = p.Update.Apply(base)
		}
		return h.runner.Reset(&base)

	case TypeSourceToggle:
		var p ToggleSourcePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid source:toggle payload: %w", err)
		}
		src, err := model.ParseSource(p.Source)
		if err != nil {
			return err
		}
		return h.runner.ToggleSource(src, p.Enabled)

	case TypeReportRequest:
		var p ReportRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid report:request payload: %w", err)
		}
		period, err := model.ParsePeriod(p.Period)
		if err != nil {
			return err
		}
		rep, ok := h.runner.Report(period)
		if !ok {
			return errNoSteps
		}
		engine := h.runner.Engine()
		h.send(c, TypeReportResult, ReportResultPayload{
			Title:  report.Title(period),
			Report: rep,
			Text:   report.Text(rep, engine.Config(), engine.Battery()),
		})

	default:
		return fmt.Errorf("unknown message type: %s", env.Type)
	}
	return nil
}

func (h *Handler) send(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("error marshaling message", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	h.hub.sendTo(c, msg)
}

func (h *Handler) sendError(c *Client, request string, err error) {
	h.send(c, TypeError, ErrorPayload{Request: request, Message: err.Error()})
}
