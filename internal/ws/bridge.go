package ws

import (
	"log/slog"

	"citygrid/internal/model"
	"citygrid/internal/runner"
)

// BatterySource provides the current battery snapshot.
type BatterySource interface {
	Battery() model.BatteryState
}

var _ runner.Callback = (*Bridge)(nil)

// Bridge implements runner.Callback and broadcasts events to the WebSocket hub.
type Bridge struct {
	hub     *Hub
	battery BatterySource
	logger  *slog.Logger
}

func NewBridge(hub *Hub, battery BatterySource) *Bridge {
	return &Bridge{
		hub:     hub,
		battery: battery,
		logger:  slog.Default().With("module", "ws"),
	}
}

func (b *Bridge) OnState(s runner.State) {
	b.broadcast(TypeSimState, SimStateFromRunner(s))
}

func (b *Bridge) OnStep(r model.StepRecord) {
	b.broadcast(TypeStepRecord, StepFromRecord(r))
	b.broadcast(TypeBatteryState, BatteryFromState(b.battery.Battery()))
}

func (b *Bridge) OnConfig(cfg model.CapacityConfig, battery model.BatteryState) {
	b.broadcast(TypeConfigCurrent, ConfigFromModel(cfg))
	b.broadcast(TypeBatteryState, BatteryFromState(battery))
}

func (b *Bridge) OnReset() {
	b.broadcast(TypeSimReset, nil)
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.logger.Error("error marshaling message", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	b.hub.Broadcast(msg)
}
