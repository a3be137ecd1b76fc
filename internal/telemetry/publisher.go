package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"citygrid/internal/model"
	"citygrid/internal/runner"
)

// Controller receives commands arriving on the control topic.
type Controller interface {
	Start()
	Pause()
	Step() (model.StepRecord, error)
	SetSpeed(speed float64)
	Reset(cfg *model.CapacityConfig) error
}

type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// ControlMessage is the payload accepted on <topic>/control.
type ControlMessage struct {
	Command string  `json:"command"` // start, pause, step, reset, speed
	Speed   float64 `json:"speed,omitempty"`
}

// Publisher mirrors the live run onto MQTT: every step on <topic>/step,
// and retained playback state and configuration on <topic>/state and
// <topic>/config. It implements runner.Callback.
type Publisher struct {
	runner.NopCallback

	client client
	topic  string
	logger *slog.Logger
}

var _ runner.Callback = (*Publisher)(nil)

type Options struct {
	Broker   string
	Port     int16
	Username string
	Password string
	ClientID string
	Topic    string
}

func New(o Options) *Publisher {
	logger := slog.Default().With("module", "telemetry")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", o.Broker, o.Port))
	opts.SetClientID(o.ClientID)
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected", slog.String("broker", o.Broker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return newPublisher(mqtt.NewClient(opts), o.Topic, logger)
}

func newPublisher(c client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{client: c, topic: topic, logger: logger}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Listen subscribes to <topic>/control and forwards commands to ctl.
func (p *Publisher) Listen(ctl Controller) error {
	token := p.client.Subscribe(p.topic+"/control", 1, func(_ mqtt.Client, msg mqtt.Message) {
		var m ControlMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			p.logger.Error("error when reading control message", slog.Any("error", err))
			return
		}
		if err := p.handleControl(ctl, m); err != nil {
			p.logger.Warn("control command failed", slog.String("command", m.Command), slog.Any("error", err))
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *Publisher) handleControl(ctl Controller, m ControlMessage) error {
	p.logger.Info("received control command", slog.String("command", m.Command))
	switch m.Command {
	case "start":
		ctl.Start()
	case "pause":
		ctl.Pause()
	case "step":
		_, err := ctl.Step()
		return err
	case "reset":
		return ctl.Reset(nil)
	case "speed":
		ctl.SetSpeed(m.Speed)
	default:
		return fmt.Errorf("unknown command %q", m.Command)
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.logger.Info("disconnecting MQTT client")
	p.client.Disconnect(250)
}

func (p *Publisher) OnStep(r model.StepRecord) {
	p.publish("step", false, r)
}

func (p *Publisher) OnState(s runner.State) {
	p.publish("state", true, s)
}

func (p *Publisher) OnConfig(cfg model.CapacityConfig, _ model.BatteryState) {
	p.publish("config", true, cfg)
}

// publish does not wait for the broker; the runner must not stall on a
// slow connection.
func (p *Publisher) publish(subtopic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("error marshaling payload", slog.String("topic", subtopic), slog.Any("error", err))
		return
	}
	p.client.Publish(p.topic+"/"+subtopic, 0, retained, payload)
}
