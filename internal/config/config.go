package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"citygrid/internal/logging"
	"citygrid/internal/model"
	"citygrid/internal/simulator"
)

type AppConfigSimulation struct {
	Seed        *uint64 `mapstructure:"seed"`
	StepsPerDay *int    `mapstructure:"steps_per_day"`
	// RFC3339 timestamp of the first step, default: 2025-01-01T00:00:00Z
	Start *string `mapstructure:"start"`
	// Steps per wall-clock second while running, default: 1
	Speed *float64 `mapstructure:"speed"`
}

func (s AppConfigSimulation) GetSeed() uint64 {
	if s.Seed == nil {
		return 1
	}
	return *s.Seed
}

func (s AppConfigSimulation) GetStepsPerDay() int {
	if s.StepsPerDay == nil {
		return 24
	}
	return *s.StepsPerDay
}

func (s AppConfigSimulation) GetStart() (time.Time, error) {
	if s.Start == nil || *s.Start == "" {
		return simulator.DefaultStart, nil
	}
	t, err := time.Parse(time.RFC3339, *s.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("simulation.start: %w", err)
	}
	return t, nil
}

func (s AppConfigSimulation) GetSpeed() float64 {
	if s.Speed == nil || *s.Speed <= 0 {
		return 1
	}
	return *s.Speed
}

type AppConfigBattery struct {
	FadePercent         *float64 `mapstructure:"fade_percent"`
	CyclesPerFade       *int     `mapstructure:"cycles_per_fade"`
	CalendarFadePerHour *float64 `mapstructure:"calendar_fade_per_hour"`
}

func (b AppConfigBattery) Get() simulator.BatteryConfig {
	c := simulator.DefaultBatteryConfig()
	if b.FadePercent != nil {
		c.FadePercent = *b.FadePercent
	}
	if b.CyclesPerFade != nil {
		c.CyclesPerFade = *b.CyclesPerFade
	}
	if b.CalendarFadePerHour != nil {
		c.CalendarFadePerHour = *b.CalendarFadePerHour
	}
	return c
}

type AppConfigDemand struct {
	BaseLoadKWh    *float64 `mapstructure:"base_load_kwh"`
	VariationKWh   *float64 `mapstructure:"variation_kwh"`
	PenaltyKWh     *float64 `mapstructure:"penalty_kwh"`
	ColdThresholdC *float64 `mapstructure:"cold_threshold_c"`
	HotThresholdC  *float64 `mapstructure:"hot_threshold_c"`
}

func (d AppConfigDemand) Get() simulator.DemandModel {
	m := simulator.DefaultDemandModel()
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&m.BaseLoadKWh, d.BaseLoadKWh)
	set(&m.VariationKWh, d.VariationKWh)
	set(&m.PenaltyKWh, d.PenaltyKWh)
	set(&m.ColdThresholdC, d.ColdThresholdC)
	set(&m.HotThresholdC, d.HotThresholdC)
	return m
}

type AppConfigApi struct {
	Address string
	Port    int16
}

func (a AppConfigApi) Addr() string {
	port := a.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", a.Address, port)
}

type AppConfigDatabase struct {
	// SQLite file for the step and report history. Empty disables recording.
	Path string
}

type AppConfigMqtt struct {
	// Empty disables publishing.
	Broker   string
	Port     int16
	Username string
	Password string
	ClientID *string `mapstructure:"client_id"`
	// Topic prefix, default: "citygrid"
	Topic *string `mapstructure:"topic"`
}

func (m AppConfigMqtt) GetClientID() string {
	if m.ClientID == nil {
		return "citygrid"
	}
	return *m.ClientID
}

func (m AppConfigMqtt) GetTopic() string {
	if m.Topic == nil {
		return "citygrid"
	}
	return strings.TrimSuffix(*m.Topic, "/")
}

func (m AppConfigMqtt) GetPort() int16 {
	if m.Port == 0 {
		return 1883
	}
	return m.Port
}

type AppConfigTasks struct {
	// Cron spec for the report snapshot, default: "@every 1m"
	ReportRunAt *string `mapstructure:"report_run_at"`
}

func (t AppConfigTasks) GetReportRunAt() string {
	if t.ReportRunAt == nil {
		return "@every 1m"
	}
	return *t.ReportRunAt
}

type AppConfigLogging struct {
	// Min log level for the console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Simulation AppConfigSimulation
	// Optional YAML preset with a top level "capacity" key. Keys under
	// Capacity override it.
	CapacityFile string               `mapstructure:"capacity_file"`
	Capacity     model.CapacityUpdate `mapstructure:"capacity"`
	Battery      AppConfigBattery
	Demand       AppConfigDemand
	Api          AppConfigApi
	Database     AppConfigDatabase
	Mqtt         AppConfigMqtt
	Tasks        AppConfigTasks
	Logging      AppConfigLogging
}

// CapacityConfig returns the default plant with the configured overrides.
func (c *AppConfig) CapacityConfig() model.CapacityConfig {
	return c.Capacity.Apply(model.DefaultCapacityConfig())
}

// EngineOptions returns the simulator options described by the config.
func (c *AppConfig) EngineOptions() (simulator.Options, error) {
	start, err := c.Simulation.GetStart()
	if err != nil {
		return simulator.Options{}, err
	}
	battery := c.Battery.Get()
	return simulator.Options{
		Seed:        c.Simulation.GetSeed(),
		StepsPerDay: c.Simulation.GetStepsPerDay(),
		Start:       start,
		Demand:      c.Demand.Get(),
		Battery:     &battery,
	}, nil
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	if c.CapacityFile != "" {
		preset, err := LoadCapacityFile(resolve(v.ConfigFileUsed(), c.CapacityFile))
		if err != nil {
			return nil, err
		}
		c.Capacity = preset.Merge(c.Capacity)
	}

	if _, err := c.Simulation.GetStart(); err != nil {
		return nil, err
	}

	return &c, nil
}

type capacityFileWrapper struct {
	Capacity model.CapacityUpdate `yaml:"capacity"`
}

// LoadCapacityFile reads a capacity preset.
func LoadCapacityFile(path string) (model.CapacityUpdate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.CapacityUpdate{}, fmt.Errorf("read capacity file: %w", err)
	}
	var w capacityFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return model.CapacityUpdate{}, fmt.Errorf("parse capacity file %s: %w", path, err)
	}
	return w.Capacity, nil
}

// resolve interprets a relative preset path against the config file's
// directory, falling back to the working directory.
func resolve(configFile, p string) string {
	if filepath.IsAbs(p) || configFile == "" {
		return p
	}
	cand := filepath.Join(filepath.Dir(configFile), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}
