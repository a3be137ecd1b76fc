package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citygrid/internal/config"
	"citygrid/internal/logging"
	"citygrid/internal/metrics"
	"citygrid/internal/recorder"
	"citygrid/internal/runner"
	"citygrid/internal/simulator"
	"citygrid/internal/task"
	"citygrid/internal/telemetry"
	"citygrid/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	autostart := flag.Bool("start", false, "start the simulation immediately")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		fatal(slog.Default(), "failed to load config", err)
	}

	logger := slog.New(logging.NewConsoleHandler(os.Stdout, cnfg.Logging.GetConsoleLevel()))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := cnfg.EngineOptions()
	if err != nil {
		fatal(logger, "invalid simulation options", err)
	}
	engine, err := simulator.New(cnfg.CapacityConfig(), opts)
	if err != nil {
		fatal(logger, "failed to create simulation engine", err)
	}
	logger.Info("simulation ready",
		slog.Uint64("seed", opts.Seed),
		slog.Int("steps_per_day", opts.StepsPerDay),
		slog.Time("start", engine.Now()))

	hub := ws.NewHub()
	m := metrics.New()
	callbacks := []runner.Callback{ws.NewBridge(hub, engine), m}

	var db *recorder.Database
	var rec *recorder.Recorder
	if cnfg.Database.Path != "" {
		db, err = recorder.Open(ctx, cnfg.Database.Path)
		if err != nil {
			fatal(logger, "failed to open database", err)
		}
		defer db.Close()

		rec = recorder.New(db, engine, opts.Seed)
		if err := rec.Start(ctx); err != nil {
			fatal(logger, "failed to start recorder", err)
		}
		defer rec.Close()
		callbacks = append(callbacks, rec)
	}

	var pub *telemetry.Publisher
	if cnfg.Mqtt.Broker != "" {
		pub = telemetry.New(telemetry.Options{
			Broker:   cnfg.Mqtt.Broker,
			Port:     cnfg.Mqtt.GetPort(),
			Username: cnfg.Mqtt.Username,
			Password: cnfg.Mqtt.Password,
			ClientID: cnfg.Mqtt.GetClientID(),
			Topic:    cnfg.Mqtt.GetTopic(),
		})
		if err := pub.Connect(); err != nil {
			logger.Error("MQTT connection failed, publishing disabled", slog.Any("error", err))
			pub = nil
		} else {
			defer pub.Disconnect()
			callbacks = append(callbacks, pub)
		}
	}

	r := runner.New(engine, cnfg.Simulation.GetSpeed(), callbacks...)

	if pub != nil {
		if err := pub.Listen(r); err != nil {
			logger.Error("MQTT control subscription failed", slog.Any("error", err))
		}
	}

	var tasks *task.Tasks
	if rec != nil {
		tasks = task.NewTasks(r, db, rec, cnfg.Tasks)
	} else {
		tasks = task.NewTasks(r, nil, nil, cnfg.Tasks)
	}
	if err := tasks.Run(); err != nil {
		fatal(logger, "failed to schedule tasks", err)
	}
	defer tasks.Stop()

	if *configPath != "" {
		err := config.Watch(ctx, *configPath, func(c *config.AppConfig) {
			if err := r.Configure(c.Capacity); err != nil {
				logger.Warn("reloaded capacity rejected", slog.Any("error", err))
			}
		})
		if err != nil {
			logger.Warn("config watcher disabled", slog.Any("error", err))
		}
	}

	a := &api{runner: r}
	if db != nil {
		a.history = db
	}
	mux := newMux(a, ws.NewHandler(hub, r), m.Handler(), *frontendDir)

	server := &http.Server{
		Addr:              cnfg.Api.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			cancel()
		}
	}()

	if *autostart {
		r.Start()
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	r.Pause()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
