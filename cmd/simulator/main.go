package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/Hellevator/internal/api"
	"github.com/AaronLay10/Hellevator/internal/config"
	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/events"
	"github.com/AaronLay10/Hellevator/internal/mqtt"
	"github.com/AaronLay10/Hellevator/internal/scene"
	"github.com/AaronLay10/Hellevator/internal/storage/postgres"
	"github.com/AaronLay10/Hellevator/internal/version"
)

type options struct {
	configPath   string
	logLevel     string
	logFormat    string
	port         int
	noMQTT       bool
	noDB         bool
	requireMQTT  bool
	requireDB    bool
	printVersion bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "scene YAML file (built-in scene when empty)")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&o.logFormat, "log-format", "json", "log format: json or text")
	flag.IntVar(&o.port, "port", 0, "API port (overrides the scene file)")
	flag.BoolVar(&o.noMQTT, "no-mqtt", false, "run without the MQTT broker")
	flag.BoolVar(&o.noDB, "no-db", false, "run without the event journal")
	flag.BoolVar(&o.requireMQTT, "require-mqtt", false, "report unready while the broker is down")
	flag.BoolVar(&o.requireDB, "require-db", false, "report unready without the event journal")
	flag.BoolVar(&o.printVersion, "version", false, "print version and exit")
	flag.Parse()
	return o
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func main() {
	o := parseFlags()
	if o.printVersion {
		fmt.Println(version.Version)
		return
	}

	logger, err := newLogger(o.logLevel, o.logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	if err := run(o, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("simulator failed", "error", err)
		os.Exit(1)
	}
}

// announce attaches the journal, if there is one, and then emits
// system.startup so the run's first journal row is its startup.
func announce(j events.Journal, runID string, fields events.Fields) {
	if j != nil {
		events.SetJournal(j, runID)
	}
	events.Emit("info", "system.startup", "simulator starting", fields)
}

func run(o options, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadSceneConfig(o.configPath)
		if err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
		cfg = loaded
	}
	port := cfg.APIPort()
	if o.port > 0 {
		port = o.port
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With("scene", cfg.SceneID(), "run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	var journal events.Journal
	if o.noDB {
		api.SetPostgresState(false, true)
	} else {
		pg, err := postgres.Open(cfg.SceneID(), secrets.PGPassword)
		if err != nil {
			logger.Warn("event journal unavailable", "error", err)
			api.SetPostgresState(false, !o.requireDB)
		} else {
			defer pg.Close()
			journal = pg
			api.SetPostgresState(true, !o.requireDB)
		}
	}

	hostname, _ := os.Hostname()
	announce(journal, runID, events.Fields{
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"scene_id": cfg.SceneID(),
		"run_id":   runID,
	})
	if journal != nil {
		logger.Info("event journal attached")
	}

	var (
		mqttClient *mqtt.Client
		sink       scene.ScoreSink
	)
	if !o.noMQTT {
		mqttClient = mqtt.NewClient("hellevator-"+cfg.SceneID()+"-"+runID[:8], os.Getenv("MQTT_USERNAME"), secrets.MQTTPassword)
		sink = mqtt.NewScorePublisher(mqttClient, cfg.MQTTPrefix())
	}

	sc, err := scene.New(ctx, cfg, scene.Options{Sink: sink})
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	if mqttClient != nil {
		sub := mqtt.NewOperatorSubscriber(mqttClient, sc, cfg.MQTTPrefix())
		connected := mqttClient.Start(ctx, sub)
		api.SetMQTTState(connected, !o.requireMQTT)
		go mqttClient.Watch(ctx, sub, 5*time.Second, func(connected bool) {
			api.SetMQTTState(connected, !o.requireMQTT)
		})
		defer mqttClient.Disconnect()
	} else {
		api.SetMQTTState(false, true)
	}

	api.InitAuth(secrets)
	api.InitTLS()
	api.NewServer(sc).Start(ctx, port)

	err = sc.Run(ctx, cfg.TickInterval())

	stats := sc.Stats()
	events.Emit("info", "system.shutdown", "simulator stopping", events.Fields{
		"ticks":     stats.Ticks,
		"score":     stats.Score,
		"successes": stats.Successes,
		"failures":  stats.Failures,
	})
	events.CloseAllSubscribers()
	logger.Info("simulator stopped", "ticks", stats.Ticks, "score", stats.Score)
	return err
}
