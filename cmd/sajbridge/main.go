package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rwirdemann/sajmqtt"
	"github.com/rwirdemann/sajmqtt/config"
	"github.com/rwirdemann/sajmqtt/console"
	"github.com/rwirdemann/sajmqtt/mqtt"
)

func main() {
	configFile := flag.String("config", "config.toml", "path to the config file")
	debug := flag.Bool("debug", false, "set log level to debug")
	flag.Parse()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	protocol := console.NewProtocolAdapter()
	handler := mqtt.NewHandler(cfg.MQTT, cfg.Bridge.TopicPrefix, cfg.Inverter.SerialNumber, protocol)
	client, err := sajmqtt.NewClient(handler, sajmqtt.ClientConfig{
		UnitAddress:          cfg.Inverter.DeviceAddress,
		MaxRegistersPerQuery: cfg.Inverter.MaxRegistersPerQuery,
		Timeout:              cfg.Inverter.Timeout.Duration,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := handler.Start(ctx, client.HandleInbound); err != nil {
		log.Fatal(err)
	}
	defer handler.Stop()
	slog.Info("bridge started", "handler", handler.Description(), "serial", cfg.Inverter.SerialNumber)

	if cfg.Bridge.HADiscovery {
		if err := handler.PublishDiscovery(); err != nil {
			slog.Error("failed to publish discovery configs", "error", err)
		}
	}

	coordinator := sajmqtt.NewCoordinator(client, handler, cfg.Bridge.ScanInterval.Duration)
	go coordinator.Run(ctx)
	go console.NewKeyboardAdapter(coordinator, protocol).Start(cancel)

	<-ctx.Done()
}
