package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rwirdemann/sajmqtt/config"
	"github.com/rwirdemann/sajmqtt/console"
	"github.com/rwirdemann/sajmqtt/mqtt"
	"github.com/rwirdemann/sajmqtt/sim"
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
	inverter := sim.NewInverter(cfg.Inverter.DeviceAddress, cfg.Simulator, protocol)
	handler := mqtt.NewSimulatorHandler(cfg.MQTT, cfg.Bridge.TopicPrefix, cfg.Inverter.SerialNumber, protocol)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = handler.Start(ctx, func(frame []byte) {
		if rsp := inverter.Process(frame); rsp != nil {
			if err := handler.Publish(ctx, rsp); err != nil {
				slog.Error("failed to publish response", "error", err)
			}
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	defer handler.Stop()
	slog.Info("simulator started", "handler", handler.Description(), "serial", cfg.Inverter.SerialNumber)

	go console.NewKeyboardAdapter(inverter, protocol).WithControl(inverter).Start(cancel)

	<-ctx.Done()
}
