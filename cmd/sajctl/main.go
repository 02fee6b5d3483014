package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/rwirdemann/sajmqtt"
	"github.com/rwirdemann/sajmqtt/config"
	"github.com/rwirdemann/sajmqtt/console"
	"github.com/rwirdemann/sajmqtt/encoding"
	"github.com/rwirdemann/sajmqtt/mqtt"
	"github.com/rwirdemann/sajmqtt/registers"
)

func main() {
	configFile := flag.String("config", "config.toml", "path to the config file")
	cmd := flag.String("cmd", "read", "read|write|set-app-mode")
	register := flag.String("register", "0x4000", "register address, e.g. 0x4000")
	count := flag.Int("count", 1, "number of registers to read")
	value := flag.String("value", "0x0000", "value for write, e.g. 0x07E6")
	mode := flag.String("mode", "", "app mode for set-app-mode (self_use|time_of_use|backup|passive)")
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
	if !*debug {
		protocol.Mute()
	}
	handler := mqtt.NewHandler(cfg.MQTT, cfg.Bridge.TopicPrefix, cfg.Inverter.SerialNumber, protocol)
	client, err := sajmqtt.NewClient(handler, sajmqtt.ClientConfig{
		UnitAddress:          cfg.Inverter.DeviceAddress,
		MaxRegistersPerQuery: cfg.Inverter.MaxRegistersPerQuery,
		Timeout:              cfg.Inverter.Timeout.Duration,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := handler.Start(ctx, client.HandleInbound); err != nil {
		log.Fatal(err)
	}
	defer handler.Stop()

	addr, err := encoding.NewHex(*register)
	if err != nil {
		log.Fatal(err)
	}

	switch *cmd {
	case "read":
		data, err := client.ReadRegisters(ctx, addr.Uint16(), uint16(*count))
		if err != nil {
			log.Fatal(err)
		}
		for i := 0; i+1 < len(data); i += 2 {
			fmt.Printf("0x%04X: 0x%02X%02X\n", addr.Uint16()+uint16(i/2), data[i], data[i+1])
		}
	case "write":
		v, err := encoding.NewHex(*value)
		if err != nil {
			log.Fatal(err)
		}
		echoed, err := client.WriteRegister(ctx, addr.Uint16(), v.Uint16())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("0x%04X: 0x%04X\n", addr.Uint16(), echoed)
	case "set-app-mode":
		m, err := registers.ParseAppMode(*mode)
		if err != nil {
			log.Fatal(err)
		}
		echoed, err := client.WriteRegister(ctx, sajmqtt.RegAppMode, uint16(m))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("app mode: %s (0x%04X)\n", registers.AppMode(echoed), echoed)
	default:
		slog.Error("unknown command", "cmd", *cmd)
	}
}
