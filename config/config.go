package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rwirdemann/sajmqtt/encoding"
)

// Hard protocol cap a single read frame can carry; the configured soft cap
// must stay below it.
const maxRegistersPerFrame = 0x7B

// Config is the shared configuration of the bridge, the control CLI and the
// inverter simulator.
type Config struct {
	MQTT      MQTT      `toml:"mqtt"`
	Inverter  Inverter  `toml:"inverter"`
	Bridge    Bridge    `toml:"bridge"`
	Simulator Simulator `toml:"simulator"`
}

// MQTT is the broker connection.
type MQTT struct {
	Broker   string `toml:"broker"` // e.g. "tcp://localhost:1883"
	ClientID string `toml:"client_id"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	// QOS is a pointer so that an explicit 0 is distinguishable from an
	// absent setting, which defaults to 2.
	QOS *uint8 `toml:"qos"`
}

// Qos returns the effective QoS level.
func (m MQTT) Qos() uint8 {
	if m.QOS == nil {
		return 2
	}
	return *m.QOS
}

// Inverter identifies the device and bounds the protocol client.
type Inverter struct {
	SerialNumber         string   `toml:"serial_number"`
	DeviceAddress        uint8    `toml:"device_address"`
	MaxRegistersPerQuery uint16   `toml:"max_registers_per_query"`
	Timeout              Duration `toml:"timeout"`
}

// Bridge configures the polling daemon.
type Bridge struct {
	ScanInterval Duration `toml:"scan_interval"`
	TopicPrefix  string   `toml:"topic_prefix"`
	HADiscovery  bool     `toml:"ha_discovery"`
}

// Simulator seeds the simulated inverter's register store and its rules.
type Simulator struct {
	Offline   bool       `toml:"offline"`
	Registers []Register `toml:"register"`
	Rules     []Rule     `toml:"rule"`
}

// Register is one seeded register value.
type Register struct {
	Address encoding.Hex `toml:"address"`
	Value   encoding.Hex `toml:"value"`
}

// Rule scripts simulated register behavior, e.g. a counter that increments on
// every read.
type Rule struct {
	Register encoding.Hex  `toml:"register"`
	Trigger  string        `toml:"trigger"` // "on_read", "on_write" or "on_read_write"
	Action   string        `toml:"action"`  // "set_value", "increment", "decrement" or "toggle"
	Value    *encoding.Hex `toml:"value"`
}

// Duration wraps time.Duration so intervals can be written as "10s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads and parses a TOML configuration file, fills in defaults and
// validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "sajmqtt"
	}
	if c.MQTT.QOS == nil {
		qos := uint8(2)
		c.MQTT.QOS = &qos
	}
	if c.Inverter.DeviceAddress == 0 {
		c.Inverter.DeviceAddress = 1
	}
	if c.Inverter.MaxRegistersPerQuery == 0 {
		c.Inverter.MaxRegistersPerQuery = 0x64
	}
	if c.Inverter.Timeout.Duration == 0 {
		c.Inverter.Timeout.Duration = 10 * time.Second
	}
	if c.Bridge.ScanInterval.Duration == 0 {
		c.Bridge.ScanInterval.Duration = 60 * time.Second
	}
	if c.Bridge.TopicPrefix == "" {
		c.Bridge.TopicPrefix = "saj"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.Qos() > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.Qos())
	}
	if c.Inverter.SerialNumber == "" {
		return fmt.Errorf("inverter.serial_number is required")
	}
	if c.Inverter.MaxRegistersPerQuery > maxRegistersPerFrame {
		return fmt.Errorf("inverter.max_registers_per_query %d exceeds the protocol cap of %d",
			c.Inverter.MaxRegistersPerQuery, maxRegistersPerFrame)
	}
	if c.Inverter.Timeout.Duration <= 0 {
		return fmt.Errorf("inverter.timeout must be positive")
	}

	for i, r := range c.Simulator.Rules {
		switch r.Trigger {
		case "on_read", "on_write", "on_read_write":
		default:
			return fmt.Errorf("simulator.rule[%d]: invalid trigger %q", i, r.Trigger)
		}
		switch r.Action {
		case "set_value", "increment", "decrement", "toggle":
		default:
			return fmt.Errorf("simulator.rule[%d]: invalid action %q", i, r.Action)
		}
		if r.Action == "set_value" && r.Value == nil {
			return fmt.Errorf("simulator.rule[%d]: set_value needs a value", i)
		}
	}

	return nil
}
