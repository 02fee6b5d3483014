package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rwirdemann/sajmqtt/registers"
)

// Home Assistant MQTT discovery payload, abbreviated keys as HA documents
// them.
type haSensorConfig struct {
	Name              string   `json:"name"`
	StateTopic        string   `json:"stat_t"`
	AvailabilityTopic string   `json:"avty_t"`
	UnitOfMeasurement string   `json:"unit_of_meas,omitempty"`
	DeviceClass       string   `json:"dev_cla,omitempty"`
	StateClass        string   `json:"stat_cla,omitempty"`
	UniqueID          string   `json:"uniq_id"`
	Device            haDevice `json:"dev"`
}

type haDevice struct {
	IDs          string `json:"ids"`
	Name         string `json:"name"`
	Manufacturer string `json:"mf"`
	Model        string `json:"mdl"`
}

// PublishDiscovery announces every mapped measurement to Home Assistant via
// retained discovery config messages, so the bridge's topics show up as
// sensors without manual configuration.
func (h *Handler) PublishDiscovery() error {
	device := haDevice{
		IDs:          h.serialNumber,
		Name:         "SAJ " + h.serialNumber,
		Manufacturer: "SAJ",
		Model:        "H1",
	}

	for _, f := range registers.Realtime {
		cfg := haSensorConfig{
			Name:              f.Name,
			StateTopic:        h.topicPrefix + "/" + h.serialNumber + "/measurements/" + f.Name,
			AvailabilityTopic: h.statusTopic,
			UnitOfMeasurement: f.Unit,
			DeviceClass:       deviceClass(f.Name, f.Unit),
			StateClass:        "measurement",
			UniqueID:          h.serialNumber + "." + f.Name,
			Device:            device,
		}
		if err := h.publishConfig(cfg); err != nil {
			return err
		}
	}

	for _, c := range registers.EnergyStats {
		for _, period := range registers.EnergyPeriods {
			name := c.Name + "_" + period
			cfg := haSensorConfig{
				Name:              name,
				StateTopic:        h.topicPrefix + "/" + h.serialNumber + "/measurements/" + name,
				AvailabilityTopic: h.statusTopic,
				UnitOfMeasurement: "kWh",
				DeviceClass:       "energy",
				StateClass:        "total_increasing",
				UniqueID:          h.serialNumber + "." + name,
				Device:            device,
			}
			if err := h.publishConfig(cfg); err != nil {
				return err
			}
		}
	}

	slog.Info("published Home Assistant discovery configs", "serial", h.serialNumber)
	return nil
}

func (h *Handler) publishConfig(cfg haSensorConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("homeassistant/sensor/saj_%s/%s/config", h.serialNumber, cfg.Name)
	token := h.client.Publish(topic, h.qos, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish discovery config for %s: %w", cfg.Name, token.Error())
	}
	return nil
}

func deviceClass(name, unit string) string {
	switch unit {
	case "V":
		return "voltage"
	case "A", "mA":
		return "current"
	case "W":
		return "power"
	case "VA":
		return "apparent_power"
	case "Hz":
		return "frequency"
	case "°C":
		return "temperature"
	case "%":
		if name == "battery_soc" {
			return "battery"
		}
		return "power_factor"
	}
	return ""
}
