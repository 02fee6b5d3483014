// Package registers maps raw register blocks fetched from the inverter to
// named, scaled measurements. The offsets and scales follow the SAJ H1
// realtime data layout; the package is a static lookup, all protocol work
// happens elsewhere.
package registers

import (
	"fmt"

	"github.com/rwirdemann/sajmqtt/encoding"
)

// Block is a documented register range fetched in one logical read.
type Block struct {
	Name  string
	Start uint16
	Count uint16
}

var (
	BlockRealtime          = Block{Name: "realtime_data", Start: 0x4000, Count: 0x100}
	BlockInverterInfo      = Block{Name: "inverter_info", Start: 0x8F00, Count: 0x1E}
	BlockBatteryInfo       = Block{Name: "battery_info", Start: 0x8E00, Count: 0x50}
	BlockBatteryController = Block{Name: "battery_controller", Start: 0xA000, Count: 0x24}
)

// Field describes one measurement within the realtime block: byte offset,
// signedness, scale and unit.
type Field struct {
	Name   string
	Offset int
	Signed bool
	Scale  float64
	Unit   string
}

// Realtime lists the measurement fields of the realtime data block, by byte
// offset within the block.
var Realtime = []Field{
	{"heatsink_temperature", 0x20, true, 0.1, "°C"},
	{"earth_leakage_current", 0x24, false, 1.0, "mA"},

	{"grid_voltage", 0x62, false, 0.1, "V"},
	{"grid_current", 0x64, true, 0.01, "A"},
	{"grid_frequency", 0x66, false, 0.01, "Hz"},
	{"grid_dc_component", 0x68, true, 0.001, "A"},
	{"grid_power_active", 0x6A, true, 1.0, "W"},
	{"grid_power_apparent", 0x6C, true, 1.0, "VA"},
	{"grid_power_factor", 0x6E, true, 0.1, "%"},

	{"inverter_voltage", 0x8C, false, 0.1, "V"},
	{"inverter_current", 0x8E, true, 0.01, "A"},
	{"inverter_frequency", 0x90, false, 0.01, "Hz"},
	{"inverter_power_active", 0x92, true, 1.0, "W"},
	{"inverter_power_apparent", 0x94, true, 1.0, "VA"},
	{"inverter_bus_master_voltage", 0xCE, false, 0.1, "V"},
	{"inverter_bus_slave_voltage", 0xD0, false, 0.1, "V"},

	{"output_voltage", 0xAA, false, 0.1, "V"},
	{"output_current", 0xAC, true, 0.01, "A"},
	{"output_frequency", 0xAE, false, 0.01, "Hz"},
	{"output_dc_voltage", 0xB0, true, 0.001, "V"},
	{"output_power_active", 0xB2, true, 1.0, "W"},
	{"output_power_apparent", 0xB4, true, 1.0, "VA"},

	{"battery_voltage", 0xD2, false, 0.1, "V"},
	{"battery_current", 0xD4, true, 0.01, "A"},
	{"battery_control_current_1", 0xD6, true, 0.01, "A"},
	{"battery_control_current_2", 0xD8, true, 0.01, "A"},
	{"battery_power", 0xDA, true, 1.0, "W"},
	{"battery_temperature", 0xDC, true, 0.1, "°C"},
	{"battery_soc", 0xDE, false, 0.01, "%"},

	{"panel_array_1_voltage", 0xE2, false, 0.1, "V"},
	{"panel_array_1_current", 0xE4, false, 0.01, "A"},
	{"panel_array_1_power", 0xE6, false, 1.0, "W"},
	{"panel_array_2_voltage", 0xE8, false, 0.1, "V"},
	{"panel_array_2_current", 0xEA, false, 0.01, "A"},
	{"panel_array_2_power", 0xEC, false, 1.0, "W"},

	{"summary_system_load_power", 0x140, false, 1.0, "W"},
	{"summary_smart_meter_load_power_1", 0x142, true, 1.0, "W"},
	{"summary_photovoltaic_power", 0x14A, false, 1.0, "W"},
	{"summary_battery_power", 0x14C, true, 1.0, "W"},
	{"summary_grid_power", 0x14E, true, 1.0, "W"},
	{"summary_inverter_power", 0x152, true, 1.0, "W"},
	{"summary_backup_load_power", 0x156, true, 1.0, "W"},
	{"summary_smart_meter_load_power_2", 0x15A, true, 1.0, "W"},
}

// EnergyCounter is an accumulating statistic. Each counter stores four 32 bit
// values back to back: daily, monthly, yearly and total, in 0.01 kWh.
type EnergyCounter struct {
	Name   string
	Offset int
}

var EnergyStats = []EnergyCounter{
	{"energy_photovoltaic", 0x17E},
	{"energy_battery_charged", 0x18E},
	{"energy_battery_discharged", 0x19E},
	{"energy_system_load", 0x1BE},
	{"energy_backup_load", 0x1CE},
	{"energy_grid_exported", 0x1DE},
	{"energy_grid_imported", 0x1EE},
}

var EnergyPeriods = []string{"daily", "monthly", "yearly", "total"}

// Measurement is a decoded, scaled register value.
type Measurement struct {
	Name  string
	Value float64
	Unit  string
}

// DecodeRealtime turns a realtime data block into measurements. The block
// must cover every mapped field; a short block is rejected as a whole rather
// than decoded partially.
func DecodeRealtime(data []byte) ([]Measurement, error) {
	want := int(BlockRealtime.Count) * 2
	if len(data) < want {
		return nil, fmt.Errorf("registers: realtime block has %d bytes, want %d", len(data), want)
	}

	out := make([]Measurement, 0, len(Realtime))
	for _, f := range Realtime {
		var v float64
		if f.Signed {
			v = float64(encoding.BytesToInt16(data[f.Offset:]))
		} else {
			v = float64(encoding.BytesToUint16(data[f.Offset:]))
		}
		out = append(out, Measurement{Name: f.Name, Value: v * f.Scale, Unit: f.Unit})
	}
	return out, nil
}

// DecodeEnergyStats extracts the accumulating counters from a realtime data
// block, one measurement per counter and period.
func DecodeEnergyStats(data []byte) ([]Measurement, error) {
	want := int(BlockRealtime.Count) * 2
	if len(data) < want {
		return nil, fmt.Errorf("registers: realtime block has %d bytes, want %d", len(data), want)
	}

	out := make([]Measurement, 0, len(EnergyStats)*len(EnergyPeriods))
	for _, c := range EnergyStats {
		offset := c.Offset
		for _, period := range EnergyPeriods {
			raw := encoding.BytesToUint32(data[offset:])
			out = append(out, Measurement{
				Name:  c.Name + "_" + period,
				Value: float64(raw) * 0.01,
				Unit:  "kWh",
			})
			offset += 4
		}
	}
	return out, nil
}
