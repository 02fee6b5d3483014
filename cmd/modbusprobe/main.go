// Command modbusprobe talks plain Modbus to an inverter's wired port. Some
// installations expose the same register map over Modbus TCP or RTU; this
// tool reads or writes registers there to cross-check values seen over MQTT.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	bmodbus "github.com/goburrow/modbus"
	"github.com/rwirdemann/sajmqtt/encoding"
)

func main() {
	transport := flag.String("transport", "tcp", "the modbus mode (tcp|rtu)")
	url := flag.String("url", "localhost:502", "the url to connect")
	device := flag.String("device", "/dev/ttyUSB0", "the serial device for rtu")
	slaveID := flag.Int("slave", 1, "the slave id")
	cmd := flag.String("cmd", "read", "read|write")
	register := flag.String("register", "0x4000", "register address, e.g. 0x4000")
	count := flag.Int("count", 1, "number of registers to read")
	value := flag.Int("value", 0, "the value as int")
	flag.Parse()

	addr, err := encoding.NewHex(*register)
	if err != nil {
		log.Fatal(err)
	}

	var handler bmodbus.ClientHandler
	if *transport == "tcp" {
		h := bmodbus.NewTCPClientHandler(*url)
		h.Timeout = 1 * time.Second
		h.SlaveId = uint8(*slaveID)
		if err := h.Connect(); err != nil {
			log.Fatal(err)
		}
		defer h.Close()
		handler = h
	}
	if *transport == "rtu" {
		h := bmodbus.NewRTUClientHandler(*device)
		h.Timeout = 5 * time.Second
		h.SlaveId = uint8(*slaveID)
		h.BaudRate = 9600
		h.Parity = "N"
		h.StopBits = 1
		h.DataBits = 8
		if err := h.Connect(); err != nil {
			log.Fatal(err)
		}
		defer h.Close()
		handler = h
	}
	if handler == nil {
		log.Fatalf("unknown transport: %s", *transport)
	}

	client := bmodbus.NewClient(handler)
	switch *cmd {
	case "read":
		bb, err := client.ReadHoldingRegisters(addr.Uint16(), uint16(*count))
		if err != nil {
			log.Fatal(err)
		}
		for i := 0; i+1 < len(bb); i += 2 {
			fmt.Printf("0x%04X: 0x%04X\n", addr.Uint16()+uint16(i/2), encoding.BytesToUint16(bb[i:i+2]))
		}
	case "write":
		bb, err := client.WriteSingleRegister(addr.Uint16(), uint16(*value))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("response: % X\n", bb)
	default:
		slog.Error("unknown command", "cmd", *cmd)
	}
}
