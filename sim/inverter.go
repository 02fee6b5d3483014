// Package sim simulates the inverter side of the protocol: it decodes
// request frames, serves reads and writes from an in-memory register store
// and produces the response frames a real device would publish. It exists so
// the client, the bridge and the tests can run against a broker without
// hardware.
package sim

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rwirdemann/sajmqtt"
	"github.com/rwirdemann/sajmqtt/config"
	"github.com/rwirdemann/sajmqtt/encoding"
	"github.com/rwirdemann/sajmqtt/message"
	"github.com/rwirdemann/sajmqtt/rules"
)

type Inverter struct {
	mu           sync.Mutex
	codec        *sajmqtt.Codec
	unitAddr     uint8
	registers    map[uint16]uint16
	online       bool
	ruleEngine   *rules.Engine
	protocolPort sajmqtt.ProtocolPort

	// now is the response timestamp source, replaceable in tests.
	now func() time.Time
}

// NewInverter seeds a simulated inverter from configuration.
func NewInverter(unitAddr uint8, cfg config.Simulator, protocolPort sajmqtt.ProtocolPort) *Inverter {
	s := &Inverter{
		codec:        sajmqtt.NewCodec(),
		unitAddr:     unitAddr,
		registers:    make(map[uint16]uint16),
		online:       !cfg.Offline,
		ruleEngine:   rules.NewEngine(cfg.Rules),
		protocolPort: protocolPort,
		now:          time.Now,
	}
	for _, r := range cfg.Registers {
		s.registers[r.Address.Uint16()] = r.Value.Uint16()
	}
	return s
}

// Codec exposes the simulator's codec so firmware quirks (write ack byte
// order, CRC span) can be reproduced.
func (s *Inverter) Codec() *sajmqtt.Codec { return s.codec }

// Process answers one raw request frame. It returns the encoded response
// frame, or nil when the frame is not addressed to this unit, cannot be
// decoded, or the simulated inverter is offline — a real device is equally
// silent in all three cases.
func (s *Inverter) Process(raw []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.online {
		slog.Debug("simulator offline, dropping request")
		return nil
	}

	req, err := s.codec.DecodeRequest(raw)
	if err != nil {
		slog.Warn("dropping undecodable request frame", "error", err)
		return nil
	}
	if req.UnitAddress != s.unitAddr {
		slog.Debug("request for foreign unit", "unit", req.UnitAddress)
		return nil
	}

	ts := uint32(s.now().Unix())
	switch req.Kind {
	case sajmqtt.KindRead:
		return s.processRead(req, ts)
	case sajmqtt.KindWrite:
		return s.processWrite(req, ts)
	}
	return nil
}

func (s *Inverter) processRead(req *sajmqtt.Request, ts uint32) []byte {
	s.traffic(message.NewDecoded(fmt.Sprintf("TX read id=0x%04X start=0x%04X count=%d", req.CorrelationID, req.Start, req.Count)))

	content := make([]byte, 0, int(req.Count)*2)
	for i := range req.Count {
		addr := req.Start + i
		value := s.registers[addr]
		content = append(content, encoding.Uint16ToBytes(value)...)

		// The rule takes effect after the value has been served, so the next
		// read observes the change.
		if newValue, modified := s.ruleEngine.ApplyRead(addr, value); modified {
			s.registers[addr] = newValue
		}
	}

	rsp := s.codec.EncodeReadResponse(req.CorrelationID, ts, content)
	s.traffic(message.NewDecoded(fmt.Sprintf("RX read id=0x%04X bytes=%d", req.CorrelationID, len(content))))
	return rsp
}

func (s *Inverter) processWrite(req *sajmqtt.Request, ts uint32) []byte {
	s.traffic(message.NewDecoded(fmt.Sprintf("TX write id=0x%04X register=0x%04X value=0x%04X", req.CorrelationID, req.Register, req.Value)))

	s.registers[req.Register] = req.Value
	if newValue, modified := s.ruleEngine.ApplyWrite(req.Register, req.Value); modified {
		s.registers[req.Register] = newValue
	}

	rsp := s.codec.EncodeWriteResponse(req.CorrelationID, ts, req.Register, req.Value)
	s.traffic(message.NewDecoded(fmt.Sprintf("RX write id=0x%04X register=0x%04X value=0x%04X", req.CorrelationID, req.Register, req.Value)))
	return rsp
}

// SetRegister stores a register value, e.g. from the simulator console.
func (s *Inverter) SetRegister(addr, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[addr] = value
}

// SetOnline toggles whether the simulator answers at all. Taking it offline
// exercises client timeouts.
func (s *Inverter) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

func (s *Inverter) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := "offline"
	if s.online {
		state = "online"
	}
	status := fmt.Sprintf("Unit %d: %s, %d registers seeded", s.unitAddr, state, len(s.registers))
	for addr, value := range s.registers {
		status += fmt.Sprintf("\n  - 0x%04X => 0x%04X", addr, value)
	}
	status += s.ruleEngine.Status()
	return status
}

func (s *Inverter) traffic(m message.Message) {
	if s.protocolPort != nil {
		s.protocolPort.InfoX(m)
	}
}
