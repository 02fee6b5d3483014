package sim

import (
	"bytes"
	"testing"
	"time"

	"github.com/rwirdemann/sajmqtt/config"
	"github.com/rwirdemann/sajmqtt/encoding"
)

func TestProcess_Read(t *testing.T) {
	inv := NewInverter(1, config.Simulator{}, nil)
	inv.now = func() time.Time { return time.Unix(1756339200, 0) }
	inv.SetRegister(0x4000, 0x07E6)
	inv.SetRegister(0x4001, 0x1234)

	frame, id, err := inv.Codec().EncodeRead(1, 0x4000, 3)
	if err != nil {
		t.Fatalf("EncodeRead err=%v", err)
	}

	raw := inv.Process(frame)
	if raw == nil {
		t.Fatal("Process returned nil")
	}
	rsp, err := inv.Codec().DecodeResponse(raw)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.CorrelationID != id {
		t.Fatalf("id = 0x%04X, want 0x%04X", rsp.CorrelationID, id)
	}
	if rsp.Timestamp != 1756339200 {
		t.Fatalf("timestamp = %d, want 1756339200", rsp.Timestamp)
	}
	// Unseeded registers read as zero.
	want := []byte{0x07, 0xE6, 0x12, 0x34, 0x00, 0x00}
	if !bytes.Equal(rsp.Data, want) {
		t.Fatalf("data = % X, want % X", rsp.Data, want)
	}
}

func TestProcess_WriteEcho(t *testing.T) {
	inv := NewInverter(1, config.Simulator{}, nil)

	frame, id := inv.Codec().EncodeWrite(1, 0x3247, 0x0002)
	raw := inv.Process(frame)
	if raw == nil {
		t.Fatal("Process returned nil")
	}
	rsp, err := inv.Codec().DecodeResponse(raw)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.CorrelationID != id || rsp.Register != 0x3247 || rsp.Value != 0x0002 {
		t.Fatalf("write ack = %+v", rsp)
	}

	// The value is stored.
	frame, _, _ = inv.Codec().EncodeRead(1, 0x3247, 1)
	rsp, err = inv.Codec().DecodeResponse(inv.Process(frame))
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if !bytes.Equal(rsp.Data, []byte{0x00, 0x02}) {
		t.Fatalf("data = % X, want 00 02", rsp.Data)
	}
}

func TestProcess_Offline(t *testing.T) {
	inv := NewInverter(1, config.Simulator{Offline: true}, nil)
	frame, _, _ := inv.Codec().EncodeRead(1, 0x4000, 1)
	if raw := inv.Process(frame); raw != nil {
		t.Fatal("offline simulator answered")
	}

	inv.SetOnline(true)
	if raw := inv.Process(frame); raw == nil {
		t.Fatal("online simulator stayed silent")
	}
}

func TestProcess_ForeignUnit(t *testing.T) {
	inv := NewInverter(1, config.Simulator{}, nil)
	frame, _, _ := inv.Codec().EncodeRead(2, 0x4000, 1)
	if raw := inv.Process(frame); raw != nil {
		t.Fatal("simulator answered a foreign unit address")
	}
}

func TestProcess_Garbage(t *testing.T) {
	inv := NewInverter(1, config.Simulator{}, nil)
	if raw := inv.Process([]byte("garbage")); raw != nil {
		t.Fatal("simulator answered garbage")
	}
}

func TestProcess_ReadRuleAppliesAfterServing(t *testing.T) {
	inv := NewInverter(1, config.Simulator{
		Registers: []config.Register{{Address: encoding.Hex(0x4010), Value: encoding.Hex(10)}},
		Rules:     []config.Rule{{Register: encoding.Hex(0x4010), Trigger: "on_read", Action: "increment"}},
	}, nil)

	read := func() uint16 {
		t.Helper()
		frame, _, _ := inv.Codec().EncodeRead(1, 0x4010, 1)
		rsp, err := inv.Codec().DecodeResponse(inv.Process(frame))
		if err != nil {
			t.Fatalf("DecodeResponse err=%v", err)
		}
		return encoding.BytesToUint16(rsp.Data)
	}

	// The first read sees the seeded value; the rule's effect shows up on the
	// next read.
	if got := read(); got != 10 {
		t.Fatalf("first read = %d, want 10", got)
	}
	if got := read(); got != 11 {
		t.Fatalf("second read = %d, want 11", got)
	}
}

func TestSeedFromConfig(t *testing.T) {
	inv := NewInverter(1, config.Simulator{
		Registers: []config.Register{
			{Address: encoding.Hex(0x4000), Value: encoding.Hex(0x07E6)},
		},
	}, nil)

	frame, _, _ := inv.Codec().EncodeRead(1, 0x4000, 1)
	rsp, err := inv.Codec().DecodeResponse(inv.Process(frame))
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if !bytes.Equal(rsp.Data, []byte{0x07, 0xE6}) {
		t.Fatalf("data = % X, want 07 E6", rsp.Data)
	}
}
