package sajmqtt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rwirdemann/sajmqtt/encoding"
)

func TestEncodeRead_Layout(t *testing.T) {
	codec := NewCodec()
	frame, id, err := codec.EncodeRead(0x01, 0x4000, 0x64)
	if err != nil {
		t.Fatalf("EncodeRead err=%v", err)
	}
	if len(frame) != 16 {
		t.Fatalf("frame length = %d, want 16", len(frame))
	}
	if got := binary.BigEndian.Uint16(frame[0:]); got != 14 {
		t.Fatalf("length prefix = %d, want 14", got)
	}
	if got := binary.BigEndian.Uint16(frame[2:]); got != id {
		t.Fatalf("frame id = 0x%04X, returned id = 0x%04X", got, id)
	}
	if frame[4] != 0x58 || frame[5] != 0xC9 {
		t.Fatalf("marker = % X, want 58 C9", frame[4:6])
	}
	if frame[8] != 0x01 || frame[9] != FC3ReadRegisters {
		t.Fatalf("unit/fc = % X, want 01 03", frame[8:10])
	}
	if got := binary.BigEndian.Uint16(frame[10:]); got != 0x4000 {
		t.Fatalf("start = 0x%04X, want 0x4000", got)
	}
	if got := binary.BigEndian.Uint16(frame[12:]); got != 0x64 {
		t.Fatalf("count = 0x%04X, want 0x64", got)
	}
	// The CRC travels low byte first, unlike every other field.
	crc := encoding.CRC16(frame[8:14])
	if frame[14] != byte(crc&0xFF) || frame[15] != byte(crc>>8) {
		t.Fatalf("crc wire bytes = % X, want %02X %02X", frame[14:16], byte(crc&0xFF), byte(crc>>8))
	}
}

func TestCRCWireOrder(t *testing.T) {
	// CRC-16/MODBUS of "123456789" is 0x4B37 and goes on the wire as 37 4B.
	payload := []byte("123456789")
	frame := make([]byte, len(payload)+2)
	copy(frame, payload)
	binary.LittleEndian.PutUint16(frame[len(payload):], encoding.CRC16(payload))
	if frame[len(payload)] != 0x37 || frame[len(payload)+1] != 0x4B {
		t.Fatalf("crc wire bytes = % X, want 37 4B", frame[len(payload):])
	}
}

// A response framed exactly the way the device firmware does, with the CRC
// low byte first, must decode.
func TestDecodeResponse_DeviceFraming(t *testing.T) {
	content := []byte{0xAA, 0xBB}
	frame := make([]byte, 15)
	binary.BigEndian.PutUint16(frame[0:], 13)
	binary.BigEndian.PutUint16(frame[2:], 0x1234)
	binary.BigEndian.PutUint32(frame[4:], 1756339200)
	binary.BigEndian.PutUint16(frame[8:], 0x0103)
	frame[10] = byte(len(content))
	copy(frame[11:], content)
	crc := encoding.CRC16(frame[8:13])
	frame[13] = byte(crc & 0xFF)
	frame[14] = byte(crc >> 8)

	rsp, err := NewCodec().DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.CorrelationID != 0x1234 || rsp.Kind != KindRead {
		t.Fatalf("id/kind = 0x%04X/%s, want 0x1234/read", rsp.CorrelationID, rsp.Kind)
	}
	if !bytes.Equal(rsp.Data, content) {
		t.Fatalf("data = % X, want % X", rsp.Data, content)
	}
}

func TestEncodeRead_CountBounds(t *testing.T) {
	codec := NewCodec()
	if _, _, err := codec.EncodeRead(0x01, 0x4000, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("count 0: err=%v, want ErrInvalidArgument", err)
	}
	if _, _, err := codec.EncodeRead(0x01, 0x4000, MaxRegistersPerFrame+1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("count 124: err=%v, want ErrInvalidArgument", err)
	}
	if _, _, err := codec.EncodeRead(0x01, 0x4000, MaxRegistersPerFrame); err != nil {
		t.Fatalf("count 123: err=%v", err)
	}
}

func TestEncodeWrite_Layout(t *testing.T) {
	codec := NewCodec()
	frame, _ := codec.EncodeWrite(0x01, 0x3247, 0x0002)
	if frame[9] != FC6WriteSingleRegister {
		t.Fatalf("fc = 0x%02X, want 0x06", frame[9])
	}
	if got := binary.BigEndian.Uint16(frame[10:]); got != 0x3247 {
		t.Fatalf("register = 0x%04X, want 0x3247", got)
	}
	if got := binary.BigEndian.Uint16(frame[12:]); got != 0x0002 {
		t.Fatalf("value = 0x%04X, want 0x0002", got)
	}
}

func TestReadResponseRoundTrip(t *testing.T) {
	codec := NewCodec()
	content := []byte{0x07, 0xE6, 0x00, 0x01}
	frame := codec.EncodeReadResponse(0xBEEF, 1756339200, content)

	rsp, err := codec.DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.CorrelationID != 0xBEEF {
		t.Fatalf("id = 0x%04X, want 0xBEEF", rsp.CorrelationID)
	}
	if rsp.Timestamp != 1756339200 {
		t.Fatalf("timestamp = %d, want 1756339200", rsp.Timestamp)
	}
	if rsp.Kind != KindRead {
		t.Fatalf("kind = %s, want read", rsp.Kind)
	}
	if !bytes.Equal(rsp.Data, content) {
		t.Fatalf("data = % X, want % X", rsp.Data, content)
	}
}

func TestWriteResponseRoundTrip(t *testing.T) {
	codec := NewCodec()
	frame := codec.EncodeWriteResponse(0x1234, 1756339200, 0x3247, 0x0003)

	rsp, err := codec.DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.Kind != KindWrite {
		t.Fatalf("kind = %s, want write", rsp.Kind)
	}
	if rsp.Register != 0x3247 || rsp.Value != 0x0003 {
		t.Fatalf("register/value = 0x%04X/0x%04X, want 0x3247/0x0003", rsp.Register, rsp.Value)
	}
}

func TestDecodeResponse_BadCRC(t *testing.T) {
	codec := NewCodec()
	frame := codec.EncodeReadResponse(0x0001, 0, []byte{0xAA, 0xBB})
	frame[11] ^= 0x01 // flip one content bit

	_, err := codec.DecodeResponse(frame)
	if !errors.Is(err, ErrBadCRC) {
		t.Fatalf("err=%v, want ErrBadCRC", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err=%T, want *DecodeError", err)
	}
}

func TestDecodeResponse_Short(t *testing.T) {
	codec := NewCodec()
	if _, err := codec.DecodeResponse([]byte{0x00, 0x01, 0x02}); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("err=%v, want ErrShortFrame", err)
	}

	// Declared read body larger than the buffer.
	frame := codec.EncodeReadResponse(0x0001, 0, []byte{0xAA, 0xBB})
	frame[10] = 0x7F
	if _, err := codec.DecodeResponse(frame); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("err=%v, want ErrShortFrame", err)
	}
}

func TestDecodeResponse_UnknownKind(t *testing.T) {
	codec := NewCodec()
	frame := codec.EncodeReadResponse(0x0001, 0, []byte{0xAA, 0xBB})
	frame[9] = 0x05
	if _, err := codec.DecodeResponse(frame); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err=%v, want ErrUnknownKind", err)
	}
}

func TestDecodeResponse_KindHighByteMatters(t *testing.T) {
	codec := NewCodec()
	frame := codec.EncodeReadResponse(0x0001, 0, []byte{0xAA, 0xBB})
	// Kind word 0x0203 shares the read function code in its low byte but is
	// not a read response. Re-sign the frame so only the kind is at fault.
	binary.BigEndian.PutUint16(frame[8:], 0x0203)
	crc := encoding.CRC16(frame[8 : len(frame)-2])
	binary.LittleEndian.PutUint16(frame[len(frame)-2:], crc)
	if _, err := codec.DecodeResponse(frame); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err=%v, want ErrUnknownKind", err)
	}
}

func TestWriteAckByteOrder(t *testing.T) {
	swapped := NewCodec()
	swapped.WriteAckOrder = binary.LittleEndian
	frame := swapped.EncodeWriteResponse(0x0001, 0, 0x3247, 0x0001)

	rsp, err := swapped.DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.Register != 0x3247 || rsp.Value != 0x0001 {
		t.Fatalf("register/value = 0x%04X/0x%04X, want 0x3247/0x0001", rsp.Register, rsp.Value)
	}

	// A big-endian codec sees the same frame byte-swapped.
	rsp, err = NewCodec().DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	if rsp.Register != 0x4732 {
		t.Fatalf("register = 0x%04X, want 0x4732", rsp.Register)
	}
}

func TestRespCRCStart(t *testing.T) {
	wide := NewCodec()
	wide.RespCRCStart = 0
	frame := wide.EncodeReadResponse(0x0001, 42, []byte{0xAA, 0xBB})

	if _, err := wide.DecodeResponse(frame); err != nil {
		t.Fatalf("DecodeResponse err=%v", err)
	}
	// The default span starts at the kind word, so the CRCs disagree.
	if _, err := NewCodec().DecodeResponse(frame); !errors.Is(err, ErrBadCRC) {
		t.Fatalf("err=%v, want ErrBadCRC", err)
	}
}

func TestDecodeRequestRoundTrip(t *testing.T) {
	codec := NewCodec()
	frame, id, err := codec.EncodeRead(0x01, 0x8F00, 0x1E)
	if err != nil {
		t.Fatalf("EncodeRead err=%v", err)
	}

	req, err := codec.DecodeRequest(frame)
	if err != nil {
		t.Fatalf("DecodeRequest err=%v", err)
	}
	if req.CorrelationID != id {
		t.Fatalf("id = 0x%04X, want 0x%04X", req.CorrelationID, id)
	}
	if req.Kind != KindRead || req.UnitAddress != 0x01 {
		t.Fatalf("kind/unit = %s/%d, want read/1", req.Kind, req.UnitAddress)
	}
	if req.Start != 0x8F00 || req.Count != 0x1E {
		t.Fatalf("start/count = 0x%04X/%d, want 0x8F00/30", req.Start, req.Count)
	}

	frame, id = codec.EncodeWrite(0x01, 0x3247, 0x0002)
	req, err = codec.DecodeRequest(frame)
	if err != nil {
		t.Fatalf("DecodeRequest err=%v", err)
	}
	if req.Kind != KindWrite || req.CorrelationID != id {
		t.Fatalf("kind/id = %s/0x%04X, want write/0x%04X", req.Kind, req.CorrelationID, id)
	}
	if req.Register != 0x3247 || req.Value != 0x0002 {
		t.Fatalf("register/value = 0x%04X/0x%04X, want 0x3247/0x0002", req.Register, req.Value)
	}
}

func TestDecodeRequest_BadMarker(t *testing.T) {
	codec := NewCodec()
	frame, _, _ := codec.EncodeRead(0x01, 0x4000, 1)
	frame[4] = 0x00
	if _, err := codec.DecodeRequest(frame); !errors.Is(err, ErrBadMarker) {
		t.Fatalf("err=%v, want ErrBadMarker", err)
	}
}

func TestDecodeRequest_BadCRC(t *testing.T) {
	codec := NewCodec()
	frame, _, _ := codec.EncodeRead(0x01, 0x4000, 1)
	frame[12] ^= 0x80
	if _, err := codec.DecodeRequest(frame); !errors.Is(err, ErrBadCRC) {
		t.Fatalf("err=%v, want ErrBadCRC", err)
	}
}
