package sajmqtt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rwirdemann/sajmqtt/encoding"
)

// Decode failure classes. They are wrapped in a *DecodeError and can be
// matched with errors.Is.
var (
	ErrShortFrame  = errors.New("frame shorter than declared structure")
	ErrBadCRC      = errors.New("crc mismatch")
	ErrBadMarker   = errors.New("bad header marker")
	ErrUnknownKind = errors.New("unknown request kind")
)

// DecodeError reports a malformed inbound frame. Decode errors never surface
// as call failures; the frame is dropped and the pending request, if any,
// times out on its own.
type DecodeError struct {
	cause  error
	detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %s", e.cause, e.detail)
}

func (e *DecodeError) Unwrap() error { return e.cause }

func decodeErr(cause error, format string, args ...any) *DecodeError {
	return &DecodeError{cause: cause, detail: fmt.Sprintf(format, args...)}
}

// Request frame offsets, relative to the start of the frame including the
// length prefix.
const (
	reqOffID      = 0x02
	reqOffMarker  = 0x04
	reqOffContent = 0x08 // unit address, first byte covered by the CRC
	reqOffCRC     = 0x0E
	reqFrameLen   = 0x10
)

// Response frame offsets.
const (
	rspOffID        = 0x02
	rspOffTimestamp = 0x04
	rspOffKind      = 0x08
	rspOffBody      = 0x0A
)

// Codec builds request frames and parses response frames. The zero value is
// not usable, construct it with NewCodec.
//
// Two wire details vary between firmware revisions and are therefore fields
// rather than constants: the byte order of the register/value pair echoed in
// write acknowledgements, and the offset the response CRC span starts at.
// The defaults match every H1 capture seen so far.
type Codec struct {
	// WriteAckOrder decodes the register/value pair of a write response. At
	// least one firmware revision has been observed echoing it byte-swapped.
	WriteAckOrder binary.ByteOrder

	// RespCRCStart is the offset within a response frame at which the CRC
	// coverage begins. It runs through the end of the body.
	RespCRCStart int
}

func NewCodec() *Codec {
	return &Codec{
		WriteAckOrder: binary.BigEndian,
		RespCRCStart:  rspOffKind,
	}
}

// EncodeRead builds a request frame reading count registers starting at
// start. It returns the frame and the random correlation id the response will
// carry. count must be within the protocol's hard cap.
func (c *Codec) EncodeRead(unitAddr uint8, start, count uint16) ([]byte, uint16, error) {
	if count == 0 || count > MaxRegistersPerFrame {
		return nil, 0, fmt.Errorf("%w: register count %d not in [1,%d]", ErrInvalidArgument, count, MaxRegistersPerFrame)
	}
	frame, id := c.encodeRequest(unitAddr, FC3ReadRegisters, start, count)
	return frame, id, nil
}

// EncodeWrite builds a request frame writing value to a single register.
func (c *Codec) EncodeWrite(unitAddr uint8, register, value uint16) ([]byte, uint16) {
	return c.encodeRequest(unitAddr, FC6WriteSingleRegister, register, value)
}

// encodeRequest assembles the shared request framing:
//
//	[len:u16][id:u16][0x58][0xC9][rand:u16][unit][fc][p1:u16][p2:u16][crc:u16]
//
// The CRC covers unit..p2 only and the length prefix counts every byte that
// follows it. Every field is big-endian except the CRC, which travels low
// byte first as on a modbus RTU wire.
func (c *Codec) encodeRequest(unitAddr uint8, fc uint8, p1, p2 uint16) ([]byte, uint16) {
	id := uint16(rand.Uint32())
	filler := uint16(rand.Uint32())

	frame := make([]byte, reqFrameLen)
	binary.BigEndian.PutUint16(frame[0:reqOffID], uint16(reqFrameLen-2))
	binary.BigEndian.PutUint16(frame[reqOffID:], id)
	frame[reqOffMarker] = markerHigh
	frame[reqOffMarker+1] = markerLow
	binary.BigEndian.PutUint16(frame[reqOffMarker+2:], filler)

	frame[reqOffContent] = unitAddr
	frame[reqOffContent+1] = fc
	binary.BigEndian.PutUint16(frame[reqOffContent+2:], p1)
	binary.BigEndian.PutUint16(frame[reqOffContent+4:], p2)

	crc := encoding.CRC16(frame[reqOffContent:reqOffCRC])
	binary.LittleEndian.PutUint16(frame[reqOffCRC:], crc)

	return frame, id
}

// DecodeResponse parses a data_transmission_rsp payload. A non-nil error is
// always a *DecodeError.
func (c *Codec) DecodeResponse(raw []byte) (*Response, error) {
	if len(raw) < rspOffBody+1 {
		return nil, decodeErr(ErrShortFrame, "%d header bytes", len(raw))
	}

	rsp := &Response{
		CorrelationID: binary.BigEndian.Uint16(raw[rspOffID:]),
		Timestamp:     binary.BigEndian.Uint32(raw[rspOffTimestamp:]),
	}

	// The kind word is compared at full width: 0x0203 is not a read response
	// even though its low byte matches the read function code.
	kind := binary.BigEndian.Uint16(raw[rspOffKind:]) - responseKindOffset
	switch kind {
	case uint16(FC3ReadRegisters):
		rsp.Kind = KindRead
		return rsp, c.decodeReadBody(raw, rsp)
	case uint16(FC6WriteSingleRegister):
		rsp.Kind = KindWrite
		return rsp, c.decodeWriteBody(raw, rsp)
	}
	return nil, decodeErr(ErrUnknownKind, "0x%04X", kind+responseKindOffset)
}

// decodeReadBody parses [size:u8][content:size][crc:u16] and verifies the CRC
// over RespCRCStart..end-of-content.
func (c *Codec) decodeReadBody(raw []byte, rsp *Response) error {
	size := int(raw[rspOffBody])
	end := rspOffBody + 1 + size
	if len(raw) < end+2 {
		return decodeErr(ErrShortFrame, "want %d bytes for read body, have %d", end+2, len(raw))
	}

	crc := binary.LittleEndian.Uint16(raw[end:])
	if calc := encoding.CRC16(raw[c.RespCRCStart:end]); crc != calc {
		return decodeErr(ErrBadCRC, "received 0x%04X, computed 0x%04X", crc, calc)
	}

	rsp.Data = raw[rspOffBody+1 : end]
	return nil
}

// decodeWriteBody parses [register:u16][value:u16][crc:u16]. The register and
// value are decoded with the configured write acknowledgement byte order.
func (c *Codec) decodeWriteBody(raw []byte, rsp *Response) error {
	end := rspOffBody + 4
	if len(raw) < end+2 {
		return decodeErr(ErrShortFrame, "want %d bytes for write body, have %d", end+2, len(raw))
	}

	crc := binary.LittleEndian.Uint16(raw[end:])
	if calc := encoding.CRC16(raw[c.RespCRCStart:end]); crc != calc {
		return decodeErr(ErrBadCRC, "received 0x%04X, computed 0x%04X", crc, calc)
	}

	rsp.Register = c.WriteAckOrder.Uint16(raw[rspOffBody:])
	rsp.Value = c.WriteAckOrder.Uint16(raw[rspOffBody+2:])
	return nil
}

// DecodeRequest parses a request frame. It is the inverter-side counterpart
// of EncodeRead/EncodeWrite, used by the simulator and by tests.
func (c *Codec) DecodeRequest(raw []byte) (*Request, error) {
	if len(raw) < reqFrameLen {
		return nil, decodeErr(ErrShortFrame, "%d bytes, request frames are %d", len(raw), reqFrameLen)
	}
	if raw[reqOffMarker] != markerHigh || raw[reqOffMarker+1] != markerLow {
		return nil, decodeErr(ErrBadMarker, "% X", raw[reqOffMarker:reqOffMarker+2])
	}

	crc := binary.LittleEndian.Uint16(raw[reqOffCRC:])
	if calc := encoding.CRC16(raw[reqOffContent:reqOffCRC]); crc != calc {
		return nil, decodeErr(ErrBadCRC, "received 0x%04X, computed 0x%04X", crc, calc)
	}

	req := &Request{
		CorrelationID: binary.BigEndian.Uint16(raw[reqOffID:]),
		UnitAddress:   raw[reqOffContent],
	}
	p1 := binary.BigEndian.Uint16(raw[reqOffContent+2:])
	p2 := binary.BigEndian.Uint16(raw[reqOffContent+4:])

	switch raw[reqOffContent+1] {
	case FC3ReadRegisters:
		req.Kind = KindRead
		req.Start, req.Count = p1, p2
	case FC6WriteSingleRegister:
		req.Kind = KindWrite
		req.Register, req.Value = p1, p2
	default:
		return nil, decodeErr(ErrUnknownKind, "0x%02X", raw[reqOffContent+1])
	}
	return req, nil
}

// EncodeReadResponse builds the frame an inverter answers a read request
// with. Used by the simulator and by round-trip tests.
func (c *Codec) EncodeReadResponse(id uint16, timestamp uint32, content []byte) []byte {
	body := make([]byte, 1+len(content))
	body[0] = uint8(len(content))
	copy(body[1:], content)
	return c.encodeResponse(id, timestamp, FC3ReadRegisters, body)
}

// EncodeWriteResponse builds the write acknowledgement frame, echoing the
// written register and value in the configured byte order.
func (c *Codec) EncodeWriteResponse(id uint16, timestamp uint32, register, value uint16) []byte {
	body := make([]byte, 4)
	c.WriteAckOrder.PutUint16(body[0:], register)
	c.WriteAckOrder.PutUint16(body[2:], value)
	return c.encodeResponse(id, timestamp, FC6WriteSingleRegister, body)
}

func (c *Codec) encodeResponse(id uint16, timestamp uint32, fc uint8, body []byte) []byte {
	frame := make([]byte, rspOffBody+len(body)+2)
	binary.BigEndian.PutUint16(frame[0:], uint16(len(frame)-2))
	binary.BigEndian.PutUint16(frame[rspOffID:], id)
	binary.BigEndian.PutUint32(frame[rspOffTimestamp:], timestamp)
	binary.BigEndian.PutUint16(frame[rspOffKind:], responseKindOffset+uint16(fc))
	copy(frame[rspOffBody:], body)

	crc := encoding.CRC16(frame[c.RespCRCStart : rspOffBody+len(body)])
	binary.LittleEndian.PutUint16(frame[rspOffBody+len(body):], crc)
	return frame
}
