// Package encoding holds the byte-level helpers shared by the frame codec,
// the register map and the tools: big-endian register conversions and the
// modbus CRC-16.
package encoding

import "encoding/binary"

func Uint16ToBytes(in uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, in)
	return out
}

func BytesToUint16(in []byte) uint16 {
	return binary.BigEndian.Uint16(in)
}

// BytesToInt16 reads a signed 16 bit register value. Several realtime fields
// (currents, powers, temperatures) are signed on the wire.
func BytesToInt16(in []byte) int16 {
	return int16(binary.BigEndian.Uint16(in))
}

// BytesToUint32 reads two consecutive registers as one 32 bit value, high
// word first. The energy statistics counters are stored this way.
func BytesToUint32(in []byte) uint32 {
	return binary.BigEndian.Uint32(in)
}
