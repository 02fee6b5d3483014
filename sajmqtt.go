// Package sajmqtt implements the modbus-over-MQTT protocol spoken by SAJ H1
// series inverters. The inverter is not reachable over a serial line or TCP;
// instead it consumes request frames published to its data_transmission topic
// and publishes response frames on data_transmission_rsp. This package builds
// and parses those frames, correlates the asynchronous responses with their
// requests and exposes a plain read/write register surface on top.
package sajmqtt

const (
	FC3ReadRegisters       uint8 = 0x03
	FC6WriteSingleRegister uint8 = 0x06

	// MaxRegistersPerFrame is the protocol hard cap. A response cannot exceed
	// 256 bytes, which limits a single read to 123 registers.
	MaxRegistersPerFrame uint16 = 0x7B

	// DefaultDeviceAddress is the modbus unit address of the inverter.
	DefaultDeviceAddress uint8 = 0x01

	// Registers with device-defined semantics.
	RegAppMode uint16 = 0x3247
)

// The two marker bytes every request header carries after the correlation id.
const (
	markerHigh byte = 0x58
	markerLow  byte = 0xC9
)

// responseKindOffset is added by the inverter to the request function code in
// its response frames: a read answer carries 0x0103, a write answer 0x0106.
const responseKindOffset uint16 = 0x100

// RequestKind is the logical operation a frame belongs to.
type RequestKind uint8

const (
	KindRead  = RequestKind(FC3ReadRegisters)
	KindWrite = RequestKind(FC6WriteSingleRegister)
)

func (k RequestKind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	}
	return "unknown"
}

// Request is a decoded request frame as seen by the inverter (or a simulator
// standing in for it).
type Request struct {
	CorrelationID uint16
	Kind          RequestKind
	UnitAddress   uint8

	// Read requests.
	Start uint16
	Count uint16

	// Write requests.
	Register uint16
	Value    uint16
}

// Response is a decoded response frame.
type Response struct {
	CorrelationID uint16
	Timestamp     uint32
	Kind          RequestKind

	// Data holds the register content of a read response.
	Data []byte

	// Register and Value echo a write response.
	Register uint16
	Value    uint16
}
