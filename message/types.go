// Package message carries the traffic lines the console shows while frames
// travel the data_transmission topic pair: either the raw hex dump of a
// frame or its decoded one-line summary. Adapters filter on the type so the
// operator watches one representation at a time.
package message

// Type selects which traffic representation an adapter displays.
type Type int

const (
	TypeDecoded Type = iota
	TypeRaw
)

type Message interface {
	String() string
	Type() Type
}
