package encoding

import (
	"fmt"
	"strconv"
	"strings"
)

// Hex parses register addresses and values given either as plain decimals or
// 0x-prefixed hex, the way they appear in the inverter documentation. It is
// used as a flag value by the command line tools.
type Hex uint16

func NewHex(value string) (*Hex, error) {
	var h = new(Hex)
	if err := h.Set(value); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hex) Uint16() uint16 {
	return uint16(*h)
}

// Set implements flag.Value.
func (h *Hex) Set(value string) error {
	value = strings.TrimSpace(value)
	v, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return fmt.Errorf("invalid register address: %v", err)
	}
	*h = Hex(v)
	return nil
}

// UnmarshalText lets Hex be used directly in TOML config files, where
// register addresses are written the way the documentation spells them.
func (h *Hex) UnmarshalText(text []byte) error {
	return h.Set(string(text))
}

func (h *Hex) String() string {
	if h == nil {
		return "0x0"
	}
	return fmt.Sprintf("0x%X", uint64(*h))
}
