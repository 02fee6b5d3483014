package message

// Decoded summarizes a parsed request or response in one line, e.g.
// "TX read id=0x1234 start=0x4000 count=100".
type Decoded struct {
	Value string
}

func NewDecoded(value string) Decoded {
	return Decoded{Value: value}
}

func (m Decoded) String() string {
	return m.Value
}

func (m Decoded) Type() Type {
	return TypeDecoded
}
