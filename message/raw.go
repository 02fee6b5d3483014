package message

// Raw is a frame exactly as it crossed the broker, rendered as a
// direction-prefixed hex dump ("TX 00 0E 12 34 58 C9 ...").
type Raw struct {
	Value string
}

func NewRaw(value string) Raw {
	return Raw{Value: value}
}

func (m Raw) String() string {
	return m.Value
}

func (m Raw) Type() Type {
	return TypeRaw
}
