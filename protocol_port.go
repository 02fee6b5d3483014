package sajmqtt

import "github.com/rwirdemann/sajmqtt/message"

// ProtocolPort renders protocol traffic for a human watching the exchange:
// raw frame hex dumps or decoded request/response lines, depending on the
// adapter's level.
type ProtocolPort interface {
	InfoX(m message.Message)
	Info(msg string)

	// Println logs the output even when it's muted
	Println(msg string)

	Separator()
	Mute()
	Unmute()
	Toggle()
}
