package sajmqtt

import "context"

// TransportPort publishes encoded request frames towards the inverter. The
// surrounding application implements it (see the mqtt package) and routes
// inbound response frames to Client.HandleInbound. Delivery is at most once:
// frames may be lost, duplicated or reordered underneath, the protocol layer
// tolerates all three.
type TransportPort interface {
	Publish(ctx context.Context, frame []byte) error
}
