package sajmqtt

// ControlPort manipulates a simulated inverter at runtime: seeding register
// values and taking the device on- or offline to provoke client timeouts.
type ControlPort interface {
	SetRegister(addr, value uint16)
	SetOnline(online bool)
}
