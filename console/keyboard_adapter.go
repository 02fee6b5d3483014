package console

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rwirdemann/sajmqtt"
	"github.com/rwirdemann/sajmqtt/encoding"
)

type statusPort interface {
	Status() string
}

// KeyboardAdapter reads commands from stdin: status, traffic muting and,
// when a control port is attached (the simulator), register manipulation and
// online/offline toggling.
type KeyboardAdapter struct {
	status   statusPort
	protocol sajmqtt.ProtocolPort
	control  sajmqtt.ControlPort
}

func NewKeyboardAdapter(status statusPort, protocol sajmqtt.ProtocolPort) *KeyboardAdapter {
	return &KeyboardAdapter{status: status, protocol: protocol}
}

// WithControl attaches a control port; its commands only show up when one is
// present.
func (a *KeyboardAdapter) WithControl(control sajmqtt.ControlPort) *KeyboardAdapter {
	a.control = control
	return a
}

func (a *KeyboardAdapter) Start(cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Enter 'h' followed by <enter> for help...")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit", "q":
			fmt.Println("Terminating...")
			cancel()
			return
		case "status", "s":
			fmt.Println(a.status.Status())
		case "mute", "m":
			a.protocol.Mute()
		case "unmute", "u":
			a.protocol.Unmute()
		case "toggle", "t":
			a.protocol.Toggle()
		case "set":
			a.handleSet(fields[1:])
		case "online":
			a.handleOnline(true)
		case "offline":
			a.handleOnline(false)
		case "help", "h":
			a.printHelp()
		default:
			fmt.Printf("Unknown command: %s (use 'h' for help)\n", fields[0])
		}
	}
}

func (a *KeyboardAdapter) handleSet(args []string) {
	if a.control == nil {
		fmt.Println("No simulator attached")
		return
	}
	if len(args) != 2 {
		fmt.Println("Usage: set <register> <value>, e.g. set 0x4000 0x07E6")
		return
	}
	addr, err := encoding.NewHex(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	value, err := encoding.NewHex(args[1])
	if err != nil {
		fmt.Println(err)
		return
	}
	a.control.SetRegister(addr.Uint16(), value.Uint16())
	fmt.Printf("set %s => %s\n", addr, value)
}

func (a *KeyboardAdapter) handleOnline(online bool) {
	if a.control == nil {
		fmt.Println("No simulator attached")
		return
	}
	a.control.SetOnline(online)
	if online {
		fmt.Println("Simulator is online")
	} else {
		fmt.Println("Simulator is offline")
	}
}

func (a *KeyboardAdapter) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  quit/exit/q - Quit")
	fmt.Println("  status/s    - Show status")
	fmt.Println("  mute/m      - Mute protocol traffic")
	fmt.Println("  unmute/u    - Unmute protocol traffic")
	fmt.Println("  toggle/t    - Toggle between raw and decoded traffic")
	if a.control != nil {
		fmt.Println("  set <register> <value> - Set a simulated register")
		fmt.Println("  online      - Simulator answers requests")
		fmt.Println("  offline     - Simulator stops answering")
	}
	fmt.Println("  help        - Show help")
}
