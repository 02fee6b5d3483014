package registers

import "fmt"

// AppMode is the operating strategy written to register 0x3247.
type AppMode uint16

const (
	AppModeSelfUse AppMode = iota
	AppModeTimeOfUse
	AppModeBackup
	AppModePassive
)

var appModeNames = map[AppMode]string{
	AppModeSelfUse:   "self_use",
	AppModeTimeOfUse: "time_of_use",
	AppModeBackup:    "backup",
	AppModePassive:   "passive",
}

func (m AppMode) String() string {
	if name, ok := appModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("app_mode_%d", uint16(m))
}

// ParseAppMode resolves an app mode by name.
func ParseAppMode(name string) (AppMode, error) {
	for mode, n := range appModeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("registers: unknown app mode %q", name)
}

// WorkingMode is the inverter state reported in the realtime block.
type WorkingMode uint16

const (
	WorkingModeWait WorkingMode = iota + 1
	WorkingModeNormal
	WorkingModeFault
	WorkingModeUpdate
)

func (m WorkingMode) String() string {
	switch m {
	case WorkingModeWait:
		return "wait"
	case WorkingModeNormal:
		return "normal"
	case WorkingModeFault:
		return "fault"
	case WorkingModeUpdate:
		return "update"
	}
	return fmt.Sprintf("working_mode_%d", uint16(m))
}
