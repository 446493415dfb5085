package engine

import "fmt"

// State is the boot state of an engine.
type State int

const (
	// StateIdle is the state before a boot and after an unload.
	StateIdle State = iota

	// StateLoading covers the DMA of data and code segments.
	StateLoading

	// StateInterruptsConfigured is entered once interrupt routing and the
	// method/context interfaces are programmed.
	StateInterruptsConfigured

	// StateStarting is entered when the start pulse has been issued.
	StateStarting

	// StateRunning means the falcon reported idle after the start pulse.
	StateRunning

	// StateBootFailed means a DMA or boot wait timed out. Device memory is
	// undefined until the next full boot.
	StateBootFailed
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateLoading:              "loading",
	StateInterruptsConfigured: "interrupts-configured",
	StateStarting:             "starting",
	StateRunning:              "running",
	StateBootFailed:           "boot-failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
