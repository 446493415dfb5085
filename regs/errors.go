package regs

import (
	"fmt"
	"time"
)

// TimeoutError reports a register that did not reach the wanted value within
// the wait budget.
type TimeoutError struct {
	// Register is the logical register name, e.g. "DMATRFCMD"
	Register string

	// Offset is the register's byte offset
	Offset uint32

	// Mask selects the bits that were compared
	Mask uint32

	// Want is the value the masked bits were expected to reach
	Want uint32

	// Got is the last raw value read
	Got uint32

	// Waited is the budget consumed before giving up
	Waited time.Duration

	// Err is the sentinel for the failed operation
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v: %s (0x%04X) & 0x%08X != 0x%08X after %s, last read 0x%08X",
		e.Err, e.Register, e.Offset, e.Mask, e.Want, e.Waited, e.Got)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
