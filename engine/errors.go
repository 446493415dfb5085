package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMedium is returned when a boot is requested without valid
	// firmware resident.
	ErrNoMedium = errors.New("no firmware loaded")

	// ErrBootTimeout reports a falcon that never left its reset state after
	// the start pulse.
	ErrBootTimeout = errors.New("boot idle timeout")

	// ErrBusy is returned when firmware is loaded over an image that is
	// still resident, or a device is initialized twice.
	ErrBusy = errors.New("firmware already resident")
)

// BootError records the boot state a failed sequence stopped in.
type BootError struct {
	State State
	Err   error
}

func (e *BootError) Error() string {
	return fmt.Sprintf("boot failed while %s: %v", e.State, e.Err)
}

func (e *BootError) Unwrap() error {
	return e.Err
}
