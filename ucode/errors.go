package ucode

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic reports a container that does not start with Magic.
	ErrInvalidMagic = errors.New("invalid ucode magic")

	// ErrUnsupportedVersion reports a container version other than Version.
	ErrUnsupportedVersion = errors.New("unsupported ucode version")

	// ErrSizeInconsistency reports a truncated container or a header field
	// pointing outside it.
	ErrSizeInconsistency = errors.New("ucode image size inconsistency")
)

// HeaderError describes a rejected header field.
type HeaderError struct {
	// Field is the header field that failed validation
	Field string

	// Got is the value found in the image
	Got uint64

	// Want is the expected value, or the limit that was exceeded
	Want uint64

	// Err is one of the package sentinels
	Err error

	// Align, when set, is the alignment Got failed to meet
	Align uint64
}

func (e *HeaderError) Error() string {
	switch {
	case e.Align != 0:
		return fmt.Sprintf("%v: %s 0x%X not %d-byte aligned", e.Err, e.Field, e.Got, e.Align)
	case e.Err == ErrSizeInconsistency:
		return fmt.Sprintf("%v: %s %d exceeds %d", e.Err, e.Field, e.Got, e.Want)
	default:
		return fmt.Sprintf("%v: %s is 0x%X, expected 0x%X", e.Err, e.Field, e.Got, e.Want)
	}
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}
