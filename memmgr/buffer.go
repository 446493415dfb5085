package memmgr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DefaultPageSize is the allocation granule and alignment.
const DefaultPageSize = 4096

var (
	// ErrAllocationFailed wraps a Manager.Alloc failure.
	ErrAllocationFailed = errors.New("firmware buffer allocation failed")

	// ErrPinFailed wraps a Manager.Pin failure.
	ErrPinFailed = errors.New("firmware buffer pin failed")

	// ErrMapFailed wraps a Manager.Map failure.
	ErrMapFailed = errors.New("firmware buffer map failed")
)

// Buffer owns one allocated, pinned and mapped region.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	mgr Manager

	handle    Handle
	allocated bool
	sgt       SGTable
	pinned    bool
	mapped    []byte
}

// Acquire allocates size bytes rounded up to pageSize with an uncacheable
// hint, pins them and maps them. If any step fails, the steps already
// completed are undone in reverse order and the originating error is
// returned.
//
// Example:
//
//	buf, err := memmgr.Acquire(mgr, len(image), memmgr.DefaultPageSize)
//	if err != nil {
//	    return err
//	}
//	defer buf.Release()
func Acquire(mgr Manager, size, pageSize int) (buf *Buffer, err error) {
	if mgr == nil {
		return nil, fmt.Errorf("%w: no memory manager", ErrAllocationFailed)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrAllocationFailed, size)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	b := &Buffer{mgr: mgr}
	defer func() {
		if err != nil {
			if rerr := b.Release(); rerr != nil {
				err = multierror.Append(err, rerr)
			}
		}
	}()

	b.handle, err = mgr.Alloc(RoundUp(size, pageSize), pageSize, FlagUncacheable)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}
	b.allocated = true

	b.sgt, err = mgr.Pin(b.handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPinFailed, err)
	}
	b.pinned = true

	b.mapped, err = mgr.Map(b.handle)
	if err != nil {
		b.mapped = nil
		return nil, fmt.Errorf("%w: %w", ErrMapFailed, err)
	}
	if len(b.mapped) < size {
		n := len(b.mapped)
		return nil, fmt.Errorf("%w: mapping is %d bytes, need %d", ErrMapFailed, n, size)
	}

	return b, nil
}

// Release unmaps, unpins and frees the buffer, in that order. Every held
// reference is cleared before Release returns, so calling it again, or on a
// nil Buffer, does nothing. Failures of individual steps are collected and do
// not stop the remaining steps.
func (b *Buffer) Release() error {
	if b == nil {
		return nil
	}

	var result *multierror.Error

	if b.mapped != nil {
		if err := b.mgr.Unmap(b.handle, b.mapped); err != nil {
			result = multierror.Append(result, fmt.Errorf("unmap: %w", err))
		}
		b.mapped = nil
	}

	if b.pinned {
		if err := b.mgr.Unpin(b.handle, b.sgt); err != nil {
			result = multierror.Append(result, fmt.Errorf("unpin: %w", err))
		}
		b.sgt = nil
		b.pinned = false
	}

	if b.allocated {
		if err := b.mgr.Free(b.handle); err != nil {
			result = multierror.Append(result, fmt.Errorf("free: %w", err))
		}
		b.handle = 0
		b.allocated = false
	}

	return result.ErrorOrNil()
}

// Held reports whether any resource is still owned.
func (b *Buffer) Held() bool {
	return b != nil && (b.allocated || b.pinned || b.mapped != nil)
}

// Bytes returns the CPU mapping, or nil once released.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.mapped
}

// DMAAddress returns the device address of the buffer, or 0 once released.
func (b *Buffer) DMAAddress() PhysAddr {
	if b == nil {
		return 0
	}
	return b.sgt.DMAAddress()
}

// SGTable returns the pinned address list.
func (b *Buffer) SGTable() SGTable {
	if b == nil {
		return nil
	}
	return b.sgt
}

// RoundUp rounds size up to a multiple of page.
func RoundUp(size, page int) int {
	return (size + page - 1) / page * page
}
