// Package memmgr wraps the host memory manager that backs the firmware
// buffer.
//
// The memory manager itself is external: it performs the physical
// allocation, pins pages for device DMA, and maps them for CPU access.
// This package defines the interface the loader needs from it and the
// Buffer type that owns one allocation/pin/map triple, acquired in order and
// released in reverse order exactly once.
package memmgr

// PhysAddr is a device-visible (IOVA or physical) address.
type PhysAddr uint64

// Handle identifies an allocation inside a Manager. Its value is opaque.
type Handle uint64

// Flags are allocation hints.
type Flags uint32

const (
	// FlagUncacheable requests a CPU-uncached mapping, so writes reach
	// memory before the device reads them.
	FlagUncacheable Flags = 1 << iota
)

// Segment is one contiguous range of a pinned allocation.
type Segment struct {
	Addr   PhysAddr
	Length int
}

// SGTable is the physical address list of a pinned allocation.
type SGTable []Segment

// DMAAddress returns the device address of the first byte. The DMA engine
// addresses the buffer linearly from this base, so the manager must present
// the pinned pages as one contiguous device range.
func (t SGTable) DMAAddress() PhysAddr {
	if len(t) == 0 {
		return 0
	}
	return t[0].Addr
}

// Manager is the external memory-manager service.
type Manager interface {
	// Alloc reserves size bytes aligned to align.
	Alloc(size, align int, flags Flags) (Handle, error)

	// Pin locks the allocation for DMA and returns its address list.
	Pin(h Handle) (SGTable, error)

	// Map makes the allocation CPU-visible.
	Map(h Handle) ([]byte, error)

	// Unmap reverses Map.
	Unmap(h Handle, mapped []byte) error

	// Unpin reverses Pin.
	Unpin(h Handle, sgt SGTable) error

	// Free reverses Alloc.
	Free(h Handle) error
}
