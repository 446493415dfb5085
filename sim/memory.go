package sim

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-nvdec/memmgr"
)

// ErrOutOfMemory is returned by Alloc when Limit would be exceeded.
var ErrOutOfMemory = errors.New("simulated memory exhausted")

// DefaultMemoryBase is the device address of the first allocation.
const DefaultMemoryBase memmgr.PhysAddr = 0x1_0000_0000

type region struct {
	addr   memmgr.PhysAddr
	mem    []byte
	flags  memmgr.Flags
	pinned bool
	mapped bool
}

// Memory is a memmgr.Manager backed by host memory. Pinned regions are
// visible to a Falcon's DMA engine through ReadPhys.
//
// Memory is not safe for concurrent use.
type Memory struct {
	// Limit caps the bytes allocated at once. Zero means no limit.
	Limit int

	next    memmgr.Handle
	addr    memmgr.PhysAddr
	used    int
	regions map[memmgr.Handle]*region
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		addr:    DefaultMemoryBase,
		regions: make(map[memmgr.Handle]*region),
	}
}

// Alloc implements memmgr.Manager.
func (m *Memory) Alloc(size, align int, flags memmgr.Flags) (memmgr.Handle, error) {
	if size <= 0 || align <= 0 {
		return 0, fmt.Errorf("invalid allocation size %d align %d", size, align)
	}
	if m.Limit > 0 && m.used+size > m.Limit {
		return 0, fmt.Errorf("%w: %d bytes in use, %d requested, limit %d",
			ErrOutOfMemory, m.used, size, m.Limit)
	}

	m.addr = memmgr.PhysAddr(memmgr.RoundUp(int(m.addr), align))
	m.next++
	m.regions[m.next] = &region{addr: m.addr, mem: make([]byte, size), flags: flags}
	m.addr += memmgr.PhysAddr(size)
	m.used += size
	return m.next, nil
}

// Pin implements memmgr.Manager.
func (m *Memory) Pin(h memmgr.Handle) (memmgr.SGTable, error) {
	r, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if r.pinned {
		return nil, fmt.Errorf("handle %d already pinned", h)
	}
	r.pinned = true
	return memmgr.SGTable{{Addr: r.addr, Length: len(r.mem)}}, nil
}

// Map implements memmgr.Manager.
func (m *Memory) Map(h memmgr.Handle) ([]byte, error) {
	r, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if r.mapped {
		return nil, fmt.Errorf("handle %d already mapped", h)
	}
	r.mapped = true
	return r.mem, nil
}

// Unmap implements memmgr.Manager.
func (m *Memory) Unmap(h memmgr.Handle, _ []byte) error {
	r, err := m.lookup(h)
	if err != nil {
		return err
	}
	if !r.mapped {
		return fmt.Errorf("handle %d not mapped", h)
	}
	r.mapped = false
	return nil
}

// Unpin implements memmgr.Manager.
func (m *Memory) Unpin(h memmgr.Handle, _ memmgr.SGTable) error {
	r, err := m.lookup(h)
	if err != nil {
		return err
	}
	if !r.pinned {
		return fmt.Errorf("handle %d not pinned", h)
	}
	r.pinned = false
	return nil
}

// Free implements memmgr.Manager.
func (m *Memory) Free(h memmgr.Handle) error {
	r, err := m.lookup(h)
	if err != nil {
		return err
	}
	if r.pinned || r.mapped {
		return fmt.Errorf("handle %d freed while pinned or mapped", h)
	}
	m.used -= len(r.mem)
	delete(m.regions, h)
	return nil
}

// InUse returns the number of live allocations and their total size.
func (m *Memory) InUse() (allocs, bytes int) {
	return len(m.regions), m.used
}

// ReadPhys copies n bytes at device address addr. The range must start in
// a pinned region; bytes past the end of that region read as zero.
func (m *Memory) ReadPhys(addr memmgr.PhysAddr, n int) ([]byte, error) {
	for _, r := range m.regions {
		end := r.addr + memmgr.PhysAddr(len(r.mem))
		if addr < r.addr || addr >= end {
			continue
		}
		if !r.pinned {
			return nil, fmt.Errorf("dma from unpinned address 0x%x", uint64(addr))
		}
		out := make([]byte, n)
		copy(out, r.mem[addr-r.addr:])
		return out, nil
	}
	return nil, fmt.Errorf("dma from unmapped address 0x%x", uint64(addr))
}

func (m *Memory) lookup(h memmgr.Handle) (*region, error) {
	r, ok := m.regions[h]
	if !ok {
		return nil, fmt.Errorf("unknown handle %d", h)
	}
	return r, nil
}
