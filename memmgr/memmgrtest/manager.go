// Package memmgrtest provides a fault-injecting memmgr.Manager for tests.
package memmgrtest

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-nvdec/memmgr"
)

// Step names a Manager call.
type Step string

// Manager steps.
const (
	StepAlloc Step = "alloc"
	StepPin   Step = "pin"
	StepMap   Step = "map"
	StepUnmap Step = "unmap"
	StepUnpin Step = "unpin"
	StepFree  Step = "free"
)

// ErrInjected is returned by a step configured to fail.
var ErrInjected = errors.New("injected failure")

// baseAddr is the device address of the first allocation.
const baseAddr = 0x8000_0000

type allocation struct {
	size   int
	addr   memmgr.PhysAddr
	mem    []byte
	pinned bool
	mapped bool
}

// Manager is an in-memory memmgr.Manager that records every call and can
// fail any step on demand. It is not safe for concurrent use.
type Manager struct {
	// Fail makes the named steps return ErrInjected.
	Fail map[Step]bool

	// Calls lists every call in order.
	Calls []Step

	// AllocFlags records the flags of every Alloc call.
	AllocFlags []memmgr.Flags

	// AllocSizes records the size of every Alloc call.
	AllocSizes []int

	next   memmgr.Handle
	addr   memmgr.PhysAddr
	allocs map[memmgr.Handle]*allocation
}

// New returns a Manager with no injected failures.
func New() *Manager {
	return &Manager{
		Fail:   make(map[Step]bool),
		addr:   baseAddr,
		allocs: make(map[memmgr.Handle]*allocation),
	}
}

// FailAt returns a Manager that fails the given steps.
func FailAt(steps ...Step) *Manager {
	m := New()
	for _, s := range steps {
		m.Fail[s] = true
	}
	return m
}

func (m *Manager) record(s Step) error {
	m.Calls = append(m.Calls, s)
	if m.Fail[s] {
		return fmt.Errorf("%s: %w", s, ErrInjected)
	}
	return nil
}

// Count returns how many times step was called.
func (m *Manager) Count(s Step) int {
	n := 0
	for _, c := range m.Calls {
		if c == s {
			n++
		}
	}
	return n
}

// Outstanding returns the number of allocations, pins and mappings still held.
func (m *Manager) Outstanding() (allocs, pins, maps int) {
	for _, a := range m.allocs {
		allocs++
		if a.pinned {
			pins++
		}
		if a.mapped {
			maps++
		}
	}
	return allocs, pins, maps
}

// Leaked reports whether any resource is still held.
func (m *Manager) Leaked() bool {
	a, p, mp := m.Outstanding()
	return a+p+mp > 0
}

// Alloc implements memmgr.Manager.
func (m *Manager) Alloc(size, align int, flags memmgr.Flags) (memmgr.Handle, error) {
	if err := m.record(StepAlloc); err != nil {
		return 0, err
	}
	m.AllocFlags = append(m.AllocFlags, flags)
	m.AllocSizes = append(m.AllocSizes, size)

	m.next++
	h := m.next
	m.allocs[h] = &allocation{size: size, addr: m.addr, mem: make([]byte, size)}
	m.addr += memmgr.PhysAddr(memmgr.RoundUp(size, align))
	return h, nil
}

// Pin implements memmgr.Manager.
func (m *Manager) Pin(h memmgr.Handle) (memmgr.SGTable, error) {
	if err := m.record(StepPin); err != nil {
		return nil, err
	}
	a, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if a.pinned {
		return nil, fmt.Errorf("handle %d already pinned", h)
	}
	a.pinned = true
	return memmgr.SGTable{{Addr: a.addr, Length: a.size}}, nil
}

// Map implements memmgr.Manager.
func (m *Manager) Map(h memmgr.Handle) ([]byte, error) {
	if err := m.record(StepMap); err != nil {
		return nil, err
	}
	a, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if a.mapped {
		return nil, fmt.Errorf("handle %d already mapped", h)
	}
	a.mapped = true
	return a.mem, nil
}

// Unmap implements memmgr.Manager.
func (m *Manager) Unmap(h memmgr.Handle, _ []byte) error {
	if err := m.record(StepUnmap); err != nil {
		return err
	}
	a, err := m.lookup(h)
	if err != nil {
		return err
	}
	if !a.mapped {
		return fmt.Errorf("handle %d not mapped", h)
	}
	a.mapped = false
	return nil
}

// Unpin implements memmgr.Manager.
func (m *Manager) Unpin(h memmgr.Handle, _ memmgr.SGTable) error {
	if err := m.record(StepUnpin); err != nil {
		return err
	}
	a, err := m.lookup(h)
	if err != nil {
		return err
	}
	if !a.pinned {
		return fmt.Errorf("handle %d not pinned", h)
	}
	a.pinned = false
	return nil
}

// Free implements memmgr.Manager.
func (m *Manager) Free(h memmgr.Handle) error {
	if err := m.record(StepFree); err != nil {
		return err
	}
	if _, err := m.lookup(h); err != nil {
		return err
	}
	delete(m.allocs, h)
	return nil
}

func (m *Manager) lookup(h memmgr.Handle) (*allocation, error) {
	a, ok := m.allocs[h]
	if !ok {
		return nil, fmt.Errorf("unknown handle %d", h)
	}
	return a, nil
}
