// Package regstest provides a recording register bus for tests.
package regstest

// Access is one recorded register access.
type Access struct {
	Write  bool
	Offset uint32
	Value  uint32
}

// Bus is an in-memory regs.Bus that records every access. Hooks can
// override reads and observe writes to model device behaviour.
type Bus struct {
	// Regs holds the current register values.
	Regs map[uint32]uint32

	// Log lists every access in order.
	Log []Access

	// OnRead, if set, may replace the value returned for a read. n counts
	// reads of offset so far, starting at 1.
	OnRead func(offset uint32, n int, stored uint32) uint32

	// OnWrite, if set, is called after a write is stored.
	OnWrite func(offset, v uint32)

	reads map[uint32]int
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		Regs:  make(map[uint32]uint32),
		reads: make(map[uint32]int),
	}
}

// Read32 implements regs.Bus.
func (b *Bus) Read32(offset uint32) uint32 {
	b.reads[offset]++
	v := b.Regs[offset]
	if b.OnRead != nil {
		v = b.OnRead(offset, b.reads[offset], v)
	}
	b.Log = append(b.Log, Access{Offset: offset, Value: v})
	return v
}

// Write32 implements regs.Bus.
func (b *Bus) Write32(offset, v uint32) {
	b.Regs[offset] = v
	b.Log = append(b.Log, Access{Write: true, Offset: offset, Value: v})
	if b.OnWrite != nil {
		b.OnWrite(offset, v)
	}
}

// Writes returns the values written to offset, in order.
func (b *Bus) Writes(offset uint32) []uint32 {
	var out []uint32
	for _, a := range b.Log {
		if a.Write && a.Offset == offset {
			out = append(out, a.Value)
		}
	}
	return out
}

// Reads returns how many times offset was read.
func (b *Bus) Reads(offset uint32) int {
	return b.reads[offset]
}

// WriteOffsets returns the offsets of every write, in order.
func (b *Bus) WriteOffsets() []uint32 {
	var out []uint32
	for _, a := range b.Log {
		if a.Write {
			out = append(out, a.Offset)
		}
	}
	return out
}
