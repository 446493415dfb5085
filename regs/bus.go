package regs

// Bus is a flat, offset-addressed 32-bit register window.
//
// Implementations back it with whatever reaches the hardware: an mmap'd
// aperture, a debug bridge, or a simulator. Accesses are not expected to
// fail; a bus that can fault must surface that out of band.
type Bus interface {
	// Read32 returns the register at the given byte offset.
	Read32(offset uint32) uint32

	// Write32 stores v into the register at the given byte offset.
	Write32(offset uint32, v uint32)
}
