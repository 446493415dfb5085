package regs

// ChunkSize is the number of bytes moved by one DMA command.
const ChunkSize = 256

// DMATRFCMD fields.
const (
	// dmaIdleShift locates the read-only idle bit.
	dmaIdleShift = 1

	// DMACmdIdleTrue is the decoded idle value once a transfer has drained.
	DMACmdIdleTrue = 1

	// DMACmdIMem selects IMEM rather than DMEM as the destination.
	DMACmdIMem = 1 << 4

	// DMACmdSize256B encodes a 256-byte transfer in the size field (bits 8-10).
	DMACmdSize256B = 0x6 << 8
)

// DMACmdIdleMask isolates the idle bit of DMATRFCMD.
const DMACmdIdleMask = 1 << dmaIdleShift

// IRQMSET / IRQDEST source bits. Both registers share the same layout.
const (
	IRQWdtmr  = 1 << 1
	IRQHalt   = 1 << 4
	IRQExterr = 1 << 5
	IRQSwgen0 = 1 << 6
	IRQSwgen1 = 1 << 7
)

// ITFEN fields.
const (
	ITFEnCtxEn  = 1 << 0
	ITFEnMthdEn = 1 << 1
)

// CPUCtlStartCPU releases the falcon from reset.
const CPUCtlStartCPU = 1 << 1

// DMATrfCmdF encodes a 256-byte transfer command, optionally into IMEM.
func DMATrfCmdF(imem bool) uint32 {
	cmd := uint32(DMACmdSize256B)
	if imem {
		cmd |= DMACmdIMem
	}
	return cmd
}

// DMATrfCmdIdleV decodes the idle field of a DMATRFCMD read.
func DMATrfCmdIdleV(r uint32) uint32 {
	return (r >> dmaIdleShift) & 0x1
}

// DMATrfMOffsF encodes a destination offset; only the low 16 bits are wired.
func DMATrfMOffsF(v uint32) uint32 {
	return v & 0xffff
}

// DMATrfFBOffsF encodes a source offset relative to the DMA base.
func DMATrfFBOffsF(v uint32) uint32 {
	return v
}

// DMATrfBaseF encodes a 256-byte aligned DMA address.
func DMATrfBaseF(addr uint64) uint32 {
	return uint32(addr >> 8)
}

// IRQExtF places external interrupt lines into bits 8-15.
func IRQExtF(v uint32) uint32 {
	return (v & 0xff) << 8
}

// BootVecF encodes an IMEM entry point.
func BootVecF(v uint32) uint32 {
	return v
}

// IRQMask is the interrupt set the loader enables: all external lines, both
// software-generated sources, external error, halt and watchdog.
func IRQMask() uint32 {
	return IRQExtF(0xff) | IRQSwgen1 | IRQSwgen0 | IRQExterr | IRQHalt | IRQWdtmr
}

// IRQHostDest routes every source in IRQMask to the host.
func IRQHostDest() uint32 {
	return IRQMask()
}

// ITFEnable turns on the method and context interfaces.
func ITFEnable() uint32 {
	return ITFEnMthdEn | ITFEnCtxEn
}
