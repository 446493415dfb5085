// Package regs is the register I/O shim for NVDEC-class falcon engines.
//
// # Overview
//
// The engine is reached through a flat, offset-addressed window of 32-bit
// registers. This package names the logical registers the loader needs and
// the bit fields it programs into them, without hard-coding any chip's
// physical addresses:
//
//	Bus     - Read32/Write32 by byte offset, implemented by the caller
//	Layout  - logical register -> offset table, loadable from YAML
//	*F/*V   - field encoders and decoders (DMA command, IRQ masks, ...)
//
// # Layouts
//
// DefaultLayout describes the NVDEC falcon block at 0x1000. Other chip
// revisions can be described in YAML:
//
//	irqmset: 0x1010
//	irqdest: 0x101c
//	itfen: 0x1048
//	idlestate: 0x104c
//	cpuctl: 0x1100
//	bootvec: 0x1104
//	dmactl: 0x110c
//	dmatrfbase: 0x1110
//	dmatrfmoffs: 0x1114
//	dmatrfcmd: 0x1118
//	dmatrffboffs: 0x111c
//
// and loaded with LoadLayout. Missing keys keep their default offsets.
//
// # Errors
//
// TimeoutError reports a bounded wait on a register that never reached the
// wanted value. It names the register, the mask and wanted bits, and the last
// value read, and unwraps to the sentinel supplied by the waiting package.
package regs
