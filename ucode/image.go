package ucode

import "fmt"

// Container constants.
const (
	// Magic identifies a ucode container.
	Magic = 0x10DE

	// Version is the only supported container version.
	Version = 1

	// BinHeaderSize is the encoded size of BinHeader.
	BinHeaderSize = 24

	// OSHeaderSize is the encoded size of OSHeader.
	OSHeaderSize = 20

	// MaxDataSize bounds the DMEM segment; DMATRFMOFFS holds a 16-bit
	// destination offset.
	MaxDataSize = 1 << 16
)

// BinHeader is the fixed header at the start of a container.
type BinHeader struct {
	Magic          uint32
	Version        uint32
	TotalSize      uint32
	OSHeaderOffset uint32
	OSDataOffset   uint32
	OSSize         uint32
}

// OSHeader describes the OS segments. Offsets are relative to
// BinHeader.OSDataOffset.
type OSHeader struct {
	CodeOffset uint32
	CodeSize   uint32
	DataOffset uint32
	DataSize   uint32
	AppCount   uint32
}

// SegmentPlan is the subset of header fields that drives the DMA transfer.
type SegmentPlan struct {
	// BinDataOffset is the offset of the OS data blob; the DMA base points here
	BinDataOffset uint32

	// CodeOffset is the IMEM segment offset, relative to BinDataOffset
	CodeOffset uint32

	// CodeSize is the IMEM segment size
	CodeSize uint32

	// DataOffset is the DMEM segment offset, relative to BinDataOffset
	DataOffset uint32

	// DataSize is the DMEM segment size
	DataSize uint32
}

// Image is a fully decoded container.
type Image struct {
	Bin  BinHeader
	OS   OSHeader
	Plan SegmentPlan
}

func (h BinHeader) String() string {
	return fmt.Sprintf("magic=0x%x ver=%d size=%d os(header=0x%x, data=0x%x, size=%d)",
		h.Magic, h.Version, h.TotalSize, h.OSHeaderOffset, h.OSDataOffset, h.OSSize)
}

func (h OSHeader) String() string {
	return fmt.Sprintf("code(0x%x, %d) data(0x%x, %d) apps=%d",
		h.CodeOffset, h.CodeSize, h.DataOffset, h.DataSize, h.AppCount)
}
