package ucode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Builder layout constants.
const (
	// builderOSHeaderOffset is where Build places the OS header.
	builderOSHeaderOffset = 0x40

	// SegmentAlign is the alignment of the OS data blob and of the data
	// segment within it; DMA bases and chunks are 256-byte granular.
	SegmentAlign = 256
)

// Spec describes a container for Build.
type Spec struct {
	// Code is the IMEM segment
	Code []byte

	// Data is the DMEM segment
	Data []byte

	// AppCount is copied into the OS header
	AppCount uint32
}

// Build encodes a valid container: bin header, OS header, then the OS data
// blob at a 256-byte boundary holding the code segment followed by the data
// segment at the next 256-byte boundary.
//
// Example:
//
//	image, err := ucode.Build(ucode.Spec{
//	    Code: code,
//	    Data: data,
//	})
func Build(spec Spec) ([]byte, error) {
	dataOffset := alignUp(uint64(len(spec.Code)), SegmentAlign)
	blobSize := dataOffset + uint64(len(spec.Data))
	osDataOffset := uint64(SegmentAlign)
	total := osDataOffset + blobSize

	if total > math.MaxUint32 {
		return nil, fmt.Errorf("container too large: %d bytes", total)
	}

	bin := BinHeader{
		Magic:          Magic,
		Version:        Version,
		TotalSize:      uint32(total),
		OSHeaderOffset: builderOSHeaderOffset,
		OSDataOffset:   uint32(osDataOffset),
		OSSize:         uint32(blobSize),
	}
	osh := OSHeader{
		CodeOffset: 0,
		CodeSize:   uint32(len(spec.Code)),
		DataOffset: uint32(dataOffset),
		DataSize:   uint32(len(spec.Data)),
		AppCount:   spec.AppCount,
	}

	image := make([]byte, total)

	var hdr bytes.Buffer
	if err := binary.Write(&hdr, binary.LittleEndian, &bin); err != nil {
		return nil, fmt.Errorf("encode bin header: %w", err)
	}
	copy(image, hdr.Bytes())

	hdr.Reset()
	if err := binary.Write(&hdr, binary.LittleEndian, &osh); err != nil {
		return nil, fmt.Errorf("encode os header: %w", err)
	}
	copy(image[builderOSHeaderOffset:], hdr.Bytes())

	copy(image[osDataOffset:], spec.Code)
	copy(image[osDataOffset+dataOffset:], spec.Data)

	return image, nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}
