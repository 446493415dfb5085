// Package ucode parses NVDEC ucode firmware containers.
//
// # Container Format
//
// A container is a little-endian binary image. It starts with a bin header:
//
//	offset  field
//	0x00    magic            0x10DE
//	0x04    version          1
//	0x08    total_size       bytes covered by the container, <= file size
//	0x0C    os_header_offset byte offset of the OS header
//	0x10    os_data_offset   byte offset of the OS data blob (DMA base)
//	0x14    os_size          size of the OS data blob
//
// The OS header sits at os_header_offset:
//
//	offset  field
//	0x00    code_offset      IMEM segment, relative to os_data_offset
//	0x04    code_size
//	0x08    data_offset      DMEM segment, relative to os_data_offset
//	0x0C    data_size
//	0x10    app_count
//
// # Validation
//
// Checks run in a fixed order and the first failure rejects the image:
//
//	magic      -> ErrInvalidMagic
//	version    -> ErrUnsupportedVersion
//	total_size -> ErrSizeInconsistency
//
// Only then are derived offsets used. The OS header and both segments must
// lie within total_size; violations are reported together as
// ErrSizeInconsistency.
//
// # Usage
//
//	plan, err := ucode.Parse(image)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("data %d bytes at 0x%x\n", plan.DataSize, plan.DataOffset)
//
// Build produces a valid container from raw segments, which is handy for
// tests and bring-up:
//
//	image, err := ucode.Build(ucode.Spec{Code: code, Data: data})
package ucode
