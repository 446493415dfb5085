package ucode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/bytesextra"
)

// Parse validates a container and returns the segment plan that drives the
// DMA transfer. The buffer is only read.
//
// Example:
//
//	plan, err := ucode.Parse(image)
//	if errors.Is(err, ucode.ErrInvalidMagic) {
//	    // not a ucode container
//	}
func Parse(buf []byte) (SegmentPlan, error) {
	img, err := ParseImage(buf)
	if err != nil {
		return SegmentPlan{}, err
	}
	return img.Plan, nil
}

// ParseImage validates a container and returns both headers with the plan.
func ParseImage(buf []byte) (*Image, error) {
	size := uint64(len(buf))
	if size < BinHeaderSize {
		return nil, &HeaderError{
			Field: "bin header end",
			Got:   BinHeaderSize,
			Want:  size,
			Err:   ErrSizeInconsistency,
		}
	}

	r := bytesextra.NewReadWriteSeeker(buf)

	var img Image
	if err := binary.Read(r, binary.LittleEndian, &img.Bin); err != nil {
		return nil, fmt.Errorf("read bin header: %w", err)
	}

	if err := validateBinHeader(img.Bin, size); err != nil {
		return nil, err
	}

	if img.Bin.OSDataOffset%SegmentAlign != 0 {
		return nil, &HeaderError{
			Field: "os data offset",
			Got:   uint64(img.Bin.OSDataOffset),
			Align: SegmentAlign,
			Err:   ErrSizeInconsistency,
		}
	}

	limit := uint64(img.Bin.TotalSize)
	if err := checkRanges(limit, byteRange{
		field:  "os header",
		start:  uint64(img.Bin.OSHeaderOffset),
		length: OSHeaderSize,
	}); err != nil {
		return nil, err
	}

	if _, err := r.Seek(int64(img.Bin.OSHeaderOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek os header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &img.OS); err != nil {
		return nil, fmt.Errorf("read os header: %w", err)
	}

	base := uint64(img.Bin.OSDataOffset)
	if err := checkRanges(limit,
		byteRange{field: "code segment", start: base + uint64(img.OS.CodeOffset), length: uint64(img.OS.CodeSize)},
		byteRange{field: "data segment", start: base + uint64(img.OS.DataOffset), length: uint64(img.OS.DataSize)},
	); err != nil {
		return nil, err
	}
	if img.OS.DataSize > MaxDataSize {
		return nil, &HeaderError{
			Field: "data segment size",
			Got:   uint64(img.OS.DataSize),
			Want:  MaxDataSize,
			Err:   ErrSizeInconsistency,
		}
	}

	img.Plan = SegmentPlan{
		BinDataOffset: img.Bin.OSDataOffset,
		CodeOffset:    img.OS.CodeOffset,
		CodeSize:      img.OS.CodeSize,
		DataOffset:    img.OS.DataOffset,
		DataSize:      img.OS.DataSize,
	}

	return &img, nil
}

// validateBinHeader checks magic, version and total size, in that order.
func validateBinHeader(h BinHeader, size uint64) error {
	if h.Magic != Magic {
		return &HeaderError{Field: "magic", Got: uint64(h.Magic), Want: Magic, Err: ErrInvalidMagic}
	}
	if h.Version != Version {
		return &HeaderError{Field: "version", Got: uint64(h.Version), Want: Version, Err: ErrUnsupportedVersion}
	}
	if uint64(h.TotalSize) > size {
		return &HeaderError{Field: "total size", Got: uint64(h.TotalSize), Want: size, Err: ErrSizeInconsistency}
	}
	return nil
}

type byteRange struct {
	field  string
	start  uint64
	length uint64
}

// checkRanges reports every range that does not end within limit.
func checkRanges(limit uint64, ranges ...byteRange) error {
	var result *multierror.Error
	for _, r := range ranges {
		if end := r.start + r.length; end > limit {
			result = multierror.Append(result, &HeaderError{
				Field: r.field + " end",
				Got:   end,
				Want:  limit,
				Err:   ErrSizeInconsistency,
			})
		}
	}
	return result.ErrorOrNil()
}
