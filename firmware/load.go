package firmware

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/moffa90/go-nvdec/memmgr"
	"github.com/moffa90/go-nvdec/ucode"
)

// ChunkPad is the slack allocated past the image for whole-chunk DMA reads.
const ChunkPad = ucode.SegmentAlign

// Resident is a parsed firmware image held in a pinned, mapped buffer,
// ready for DMA.
type Resident struct {
	// Name is the file name the image was fetched under
	Name string

	// Size is the image length in bytes
	Size int

	// Plan drives the DMA transfer
	Plan ucode.SegmentPlan

	// Buffer holds the image
	Buffer *memmgr.Buffer
}

// DMABase returns the device address the DMA engine uses as its base: the
// start of the OS data blob inside the buffer.
func (r *Resident) DMABase() uint64 {
	return uint64(r.Buffer.DMAAddress()) + uint64(r.Plan.BinDataOffset)
}

// Release frees the buffer. It is safe to call more than once.
func (r *Resident) Release() error {
	if r == nil {
		return nil
	}
	return r.Buffer.Release()
}

// Load fetches name from src and makes it resident:
//
//  1. fetch the image (the only step that honours ctx)
//  2. allocate, pin and map a page-rounded uncacheable buffer with one
//     spare DMA chunk past the image
//  3. copy the image into the mapping and zero the tail
//  4. parse the container from the mapping
//
// On any failure every resource acquired so far is released before the
// error is returned, and the image bytes are dropped.
//
// Example:
//
//	fw, err := firmware.Load(ctx, mgr, firmware.NewDir(), "nvhost_nvdec010.fw", 0)
//	if err != nil {
//	    return err
//	}
//	defer fw.Release()
func Load(ctx context.Context, mgr memmgr.Manager, src Source, name string, pageSize int) (res *Resident, err error) {
	if src == nil {
		return nil, errors.New("firmware source cannot be nil")
	}

	image, err := src.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	if len(image) < ucode.BinHeaderSize {
		return nil, fmt.Errorf("parse %s: %w", name, &ucode.HeaderError{
			Field: "bin header end",
			Got:   ucode.BinHeaderSize,
			Want:  uint64(len(image)),
			Err:   ucode.ErrSizeInconsistency,
		})
	}

	// Every transfer moves a whole chunk, so the last code or data chunk
	// may read up to ChunkPad bytes past the end of the image.
	buf, err := memmgr.Acquire(mgr, len(image)+ChunkPad, pageSize)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rerr := buf.Release(); rerr != nil {
				err = multierror.Append(err, rerr)
			}
		}
	}()

	mapped := buf.Bytes()
	copy(mapped, image)
	clear(mapped[len(image):])

	plan, err := ucode.Parse(mapped[:len(image)])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	return &Resident{
		Name:   name,
		Size:   len(image),
		Plan:   plan,
		Buffer: buf,
	}, nil
}
