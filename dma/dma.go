// Package dma moves ucode segments into falcon IMEM/DMEM.
//
// The falcon has a single DMA channel. A transfer is programmed through
// three registers (destination offset, source offset, command) and then
// polled until the command register reports idle. Chunks are always 256
// bytes and are issued strictly one after another; a new command is never
// written before the previous one has drained.
package dma

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-nvdec/poll"
	"github.com/moffa90/go-nvdec/regs"
	"github.com/moffa90/go-nvdec/ucode"
)

var (
	// ErrTimeout reports a chunk that never drained.
	ErrTimeout = errors.New("dma idle timeout")

	// ErrUnalignedBase reports a DMA base that is not 256-byte aligned.
	ErrUnalignedBase = errors.New("dma base not 256-byte aligned")
)

// Chunk is one 256-byte transfer.
type Chunk struct {
	// Src is the source offset relative to the DMA base
	Src uint32

	// Dst is the destination offset inside IMEM or DMEM
	Dst uint32

	// IMem selects IMEM as the destination
	IMem bool
}

// Chunks returns the transfers for plan in issue order: the data segment in
// ascending 256-byte strides into DMEM from offset 0, including a trailing
// partial chunk, followed by a single code chunk into IMEM at offset 0.
func Chunks(plan ucode.SegmentPlan) []Chunk {
	n := (plan.DataSize + regs.ChunkSize - 1) / regs.ChunkSize
	chunks := make([]Chunk, 0, n+1)
	for off := uint32(0); off < plan.DataSize; off += regs.ChunkSize {
		chunks = append(chunks, Chunk{Src: plan.DataOffset + off, Dst: off})
	}
	return append(chunks, Chunk{Src: plan.CodeOffset, Dst: 0, IMem: true})
}

// Logger receives diagnostics. It matches engine.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Engine drives the falcon DMA registers.
//
// Engine is not safe for concurrent use.
type Engine struct {
	bus    regs.Bus
	layout regs.Layout
	wait   poll.Config
	log    Logger
}

// New returns an Engine on bus. A nil logger disables logging.
func New(bus regs.Bus, layout regs.Layout, wait poll.Config, log Logger) *Engine {
	if bus == nil {
		panic("bus cannot be nil")
	}
	return &Engine{bus: bus, layout: layout, wait: wait, log: log}
}

// SetBase resets DMA control and programs the transfer base. Source offsets
// of subsequent chunks are relative to addr.
func (e *Engine) SetBase(addr uint64) error {
	if addr%regs.ChunkSize != 0 {
		return fmt.Errorf("%w: 0x%x", ErrUnalignedBase, addr)
	}
	e.bus.Write32(e.layout.DMACtl, 0)
	e.bus.Write32(e.layout.DMATrfBase, regs.DMATrfBaseF(addr))
	return nil
}

// TransferChunk moves 256 bytes from src (relative to the base) to dst in
// IMEM or DMEM and blocks until the engine reports idle.
func (e *Engine) TransferChunk(src, dst uint32, imem bool) error {
	e.bus.Write32(e.layout.DMATrfMOffs, regs.DMATrfMOffsF(dst))
	e.bus.Write32(e.layout.DMATrfFBOffs, regs.DMATrfFBOffsF(src))
	e.bus.Write32(e.layout.DMATrfCmd, regs.DMATrfCmdF(imem))

	return e.waitIdle()
}

// TransferPlan issues every chunk of plan in order. The first timeout aborts
// the remaining chunks; device memory is then unusable until a full reload.
// progress, if non-nil, is called after each completed chunk.
func (e *Engine) TransferPlan(plan ucode.SegmentPlan, progress func(done, total int)) error {
	chunks := Chunks(plan)
	for i, c := range chunks {
		if err := e.TransferChunk(c.Src, c.Dst, c.IMem); err != nil {
			return fmt.Errorf("chunk %d/%d (src=0x%x dst=0x%x imem=%t): %w",
				i+1, len(chunks), c.Src, c.Dst, c.IMem, err)
		}
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}
	return nil
}

func (e *Engine) waitIdle() error {
	var last uint32
	waited, err := poll.Until(func() bool {
		last = e.bus.Read32(e.layout.DMATrfCmd)
		return regs.DMATrfCmdIdleV(last) == regs.DMACmdIdleTrue
	}, e.wait)
	if err == nil {
		return nil
	}

	terr := &regs.TimeoutError{
		Register: e.layout.Name(e.layout.DMATrfCmd),
		Offset:   e.layout.DMATrfCmd,
		Mask:     regs.DMACmdIdleMask,
		Want:     regs.DMACmdIdleMask,
		Got:      last,
		Waited:   waited,
		Err:      ErrTimeout,
	}
	if e.log != nil {
		e.log.Error("dma idle timeout",
			"register", terr.Register,
			"offset", fmt.Sprintf("0x%04X", terr.Offset),
			"want", fmt.Sprintf("0x%08X", terr.Want),
			"got", fmt.Sprintf("0x%08X", terr.Got),
			"waited", waited.String(),
		)
	}
	return terr
}
