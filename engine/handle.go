package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/moffa90/go-nvdec/dma"
	"github.com/moffa90/go-nvdec/firmware"
	"github.com/moffa90/go-nvdec/memmgr"
	"github.com/moffa90/go-nvdec/poll"
	"github.com/moffa90/go-nvdec/regs"
)

// Handle owns one falcon engine: its register bus, the resident firmware
// and the boot state.
//
// Handle is not safe for concurrent use. Load, Unload and Boot mutate the
// DMA registers and the firmware buffer in place; callers serialize them,
// as Driver does.
type Handle struct {
	bus    regs.Bus
	mgr    memmgr.Manager
	config Config
	dma    *dma.Engine

	fw    *firmware.Resident
	valid bool
	state State
}

// New creates a Handle for the engine behind bus. Firmware buffers are
// obtained from mgr.
//
// Example:
//
//	h := engine.New(bus, mgr,
//	    engine.WithLogger(logging.New("nvdec")),
//	    engine.WithTimeout(2*time.Second),
//	)
//	if err := h.Load(ctx, firmware.NewDir(), "nvhost_nvdec010.fw"); err != nil {
//	    return err
//	}
//	defer h.Unload()
//	err := h.Boot()
func New(bus regs.Bus, mgr memmgr.Manager, opts ...Option) *Handle {
	if bus == nil {
		panic("bus cannot be nil")
	}
	if mgr == nil {
		panic("memory manager cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var log dma.Logger
	if cfg.Logger != nil {
		log = cfg.Logger
	}

	return &Handle{
		bus:    bus,
		mgr:    mgr,
		config: cfg,
		dma:    dma.New(bus, cfg.Layout, cfg.dmaWait(), log),
	}
}

// State returns the current boot state.
func (h *Handle) State() State {
	return h.state
}

// Valid reports whether a parsed firmware image is resident.
func (h *Handle) Valid() bool {
	return h.valid
}

// Firmware returns the resident image, or nil.
func (h *Handle) Firmware() *firmware.Resident {
	return h.fw
}

// Load fetches name from src, places it in a pinned buffer and parses it.
// The handle becomes valid only if every step succeeds; on failure nothing
// stays allocated. Loading over resident firmware returns ErrBusy.
func (h *Handle) Load(ctx context.Context, src firmware.Source, name string) error {
	if h.fw != nil {
		return fmt.Errorf("load %s: %w", name, ErrBusy)
	}
	h.valid = false

	fw, err := firmware.Load(ctx, h.mgr, src, name, h.config.PageSize)
	if err != nil {
		h.logError("firmware load failed", "firmware", name, "error", err)
		return err
	}

	h.fw = fw
	h.valid = true
	h.state = StateIdle

	h.logInfo("firmware resident",
		"firmware", name,
		"size", humanize.IBytes(uint64(fw.Size)),
		"code", humanize.IBytes(uint64(fw.Plan.CodeSize)),
		"data", humanize.IBytes(uint64(fw.Plan.DataSize)),
		"dma_base", fmt.Sprintf("0x%x", fw.DMABase()),
	)
	return nil
}

// Unload invalidates the handle and releases the firmware buffer. It is a
// no-op when nothing is resident, so it may be called any number of times.
func (h *Handle) Unload() error {
	h.valid = false
	h.state = StateIdle

	if h.fw == nil {
		return nil
	}
	name := h.fw.Name
	err := h.fw.Release()
	h.fw = nil

	if err != nil {
		h.logError("firmware release failed", "firmware", name, "error", err)
		return fmt.Errorf("unload %s: %w", name, err)
	}
	h.logDebug("firmware released", "firmware", name)
	return nil
}

// Boot performs the complete boot sequence:
//  1. DMA the data segment, then the code segment (Loading)
//  2. Route interrupts and enable the method/context interfaces
//     (InterruptsConfigured)
//  3. Set the boot vector and pulse start (Starting)
//  4. Wait for the falcon to report idle (Running)
//
// A timeout in step 1 or 4 leaves the handle in StateBootFailed and returns
// a *BootError wrapping a *regs.TimeoutError. Boot does not retry; calling
// it again reruns the whole sequence, including the DMA.
func (h *Handle) Boot() error {
	if !h.valid {
		return ErrNoMedium
	}

	start := time.Now()
	plan := h.fw.Plan

	h.enter(StateLoading, Progress{})

	if err := h.dma.SetBase(h.fw.DMABase()); err != nil {
		return h.fail(StateLoading, start, err)
	}
	err := h.dma.TransferPlan(plan, func(done, total int) {
		h.reportProgress(Progress{
			State:            StateLoading,
			Chunk:            done,
			TotalChunks:      total,
			Percentage:       float64(done) / float64(total) * 90,
			BytesTransferred: done * regs.ChunkSize,
			ElapsedTime:      time.Since(start),
		})
	})
	if err != nil {
		return h.fail(StateLoading, start, err)
	}

	l := h.config.Layout
	h.bus.Write32(l.IRQMSet, regs.IRQMask())
	h.bus.Write32(l.IRQDest, regs.IRQHostDest())
	h.bus.Write32(l.ITFEn, regs.ITFEnable())
	h.enter(StateInterruptsConfigured, Progress{Percentage: 92, ElapsedTime: time.Since(start)})

	h.bus.Write32(l.BootVec, regs.BootVecF(0))
	h.bus.Write32(l.CPUCtl, regs.CPUCtlStartCPU)
	h.enter(StateStarting, Progress{Percentage: 95, ElapsedTime: time.Since(start)})

	if err := h.waitIdle(); err != nil {
		return h.fail(StateStarting, start, err)
	}

	h.enter(StateRunning, Progress{Percentage: 100, ElapsedTime: time.Since(start)})
	h.logInfo("falcon running",
		"firmware", h.fw.Name,
		"chunks", len(dma.Chunks(plan)),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

func (h *Handle) waitIdle() error {
	l := h.config.Layout

	var last uint32
	waited, err := poll.Until(func() bool {
		last = h.bus.Read32(l.IdleState)
		return last == 0
	}, h.config.bootWait())
	if err == nil {
		return nil
	}

	terr := &regs.TimeoutError{
		Register: l.Name(l.IdleState),
		Offset:   l.IdleState,
		Mask:     0xffffffff,
		Want:     0,
		Got:      last,
		Waited:   waited,
		Err:      ErrBootTimeout,
	}
	h.logError("boot idle timeout",
		"register", terr.Register,
		"offset", fmt.Sprintf("0x%04X", terr.Offset),
		"want", fmt.Sprintf("0x%08X", terr.Want),
		"got", fmt.Sprintf("0x%08X", terr.Got),
		"waited", waited.String(),
	)
	return terr
}

func (h *Handle) enter(s State, p Progress) {
	h.logDebug("boot state", "from", h.state.String(), "to", s.String())
	h.state = s
	p.State = s
	h.reportProgress(p)
}

func (h *Handle) fail(during State, start time.Time, err error) error {
	h.logError("boot failed", "during", during.String(), "error", err)
	h.enter(StateBootFailed, Progress{ElapsedTime: time.Since(start)})
	return &BootError{State: during, Err: err}
}

// reportProgress calls the progress callback if configured.
func (h *Handle) reportProgress(p Progress) {
	if h.config.ProgressCallback != nil {
		h.config.ProgressCallback(p)
	}
}

// logDebug logs a debug message if a logger is configured.
func (h *Handle) logDebug(msg string, keysAndValues ...interface{}) {
	if h.config.Logger != nil {
		h.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (h *Handle) logInfo(msg string, keysAndValues ...interface{}) {
	if h.config.Logger != nil {
		h.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (h *Handle) logError(msg string, keysAndValues ...interface{}) {
	if h.config.Logger != nil {
		h.config.Logger.Error(msg, keysAndValues...)
	}
}
