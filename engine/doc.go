// Package engine boots an NVDEC falcon from a ucode container.
//
// # Overview
//
// A Handle owns one engine. Booting it takes two calls:
//   - Load fetches the firmware image, places it in a pinned uncacheable
//     buffer and parses the container
//   - Boot copies the segments into the falcon over DMA, programs interrupt
//     routing, pulses start and waits for the falcon to go idle
//
// Boot can be repeated on resident firmware, for example after the engine
// has been powered down and back up. Unload releases the buffer.
//
// # Basic Usage
//
//	h := engine.New(bus, mgr)
//	if err := h.Load(ctx, firmware.NewDir(), "nvhost_nvdec010.fw"); err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Unload()
//
//	if err := h.Boot(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Boot States
//
// Boot walks Idle, Loading, InterruptsConfigured, Starting and ends in
// Running or BootFailed. A timeout while copying segments or while waiting
// for idle leaves the handle in BootFailed with its firmware still
// resident; the next Boot starts over from Loading. Boot never retries on
// its own.
//
// # Driver Hooks
//
// Driver maps device IDs to handles and exposes the three hooks a
// platform's probe and power-management code calls:
//
//	d := engine.NewDriver(mgr, firmware.NewDir())
//	err := d.Init(ctx, dev)          // load + boot
//	err = d.FinalizePowerOn(dev)     // boot only, after power-up
//	err = d.Deinit(dev)              // unload
//
// The firmware file is named "<prefix><major><minor>.fw" from the device
// version. Every hook runs under one driver lock.
//
// # Configuration Options
//
//	h := engine.New(bus, mgr,
//	    engine.WithProgressCallback(progressFunc),
//	    engine.WithLogger(logging.New("nvdec")),
//	    engine.WithLayout(layout),
//	    engine.WithDMATimeout(time.Second),
//	    engine.WithBootTimeout(2*time.Second),
//	    engine.WithPollInterval(50*time.Microsecond),
//	)
//
// # Error Handling
//
// Load returns ucode, memmgr or firmware sentinels unchanged in the chain.
// Boot returns ErrNoMedium, or a *BootError wrapping a *regs.TimeoutError
// that unwraps to dma.ErrTimeout or ErrBootTimeout:
//
//	var terr *regs.TimeoutError
//	if errors.As(err, &terr) {
//	    fmt.Printf("%s stuck at 0x%08X\n", terr.Register, terr.Got)
//	}
package engine
