package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/moffa90/go-nvdec/firmware"
	"github.com/moffa90/go-nvdec/memmgr"
	"github.com/moffa90/go-nvdec/regs"
	"github.com/moffa90/go-nvdec/ucode"
)

// Version is the engine revision taken from platform data. It selects the
// firmware file.
type Version struct {
	Major uint8
	Minor uint8
}

// Device is one engine instance as presented by the platform.
type Device struct {
	// ID identifies the device across hooks
	ID string

	// Bus is the engine's register window
	Bus regs.Bus

	// Version selects the firmware image
	Version Version
}

// Driver exposes the init, deinit and power-on hooks for a set of engines.
// Every hook holds the driver lock for its whole duration, so at most one
// load or boot runs at a time.
//
// Driver is safe for concurrent use.
type Driver struct {
	mu      sync.Mutex
	mgr     memmgr.Manager
	src     firmware.Source
	opts    []Option
	config  Config
	handles map[string]*Handle
}

// NewDriver creates a Driver that loads firmware from src into buffers
// from mgr. opts apply to every Handle the driver creates.
//
// Example:
//
//	d := engine.NewDriver(mgr, firmware.NewDir(),
//	    engine.WithLogger(logging.New("nvdec")),
//	)
//	if err := d.Init(ctx, engine.Device{ID: "15480000.nvdec", Bus: bus, Version: engine.Version{Major: 1}}); err != nil {
//	    return err
//	}
func NewDriver(mgr memmgr.Manager, src firmware.Source, opts ...Option) *Driver {
	if mgr == nil {
		panic("memory manager cannot be nil")
	}
	if src == nil {
		panic("firmware source cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Driver{
		mgr:     mgr,
		src:     src,
		opts:    opts,
		config:  cfg,
		handles: make(map[string]*Handle),
	}
}

// FirmwareName returns the image name used for a device version.
func (d *Driver) FirmwareName(v Version) string {
	return ucode.FirmwareName(d.config.FirmwarePrefix, v.Major, v.Minor)
}

// Init loads the device's firmware and boots it.
//
// A load failure leaves nothing registered. A boot failure keeps the
// device registered with its firmware resident and returns the boot error,
// so FinalizePowerOn can retry.
func (d *Driver) Init(ctx context.Context, dev Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dev.Bus == nil {
		return fmt.Errorf("init %s: register bus cannot be nil", dev.ID)
	}
	if _, ok := d.handles[dev.ID]; ok {
		return fmt.Errorf("init %s: %w", dev.ID, ErrBusy)
	}

	name := d.FirmwareName(dev.Version)
	h := New(dev.Bus, d.mgr, d.opts...)
	if err := h.Load(ctx, d.src, name); err != nil {
		return fmt.Errorf("init %s: %w", dev.ID, err)
	}
	d.handles[dev.ID] = h

	if err := h.Boot(); err != nil {
		return fmt.Errorf("init %s: %w", dev.ID, err)
	}
	return nil
}

// Deinit unloads the device's firmware and forgets the device. Unknown
// devices are ignored.
func (d *Driver) Deinit(dev Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.handles[dev.ID]
	if !ok {
		return nil
	}
	delete(d.handles, dev.ID)

	if err := h.Unload(); err != nil {
		return fmt.Errorf("deinit %s: %w", dev.ID, err)
	}
	return nil
}

// FinalizePowerOn reboots a device whose firmware is already resident,
// after the engine has been powered back up. It returns ErrNoMedium if
// the device has no valid firmware.
func (d *Driver) FinalizePowerOn(dev Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.handles[dev.ID]
	if !ok {
		return fmt.Errorf("power on %s: %w", dev.ID, ErrNoMedium)
	}
	if err := h.Boot(); err != nil {
		return fmt.Errorf("power on %s: %w", dev.ID, err)
	}
	return nil
}

// Close unloads every registered device.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result *multierror.Error
	for id, h := range d.handles {
		if err := h.Unload(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", id, err))
		}
		delete(d.handles, id)
	}
	return result.ErrorOrNil()
}

// Engine returns the handle registered for id.
func (d *Driver) Engine(id string) (*Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.handles[id]
	return h, ok
}
