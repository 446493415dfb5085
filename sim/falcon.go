// Package sim models an NVDEC falcon and a host memory manager so the
// loader can run without hardware.
//
// The Falcon decodes the same registers the loader programs. A DMA command
// copies 256 bytes from Memory into IMEM or DMEM and reports busy for a
// configurable number of polls. The start pulse leaves the reset state
// after a configurable number of IDLESTATE polls, but only if code has
// been copied into IMEM since the last power cycle.
//
//	mem := sim.NewMemory()
//	falcon := sim.NewFalcon(mem, sim.WithDMALatency(2), sim.WithBootLatency(10))
//	h := engine.New(falcon, mem)
package sim

import (
	"fmt"

	"github.com/moffa90/go-nvdec/memmgr"
	"github.com/moffa90/go-nvdec/regs"
)

const (
	// DefaultIMEMSize is the instruction memory size.
	DefaultIMEMSize = 64 << 10

	// DefaultDMEMSize is the data memory size.
	DefaultDMEMSize = 32 << 10
)

// PhysReader resolves device addresses for DMA.
type PhysReader interface {
	ReadPhys(addr memmgr.PhysAddr, n int) ([]byte, error)
}

// Config holds the simulated falcon configuration.
type Config struct {
	// Layout is the register layout the falcon decodes
	Layout regs.Layout

	// IMEMSize and DMEMSize size the falcon memories
	IMEMSize int
	DMEMSize int

	// DMALatency is the number of DMATRFCMD reads that report busy after
	// each command
	DMALatency int

	// BootLatency is the number of IDLESTATE reads that report non-idle
	// after the start pulse
	BootLatency int

	// StuckDMA keeps the DMA engine busy forever
	StuckDMA bool

	// StuckBoot keeps the falcon out of idle forever
	StuckBoot bool
}

func defaultConfig() Config {
	return Config{
		Layout:   regs.DefaultLayout(),
		IMEMSize: DefaultIMEMSize,
		DMEMSize: DefaultDMEMSize,
	}
}

// Option configures a Falcon.
type Option func(*Config)

// WithLayout sets the register layout.
func WithLayout(layout regs.Layout) Option {
	return func(c *Config) {
		c.Layout = layout
	}
}

// WithMemorySizes sets the IMEM and DMEM sizes.
func WithMemorySizes(imem, dmem int) Option {
	return func(c *Config) {
		if imem > 0 {
			c.IMEMSize = imem
		}
		if dmem > 0 {
			c.DMEMSize = dmem
		}
	}
}

// WithDMALatency sets how many polls each DMA command stays busy.
func WithDMALatency(polls int) Option {
	return func(c *Config) {
		if polls >= 0 {
			c.DMALatency = polls
		}
	}
}

// WithBootLatency sets how many polls the falcon takes to go idle after
// the start pulse.
func WithBootLatency(polls int) Option {
	return func(c *Config) {
		if polls >= 0 {
			c.BootLatency = polls
		}
	}
}

// WithStuckDMA makes the DMA engine never report idle.
func WithStuckDMA() Option {
	return func(c *Config) {
		c.StuckDMA = true
	}
}

// WithStuckBoot makes the falcon never leave reset.
func WithStuckBoot() Option {
	return func(c *Config) {
		c.StuckBoot = true
	}
}

// Falcon is a simulated falcon microcontroller implementing regs.Bus.
//
// Falcon is not safe for concurrent use.
type Falcon struct {
	config Config
	mem    PhysReader

	regs map[uint32]uint32
	imem []byte
	dmem []byte

	dmaLeft   int
	dmaBusy   bool
	dmaErr    error
	codeValid bool

	started  bool
	bootLeft int

	transfers int
	starts    int
}

// NewFalcon returns a powered-on falcon in reset whose DMA reads from mem.
func NewFalcon(mem PhysReader, opts ...Option) *Falcon {
	if mem == nil {
		panic("memory cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Falcon{config: cfg, mem: mem}
	f.PowerCycle()
	return f
}

// PowerCycle models the engine losing power: registers, IMEM and DMEM are
// cleared and the falcon is back in reset.
func (f *Falcon) PowerCycle() {
	f.regs = make(map[uint32]uint32)
	f.imem = make([]byte, f.config.IMEMSize)
	f.dmem = make([]byte, f.config.DMEMSize)
	f.dmaBusy = false
	f.dmaErr = nil
	f.codeValid = false
	f.started = false
}

// Read32 implements regs.Bus.
func (f *Falcon) Read32(offset uint32) uint32 {
	l := f.config.Layout
	v := f.regs[offset]

	switch offset {
	case l.DMATrfCmd:
		if f.dmaBusy && f.dmaPending() {
			return v &^ regs.DMACmdIdleMask
		}
		f.dmaBusy = false
		return v | regs.DMACmdIdleMask
	case l.IdleState:
		if f.running() {
			return 0
		}
		return 1
	}
	return v
}

// Write32 implements regs.Bus.
func (f *Falcon) Write32(offset, v uint32) {
	l := f.config.Layout
	f.regs[offset] = v

	switch offset {
	case l.DMATrfCmd:
		f.transfer(v)
	case l.CPUCtl:
		if v&regs.CPUCtlStartCPU != 0 {
			f.started = true
			f.bootLeft = f.config.BootLatency
			f.starts++
		}
	}
}

func (f *Falcon) transfer(cmd uint32) {
	l := f.config.Layout
	imem := cmd&regs.DMACmdIMem != 0

	f.dmaBusy = true
	f.dmaLeft = f.config.DMALatency
	f.transfers++

	base := memmgr.PhysAddr(f.regs[l.DMATrfBase]) << 8
	src := base + memmgr.PhysAddr(f.regs[l.DMATrfFBOffs])
	dst := int(regs.DMATrfMOffsF(f.regs[l.DMATrfMOffs]))

	data, err := f.mem.ReadPhys(src, regs.ChunkSize)
	if err != nil {
		f.dmaErr = err
		return
	}

	target, name := f.dmem, "dmem"
	if imem {
		target, name = f.imem, "imem"
	}
	if dst+regs.ChunkSize > len(target) {
		f.dmaErr = fmt.Errorf("%s offset 0x%x out of range", name, dst)
		return
	}
	copy(target[dst:], data)
	if imem {
		f.codeValid = true
	}
}

func (f *Falcon) dmaPending() bool {
	if f.config.StuckDMA || f.dmaErr != nil {
		return true
	}
	if f.dmaLeft > 0 {
		f.dmaLeft--
		return true
	}
	return false
}

func (f *Falcon) running() bool {
	if !f.started || !f.codeValid || f.config.StuckBoot {
		return false
	}
	if f.bootLeft > 0 {
		f.bootLeft--
		return false
	}
	return true
}

// SetStuckBoot changes whether the falcon can leave reset.
func (f *Falcon) SetStuckBoot(stuck bool) {
	f.config.StuckBoot = stuck
}

// IMEM returns the instruction memory.
func (f *Falcon) IMEM() []byte {
	return f.imem
}

// DMEM returns the data memory.
func (f *Falcon) DMEM() []byte {
	return f.dmem
}

// DMAError returns the fault that wedged the DMA engine, if any. A faulted
// engine stays busy until the next power cycle.
func (f *Falcon) DMAError() error {
	return f.dmaErr
}

// Transfers returns the number of DMA commands issued since creation.
func (f *Falcon) Transfers() int {
	return f.transfers
}

// Starts returns the number of start pulses since creation.
func (f *Falcon) Starts() int {
	return f.starts
}

// Register returns the last value written to offset.
func (f *Falcon) Register(offset uint32) uint32 {
	return f.regs[offset]
}
