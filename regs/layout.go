package regs

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Layout maps the logical registers used by the loader to byte offsets
// within the engine's register window.
type Layout struct {
	// IRQMSet enables interrupt sources (write-1-to-set mask).
	IRQMSet uint32 `yaml:"irqmset"`

	// IRQDest routes interrupt sources to the host or the falcon.
	IRQDest uint32 `yaml:"irqdest"`

	// ITFEn enables the method and context interfaces.
	ITFEn uint32 `yaml:"itfen"`

	// IdleState reads zero once the falcon has left its reset/halt state.
	IdleState uint32 `yaml:"idlestate"`

	// CPUCtl starts and halts the falcon.
	CPUCtl uint32 `yaml:"cpuctl"`

	// BootVec holds the IMEM entry point.
	BootVec uint32 `yaml:"bootvec"`

	// DMACtl configures the DMA engine.
	DMACtl uint32 `yaml:"dmactl"`

	// DMATrfBase holds the 256-byte aligned DMA base address, shifted right by 8.
	DMATrfBase uint32 `yaml:"dmatrfbase"`

	// DMATrfMOffs is the destination offset inside IMEM/DMEM.
	DMATrfMOffs uint32 `yaml:"dmatrfmoffs"`

	// DMATrfCmd issues a transfer and reports idle.
	DMATrfCmd uint32 `yaml:"dmatrfcmd"`

	// DMATrfFBOffs is the source offset relative to DMATrfBase.
	DMATrfFBOffs uint32 `yaml:"dmatrffboffs"`
}

// falconBase is where the falcon register block sits inside the NVDEC aperture.
const falconBase = 0x1000

// DefaultLayout returns the NVDEC falcon register layout.
func DefaultLayout() Layout {
	return Layout{
		IRQMSet:      falconBase + 0x010,
		IRQDest:      falconBase + 0x01c,
		ITFEn:        falconBase + 0x048,
		IdleState:    falconBase + 0x04c,
		CPUCtl:       falconBase + 0x100,
		BootVec:      falconBase + 0x104,
		DMACtl:       falconBase + 0x10c,
		DMATrfBase:   falconBase + 0x110,
		DMATrfMOffs:  falconBase + 0x114,
		DMATrfCmd:    falconBase + 0x118,
		DMATrfFBOffs: falconBase + 0x11c,
	}
}

// LoadLayout reads a YAML layout profile. Keys absent from the profile keep
// their DefaultLayout offsets.
//
// Example:
//
//	f, _ := os.Open("t186-nvdec.yaml")
//	layout, err := regs.LoadLayout(f)
func LoadLayout(r io.Reader) (Layout, error) {
	layout := DefaultLayout()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&layout); err != nil && err != io.EOF {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}

	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}

	return layout, nil
}

// WriteYAML writes the layout as a YAML profile that LoadLayout accepts.
func (l Layout) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(l)
}

// Validate checks that offsets are 32-bit aligned and pairwise distinct.
func (l Layout) Validate() error {
	seen := make(map[uint32]string)
	for _, r := range l.registers() {
		if r.offset%4 != 0 {
			return fmt.Errorf("register %s at 0x%04X is not 32-bit aligned", r.name, r.offset)
		}
		if other, ok := seen[r.offset]; ok {
			return fmt.Errorf("registers %s and %s share offset 0x%04X", other, r.name, r.offset)
		}
		seen[r.offset] = r.name
	}
	return nil
}

// Name returns the logical name of the register at offset, for diagnostics.
func (l Layout) Name(offset uint32) string {
	for _, r := range l.registers() {
		if r.offset == offset {
			return r.name
		}
	}
	return fmt.Sprintf("reg[0x%04X]", offset)
}

type namedRegister struct {
	name   string
	offset uint32
}

func (l Layout) registers() []namedRegister {
	return []namedRegister{
		{"IRQMSET", l.IRQMSet},
		{"IRQDEST", l.IRQDest},
		{"ITFEN", l.ITFEn},
		{"IDLESTATE", l.IdleState},
		{"CPUCTL", l.CPUCtl},
		{"BOOTVEC", l.BootVec},
		{"DMACTL", l.DMACtl},
		{"DMATRFBASE", l.DMATrfBase},
		{"DMATRFMOFFS", l.DMATrfMOffs},
		{"DMATRFCMD", l.DMATrfCmd},
		{"DMATRFFBOFFS", l.DMATrfFBOffs},
	}
}
