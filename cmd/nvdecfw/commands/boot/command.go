package boot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands"
	"github.com/moffa90/go-nvdec/engine"
	"github.com/moffa90/go-nvdec/firmware"
	"github.com/moffa90/go-nvdec/logging"
	"github.com/moffa90/go-nvdec/sim"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	UcodePath   string        `short:"f" long:"ucode" description:"path to the ucode container" required:"true"`
	LayoutPath  string        `long:"layout" description:"register layout YAML"`
	Verbosity   int           `short:"v" long:"verbosity" description:"klog verbosity; 4 shows state transitions" default:"0"`
	Timeout     time.Duration `long:"timeout" description:"DMA and boot wait budget" default:"1s"`
	Interval    time.Duration `long:"interval" description:"poll interval" default:"100us"`
	DMALatency  int           `long:"dma-latency" description:"polls each simulated DMA chunk stays busy" default:"1"`
	BootLatency int           `long:"boot-latency" description:"polls the simulated falcon takes to go idle" default:"1"`
	StuckDMA    bool          `long:"stuck-dma" description:"simulate a DMA engine that never drains"`
	StuckBoot   bool          `long:"stuck-boot" description:"simulate a falcon that never leaves reset"`
	PowerCycles int           `long:"power-cycles" description:"power cycle and reboot the falcon this many times after the first boot" default:"0"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "boots a ucode container on a simulated falcon"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Loads the container into simulated pinned memory, copies it into a simulated falcon over DMA and runs the boot sequence, reporting every state transition."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}
	if cmd.PowerCycles < 0 {
		return commands.ErrArgs{Err: fmt.Errorf("negative power cycle count %d", cmd.PowerCycles)}
	}
	if err := commands.SetVerbosity(cmd.Verbosity); err != nil {
		return err
	}

	layout, err := commands.LoadLayout(cmd.LayoutPath)
	if err != nil {
		return err
	}

	simOpts := []sim.Option{
		sim.WithLayout(layout),
		sim.WithDMALatency(cmd.DMALatency),
		sim.WithBootLatency(cmd.BootLatency),
	}
	if cmd.StuckDMA {
		simOpts = append(simOpts, sim.WithStuckDMA())
	}
	if cmd.StuckBoot {
		simOpts = append(simOpts, sim.WithStuckBoot())
	}

	mem := sim.NewMemory()
	falcon := sim.NewFalcon(mem, simOpts...)

	h := engine.New(falcon, mem,
		engine.WithLayout(layout),
		engine.WithLogger(logging.New("nvdecfw")),
		engine.WithTimeout(cmd.Timeout),
		engine.WithPollInterval(cmd.Interval),
		engine.WithProgressCallback(func(p engine.Progress) {
			if p.Chunk > 0 {
				fmt.Printf("  [%s] chunk %d/%d (%s)\n", p.State, p.Chunk, p.TotalChunks,
					humanize.IBytes(uint64(p.BytesTransferred)))
				return
			}
			fmt.Printf("[%s] %.0f%% %s\n", p.State, p.Percentage, p.ElapsedTime)
		}),
	)

	src := firmware.NewDir(filepath.Dir(cmd.UcodePath))
	if err := h.Load(context.Background(), src, filepath.Base(cmd.UcodePath)); err != nil {
		return err
	}
	defer func() { _ = h.Unload() }()

	fw := h.Firmware()
	fmt.Printf("loaded %s: %s, code %s, data %s\n", fw.Name,
		humanize.IBytes(uint64(fw.Size)),
		humanize.IBytes(uint64(fw.Plan.CodeSize)),
		humanize.IBytes(uint64(fw.Plan.DataSize)))

	if err := h.Boot(); err != nil {
		return err
	}

	for i := 0; i < cmd.PowerCycles; i++ {
		fmt.Printf("power cycle %d/%d\n", i+1, cmd.PowerCycles)
		falcon.PowerCycle()
		if err := h.Boot(); err != nil {
			return err
		}
	}

	fmt.Printf("falcon %s after %d DMA transfers and %d start pulses\n",
		h.State(), falcon.Transfers(), falcon.Starts())
	return nil
}
