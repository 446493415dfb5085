package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands"
	"github.com/moffa90/go-nvdec/dma"
	"github.com/moffa90/go-nvdec/ucode"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	UcodePath string  `short:"f" long:"ucode" description:"path to the ucode container" required:"true"`
	Format    *string `long:"format" description:"output format [table, yaml]"`

	out io.Writer
}

type Format int

const (
	FormatUndefined = Format(iota)
	FormatTable
	FormatYAML
)

func ParseFormat(s string) Format {
	switch strings.Trim(strings.ToLower(s), " ") {
	case "table":
		return FormatTable
	case "yaml":
		return FormatYAML
	}
	return FormatUndefined
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints ucode container headers"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Parses a ucode container (optionally .xz or .zst compressed) and prints its bin header, OS header and the DMA chunk plan."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	format := FormatTable
	if cmd.Format != nil {
		format = ParseFormat(*cmd.Format)
		if format == FormatUndefined {
			return commands.ErrArgs{Err: fmt.Errorf("unknown format '%s'", *cmd.Format)}
		}
	}

	out := cmd.out
	if out == nil {
		out = os.Stdout
	}

	buf, err := commands.ReadImage(context.Background(), cmd.UcodePath)
	if err != nil {
		return fmt.Errorf("unable to read the ucode file '%s': %w", cmd.UcodePath, err)
	}

	img, err := ucode.ParseImage(buf)
	if err != nil {
		return fmt.Errorf("unable to parse '%s': %w", cmd.UcodePath, err)
	}

	switch format {
	case FormatTable:
		renderTable(out, len(buf), img)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(summarize(len(buf), img)); err != nil {
			return fmt.Errorf("unable to encode: %w", err)
		}
		return enc.Close()
	}
	return nil
}

func size(v uint32) string {
	return fmt.Sprintf("%d (%s)", v, humanize.IBytes(uint64(v)))
}

func hex(v uint32) string {
	return fmt.Sprintf("0x%x", v)
}

func renderTable(out io.Writer, fileSize int, img *ucode.Image) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Ucode container (%s)", humanize.IBytes(uint64(fileSize)))
	t.AppendHeader(table.Row{"Header", "Field", "Value"})
	t.AppendRows([]table.Row{
		{"bin", "magic", hex(img.Bin.Magic)},
		{"bin", "version", img.Bin.Version},
		{"bin", "total size", size(img.Bin.TotalSize)},
		{"bin", "os header offset", hex(img.Bin.OSHeaderOffset)},
		{"bin", "os data offset", hex(img.Bin.OSDataOffset)},
		{"bin", "os size", size(img.Bin.OSSize)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"os", "code offset", hex(img.OS.CodeOffset)},
		{"os", "code size", size(img.OS.CodeSize)},
		{"os", "data offset", hex(img.OS.DataOffset)},
		{"os", "data size", size(img.OS.DataSize)},
		{"os", "app count", img.OS.AppCount},
	})
	t.Render()

	c := table.NewWriter()
	c.SetOutputMirror(out)
	c.SetTitle("DMA plan")
	c.AppendHeader(table.Row{"#", "Target", "Source", "Destination"})
	for i, chunk := range dma.Chunks(img.Plan) {
		target := "dmem"
		if chunk.IMem {
			target = "imem"
		}
		c.AppendRow(table.Row{i + 1, target, hex(chunk.Src), hex(chunk.Dst)})
	}
	c.Render()
}

type summary struct {
	FileSize int             `yaml:"file_size"`
	Bin      ucode.BinHeader `yaml:"bin"`
	OS       ucode.OSHeader  `yaml:"os"`
	Chunks   int             `yaml:"dma_chunks"`
}

func summarize(fileSize int, img *ucode.Image) summary {
	return summary{
		FileSize: fileSize,
		Bin:      img.Bin,
		OS:       img.OS,
		Chunks:   len(dma.Chunks(img.Plan)),
	}
}
