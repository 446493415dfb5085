// nvdecfw inspects NVDEC ucode containers and boots them on a simulated
// falcon.
//
// Synopsis:
//
//	nvdecfw inspect -f UCODE_FILE [--format=table|yaml]
//	nvdecfw name [--prefix PREFIX] --major N --minor N
//	nvdecfw boot -f UCODE_FILE [--layout LAYOUT_YAML] [options]
//	nvdecfw layout [--layout LAYOUT_YAML]
//
// An example:
//
//	ucodegen --code-size 4096 --data-size 1024 -o nvhost_nvdec010.fw
//	nvdecfw inspect -f nvhost_nvdec010.fw
//	nvdecfw boot -f nvhost_nvdec010.fw -v 4 --boot-latency 20 --power-cycles 2
//
// Description:
//
//	inspect: Print the bin and OS headers and the DMA plan
//	name:    Print the firmware file name for an engine version
//	boot:    Load and boot the image on a simulated falcon
//	layout:  Print a register layout as YAML
package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"k8s.io/klog/v2"

	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands"
	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands/boot"
	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands/inspect"
	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands/layout"
	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands/name"
)

var (
	knownCommands = map[string]commands.Command{
		"inspect": &inspect.Command{},
		"name":    &name.Command{},
		"boot":    &boot.Command{},
		"layout":  &layout.Command{},
	}
)

func main() {
	defer klog.Flush()

	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	// parse arguments and execute the appropriate command
	if _, err := flagsParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		klog.ErrorS(err, "nvdecfw failed")
		klog.Flush()
		os.Exit(1)
	}
}
