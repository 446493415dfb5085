package name

import (
	"fmt"

	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands"
	"github.com/moffa90/go-nvdec/ucode"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	Prefix string `long:"prefix" description:"firmware file prefix" default:"nvhost_nvdec0"`
	Major  uint8  `long:"major" description:"engine major version" required:"true"`
	Minor  uint8  `long:"minor" description:"engine minor version" required:"true"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the firmware file name for an engine version"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}
	fmt.Println(ucode.FirmwareName(cmd.Prefix, cmd.Major, cmd.Minor))
	return nil
}
