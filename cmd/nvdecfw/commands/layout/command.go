package layout

import (
	"fmt"
	"os"

	"github.com/moffa90/go-nvdec/cmd/nvdecfw/commands"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	LayoutPath string `long:"layout" description:"register layout YAML to validate and print"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints a falcon register layout as YAML"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Without --layout the built-in NVDEC layout is printed; use it as a starting point for other chip revisions."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	layout, err := commands.LoadLayout(cmd.LayoutPath)
	if err != nil {
		return err
	}
	return layout.WriteYAML(os.Stdout)
}
