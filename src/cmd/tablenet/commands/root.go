package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for tablenet
var RootCmd = &cobra.Command{
	Use:              "tablenet",
	Short:            "share a tabletop in real time",
	TraverseChildren: true,
}
