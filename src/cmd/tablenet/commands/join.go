package commands

import (
	"github.com/mosaicnetworks/tablenet/src/tablenet"
	"github.com/spf13/cobra"
)

//NewJoinCmd returns the command that joins a hosted table
func NewJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "join",
		Short:   "Join a table",
		Long:    "Join the table hosted at --listen.",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTablenet(tablenet.JoinMode)
		},
	}
	AddRunFlags(cmd)
	return cmd
}
