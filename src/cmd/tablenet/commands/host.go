package commands

import (
	"github.com/mosaicnetworks/tablenet/src/tablenet"
	"github.com/spf13/cobra"
)

//NewHostCmd returns the command that hosts a table
func NewHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a table",
		Long: `Host a table that players join with the same password.

The table is saved on exit, and restored on the next start, when --store is
set.`,
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTablenet(tablenet.HostMode)
		},
	}
	AddRunFlags(cmd)

	// Store
	cmd.Flags().Bool("store", _config.Tablenet.Store, "Save the table in badgerDB")
	cmd.Flags().String("db", _config.Tablenet.DatabaseDir, "Dabatabase directory")
	cmd.Flags().String("table", _config.Tablenet.TableName, "Name under which the table is saved")

	return cmd
}
