// Package tablenet wires the components of a table network node together.
//
// A Tablenet engine reads a config.Config and builds, in order: the table
// environment, the store of saved tables, the stream layer selected by
// Config.Transport, a server or client node depending on the Mode, and the
// optional HTTP service. A host restores the table saved under
// Config.TableName when it starts and saves it again when it shuts down.
//
//  engine := tablenet.NewTablenet(conf)
//  if err := engine.Init(tablenet.HostMode); err != nil {
//  	return err
//  }
//  return engine.Run(ctx)
package tablenet
