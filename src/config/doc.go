// Package config defines the configuration for a table network node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, tablenet relies on a data directory, defined by Config.DataDir,
// where it looks for an optional configuration file and, when Store is set,
// keeps the badger database of saved tables:
//
//  tablenet.toml // (optional) configuration file (.json and .yaml also work).
//  badger_db/    // (optional) saved tables, see Config.DatabaseDir.
package config
