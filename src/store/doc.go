// Package store persists table snapshots between sessions.
//
// A snapshot is the memento of a whole tabletop, saved under the name of the
// table. InmemStore keeps snapshots in memory and is used in tests and by
// hosts that do not need persistence; BadgerStore writes them to a badger
// database so that a host can reopen a table where it left it.
package store
