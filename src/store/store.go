package store

import "github.com/mosaicnetworks/tablenet/src/table"

// Store is an interface for backend stores.
type Store interface {
	// GetTable returns the snapshot saved under name.
	GetTable(name string) (*table.Memento, error)
	// SetTable saves a snapshot under name, replacing any previous one.
	SetTable(name string, memento *table.Memento) error
	// DeleteTable removes the snapshot saved under name.
	DeleteTable(name string) error
	// Tables returns the sorted names of the saved snapshots.
	Tables() ([]string, error)
	// Close closes the underlying database.
	Close() error
	// StorePath returns the filepath of the underlying database.
	StorePath() string
}

const tableDataType = "Table"
