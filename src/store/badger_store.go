package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/sirupsen/logrus"
)

const (
	tablePrefix = "table"
)

// BadgerStore implements the Store interface with a badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens the database at path, creating it if necessary.
// Badger logs through logger, if not nil.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	opts.Truncate = true
	if logger != nil {
		opts.Logger = logger.WithField("prefix", "badger")
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

//==============================================================================
//Keys

func tableKey(name string) []byte {
	return []byte(fmt.Sprintf("%s_%s", tablePrefix, name))
}

func tableName(key []byte) string {
	return strings.TrimPrefix(string(key), tablePrefix+"_")
}

//==============================================================================
//Implement the Store interface

// GetTable implements the Store interface.
func (s *BadgerStore) GetTable(name string) (*table.Memento, error) {
	var data []byte
	key := tableKey(name)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, tableDataType, name)
	}

	m := new(table.Memento)
	if err := m.Unmarshal(data); err != nil {
		return nil, cm.WrapStoreErr(tableDataType, cm.Corrupt, name, err)
	}

	return m, nil
}

// SetTable implements the Store interface.
func (s *BadgerStore) SetTable(name string, memento *table.Memento) error {
	val, err := memento.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(tableKey(name), val); err != nil {
		return mapError(err, tableDataType, name)
	}

	return mapError(tx.Commit(), tableDataType, name)
}

// DeleteTable implements the Store interface.
func (s *BadgerStore) DeleteTable(name string) error {
	key := tableKey(name)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	return mapError(err, tableDataType, name)
}

// Tables implements the Store interface. Badger iterates keys in order, so
// the names come out sorted.
func (s *BadgerStore) Tables() ([]string, error) {
	names := []string{}
	prefix := []byte(tablePrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, tableName(it.Item().KeyCopy(nil)))
		}
		return nil
	})

	if err != nil {
		return nil, mapError(err, tableDataType, "")
	}

	return names, nil
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
