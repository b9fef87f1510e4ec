package store

import (
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/table"
)

// InmemStore implements the Store interface in memory. Snapshots are kept
// encoded, so callers never share a memento with the store.
type InmemStore struct {
	sync.RWMutex
	tables map[string][]byte
	closed bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		tables: make(map[string][]byte),
	}
}

// GetTable implements the Store interface.
func (s *InmemStore) GetTable(name string) (*table.Memento, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, cm.NewStoreErr(tableDataType, cm.Closed, name)
	}

	data, ok := s.tables[name]
	if !ok {
		return nil, cm.NewStoreErr(tableDataType, cm.KeyNotFound, name)
	}

	m := new(table.Memento)
	if err := m.Unmarshal(data); err != nil {
		return nil, cm.WrapStoreErr(tableDataType, cm.Corrupt, name, err)
	}

	return m, nil
}

// SetTable implements the Store interface.
func (s *InmemStore) SetTable(name string, memento *table.Memento) error {
	data, err := memento.Marshal()
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr(tableDataType, cm.Closed, name)
	}

	s.tables[name] = data

	return nil
}

// DeleteTable implements the Store interface.
func (s *InmemStore) DeleteTable(name string) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr(tableDataType, cm.Closed, name)
	}

	if _, ok := s.tables[name]; !ok {
		return cm.NewStoreErr(tableDataType, cm.KeyNotFound, name)
	}
	delete(s.tables, name)

	return nil
}

// Tables implements the Store interface.
func (s *InmemStore) Tables() ([]string, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, cm.NewStoreErr(tableDataType, cm.Closed, "")
	}

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}

// StorePath implements the Store interface. InmemStore has no path.
func (s *InmemStore) StorePath() string {
	return ""
}
