package table

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Memento is a serializable snapshot of a component. Container mementos carry
// the mementos of their children, bottom to top.
type Memento struct {
	Strategy       StrategyID
	Location       Point
	Orientation    Orientation
	SurfaceDesigns map[Orientation]SurfaceDesignID
	Layout         LayoutID
	Components     []*Memento
}

// Marshal encodes the memento with msgpack.
func (m *Memento) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	mh := new(codec.MsgpackHandle)
	enc := codec.NewEncoder(b, mh)

	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a memento produced by Marshal.
func (m *Memento) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	mh := new(codec.MsgpackHandle)
	dec := codec.NewDecoder(b, mh)

	return dec.Decode(m)
}

// Count returns the number of components described by the memento, itself
// included.
func (m *Memento) Count() int {
	n := 1
	for _, c := range m.Components {
		n += c.Count()
	}
	return n
}
