package node

import (
	"sync"
	"sync/atomic"
)

// ConnectionState captures the connection state of a LocalNode:
// Disconnected, Connecting, Connected, or Disconnecting.
type ConnectionState uint32

const (
	// Disconnected is the initial and final state of a node.
	Disconnected ConnectionState = iota
	// Connecting is the state of a node opening its transport.
	Connecting
	// Connected is the state in which remote nodes can be bound.
	Connected
	// Disconnecting is the state of a node saying goodbye to its peers and
	// closing its transport.
	Disconnecting
)

// String ...
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// WGLIMIT is the maximum number of goroutines that can be launched through
// state.goFunc
const WGLIMIT = 20

type state struct {
	state   ConnectionState
	wg      sync.WaitGroup
	wgCount int32
}

func (b *state) getState() ConnectionState {
	stateAddr := (*uint32)(&b.state)
	return ConnectionState(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s ConnectionState) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Start a goroutine and add it to waitgroup. Returns false if WGLIMIT
// goroutines are already running.
func (b *state) goFunc(f func()) bool {
	tempWgCount := atomic.LoadInt32(&b.wgCount)
	if tempWgCount >= WGLIMIT {
		return false
	}
	b.wg.Add(1)
	atomic.AddInt32(&b.wgCount, 1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()
	return true
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
