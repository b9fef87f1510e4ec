// Package table implements the tabletop document shared by the nodes of a
// table network.
//
// A table Environment owns a tabletop Container, which recursively holds
// Components. Every component exposes location, orientation and surface
// designs; containers additionally expose a layout and an ordered list of
// children (index 0 is the bottom of the stack).
//
// Locking
//
// The whole document is guarded by the Environment lock. Accessors and
// mutators of components do not lock on their own: callers must hold the
// environment lock around any read or write. Listeners are notified
// synchronously by the mutator, while the lock is still held, so they must
// never try to acquire it again or block on another goroutine that might.
//
// Mementos and Increments
//
// A Memento is a complete, serializable snapshot of a component and its
// descendants. An Increment is a sparse diff: every field left unset means
// "no change along this axis". Mementos and increments are what the node
// layer ships between peers.
package table
