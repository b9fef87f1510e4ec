// Package node implements the nodes of a table network.
//
// A table network shares one table between players in real time. One player
// hosts the table with a ServerNode; the others join with a ClientNode. Each
// node owns a replica of the table (a table.Environment) and keeps it in step
// with its peers by exchanging increments: sparse diffs of a single
// component.
//
// Node Layer
//
// All the state of a node is read and written on a single goroutine, the
// node Layer. Transport events are delivered onto it in order, so messages
// from one peer are processed in the order they were sent. Public methods of
// the nodes may be called from any goroutine and hop onto the layer with
// SyncExec or AsyncExec. Connecting and disconnecting block on I/O and run on
// separate orchestration goroutines that re-enter the layer as needed.
//
// Remote Nodes
//
// A RemoteNode stands for one connected peer. It assigns ids to the messages
// it sends, remembers the handler of every request awaiting a reply, and
// dispatches the messages it receives: first to the handler of the request
// they answer, then to the handler registered for their type. A message that
// nobody handles is answered with an error message, unless it is itself an
// error.
//
// Network Tables
//
// The TableManager forwards every change to all the network tables of a node
// except the one it came from. The LocalNetworkTable listens to the local
// environment and applies remote changes to it; a RemoteNetworkTable sends
// changes to its peer.
//
// Handshake
//
// A client says hello with the protocol version it supports, then answers
// the challenge of the server with proof that it knows the table password.
// The server binds the client under its player name, sends it the table and
// tells every client who is at the table.
package node
