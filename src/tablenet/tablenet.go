package tablenet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/config"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/node"
	"github.com/mosaicnetworks/tablenet/src/service"
	"github.com/mosaicnetworks/tablenet/src/store"
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/sirupsen/logrus"
)

// Mode says whether an engine hosts a table or joins one.
type Mode int

const (
	// HostMode runs a server node that players join.
	HostMode Mode = iota
	// JoinMode runs a client node that joins a host.
	JoinMode
)

// String ...
func (m Mode) String() string {
	switch m {
	case HostMode:
		return "host"
	case JoinMode:
		return "join"
	default:
		return "unknown"
	}
}

// Tablenet is a struct containing the key objects of a table network node:
// the table environment, the store of saved tables, the stream layer, the
// node itself, and the HTTP service. It is the main entry point for
// applications and for the command line.
type Tablenet struct {
	Config  *config.Config
	Mode    Mode
	Env     *table.Environment
	Store   store.Store
	Stream  net.StreamLayer
	Node    *node.LocalNode
	Server  *node.ServerNode
	Client  *node.ClientNode
	Service *service.Service

	// Registry, if set before Init, defines the components the table is
	// made of. It defaults to table.NewDefaultRegistry().
	Registry *table.Registry

	disconnectCh chan error
	shutdownOnce sync.Once
	logger       *logrus.Entry
}

// NewTablenet is a factory method to produce Tablenet instances.
func NewTablenet(c *config.Config) *Tablenet {
	engine := &Tablenet{
		Config:       c,
		disconnectCh: make(chan error, 1),
		logger:       c.Logger(),
	}

	return engine
}

// Init initialises the engine in the given mode. Fields set before Init, such
// as Stream or Store, are kept.
func (t *Tablenet) Init(mode Mode) error {
	t.Mode = mode

	t.logger.WithFields(logrus.Fields{
		"mode":      mode,
		"transport": t.Config.Transport,
		"player":    t.Config.PlayerName,
	}).Debug("Init")

	if err := t.initEnvironment(); err != nil {
		return err
	}

	if err := t.initStore(); err != nil {
		return err
	}

	if err := t.loadTable(); err != nil {
		return err
	}

	if err := t.initStreamLayer(); err != nil {
		return err
	}

	t.initNode()

	t.initService()

	return nil
}

func (t *Tablenet) initEnvironment() error {
	if t.Registry == nil {
		t.Registry = table.NewDefaultRegistry()
	}

	env, err := table.NewEnvironment(t.Registry)
	if err != nil {
		return err
	}

	t.Env = env

	return nil
}

func (t *Tablenet) initStore() error {
	if t.Store != nil {
		return nil
	}

	if t.Mode != HostMode || !t.Config.Store {
		t.logger.Debug("Creating InmemStore")
		t.Store = store.NewInmemStore()
		return nil
	}

	dbPath := t.Config.DatabaseDir

	t.logger.WithField("path", dbPath).Debug("Opening BadgerStore")

	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return err
	}

	dbStore, err := store.NewBadgerStore(dbPath, t.logger)
	if err != nil {
		return err
	}

	t.Store = dbStore

	return nil
}

// loadTable restores the saved table of a host, if any.
func (t *Tablenet) loadTable() error {
	if t.Mode != HostMode {
		return nil
	}

	memento, err := t.Store.GetTable(t.Config.TableName)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			t.logger.WithField("table", t.Config.TableName).Debug("No saved table")
			return nil
		}
		return err
	}

	t.Env.Lock()
	defer t.Env.Unlock()

	if err := t.Env.Tabletop().SetMemento(memento); err != nil {
		return fmt.Errorf("restoring table %s: %v", t.Config.TableName, err)
	}

	t.logger.WithFields(logrus.Fields{
		"table":      t.Config.TableName,
		"components": memento.Count() - 1,
	}).Info("Loaded saved table")

	return nil
}

// SaveTable saves the table of a host under Config.TableName.
func (t *Tablenet) SaveTable() error {
	t.Env.Lock()
	memento := t.Env.Tabletop().CreateMemento()
	t.Env.Unlock()

	return t.Store.SetTable(t.Config.TableName, memento)
}

func (t *Tablenet) initStreamLayer() error {
	if t.Stream != nil {
		return nil
	}

	switch t.Config.Transport {
	case config.TCPTransport:
		t.Stream = net.NewTCPStreamLayer(t.Config.TCPTimeout)
	case config.WebSocketTransport:
		t.Stream = net.NewWebSocketStreamLayer(
			t.Config.WebSocketPath,
			t.Config.TCPTimeout,
			t.logger.WithField("prefix", "websocket"),
		)
	default:
		return fmt.Errorf("unknown transport %q", t.Config.Transport)
	}

	return nil
}

func (t *Tablenet) initNode() {
	conf := node.NewConfig(
		t.Config.InboxSize,
		t.Config.HandshakeTimeout,
		t.logger.WithField("prefix", "node"),
	)

	switch t.Mode {
	case HostMode:
		t.Server = node.NewServerNode(t.Env, t.Stream, t, conf)
		t.Node = t.Server.LocalNode
	default:
		t.Client = node.NewClientNode(t.Env, t.Stream, t, conf)
		t.Node = t.Client.LocalNode
	}
}

func (t *Tablenet) initService() {
	if !t.Config.NoService {
		t.Service = service.NewService(t.Config.ServiceAddr, t.Node, t.logger.WithField("prefix", "service"))
	}
}

// Disconnected implements the node.Controller interface.
func (t *Tablenet) Disconnected(cause error) {
	select {
	case t.disconnectCh <- cause:
	default:
	}
}

// Connect hosts or joins the table at Config.BindAddr.
func (t *Tablenet) Connect(ctx context.Context) error {
	return t.Node.Connect(ctx, node.ConnectConfig{
		Addr:       t.Config.BindAddr,
		PlayerName: t.Config.PlayerName,
		Password:   []byte(t.Config.Password),
	})
}

// LocalAddr returns the address a host listens on.
func (t *Tablenet) LocalAddr() string {
	if t.Server == nil {
		return ""
	}
	return t.Server.LocalAddr()
}

// Run connects the node and blocks until ctx is done or the node is
// disconnected, then shuts the engine down.
func (t *Tablenet) Run(ctx context.Context) error {
	if t.Service != nil {
		go t.Service.Serve()
	}

	if err := t.Connect(ctx); err != nil {
		t.Shutdown()
		return err
	}

	var cause error
	select {
	case <-ctx.Done():
	case cause = <-t.disconnectCh:
	}

	t.Shutdown()

	return cause
}

// Shutdown disconnects the node, saves the table of a host, and releases
// the store and the service. Only the first call has an effect.
func (t *Tablenet) Shutdown() {
	t.shutdownOnce.Do(t.shutdown)
}

func (t *Tablenet) shutdown() {
	t.logger.Debug("Shutdown")

	t.Node.Disconnect(nil)
	t.Node.WaitRoutines()

	if t.Mode == HostMode {
		if err := t.SaveTable(); err != nil {
			t.logger.WithError(err).Error("Failed to save table")
		}
	}

	if err := t.Store.Close(); err != nil {
		t.logger.WithError(err).Error("Failed to close store")
	}

	if t.Service != nil {
		if err := t.Service.Close(); err != nil {
			t.logger.WithError(err).Warn("Failed to close service")
		}
	}
}
