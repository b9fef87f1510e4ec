package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/sirupsen/logrus"
)

// DefaultHandshakeTimeout ...
const DefaultHandshakeTimeout = 5 * time.Second

// Config holds the tunables of a LocalNode.
type Config struct {
	// InboxSize bounds the number of transport events queued on the node
	// layer.
	InboxSize int `mapstructure:"inbox-size"`

	// HandshakeTimeout bounds the time a client waits for the server to
	// accept it.
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`

	Logger *logrus.Entry
}

// NewConfig ...
func NewConfig(inboxSize int,
	handshakeTimeout time.Duration,
	logger *logrus.Entry) *Config {

	return &Config{
		InboxSize:        inboxSize,
		HandshakeTimeout: handshakeTimeout,
		Logger:           logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		InboxSize:        DefaultInboxSize,
		HandshakeTimeout: DefaultHandshakeTimeout,
		Logger:           logrus.NewEntry(logger),
	}
}

// TestConfig ...
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.HandshakeTimeout = 2 * time.Second
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}
