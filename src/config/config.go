package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigName is the name, without extension, of the optional
	// configuration file read from the data directory.
	DefaultConfigName = "tablenet"
)

// Transports a node can use.
const (
	TCPTransport       = "tcp"
	WebSocketTransport = "ws"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultBindAddr         = "127.0.0.1:1337"
	DefaultServiceAddr      = "127.0.0.1:8000"
	DefaultTransport        = TCPTransport
	DefaultWebSocketPath    = "/tablenet"
	DefaultTCPTimeout       = 1000 * time.Millisecond
	DefaultHandshakeTimeout = 5000 * time.Millisecond
	DefaultInboxSize        = 256
	DefaultStore            = false
	DefaultTableName        = "main"
)

// Config contains all the configuration properties of a table network node.
type Config struct {
	// DataDir is the top-level directory containing tablenet configuration
	// and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, if set, receives a copy of every log entry, in JSON.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where a host accepts players. For
	// a player, it is the address:port of the host to join.
	BindAddr string `mapstructure:"listen"`

	// Transport selects the stream layer: "tcp" or "ws".
	Transport string `mapstructure:"transport"`

	// WebSocketPath is the HTTP path of the WebSocket endpoint. It is
	// ignored unless Transport is "ws".
	WebSocketPath string `mapstructure:"ws-path"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service. If not
	// specified, and "no-service" is not set, the API handlers are registered
	// with the DefaultServerMux of the http package.
	ServiceAddr string `mapstructure:"service-listen"`

	// TCPTimeout bounds the time to establish a connection.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// HandshakeTimeout bounds the time a player waits for the host to accept
	// it.
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`

	// InboxSize is the number of transport events a node queues before it
	// stops reading from its connections.
	InboxSize int `mapstructure:"inbox-size"`

	// PlayerName is the name of the local player. It must be unique at the
	// table.
	PlayerName string `mapstructure:"player"`

	// Password is shared by the host and every player of the table.
	Password string `mapstructure:"password"`

	// Store activates persistant storage of the table. Only hosts use it.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// TableName is the key under which a host saves its table.
	TableName string `mapstructure:"table"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		BindAddr:         DefaultBindAddr,
		Transport:        DefaultTransport,
		WebSocketPath:    DefaultWebSocketPath,
		ServiceAddr:      DefaultServiceAddr,
		TCPTimeout:       DefaultTCPTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		InboxSize:        DefaultInboxSize,
		Store:            DefaultStore,
		DatabaseDir:      DefaultDatabaseDir(),
		TableName:        DefaultTableName,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level tablenet directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely
// set it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "tablenet".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				c.LogFile,
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "tablenet")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level tablenet
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Tablenet")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Tablenet")
		} else {
			return filepath.Join(home, ".tablenet")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
