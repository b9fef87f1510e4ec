package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/tablenet/src/config"
	"github.com/mosaicnetworks/tablenet/src/tablenet"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

/*******************************************************************************
* RUN
*******************************************************************************/

func runTablenet(mode tablenet.Mode) error {
	engine := tablenet.NewTablenet(&_config.Tablenet)

	if err := engine.Init(mode); err != nil {
		_config.Tablenet.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	go func() {
		select {
		case <-signalCh:
			_config.Tablenet.Logger().Info("Leaving the table")
			cancel()
		case <-ctx.Done():
		}
	}()

	return engine.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds the flags shared by the host and join commands
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Tablenet.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Tablenet.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Tablenet.LogFile, "File receiving a copy of the logs")

	// Player
	cmd.Flags().String("player", _config.Tablenet.PlayerName, "Name of the local player")
	cmd.Flags().String("password", _config.Tablenet.Password, "Password of the table")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Tablenet.BindAddr, "IP:Port of the host")
	cmd.Flags().String("transport", _config.Tablenet.Transport, "tcp or ws")
	cmd.Flags().String("ws-path", _config.Tablenet.WebSocketPath, "HTTP path of the WebSocket endpoint")
	cmd.Flags().DurationP("timeout", "t", _config.Tablenet.TCPTimeout, "TCP Timeout")
	cmd.Flags().Duration("handshake-timeout", _config.Tablenet.HandshakeTimeout, "Time allowed for the host to accept a player")
	cmd.Flags().Int("inbox-size", _config.Tablenet.InboxSize, "Number of network events queued before reads block")

	// Service
	cmd.Flags().Bool("no-service", _config.Tablenet.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Tablenet.ServiceAddr, "Listen IP:Port for HTTP service")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Tablenet.SetDataDir(_config.Tablenet.DataDir)

	logFields := logrus.Fields{
		"tablenet.DataDir":          _config.Tablenet.DataDir,
		"tablenet.BindAddr":         _config.Tablenet.BindAddr,
		"tablenet.Transport":        _config.Tablenet.Transport,
		"tablenet.ServiceAddr":      _config.Tablenet.ServiceAddr,
		"tablenet.NoService":        _config.Tablenet.NoService,
		"tablenet.LogLevel":         _config.Tablenet.LogLevel,
		"tablenet.LogFile":          _config.Tablenet.LogFile,
		"tablenet.PlayerName":       _config.Tablenet.PlayerName,
		"tablenet.TCPTimeout":       _config.Tablenet.TCPTimeout,
		"tablenet.HandshakeTimeout": _config.Tablenet.HandshakeTimeout,
		"tablenet.InboxSize":        _config.Tablenet.InboxSize,
		"tablenet.Store":            _config.Tablenet.Store,
	}

	if _config.Tablenet.Store {
		logFields["tablenet.DatabaseDir"] = _config.Tablenet.DatabaseDir
		logFields["tablenet.TableName"] = _config.Tablenet.TableName
	}

	_config.Tablenet.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/tablenet.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.Tablenet.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Tablenet.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Tablenet.Logger().Debugf("No config file found in: %s", _config.Tablenet.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
