package commands

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/tablenet/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "tablenet-cli")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	toml := []byte("password = \"open sesame\"\ntable = \"poker\"\n")
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "tablenet.toml"), toml, 0600))

	cmd := NewHostCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--datadir", dir,
		"--player", "alice",
		"--log", "error",
		"--transport", config.WebSocketTransport,
	}))

	require.NoError(t, loadConfig(cmd, nil))

	conf := _config.Tablenet
	assert.Equal(t, dir, conf.DataDir)
	assert.Equal(t, "alice", conf.PlayerName)
	assert.Equal(t, config.WebSocketTransport, conf.Transport)
	assert.Equal(t, "open sesame", conf.Password)
	assert.Equal(t, "poker", conf.TableName)
	assert.Equal(t, filepath.Join(dir, config.DefaultBadgerFile), conf.DatabaseDir)
	assert.Equal(t, config.DefaultInboxSize, conf.InboxSize)
}
