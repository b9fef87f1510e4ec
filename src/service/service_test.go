package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/node"
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *node.ServerNode) {
	env, err := table.NewEnvironment(table.NewDefaultRegistry())
	require.NoError(t, err)

	env.Lock()
	card, err := env.NewComponent(table.CardStrategyID)
	require.NoError(t, err)
	card.SetLocation(table.Point{X: 4, Y: 2})
	require.NoError(t, env.Tabletop().AddComponent(card))
	env.Unlock()

	s := node.NewServerNode(env, net.NewInmemStreamLayer(), nil, node.TestConfig(t))
	t.Cleanup(func() { s.Disconnect(nil) })

	return NewService("", s.LocalNode, common.NewTestEntry(t, common.TestLogLevel)), s
}

func get(t *testing.T, s *Service, path string, v interface{}) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
	return rec
}

func TestService_Stats(t *testing.T) {
	s, _ := newTestService(t)

	stats := map[string]string{}
	rec := get(t, s, "/stats", &stats)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Disconnected", stats["state"])
	assert.Equal(t, "0", stats["num_remote_nodes"])
}

func TestService_PlayersAndTable(t *testing.T) {
	s, n := newTestService(t)

	err := n.Connect(context.Background(), node.ConnectConfig{PlayerName: "host"})
	require.NoError(t, err)

	players := []string{}
	get(t, s, "/players", &players)
	assert.Equal(t, []string{"host"}, players)

	memento := table.Memento{}
	get(t, s, "/table", &memento)
	assert.Equal(t, table.TabletopStrategyID, memento.Strategy)
	require.Len(t, memento.Components, 1)
	assert.Equal(t, table.Point{X: 4, Y: 2}, memento.Components[0].Location)
}
