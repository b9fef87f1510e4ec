package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/tablenet/src/node"
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/sirupsen/logrus"
)

// Service exposes the state of a node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	node        *node.LocalNode
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n *node.LocalNode, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}
	service.server = &http.Server{Addr: bindAddress, Handler: service.mux}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering tablenet API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/players", s.makeHandler(s.GetPlayers))
	s.mux.HandleFunc("/table", s.makeHandler(s.GetTable))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call; it returns once
// Close is called, even if Close was called first.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving tablenet API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Close stops a service started with Serve.
func (s *Service) Close() error {
	return s.server.Close()
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetPlayers returns the names of the players at the table, the local player
// first.
func (s *Service) GetPlayers(w http.ResponseWriter, r *http.Request) {
	players := s.node.Players()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(players)
}

// GetTable returns a snapshot of the local table.
func (s *Service) GetTable(w http.ResponseWriter, r *http.Request) {
	env := s.node.Environment()

	var memento *table.Memento
	env.Lock()
	memento = env.Tabletop().CreateMemento()
	env.Unlock()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(memento)
}
