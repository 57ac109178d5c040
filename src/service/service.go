package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/mosaicnetworks/relayfold/src/engine"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"github.com/mosaicnetworks/relayfold/src/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Service exposes the engine's projections over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	engine      *engine.Engine
	ids         *store.Derived[[]string]
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService creates a Service. Handlers are registered on the service's own
// mux; Handler returns it for embedding in another server.
func NewService(bindAddress string, e *engine.Engine, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		engine:      e,
		ids:         store.Derive(e.Channels().All(), channelIDs),
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

// channelIDs lists the channels in id order.
func channelIDs(channels map[string]projection.Channel, ok bool) ([]string, bool) {
	ids := make([]string, 0, len(channels))
	for id := range channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, true
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering relayfold API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/channels", s.makeHandler(s.GetChannels))
	s.mux.HandleFunc("/channels/", s.makeHandler(s.GetChannel))
	s.mux.HandleFunc("/subscriptions", s.makeHandler(s.GetSubscriptions))
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.engine.Metrics(), promhttp.HandlerOpts{}))
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

// Handler returns the API handlers.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call; it returns nil once
// Shutdown has been called.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving relayfold API")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		s.logger.Error(err)
	}
	return err
}

// Shutdown stops the server and detaches the service from the store.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ids.Close()
	return s.server.Shutdown(ctx)
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetChannels returns every channel, sorted by id. With ?joined=true only
// the joined ones are returned.
func (s *Service) GetChannels(w http.ResponseWriter, r *http.Request) {
	ids, _ := s.ids.Get()
	joinedOnly := r.URL.Query().Get("joined") == "true"

	// Attribution grows without store writes, so views are built per request.
	views := []projection.ChannelView{}
	for _, id := range ids {
		c, ok := s.engine.Channels().Key(id).Get()
		if !ok || (joinedOnly && !c.Joined) {
			continue
		}
		views = append(views, c.View())
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(views)
}

// GetChannel ...
func (s *Service) GetChannel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/channels/")

	channel, ok := s.engine.Channels().Key(id).Get()
	if !ok {
		s.logger.WithField("channel", id).Debug("Unknown channel")

		http.Error(w, "unknown channel "+id, http.StatusNotFound)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(channel.View())
}

// GetSubscriptions returns the ids of the open subscriptions.
func (s *Service) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(s.engine.Subscriptions())
}
