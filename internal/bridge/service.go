// Package bridge exposes timezone changes to the hosting application over
// HTTP and WebSocket.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/tzwatchd/internal/fetch"
	"github.com/dmdmdm-nz/tzwatchd/internal/tz"
	"github.com/dmdmdm-nz/tzwatchd/internal/watcher"
)

// ZoneWatcher is the read side of the timezone watcher.
type ZoneWatcher interface {
	State() watcher.State
	LastKnown() (tz.Identifier, bool)
}

// FetchCycle is the background-fetch scheduler as seen by the bridge.
type FetchCycle interface {
	Trigger(ctx context.Context) (watcher.FetchResult, error)
	RefreshStatus() fetch.RefreshStatus
	Stats() fetch.Stats
}

// Service represents the HTTP server for the bridge
type Service struct {
	address   string
	port      int
	advertise bool

	hub *Hub
	zw  ZoneWatcher
	fc  FetchCycle

	clients *xsync.MapOf[string, *websocket.Conn]

	mu       sync.Mutex
	server   *http.Server
	withdraw func()
	closed   bool
}

func NewService(host string, port int, advertise bool, hub *Hub) *Service {
	return &Service{
		address:   host,
		port:      port,
		advertise: advertise,
		hub:       hub,
		clients:   xsync.NewMapOf[string, *websocket.Conn](),
	}
}

// AttachWatcher wires the watcher (must be called before Start).
func (s *Service) AttachWatcher(zw ZoneWatcher) {
	s.zw = zw
}

// AttachFetch wires the background-fetch cycle (must be called before Start).
func (s *Service) AttachFetch(fc FetchCycle) {
	s.fc = fc
}

// Start serves the bridge until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s.zw == nil || s.fc == nil {
		log.Error("AttachWatcher and AttachFetch must be called before Start")
		<-ctx.Done()
		return nil
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.address, fmt.Sprint(s.port)))
	if err != nil {
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	server := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	if s.advertise {
		instance, _ := os.Hostname()
		if instance == "" {
			instance = "tzwatchd"
		}
		withdraw, err := advertise(instance, port)
		if err != nil {
			log.WithError(err).Warn("Failed to advertise timezone bridge")
		} else {
			s.mu.Lock()
			s.withdraw = withdraw
			s.mu.Unlock()
		}
	}

	log.Infof("Starting timezone bridge at %s", ln.Addr())
	defer log.Info("Stopping timezone bridge")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		_ = s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Bridge shutdown did not complete cleanly")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	withdraw := s.withdraw
	s.withdraw = nil
	s.mu.Unlock()

	if withdraw != nil {
		withdraw()
	}

	s.clients.Range(func(id string, c *websocket.Conn) bool {
		log.WithField("client", id).Debug("Closing bridge client")
		// Close would wait for each peer's close frame in turn.
		_ = c.CloseNow()
		s.clients.Delete(id)
		return true
	})

	return s.hub.Close()
}

// Handler builds the bridge routes. ctx bounds long-lived streams.
func (s *Service) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/timezone", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, ok := s.zw.LastKnown()
		if !ok {
			http.Error(w, "Timezone not known yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, TimezoneInfo{
			Timezone: id.String(),
			State:    string(s.zw.State()),
		})
	})
	mux.HandleFunc("/background-refresh-status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, RefreshStatusInfo{Status: string(s.fc.RefreshStatus())})
	})
	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.fc.Stats())
		case http.MethodPost:
			result, err := s.fc.Trigger(r.Context())
			if err != nil {
				http.Error(w, fmt.Sprintf("Fetch aborted: %v", err), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, FetchInfo{Result: string(result)})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		if err := checkClientVersion(r.URL.Query().Get("version")); err != nil {
			http.Error(w, err.Error(), http.StatusUpgradeRequired)
			return
		}
		q := r.URL.Query()
		s.hub.SetNotification(q.Get("title"), q.Get("body"))
		StreamEvents(ctx, s, w, r)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode bridge response")
	}
}

// Clients reports connected event stream clients.
func (s *Service) Clients() int {
	return s.clients.Size()
}
