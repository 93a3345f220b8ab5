package bridge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
}

// StreamEvents pushes timezone change events to one client until it
// disconnects or the server stops.
func StreamEvents(serverCtx context.Context, s *Service, w http.ResponseWriter, r *http.Request) {
	c, err := accept(w, r)
	if err != nil {
		log.WithError(err).Error("Failed to accept bridge client")
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	clientID := uuid.NewString()
	s.clients.Store(clientID, c)
	defer s.clients.Delete(clientID)

	logger := log.WithFields(log.Fields{
		"client": clientID,
		"remote": r.RemoteAddr,
	})
	logger.Info("Bridge client connected")
	defer logger.Info("Bridge client disconnected")

	events, unsub := s.hub.Subscribe()
	defer unsub()

	// Clients only listen; CloseRead handles control frames and cancels
	// the context once the client goes away.
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case <-serverCtx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				logger.WithError(err).Error("Failed to encode timezone event")
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, b); err != nil {
				logger.WithError(err).Warn("Failed to deliver timezone event")
				return
			}
			logger.WithField("timezone", ev.Timezone).Debug("Delivered timezone event")
		}
	}
}
