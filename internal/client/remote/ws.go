package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/common"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait  = 60 * time.Second
	wsWriteWait = 10 * time.Second
)

// MessageType classifies a change-feed message.
type MessageType string

const (
	TypeSnapshot MessageType = "snapshot"
	TypePing     MessageType = "ping"
	TypePong     MessageType = "pong"
)

// Message is the envelope of the websocket change feed.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SnapshotPayload carries the full remote note set for one owner.
type SnapshotPayload struct {
	OwnerID string         `json:"owner_id"`
	Notes   []*models.Note `json:"notes"`
}

func (s *HTTPStore) Subscribe(ctx context.Context, ownerID string, onChange SnapshotFunc) (func(), error) {
	if s.wsURL == "" {
		return nil, errors.New("no websocket endpoint configured")
	}

	header := http.Header{}
	if token := s.bearerToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	url := fmt.Sprintf("%s/api/v1/owners/%s/notes/watch", s.wsURL, ownerID)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: subscribe: %v", common.ErrRemoteUnavailable, err)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			_ = conn.Close()
		})
	}

	stop := context.AfterFunc(ctx, unsubscribe)
	go func() {
		defer stop()
		s.readPump(ctx, conn, ownerID, onChange)
	}()

	return unsubscribe, nil
}

// readPump consumes feed messages until the connection closes. Server pings
// extend the read deadline; anything else with an unknown type is ignored so
// the feed can grow without breaking older clients.
func (s *HTTPStore) readPump(ctx context.Context, conn *websocket.Conn, ownerID string, onChange SnapshotFunc) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(wsWriteWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn(ctx, "change feed closed unexpectedly", "owner", ownerID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warn(ctx, "undecodable change feed message", "owner", ownerID, "error", err)
			continue
		}

		switch msg.Type {
		case TypeSnapshot:
			var payload SnapshotPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				s.log.Warn(ctx, "undecodable snapshot payload", "owner", ownerID, "error", err)
				continue
			}
			if payload.OwnerID != "" && payload.OwnerID != ownerID {
				continue
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			onChange(ownerID, payload.Notes)
		case TypePing:
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		default:
		}
	}
}
