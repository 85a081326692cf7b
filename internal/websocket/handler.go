package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"eboto/internal/access"
	"eboto/internal/domain/result"
	"eboto/internal/events"
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"
	"eboto/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RealtimeViewer returns the presented tally for a viewer allowed to see
// the election.
type RealtimeViewer interface {
	Realtime(ctx context.Context, p access.Principal, slug string) (result.View, error)
}

type Handler struct {
	auth     *services.AuthService
	tally    RealtimeViewer
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(auth *services.AuthService, tally RealtimeViewer, hub *Hub) *Handler {
	return &Handler{
		auth:  auth,
		tally: tally,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Message is what viewers receive. A snapshot carries the presented tally;
// a tally.updated message tells the client to refetch it.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const MessageTypeSnapshot = "tally.snapshot"

// Connect upgrades after the same visibility check as the realtime page.
// The token query parameter is optional.
func (h *Handler) Connect(c *gin.Context) {
	p := access.Anonymous()
	if token := c.Query("token"); token != "" {
		var err error
		if p, err = h.auth.Principal(token); err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
	}

	view, err := h.tally.Realtime(c.Request.Context(), p, c.Param("slug"))
	if err != nil {
		status := services.HTTPStatus(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), httpdto.ErrorCode(status)))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	electionID := view.ElectionID.String()
	client := NewClient(conn, electionID)
	log := logger.OrGlobal(nil).With(zap.String("client_id", client.ID), zap.String("election_id", electionID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Join(client, events.TallyChannel(view.ElectionID))
	log.Logger.Debug("realtime viewer connected")

	if snapshot, err := snapshotMessage(view); err == nil {
		client.SendMessage(snapshot)
	}
	go client.WriteLoop(ctx)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	h.hub.Leave(client)
	log.Logger.Debug("realtime viewer disconnected")
}

func snapshotMessage(view result.View) ([]byte, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: MessageTypeSnapshot, Data: data})
}
