package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 25 * time.Second
	wsQueueSize    = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is one frame sent over the websocket
type StreamMessage struct {
	Type string          `json:"type"`
	Data domain.Snapshot `json:"data"`
}

// Stream pushes the session snapshot on connect and after every mutation
func (h *Handler) Stream(c *gin.Context) {
	sess := currentSession(c)
	log := logger.WithContext(c.Request.Context())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan domain.Snapshot, wsQueueSize)
	closed := make(chan struct{})
	var once sync.Once
	done := func() { once.Do(func() { close(closed) }) }

	// Listeners run while the store holds its write lock, so never block here.
	cancel := sess.Store.Subscribe(func(_ store.Op, _, next domain.Snapshot) {
		select {
		case updates <- next:
		default:
			log.Warn("WebSocket client too slow, dropping snapshot")
		}
	})
	defer cancel()
	deregister := sess.OnClose(done)
	defer deregister()

	go func() {
		defer done()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Info("WebSocket client connected")
	defer log.Info("WebSocket client disconnected")

	if err := writeSnapshot(conn, "snapshot", sess.Store.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteTimeout))
			return
		case snap := <-updates:
			if err := writeSnapshot(conn, "snapshot", snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, kind string, snap domain.Snapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(StreamMessage{Type: kind, Data: snap})
}
