package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

const (
	wsSendBuffer   = 64
	wsMaxMessage   = maxBodyBytes
	wsPingInterval = 30 * time.Second
	wsPongWait     = 60 * time.Second
	wsWriteWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by the access key gate.
		return true
	},
}

// wsClient is one bridge client connected to /ws.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// serveWS speaks the bridge envelope protocol: invoke envelopes in,
// response and event envelopes out. Invokes on one connection run in order.
func (h *Handlers) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("api: websocket upgrade failed", "err", err)
		return
	}
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
	h.metrics.wsClient(1)
	defer h.metrics.wsClient(-1)

	cancel := h.d.Subscribe(func(event string, payload any) {
		env, err := bridge.NewEvent(event, payload)
		if err != nil {
			slog.Warn("api: encode event failed", "event", event, "err", err)
			return
		}
		c.offer(env)
	})
	go c.writePump()

	c.readPump(r, h.d)
	cancel()
	close(c.done)
}

func (c *wsClient) readPump(r *http.Request, d bridge.Dispatcher) {
	defer c.conn.Close()

	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("api: websocket read error", "err", err)
			} else {
				slog.Debug("api: websocket closed", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var req bridge.Envelope
		if err := json.Unmarshal(data, &req); err != nil {
			c.deliver(bridge.NewResponse(bridge.Envelope{}, nil, models.ErrBadRequest("invalid JSON message")))
			continue
		}
		if req.Type != bridge.TypeInvoke {
			c.deliver(bridge.NewResponse(req, nil, models.ErrBadRequest("unknown message type: "+req.Type)))
			continue
		}
		result, err := d.Dispatch(r.Context(), req.Cmd, req.Args)
		c.deliver(bridge.NewResponse(req, result, err))
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// deliver queues a response, waiting for room.
func (c *wsClient) deliver(env bridge.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

// offer queues an event, dropping it when the client is behind.
func (c *wsClient) offer(env bridge.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		slog.Debug("api: websocket client slow, event dropped", "event", env.Event)
	}
}
