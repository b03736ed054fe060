package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

const broadcastBuffer = 16

// Message is the envelope written to dashboard clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans poll reports out to connected dashboards. The client set is owned
// by the Run goroutine; everything else talks to it through channels.
type Hub struct {
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	upgrader websocket.Upgrader
	clients  atomic.Int64
	logger   *util.MetricsLogger
}

func NewHub(logger *util.MetricsLogger) *Hub {
	if logger == nil {
		logger = util.GetLogger("live")
	}
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*Client]struct{})
	var latest []byte

	remove := func(c *Client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		h.clients.Add(-1)
		telemetry.LiveClients.Dec()
	}

	defer func() {
		close(h.done)
		for c := range clients {
			remove(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.clients.Add(1)
			telemetry.LiveClients.Inc()
			h.logger.LogEvent(util.LOG_LEVEL_DEBUG, "live client registered:", c.conn.RemoteAddr())
			if latest != nil {
				c.send <- latest
			}

		case c := <-h.unregister:
			remove(c)
			h.logger.LogEvent(util.LOG_LEVEL_DEBUG, "live client unregistered:", c.conn.RemoteAddr())

		case msg := <-h.broadcast:
			latest = msg
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.logger.LogEvent(util.LOG_LEVEL_WARN, "live client", c.conn.RemoteAddr(), "is not keeping up, dropping it")
					remove(c)
				}
			}
		}
	}
}

// Publish queues report for every client. It never blocks the caller; when
// the queue is full the report is dropped.
func (h *Hub) Publish(report domain.Report) {
	msg, err := json.Marshal(Message{Type: "report", Payload: report})
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_ERROR, "error marshalling live report:", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.LogEvent(util.LOG_LEVEL_WARN, "live broadcast queue full, dropping report")
	}
}

func (h *Hub) ClientCount() int {
	return int(h.clients.Load())
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_WARN, "websocket upgrade failed:", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
