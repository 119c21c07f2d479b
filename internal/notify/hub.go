package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/typolo/ultimessenger/pkg/i18n"
)

var __ = i18n.Translate

// HeartbeatFunc is invoked when a connected client reports activity, so the
// presence layer can refresh its last-seen stamp.
type HeartbeatFunc func(uid string)

// Hub bridges the in-process Notifier onto WebSocket clients. Every notifier
// event is pushed to every connected client as JSON.
type Hub struct {
	notifier  *Notifier
	heartbeat HeartbeatFunc

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Client struct {
	uid  string
	conn *websocket.Conn
	hub  *Hub
	send chan Event
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin
		return true
	},
}

func NewHub(notifier *Notifier, heartbeat HeartbeatFunc) *Hub {
	return &Hub{
		notifier:   notifier,
		heartbeat:  heartbeat,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	events, cancel := h.notifier.Subscribe()
	defer cancel()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			log.Printf("ws: user %s connected (total: %d)", client.uid, h.count())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("ws: user %s disconnected (total: %d)", client.uid, h.count())

		case ev := <-events:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- ev:
				default:
					log.Printf("ws: send channel full for user %s", client.uid)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ConnectedUIDs returns the uids of currently connected clients.
func (h *Hub) ConnectedUIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	uids := make([]string, 0, len(h.clients))
	for c := range h.clients {
		uids = append(uids, c.uid)
	}
	return uids
}

func (h *Hub) HandleWebSocket(c *gin.Context) {
	uid, exists := c.Get("uid")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": __("unauthorized")})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": __("websocket upgrade failed")})
		return
	}

	client := &Client{
		uid:  uid.(string),
		conn: conn,
		hub:  h,
		send: make(chan Event, 256),
	}

	h.register <- client

	go client.readPump()
	go client.writePump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			break
		}

		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		eventType, ok := event["type"].(string)
		if !ok {
			continue
		}

		// The only inbound event is the presence heartbeat; all mutations go
		// through the HTTP surface.
		if eventType == "heartbeat" && c.hub.heartbeat != nil {
			c.hub.heartbeat(c.uid)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			data, _ := json.Marshal(ev)
			w.Write(data)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
