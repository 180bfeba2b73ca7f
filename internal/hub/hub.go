// Package hub pushes officer activity to the kiosks watching a session.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"kiosk-backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

type MessageType string

const (
	MessageResponse MessageType = "response"
	MessageStatus   MessageType = "status"
)

// Message is what a subscribed kiosk receives.
type Message struct {
	Type      MessageType          `json:"type"`
	SessionID string               `json:"session_id"`
	Response  *models.SentResponse `json:"response,omitempty"`
	Status    models.SessionStatus `json:"status,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

// Client is one kiosk connection subscribed to a session.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID string
}

func NewClient(h *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{Hub: h, Conn: conn, Send: make(chan []byte, sendBuffer), SessionID: sessionID}
}

// Hub tracks subscribed clients by session id. Run owns the rooms map; mu
// guards it for readers outside the loop.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
}

func New() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan Message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.rooms {
				for client := range clients {
					close(client.Send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.SessionID] == nil {
				h.rooms[client.SessionID] = make(map[*Client]bool)
			}
			h.rooms[client.SessionID][client] = true
			n := len(h.rooms[client.SessionID])
			h.mu.Unlock()
			log.Printf("hub: kiosk joined session %s (%d watching)", client.SessionID, n)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Printf("hub: encode message for session %s: %v", msg.SessionID, err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[msg.SessionID] {
				select {
				case client.Send <- payload:
				default:
					// Slow consumer: drop it rather than stall the room.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.SessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.rooms, client.SessionID)
	}
	log.Printf("hub: kiosk left session %s", client.SessionID)
}

// Register adds client once Run accepts it. It returns false when the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues msg for every client of its session without blocking. It
// reports whether the message was queued.
func (h *Hub) Publish(msg Message) bool {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		log.Printf("hub: broadcast queue full, dropped %s for session %s", msg.Type, msg.SessionID)
		return false
	}
}

// Watching returns the number of clients subscribed to sessionID.
func (h *Hub) Watching(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[sessionID])
}

// ReadPump drains the connection so control frames are processed, and
// unregisters the client when the kiosk goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("hub: read error on session %s: %v", c.SessionID, err)
			}
			return
		}
	}
}

// WritePump forwards queued messages and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
