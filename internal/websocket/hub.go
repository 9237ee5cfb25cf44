package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

// Client is one dashboard connection subscribed to a run
type Client struct {
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub fans run updates out to subscribed dashboard connections
type Hub struct {
	// clients grouped by run id
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	log *logger.Logger
	mu  sync.RWMutex
}

type broadcastMessage struct {
	RunID   string
	Message []byte
}

// NewHub creates a hub; call Run in a goroutine to start it
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		log:        log.Component("ws_hub"),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.RunID] == nil {
				h.clients[client.RunID] = make(map[*Client]bool)
			}
			h.clients[client.RunID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.RunID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.RunID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.RunID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleConnection serves one subscriber until the peer disconnects
func (h *Hub) HandleConnection(conn *websocket.Conn, runID string) {
	client := &Client{RunID: runID, Conn: conn, Send: make(chan []byte, 64)}
	h.register <- client
	defer func() { h.unregister <- client }()

	go func() {
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastProgress pushes a run snapshot to its subscribers
func (h *Hub) BroadcastProgress(runID string, snap model.RunSnapshot) {
	h.send(runID, model.WSRunMessage{
		Type:  model.WSMessageTypeProgress,
		RunID: runID,
		Run:   &snap,
	})
}

// BroadcastComplete announces a terminal-successful run
func (h *Hub) BroadcastComplete(runID string, snap model.RunSnapshot) {
	h.send(runID, model.WSRunMessage{
		Type:  model.WSMessageTypeComplete,
		RunID: runID,
		Run:   &snap,
	})
}

// BroadcastError announces a failed run
func (h *Hub) BroadcastError(runID, message string) {
	h.send(runID, model.WSRunMessage{
		Type:  model.WSMessageTypeError,
		RunID: runID,
		Error: message,
	})
}

func (h *Hub) send(runID string, msg model.WSRunMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal ws message")
		return
	}
	select {
	case h.broadcast <- &broadcastMessage{RunID: runID, Message: data}:
	default:
		h.log.WithField("run_id", runID).Warn("ws broadcast queue full, dropping update")
	}
}
