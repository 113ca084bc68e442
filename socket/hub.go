package socket

import (
	"encoding/json"
	"sync"

	"englishbuddy/pkg/logger"
)

const (
	StoryCreatedType = "STORY_CREATED" // A new story was stored
	StoryDeletedType = "STORY_DELETED" // A story was removed
)

// WSMessage is one story feed event.
type WSMessage struct {
	Type    string          `json:"type"`
	StoryID string          `json:"story_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub fans story feed events out to every connected client.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()
			logger.Sugar.Debugf("Feed client connected (%d total)", h.ClientCount())

		case client := <-h.Unregister:
			h.remove(client)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling feed message: %v", err)
				continue
			}

			// Collect recipients first so no lock is held during sends.
			h.mu.RLock()
			clientsToSend := make([]*Client, 0, len(h.Clients))
			for client := range h.Clients {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.RUnlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it instead of blocking the hub.
					logger.Sugar.Warnf("Feed client %s send buffer is full. Unregistering.", client.ID)
					h.remove(client)
				}
			}

		case <-h.done:
			h.mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		close(client.Send)
	}
}

// Stop ends Run and closes every client send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// Publish queues an event without blocking. Events are dropped when the queue is full.
func (h *Hub) Publish(eventType, storyID string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			logger.Sugar.Errorf("Error marshalling %s payload for story %s: %v", eventType, storyID, err)
			return
		}
		raw = b
	}

	select {
	case h.Broadcast <- WSMessage{Type: eventType, StoryID: storyID, Payload: raw}:
	default:
		logger.Sugar.Warnf("Feed queue full, dropping %s for story %s", eventType, storyID)
	}
}
