package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeEvent       MessageType = "event"
	MessageTypeError       MessageType = "error"
)

// Topics clients can subscribe to
const (
	TopicArticles = "articles"
	TopicEmails   = "emails"
	// TopicAll receives every event
	TopicAll = "all"
)

// Event types published by the hub itself
const (
	EventEmailArchived = "email_archived"
	EventEmailReplayed = "email_replayed"
)

var topicsByEvent = map[string]string{
	"article_created":   TopicArticles,
	"article_processed": TopicArticles,
	EventEmailArchived:  TopicEmails,
	EventEmailReplayed:  TopicEmails,
}

// validTopic reports whether a client may subscribe to topic
func validTopic(topic string) bool {
	return topic == TopicArticles || topic == TopicEmails || topic == TopicAll
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    MessageType `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Event   string      `json:"event,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
	SentAt  string      `json:"sent_at,omitempty"`
}

// EmailPayload is sent with email events
type EmailPayload struct {
	ID        uint             `json:"id"`
	Type      models.EmailType `json:"type"`
	Processed *bool            `json:"processed,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Hub maintains the set of active clients and broadcasts pipeline events
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Topic subscriptions: topic -> set of clients
	subscriptions map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe to topic
	subscribe chan *subscriptionRequest

	// Unsubscribe from topic
	unsubscribeTopic chan *subscriptionRequest

	// Broadcast to topic subscribers
	broadcast chan *broadcastMessage

	stop chan struct{}
	once sync.Once

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

type broadcastMessage struct {
	topic   string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:          make(map[*Client]bool),
		subscriptions:    make(map[string]map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		subscribe:        make(chan *subscriptionRequest),
		unsubscribeTopic: make(chan *subscriptionRequest),
		broadcast:        make(chan *broadcastMessage, 256),
		stop:             make(chan struct{}),
		logger:           logger.With("component", "websocket"),
	}
}

// Run starts the hub's main loop and returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.subscriptions = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", slog.String("client_id", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Remove from all subscriptions
				for topic, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, topic)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", slog.String("client_id", client.id))

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.topic] == nil {
				h.subscriptions[req.topic] = make(map[*Client]bool)
			}
			h.subscriptions[req.topic][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", slog.String("client_id", req.client.id), slog.String("topic", req.topic))

		case req := <-h.unsubscribeTopic:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.topic]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.topic)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", slog.String("client_id", req.client.id), slog.String("topic", req.topic))

		case msg := <-h.broadcast:
			h.mu.RLock()
			delivered := make(map[*Client]bool)
			for _, topic := range []string{msg.topic, TopicAll} {
				for client := range h.subscriptions[topic] {
					if delivered[client] {
						continue
					}
					delivered[client] = true
					select {
					case client.send <- msg.message:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends the main loop and closes every client
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// Subscribe subscribes a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.stop:
	}
}

// Unsubscribe unsubscribes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	select {
	case h.unsubscribeTopic <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.stop:
	}
}

// Publish broadcasts an event to the subscribers of its topic. It never
// blocks; events are dropped while the broadcast queue is full.
func (h *Hub) Publish(eventType string, payload interface{}) {
	topic, ok := topicsByEvent[eventType]
	if !ok {
		topic = TopicAll
	}
	msg := WSMessage{
		Type:    MessageTypeEvent,
		Topic:   topic,
		Event:   eventType,
		Payload: payload,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{topic: topic, message: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping event", slog.String("event", eventType))
	}
}

// EmailArchived publishes an email_archived event
func (h *Hub) EmailArchived(id uint, emailType models.EmailType) {
	h.Publish(EventEmailArchived, EmailPayload{ID: id, Type: emailType})
}

// EmailReplayed publishes an email_replayed event
func (h *Hub) EmailReplayed(id uint, outcome models.ProcessingOutcome) {
	processed := outcome.Processed
	h.Publish(EventEmailReplayed, EmailPayload{ID: id, Type: outcome.Type, Processed: &processed, Error: outcome.Error})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
