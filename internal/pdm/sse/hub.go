package sse

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	// ProjectID 只接收该项目的事件，0 表示全部
	ProjectID uint
	Events    chan Event
}

// NewClient creates a client with a buffered event channel
func NewClient(userID string, projectID uint) *Client {
	return &Client{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Events:    make(chan Event, 64),
	}
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
	gauge   prometheus.Gauge
}

// NewHub creates a new SSE Hub. gauge may be nil.
func NewHub(logger *zap.Logger, gauge prometheus.Gauge) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		gauge:   gauge,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	if h.gauge != nil {
		h.gauge.Inc()
	}
	h.logger.Debug("sse client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	close(client.Events)
	delete(h.clients, clientID)
	if h.gauge != nil {
		h.gauge.Dec()
	}
	h.logger.Debug("sse client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish broadcasts a change event to the clients watching its project
func (h *Hub) Publish(e service.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("marshal sse event failed", zap.Error(err))
		return
	}
	event := Event{EventType: e.Type, Data: string(data)}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.ProjectID != 0 && e.ProjectID != 0 && client.ProjectID != e.ProjectID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("sse client buffer full, skipping event",
				zap.String("client_id", client.ID),
				zap.String("event", e.Type))
		}
	}
}
