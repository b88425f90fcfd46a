// Package realtime pushes rental status changes to connected dashboards over websockets.
package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/middleware"

	"github.com/gorilla/websocket"
)

// Event types
const (
	EventRentalCancelled = "rental.cancelled"
	EventRentalActivated = "rental.activated"
	EventDocumentStatus  = "rental.document_status"
)

type Event struct {
	Type     string    `json:"type"`
	TenantID string    `json:"tenant_id"`
	RentalID string    `json:"rental_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans events out to the websocket clients of the event's tenant
type Hub struct {
	clientsMux sync.Mutex
	clients    map[*websocket.Conn]string
	broadcast  chan Event
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]string),
		broadcast: make(chan Event, 64),
	}
}

// Publish queues an event; it never blocks the caller and drops when the queue is full
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case h.broadcast <- e:
	default:
		log.Printf("[Realtime] Queue full, dropping %s for rental %s", e.Type, e.RentalID)
	}
}

// Run delivers queued events until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case e := <-h.broadcast:
			h.deliver(e)
		}
	}
}

func (h *Hub) deliver(e Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client, tenantID := range h.clients {
		if tenantID != e.TenantID {
			continue
		}
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteJSON(e); err != nil {
			client.Close()
			delete(h.clients, client)
			metrics.RealtimeClients.Dec()
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
		metrics.RealtimeClients.Dec()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades an authenticated request and keeps the client until it disconnects
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant required", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Realtime] Upgrade failed: %v", err)
		return
	}

	h.clientsMux.Lock()
	h.clients[conn] = tenantID
	h.clientsMux.Unlock()
	metrics.RealtimeClients.Inc()

	// Clients only listen; reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				metrics.RealtimeClients.Dec()
			}
			h.clientsMux.Unlock()
			conn.Close()
			return
		}
	}
}
