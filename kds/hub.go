package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/line-order/utils"
)

// Event types pushed to the back-office order desk.
const (
	EventOrderSubmitted        = "order_submitted"
	EventOrderSettled          = "order_settled"
	EventPaymentRequested      = "payment_requested"
	EventPaymentRequestExpired = "payment_request_expired"
	EventCustomerNotified      = "customer_notified"
	EventCustomerRegistered    = "customer_registered"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	role string
	send chan []byte
}

// Hub fans order desk events out to every connected staff client. Each
// client has its own writer goroutine, so a stalled browser never holds up
// Broadcast.
type Hub struct {
	clients map[Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[Conn]*client),
	}
}

func (h *Hub) Register(conn Conn, role string) {
	c := &client{role: role, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	if old, ok := h.clients[conn]; ok {
		close(old.send)
	}
	h.clients[conn] = c
	h.mutex.Unlock()

	go h.writePump(conn, c)
}

func (h *Hub) Unregister(conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dropLocked(conn)
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast queues one event for every client. A client whose queue is full
// is dropped.
func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			utils.ErrorLogger.Printf("Dropping slow %s client", c.role)
			h.dropLocked(conn)
		}
	}
	utils.InfoLogger.Debugf("Broadcast %s to %d clients", event, len(h.clients))
}

func (h *Hub) writePump(conn Conn, c *client) {
	for payload := range c.send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("Dropping %s client after write error: %v", c.role, err)
			h.Unregister(conn)
			return
		}
	}
}

func (h *Hub) dropLocked(conn Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
}
