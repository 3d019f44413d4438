package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hszqf/SCP-sub000/internal/protocol"
)

// Hub fans server notices out to websocket subscribers.
type Hub struct {
	log     *log.Logger
	current func() *protocol.ContentNotice

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	dropped atomic.Uint64
}

type client struct {
	id   string
	out  chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() { c.once.Do(func() { close(c.done) }) }

// NewHub returns a hub. current, when set, supplies the notice sent in each
// WELCOME.
func NewHub(logger *log.Logger, current func() *protocol.ContentNotice) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:     logger,
		current: current,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[*client]struct{}{},
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts messages skipped for subscribers whose queue was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Broadcast sends v to every subscriber without blocking.
func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Printf("[ws] broadcast marshal: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := h.handshake(conn)
		if c == nil {
			return
		}
		h.add(c)
		defer h.remove(c)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-c.done:
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop; subscribers only send keepalives.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Printf("[ws] subscriber %s connected (clients=%d)", c.id, n)
}

func (h *Hub) remove(c *client) {
	c.close()
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Printf("[ws] subscriber %s left (clients=%d)", c.id, n)
}

func (h *Hub) handshake(conn *websocket.Conn) *client {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	c := &client{
		id:   uuid.NewString(),
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       c.id,
	}
	if h.current != nil {
		welcome.Content = h.current()
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	return c
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
