package ws

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hszqf/SCP-sub000/internal/protocol"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
}

func TestHub_WelcomeAndBroadcast(t *testing.T) {
	notice := &protocol.ContentNotice{Type: protocol.TypeContent, ProtocolVersion: protocol.Version, Generation: "g1"}
	hub := NewHub(log.New(&bytes.Buffer{}, "", 0), func() *protocol.ContentNotice { return notice })
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	readJSON(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" || welcome.Content == nil || welcome.Content.Generation != "g1" {
		t.Fatalf("welcome=%+v", welcome)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(protocol.ContentNotice{Type: protocol.TypeContent, ProtocolVersion: protocol.Version, Generation: "g2"})
	var got protocol.ContentNotice
	readJSON(t, conn, &got)
	if got.Generation != "g2" {
		t.Fatalf("broadcast=%+v", got)
	}
}

func TestHub_RejectsNonHello(t *testing.T) {
	hub := NewHub(log.New(&bytes.Buffer{}, "", 0), nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "PING"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if hub.Clients() != 0 {
		t.Fatalf("clients=%d", hub.Clients())
	}
}
