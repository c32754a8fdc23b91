package net

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial feed: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(payload)
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(NewServer("", hub).Handler)
	t.Cleanup(srv.Close)

	a, b := dial(t, srv), dial(t, srv)
	waitFor(t, func() bool { return hub.Subscribers() == 2 })

	hub.Broadcast([]byte(`{"active":[]}`))
	if got := read(t, a); got != `{"active":[]}` {
		t.Fatalf("a got %s", got)
	}
	if got := read(t, b); got != `{"active":[]}` {
		t.Fatalf("b got %s", got)
	}
}

func TestLateSubscriberGetsLatestSnapshot(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	hub.Broadcast([]byte(`1`))
	hub.Broadcast([]byte(`2`))

	conn := dial(t, srv)
	if got := read(t, conn); got != `2` {
		t.Fatalf("got %s", got)
	}
}

func TestDisconnectRemovesSubscriber(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Subscribers() == 1 })
	conn.Close()
	waitFor(t, func() bool { return hub.Subscribers() == 0 })

	hub.Broadcast([]byte(`after`))
}

func TestSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(1, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	dial(t, srv) // never reads
	waitFor(t, func() bool { return hub.Subscribers() == 1 })

	done := make(chan struct{})
	go func() {
		frame := []byte(strings.Repeat("x", 64<<10))
		for i := 0; i < 200; i++ {
			hub.Broadcast(frame)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("broadcast blocked on a slow subscriber")
	}
	if hub.Dropped() == 0 {
		t.Fatalf("expected dropped frames")
	}
}

func TestCloseDisconnectsEveryone(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Subscribers() == 1 })
	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("connection still open after Close")
	}
}
