package net

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscriber is one websocket client of the live feed. Frames are queued
// on send and written by the subscriber's own goroutine.
type Subscriber struct {
	ID     uint64
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

// Close tears down the connection. Safe to call more than once.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// offer queues a frame without blocking. A subscriber that cannot keep up
// loses frames; the next snapshot supersedes them anyway.
func (s *Subscriber) offer(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Hub fans JSON snapshots out to every feed subscriber.
type Hub struct {
	store     *SubscriberStore
	upgrader  websocket.Upgrader
	queueSize int
	log       *zap.Logger
	nextID    atomic.Uint64

	mu     sync.RWMutex
	latest []byte

	dropped atomic.Uint64
}

func NewHub(queueSize int, log *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 16
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		store: NewSubscriberStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		queueSize: queueSize,
		log:       log,
	}
}

// Broadcast sends frame to every subscriber and keeps it for late joiners.
// Never blocks on a slow client.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	h.latest = frame
	h.mu.Unlock()
	h.store.ForEach(func(s *Subscriber) {
		if !s.offer(frame) {
			h.dropped.Add(1)
		}
	})
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int { return h.store.Len() }

// Dropped returns how many frames were skipped for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// ServeHTTP upgrades the request and streams snapshots until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("feed upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s := &Subscriber{
		ID:     h.nextID.Add(1),
		conn:   conn,
		send:   make(chan []byte, h.queueSize),
		closed: make(chan struct{}),
	}

	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()
	if latest != nil {
		s.offer(latest)
	}

	h.store.Add(s)
	h.log.Debug("feed subscriber joined", zap.Uint64("id", s.ID), zap.String("remote", r.RemoteAddr))

	go h.writeLoop(s)
	h.readLoop(s)

	h.store.Remove(s.ID)
	s.Close()
	h.log.Debug("feed subscriber left", zap.Uint64("id", s.ID))
}

// readLoop discards client frames; it exists to observe close and pongs.
func (h *Hub) readLoop(s *Subscriber) {
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.Close()
	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.store.ForEach(func(s *Subscriber) {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(writeWait))
		s.Close()
		h.store.Remove(s.ID)
	})
}

// NewServer serves the hub at /feed.
func NewServer(addr string, hub *Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/feed", hub)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
