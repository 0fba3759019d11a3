// Package feed streams received exchanges to websocket subscribers.
package feed

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whookdev/echoprobe/internal/models"
)

const (
	sendBuffer   = 16
	pingInterval = 20 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	subs   map[string]*subscriber
	subsMu sync.RWMutex
}

type subscriber struct {
	id     string
	conn   *websocket.Conn
	send   chan *models.Exchange
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "feed"),
		subs:   make(map[string]*subscriber),
		upgrader: websocket.Upgrader{
			// Local tool; the watch port is bound to the configured host only.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Subscribers reports how many connections are currently attached.
func (h *Hub) Subscribers() int {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	return len(h.subs)
}

// Publish hands ex to every subscriber. Slow subscribers lose messages rather
// than blocking the echo handler.
func (h *Hub) Publish(ex *models.Exchange) {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()

	for _, s := range h.subs {
		select {
		case s.send <- ex:
		default:
			s.logger.Warn("dropped exchange - channel full",
				"request_id", ex.RequestID)
		}
	}
}

// ServeHTTP upgrades the connection and blocks until the subscriber leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	s := &subscriber{
		id:     id,
		conn:   conn,
		send:   make(chan *models.Exchange, sendBuffer),
		logger: h.logger.With("subscriber_id", id),
	}

	h.subsMu.Lock()
	h.subs[id] = s
	h.subsMu.Unlock()

	defer func() {
		h.subsMu.Lock()
		delete(h.subs, id)
		h.subsMu.Unlock()
	}()

	s.logger.Info("subscriber attached")

	if err := s.handle(); err != nil {
		s.logger.Error("subscriber connection error", "error", err)
	} else {
		s.logger.Info("subscriber detached")
	}
}

func (s *subscriber) handle() error {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	readError := make(chan error, 1)
	go func() {
		readError <- s.readPump()
	}()

	for {
		select {
		case err := <-readError:
			return err

		case ex := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(ex); err != nil {
				return fmt.Errorf("writing exchange: %w", err)
			}

		case <-pingTicker.C:
			if err := s.conn.WriteControl(
				websocket.PingMessage,
				[]byte{},
				time.Now().Add(writeTimeout),
			); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		}
	}
}

// readPump only watches for close and pong frames; subscribers do not send data.
func (s *subscriber) readPump() error {
	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				return fmt.Errorf("websocket read error: %w", err)
			}
			return nil
		}
	}
}
