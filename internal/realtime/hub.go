package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

const (
	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	// sendBuffer is the number of events queued per subscriber before it is dropped
	sendBuffer = 16
)

// subscriber is one websocket connection following one account
type subscriber struct {
	accountID string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// Hub fans account events out to websocket subscribers
// ⭐ SSOT: live dashboard pushes go through this hub only
type Hub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader
	clock    func() time.Time

	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clock: time.Now,
		subs:  make(map[string]map[*subscriber]struct{}),
	}
}

// Publish sends an event to every subscriber of accountID.
// A subscriber whose buffer is full is disconnected.
func (h *Hub) Publish(accountID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).WithField("event", event).Error("Failed to encode event payload")
		return
	}

	msg, err := json.Marshal(Event{
		Type:      event,
		AccountID: accountID,
		Data:      data,
		Timestamp: h.clock().UTC(),
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode event")
		return
	}

	h.mu.RLock()
	var slow []*subscriber
	for s := range h.subs[accountID] {
		select {
		case s.send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.WithAccount(accountID).Warn("Dropping slow dashboard subscriber")
		h.unregister(s)
	}
}

// Subscribers returns the number of live connections for accountID
func (h *Hub) Subscribers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}

// ServeWS upgrades the request and streams accountID's events until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, accountID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s := &subscriber{
		accountID: accountID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
	if !h.register(s) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.logger.WithAccount(accountID).Debug("Dashboard subscriber connected")

	go h.writeLoop(s)
	h.readLoop(s)
}

// Close disconnects every subscriber and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := h.subs
	h.subs = make(map[string]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for s := range set {
			s.close()
		}
	}
}

func (h *Hub) register(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	set, ok := h.subs[s.accountID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[s.accountID] = set
	}
	set[s] = struct{}{}
	return true
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.accountID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.accountID)
		}
	}
	h.mu.Unlock()

	s.close()
}

// readLoop only watches for pongs and the client going away
func (h *Hub) readLoop(s *subscriber) {
	defer h.unregister(s)

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithAccount(s.accountID).WithError(err).Debug("Dashboard subscriber read failed")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
