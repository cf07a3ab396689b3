package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"testwise_attempt/pkg/logger"
	"testwise_attempt/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	outboxSize     = 1024

	sessionEventChannel = "attempt_session_events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	hub     *SessionHub
	conn    *websocket.Conn
	send    chan []byte
	userID  uint
	testID  uint
	limiter *rate.Limiter
}

type inboundMessage struct {
	Type string `json:"type"`
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.userID))
			}
			break
		}

		if !c.limiter.Allow() {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "PING" {
			pong, _ := json.Marshal(SessionEvent{Type: "PONG", TestID: c.testID})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type hubShard struct {
	mu      sync.RWMutex
	clients map[uint]map[*wsClient]struct{}
}

// routedEvent is the unit exchanged between hub instances over Redis.
type routedEvent struct {
	UserID  uint            `json:"userId"`
	TestID  uint            `json:"testId"`
	Payload json.RawMessage `json:"payload"`
}

// SessionHub fans session events out to the websocket connections of the
// owning student. With Redis configured, events cross process boundaries so
// a connection may land on any instance.
type SessionHub struct {
	shards     [shardCount]*hubShard
	register   chan *wsClient
	unregister chan *wsClient
	outbox     chan routedEvent
	Redis      *redis.Client

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSessionHub(rdb *redis.Client) *SessionHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &SessionHub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		outbox:     make(chan routedEvent, outboxSize),
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &hubShard{clients: make(map[uint]map[*wsClient]struct{})}
	}
	return h
}

func (h *SessionHub) getShard(userID uint) *hubShard {
	return h.shards[userID%shardCount]
}

// Publish queues ev for delivery. It never blocks; events are dropped when
// the outbox is full.
func (h *SessionHub) Publish(ev SessionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("Session event marshal error", zap.Error(err), zap.String("type", ev.Type))
		return
	}
	select {
	case h.outbox <- routedEvent{UserID: ev.UserID, TestID: ev.TestID, Payload: payload}:
	default:
		logger.Log.Warn("Session event dropped", zap.String("type", ev.Type), zap.Uint("userId", ev.UserID))
	}
}

func (h *SessionHub) Navigate(nav Navigation) {
	h.Publish(SessionEvent{
		Type:   EventNavigate,
		UserID: nav.UserID,
		TestID: nav.TestID,
		Data:   nav,
	})
}

func (h *SessionHub) Run() {
	defer close(h.done)

	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, sessionEventChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var ev routedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.deliverLocal(ev)
			}
		}()
	}

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.userID)
			s.mu.Lock()
			set, ok := s.clients[client.userID]
			if !ok {
				set = make(map[*wsClient]struct{})
				s.clients[client.userID] = set
			}
			set[client] = struct{}{}
			s.mu.Unlock()
			monitoring.WSConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.userID)
			s.mu.Lock()
			if set, ok := s.clients[client.userID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					monitoring.WSConnections.Dec()
				}
				if len(set) == 0 {
					delete(s.clients, client.userID)
				}
			}
			s.mu.Unlock()

		case ev := <-h.outbox:
			h.dispatch(ev)

		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *SessionHub) dispatch(ev routedEvent) {
	if h.Redis == nil {
		h.deliverLocal(ev)
		return
	}
	payload, _ := json.Marshal(ev)
	if err := h.Redis.Publish(h.ctx, sessionEventChannel, payload).Err(); err != nil {
		logger.Log.Warn("Redis publish failed, delivering locally", zap.Error(err))
		h.deliverLocal(ev)
	}
}

func (h *SessionHub) deliverLocal(ev routedEvent) {
	s := h.getShard(ev.UserID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients[ev.UserID] {
		if ev.TestID != 0 && client.testID != ev.TestID {
			continue
		}
		select {
		case client.send <- ev.Payload:
		default:
		}
	}
}

func (h *SessionHub) closeAll() {
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, set := range s.clients {
			for client := range set {
				close(client.send)
				closed++
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}
	monitoring.WSConnections.Set(0)
	logger.Log.Info("SessionHub stopped", zap.Int("closedConnections", closed))
}

// Stop closes every connection and waits for Run to return.
func (h *SessionHub) Stop() {
	h.cancel()
	<-h.done
}

func (h *SessionHub) unregisterClient(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// ServeSessionWs upgrades the request and streams events for one student's
// session on testID.
func ServeSessionWs(hub *SessionHub, w http.ResponseWriter, r *http.Request, userID, testID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &wsClient{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  userID,
		testID:  testID,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	select {
	case hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
