// Package websocket 向前端推送信件生命周期事件。
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event 推送给客户端的事件
type Event struct {
	Type      string         `json:"type"`
	Letter    *domain.Letter `json:"letter,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Client 一个已认证的 WebSocket 连接
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	userID string
	role   domain.UserRole
}

// Hub 管理所有 WebSocket 连接并按可见性分发事件
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	events     chan *Event
	mu         sync.RWMutex
	log        *zap.Logger
	upgrader   websocket.Upgrader
}

// NewHub 创建 WebSocket Hub
func NewHub(allowedOrigins []string, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *Event, 256),
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Run 启动事件分发循环，ctx 取消时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.log.Debug("websocket client connected",
				zap.String("client_id", client.id),
				zap.String("user_id", client.userID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.events:
			h.dispatch(event)
		}
	}
}

// LetterEvent 实现 service.Notifier，将信件事件入队
func (h *Hub) LetterEvent(event string, letter *domain.Letter) {
	select {
	case h.events <- &Event{Type: event, Letter: letter, Timestamp: time.Now()}:
	default:
		h.log.Warn("websocket event queue full, dropping event",
			zap.String("event", event),
		)
	}
}

// dispatch 将事件发给所有有权查看该信件的客户端。
// staff 只收到自己登记的信件的事件。
func (h *Hub) dispatch(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if event.Letter != nil {
			viewer := &domain.User{ID: client.userID, Role: client.role}
			if !viewer.CanAccessLetter(event.Letter) {
				continue
			}
		}
		select {
		case client.send <- payload:
		default:
			// 发送缓冲已满的客户端视为失联
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, id)
	}
}

// HandleConnection 处理 WebSocket 升级请求。
// 认证复用 HTTP 的 JWT 中间件，未认证的请求在路由层已被拒绝。
func (h *Hub) HandleConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:     uuid.NewString(),
			conn:   conn,
			send:   make(chan []byte, 64),
			hub:    h,
			userID: user.ID,
			role:   user.Role,
		}

		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump 读取客户端消息，仅用于处理关闭与 pong
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump 将事件写出，并定期发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
