// Package realtime 通过 WebSocket 向已连接客户端推送在馆人数快照。
//
// 推送内容只包含人数、容量、占用率与拥挤等级，不含会员身份。
package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gympulse/backend/pkg/occupancy"
)

const (
	// EventLiveAttendance 在馆快照事件名
	EventLiveAttendance = "LIVE_ATTENDANCE"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 8
)

// Message 推送消息
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// client 单个连接；写操作只在 writePump 协程中进行
type client struct {
	conn   *websocket.Conn
	send   chan Message
	userID uint
}

// Hub 维护连接集合并广播快照
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *zap.Logger
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Publish 向所有客户端广播快照；发送缓冲已满的客户端被断开
func (h *Hub) Publish(snapshot occupancy.Snapshot) {
	msg := Message{Event: EventLiveAttendance, Data: snapshot}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("WebSocket 客户端发送缓冲已满，断开连接", zap.Uint("user_id", c.userID))
			h.removeLocked(c)
		}
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve 接管已升级的连接，阻塞直至连接关闭；initial 非空时先推送一次
func (h *Hub) Serve(conn *websocket.Conn, userID uint, initial *occupancy.Snapshot) {
	c := &client{conn: conn, send: make(chan Message, sendBuffer), userID: userID}
	if initial != nil {
		c.send <- Message{Event: EventLiveAttendance, Data: *initial}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("WebSocket 客户端已连接", zap.Uint("user_id", userID))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump 只处理控制帧；客户端消息被丢弃
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Debug("WebSocket 客户端已断开", zap.Uint("user_id", c.userID))
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket 读取失败", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("WebSocket 写入失败", zap.Error(err))
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
