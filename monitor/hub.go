package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"carnot/result"
	"carnot/solver"
)

// 消息类型
const (
	TypeStep   = "step"   // 一步迭代
	TypeResult = "result" // 求解结束
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Message 推送到浏览器的消息
type Message struct {
	Type     string           `json:"type"`
	Step     *solver.Step     `json:"step,omitempty"`
	Snapshot *result.Snapshot `json:"snapshot,omitempty"`
}

// client 单个连接, 写操作只在自己的协程中进行
type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub 维护连接并广播迭代进度
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	last    *result.Snapshot
	log     *log.Entry
}

// NewHub 创建广播中心
func NewHub(entry *log.Entry) *Hub {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &Hub{clients: map[*client]bool{}, log: entry}
}

// Observe 求解器回调, 慢连接丢弃消息而不阻塞求解
func (h *Hub) Observe(step solver.Step) {
	h.broadcast(Message{Type: TypeStep, Step: &step})
}

// Publish 发布求解结果
func (h *Hub) Publish(snap *result.Snapshot) {
	h.mu.Lock()
	h.last = snap
	h.mu.Unlock()
	h.broadcast(Message{Type: TypeResult, Snapshot: snap})
}

// Last 最近一次结果
func (h *Hub) Last() *result.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Clients 当前连接数
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("remote", c.conn.RemoteAddr().String()).Warn("连接过慢, 丢弃消息")
		}
	}
}

// attach 注册连接, 已有结果时先推送结果
func (h *Hub) attach(ctx context.Context, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- Message{Type: TypeResult, Snapshot: h.last}
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.read(c, done)
	h.write(ctx, c, done)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	conn.Close()
}

// read 只用于发现连接关闭
func (h *Hub) read(c *client, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) write(ctx context.Context, c *client, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case <-done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(&msg); err != nil {
				h.log.WithError(err).Warn("推送失败")
				return
			}
		}
	}
}
