// internal/service/notify/hub.go
package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"swiftlogistics/internal/pkg/session"
	"swiftlogistics/internal/service/order/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
		return true
	},
}

// Hub 维护所有活跃的 WebSocket 连接，并实现 port.LivePusher。
// 连接以 clientID 作为 Key，同一客户端重连时旧连接被顶替关闭。
// 推送给不在线的客户端是静默 no-op：实时通道尽力而为，
// 可靠投递由事件总线上的 delivery.updated 承担。
type Hub struct {
	nodeID     string
	sessionMgr *session.Manager

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

// NewHub 创建实时推送中心。nodeID 标识本网关节点，写入会话映射。
func NewHub(nodeID string, sessionMgr *session.Manager) *Hub {
	return &Hub{
		nodeID:     nodeID,
		sessionMgr: sessionMgr,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run 处理连接的注册与注销。长期运行，随进程退出。
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[client.clientID]; ok {
				// 同一客户端重连：旧连接顶替下线
				close(old.send)
			}
			h.clients[client.clientID] = client
			h.lock.Unlock()
			log.Printf("Client %s registered on node %s", client.clientID, h.nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			// 只注销还在表里的那个连接，被顶替的旧连接不触发清理
			if current, ok := h.clients[client.clientID]; ok && current == client {
				delete(h.clients, client.clientID)
				close(client.send)
				if h.sessionMgr != nil {
					if err := h.sessionMgr.DeleteUserGateway(context.Background(), client.clientID); err != nil {
						log.Printf("Failed to clear session for client %s: %v", client.clientID, err)
					}
				}
			}
			h.lock.Unlock()
			log.Printf("Client %s unregistered.", client.clientID)
		}
	}
}

// PushToClient 向指定客户端推送一条实时消息。
// 客户端不在线或发送缓冲已满都不是错误。
func (h *Hub) PushToClient(_ context.Context, clientID string, msg domain.LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// send channel 的关闭发生在写锁内；整个投递动作持读锁，
	// 保证不会向已关闭的 channel 发送。
	h.lock.RLock()
	defer h.lock.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return nil
	}

	select {
	case client.send <- data:
	default:
		// 缓冲满说明连接已经跟不上，丢弃本条，交给总线兜底
		log.Printf("Client %s send buffer full, dropping live message", clientID)
	}
	return nil
}

// ServeWS 处理 WebSocket 升级请求。客户端身份来自 URL 参数 client_id。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), clientID: clientID}
	h.register <- client

	// 在 Redis 中记录在线状态，供其它节点判断客户端是否在线
	if h.sessionMgr != nil {
		if err := h.sessionMgr.SetUserGateway(r.Context(), clientID, h.nodeID); err != nil {
			log.Printf("Failed to set session for client %s: %v", clientID, err)
			conn.Close()
			return
		}
	}

	go client.writePump()
	go client.readPump()
}
