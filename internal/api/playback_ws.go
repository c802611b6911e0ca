// internal/api/playback_ws.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/player"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 分享链接会从任意来源打开播放页
		return true
	},
}

// 客户端角色：宿主发布播放状态，观众只接收
const (
	RoleHost   = "host"
	RoleViewer = "viewer"
)

// PlaybackClient 一条播放同步WebSocket连接
type PlaybackClient struct {
	conn      *websocket.Conn
	projectID string
	role      string
	send      chan []byte
	closed    int32 // 原子标志，0=开启，1=关闭
	lastPing  time.Time
	createdAt time.Time
}

// Close 安全关闭客户端连接
func (client *PlaybackClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *PlaybackClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// playbackRoom 一个项目的播放房间：至多一个宿主，任意多个观众
type playbackRoom struct {
	host      *PlaybackClient
	viewers   map[*PlaybackClient]bool
	lastState []byte // 宿主最近一次发布的状态，新观众进场先补发
}

// PlaybackManager 管理所有播放同步房间
type PlaybackManager struct {
	rooms       map[string]*playbackRoom // projectID -> room
	mutex       sync.RWMutex
	pingTimeout time.Duration
}

// 全局播放同步管理器
var playbackManager = &PlaybackManager{
	rooms:       make(map[string]*playbackRoom),
	pingTimeout: 60 * time.Second,
}

// Join 客户端进入房间
// 宿主位被占用时顶替旧宿主，避免刷新页面后房间卡死
// 查找/创建房间和成员变更必须在同一个临界区内完成，
// 分两次加锁会让Leave的空房回收把刚建好的房间删掉，新成员困在孤儿房间里
func (m *PlaybackManager) Join(client *PlaybackClient) {
	m.mutex.Lock()
	room, ok := m.rooms[client.projectID]
	if !ok {
		room = &playbackRoom{viewers: make(map[*PlaybackClient]bool)}
		m.rooms[client.projectID] = room
	}

	var replaced *PlaybackClient
	if client.role == RoleHost {
		replaced = room.host
		room.host = client
	} else {
		room.viewers[client] = true
	}
	lastState := room.lastState
	m.mutex.Unlock()

	if replaced != nil {
		replaced.Close()
	}

	// 新观众先同步到宿主最近的状态
	if client.role == RoleViewer && lastState != nil {
		client.trySend(lastState)
	}

	utils.Infof("播放房间 %s: %s 接入", client.projectID, client.role)
}

// Leave 客户端离开房间，房间空了就回收
func (m *PlaybackManager) Leave(client *PlaybackClient) {
	m.mutex.Lock()
	room, ok := m.rooms[client.projectID]
	if ok {
		if room.host == client {
			room.host = nil
		}
		delete(room.viewers, client)
		if room.host == nil && len(room.viewers) == 0 {
			delete(m.rooms, client.projectID)
		}
	}
	m.mutex.Unlock()

	client.Close()
}

// Publish 宿主发布播放状态，转发给房间内所有观众
func (m *PlaybackManager) Publish(projectID string, message []byte) {
	m.mutex.Lock()
	room, ok := m.rooms[projectID]
	if !ok {
		m.mutex.Unlock()
		return
	}
	room.lastState = message
	viewers := make([]*PlaybackClient, 0, len(room.viewers))
	for viewer := range room.viewers {
		viewers = append(viewers, viewer)
	}
	m.mutex.Unlock()

	for _, viewer := range viewers {
		viewer.trySend(message)
	}
}

// trySend 非阻塞发送：队列满时丢掉最旧的一条再放入
// 播放进度只有最新一条有意义，落后的观众直接跳到最新状态
func (client *PlaybackClient) trySend(message []byte) {
	if client.IsClosed() {
		return
	}

	select {
	case client.send <- message:
	default:
		select {
		case <-client.send:
		default:
		}
		select {
		case client.send <- message:
		default:
		}
	}
}

// GetStatus 返回当前房间概况（调试用）
func (m *PlaybackManager) GetStatus() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make(map[string]interface{}, len(m.rooms))
	total := 0
	for projectID, room := range m.rooms {
		viewers := len(room.viewers)
		total += viewers
		if room.host != nil {
			total++
		}
		rooms[projectID] = map[string]interface{}{
			"has_host": room.host != nil,
			"viewers":  viewers,
		}
	}

	return map[string]interface{}{
		"rooms":             rooms,
		"room_count":        len(m.rooms),
		"total_connections": total,
	}
}

// ServePlayback 升级连接并按角色进入读写循环
func (m *PlaybackManager) ServePlayback(w http.ResponseWriter, r *http.Request, projectID, role string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &PlaybackClient{
		conn:      conn,
		projectID: projectID,
		role:      role,
		send:      make(chan []byte, 8),
		lastPing:  time.Now(),
		createdAt: time.Now(),
	}

	m.Join(client)

	go m.writeLoop(client)
	go m.readLoop(client)

	return nil
}

// readLoop 读取客户端消息
// 宿主的播放状态经校验后发布；观众的消息只用来维持连接
func (m *PlaybackManager) readLoop(client *PlaybackClient) {
	defer m.Leave(client)

	client.conn.SetReadDeadline(time.Now().Add(m.pingTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.lastPing = time.Now()
		client.conn.SetReadDeadline(time.Now().Add(m.pingTimeout))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(m.pingTimeout))

		if client.role != RoleHost {
			continue
		}

		var msg player.PlaybackMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			utils.Warnf("播放房间 %s: 丢弃无法解析的宿主消息: %v", client.projectID, err)
			continue
		}

		switch msg.Type {
		case player.MessageTimeUpdate, player.MessagePlay, player.MessagePause:
			m.Publish(client.projectID, data)
		default:
			utils.Warnf("播放房间 %s: 丢弃未知消息类型 %q", client.projectID, msg.Type)
		}
	}
}

// writeLoop 向客户端写消息并定期ping
func (m *PlaybackManager) writeLoop(client *PlaybackClient) {
	ticker := time.NewTicker(m.pingTimeout / 3)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
