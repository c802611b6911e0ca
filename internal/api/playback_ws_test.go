// internal/api/playback_ws_test.go
package api

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestClient(projectID, role string) *PlaybackClient {
	return &PlaybackClient{
		projectID: projectID,
		role:      role,
		send:      make(chan []byte, 8),
		lastPing:  time.Now(),
		createdAt: time.Now(),
	}
}

func drain(c *PlaybackClient) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestPlaybackRoomBroadcast(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	host := newTestClient("proj_a", RoleHost)
	viewer1 := newTestClient("proj_a", RoleViewer)
	viewer2 := newTestClient("proj_a", RoleViewer)
	other := newTestClient("proj_b", RoleViewer)

	m.Join(host)
	m.Join(viewer1)
	m.Join(viewer2)
	m.Join(other)

	m.Publish("proj_a", []byte(`{"type":"timeupdate","time":1.5}`))

	if got := drain(viewer1); len(got) != 1 {
		t.Errorf("观众1应该收到1条消息，收到 %d", len(got))
	}
	if got := drain(viewer2); len(got) != 1 {
		t.Errorf("观众2应该收到1条消息，收到 %d", len(got))
	}
	// 其他项目的房间不受影响
	if got := drain(other); len(got) != 0 {
		t.Errorf("其他项目的观众不应该收到消息，收到 %d", len(got))
	}
	// 宿主自己不回显
	if got := drain(host); len(got) != 0 {
		t.Errorf("宿主不应该收到自己发布的消息，收到 %d", len(got))
	}
}

// TestPlaybackLateViewerGetsLastState 中途进场的观众先同步到最近状态
func TestPlaybackLateViewerGetsLastState(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	host := newTestClient("proj_a", RoleHost)
	m.Join(host)
	m.Publish("proj_a", []byte(`{"type":"timeupdate","time":42}`))

	late := newTestClient("proj_a", RoleViewer)
	m.Join(late)

	got := drain(late)
	if len(got) != 1 || string(got[0]) != `{"type":"timeupdate","time":42}` {
		t.Errorf("迟到的观众应该先收到最近状态，收到: %v", got)
	}
}

// TestPlaybackSlowViewerDropsStale 队列满的观众丢旧消息，只保留最新
func TestPlaybackSlowViewerDropsStale(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	host := newTestClient("proj_a", RoleHost)
	slow := newTestClient("proj_a", RoleViewer)
	slow.send = make(chan []byte, 1)

	m.Join(host)
	m.Join(slow)

	for i := 0; i < 5; i++ {
		m.Publish("proj_a", []byte(fmt.Sprintf(`{"type":"timeupdate","time":%d}`, i)))
	}

	got := drain(slow)
	if len(got) != 1 {
		t.Fatalf("慢观众的队列只应该留1条，收到 %d", len(got))
	}
	if string(got[0]) != `{"type":"timeupdate","time":4}` {
		t.Errorf("留下的应该是最新一条，得到: %s", got[0])
	}
}

func TestPlaybackHostReplacement(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	first := newTestClient("proj_a", RoleHost)
	second := newTestClient("proj_a", RoleHost)

	m.Join(first)
	m.Join(second)

	if !first.IsClosed() {
		t.Error("被顶替的旧宿主应该被关闭")
	}
	if second.IsClosed() {
		t.Error("新宿主不应该被关闭")
	}

	m.mutex.RLock()
	room := m.rooms["proj_a"]
	m.mutex.RUnlock()
	if room.host != second {
		t.Error("房间的宿主位应该换成新连接")
	}
}

func TestPlaybackRoomCleanup(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	host := newTestClient("proj_a", RoleHost)
	viewer := newTestClient("proj_a", RoleViewer)

	m.Join(host)
	m.Join(viewer)
	m.Leave(viewer)

	m.mutex.RLock()
	_, exists := m.rooms["proj_a"]
	m.mutex.RUnlock()
	if !exists {
		t.Fatal("还有宿主在场时房间不应该被回收")
	}

	m.Leave(host)

	m.mutex.RLock()
	_, exists = m.rooms["proj_a"]
	m.mutex.RUnlock()
	if exists {
		t.Error("房间空了应该被回收")
	}
}

// TestPlaybackRejoinAfterCleanup 房间被回收后再进场的连接必须落在注册表里的房间
// 不允许出现发布不可达的孤儿房间
func TestPlaybackRejoinAfterCleanup(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	first := newTestClient("proj_a", RoleHost)
	m.Join(first)
	m.Leave(first)

	viewer := newTestClient("proj_a", RoleViewer)
	m.Join(viewer)

	m.mutex.RLock()
	room := m.rooms["proj_a"]
	inRoom := room != nil && room.viewers[viewer]
	m.mutex.RUnlock()
	if !inRoom {
		t.Fatal("重新进场的观众必须在注册表里的房间中")
	}

	host := newTestClient("proj_a", RoleHost)
	m.Join(host)
	m.Publish("proj_a", []byte(`{"type":"play","time":0}`))

	if got := drain(viewer); len(got) != 1 {
		t.Errorf("发布应该到达重新进场的观众，收到 %d 条", len(got))
	}
}

// TestPlaybackJoinLeaveChurn 宿主高频进出触发空房回收时，同时进场的观众不能被遗落
func TestPlaybackJoinLeaveChurn(t *testing.T) {
	m := &PlaybackManager{rooms: make(map[string]*playbackRoom), pingTimeout: time.Minute}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			h := newTestClient("proj_a", RoleHost)
			m.Join(h)
			m.Leave(h)
		}
	}()

	for i := 0; i < 500; i++ {
		v := newTestClient("proj_a", RoleViewer)
		m.Join(v)

		m.mutex.RLock()
		room := m.rooms["proj_a"]
		inRoom := room != nil && room.viewers[v]
		m.mutex.RUnlock()
		if !inRoom {
			t.Fatalf("第 %d 个观众进场后不在注册表里的房间中", i)
		}

		m.Leave(v)
	}

	close(done)
	wg.Wait()
}
