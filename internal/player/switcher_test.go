// internal/player/switcher_test.go
package player

import (
	"fmt"
	"testing"
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// recordingSink 记录收到的全部指令
type recordingSink struct {
	calls []string
	fail  bool
}

func (s *recordingSink) ShowScene(id string) error {
	s.calls = append(s.calls, "show:"+id)
	if s.fail {
		return fmt.Errorf("注入的失败")
	}
	return nil
}

func (s *recordingSink) HideScene(id string) error {
	s.calls = append(s.calls, "hide:"+id)
	if s.fail {
		return fmt.Errorf("注入的失败")
	}
	return nil
}

func (s *recordingSink) SeekTimeline(id string, localTime float64) error {
	s.calls = append(s.calls, fmt.Sprintf("seek:%s@%.2f", id, localTime))
	if s.fail {
		return fmt.Errorf("注入的失败")
	}
	return nil
}

func (s *recordingSink) last() string {
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1]
}

func testTable() []models.SceneEntry {
	return []models.SceneEntry{
		{SceneID: "ctl-scene-1", AbsoluteStart: 0, AbsoluteEnd: 3},
		{SceneID: "ctl-scene-2", AbsoluteStart: 3, AbsoluteEnd: 7},
		{SceneID: "ctl-scene-3", AbsoluteStart: 7, AbsoluteEnd: 10},
	}
}

// expired 让切换器的宽限窗口立即过期
func expired(s *Switcher) *Switcher {
	s.now = func() time.Time { return s.bootedAt.Add(startupGrace + time.Second) }
	return s
}

func TestSwitcherSweep(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))

	// 以0.5秒步长扫完整条时间轴，每个时刻都必须落在正确的场景
	for tick := 0.0; tick < 10.0; tick += 0.5 {
		s.Update(tick)

		var want string
		switch {
		case tick < 3:
			want = "ctl-scene-1"
		case tick < 7:
			want = "ctl-scene-2"
		default:
			want = "ctl-scene-3"
		}
		if got := s.ActiveScene(); got != want {
			t.Errorf("t=%.1f 期望场景 %s，得到 %s", tick, want, got)
		}
	}
}

// TestSwitcherBoundaryHalfOpen 区间是左闭右开的：t恰好等于边界时属于后一个场景
func TestSwitcherBoundaryHalfOpen(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))

	s.Update(3.0)
	if got := s.ActiveScene(); got != "ctl-scene-2" {
		t.Errorf("t=3.0 应该属于ctl-scene-2，得到 %s", got)
	}

	s.Update(10.0)
	if got := s.ActiveScene(); got != "" {
		t.Errorf("t=10.0 超出最后一个场景，应该无活跃场景，得到 %s", got)
	}
}

func TestSwitcherRelativeSeek(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))

	s.Update(4.5)
	if got := sink.last(); got != "seek:ctl-scene-2@1.50" {
		t.Errorf("seek应该用场景本地时间，得到: %s", got)
	}
}

// TestSwitcherSameSceneReseek 同一场景内的时间更新也要重新seek
func TestSwitcherSameSceneReseek(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))

	s.Update(1.0)
	s.Update(1.5)
	s.Update(1.2) // 往回跳也一样

	want := []string{
		"show:ctl-scene-1",
		"seek:ctl-scene-1@1.00",
		"seek:ctl-scene-1@1.50",
		"seek:ctl-scene-1@1.20",
	}
	if len(sink.calls) != len(want) {
		t.Fatalf("期望 %d 条指令，得到 %d: %v", len(want), len(sink.calls), sink.calls)
	}
	for i, w := range want {
		if sink.calls[i] != w {
			t.Errorf("指令 %d 期望 %s，得到 %s", i, w, sink.calls[i])
		}
	}
}

func TestSwitcherBackwardJumpAcrossScenes(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))

	s.Update(8.0)
	s.Update(1.0)

	if got := s.ActiveScene(); got != "ctl-scene-1" {
		t.Errorf("往回跳后应该回到ctl-scene-1，得到 %s", got)
	}
	if got := sink.last(); got != "seek:ctl-scene-1@1.00" {
		t.Errorf("往回跳后seek指令错误: %s", got)
	}
}

func TestSwitcherGapHidesScene(t *testing.T) {
	table := []models.SceneEntry{
		{SceneID: "ctl-scene-1", AbsoluteStart: 0, AbsoluteEnd: 2},
		{SceneID: "ctl-scene-2", AbsoluteStart: 5, AbsoluteEnd: 8},
	}
	sink := &recordingSink{}
	s := expired(NewSwitcher(table, sink))

	s.Update(1.0)
	s.Update(3.0) // 空档
	if got := s.ActiveScene(); got != "" {
		t.Errorf("空档时刻不应该有活跃场景，得到 %s", got)
	}
	if got := sink.last(); got != "hide:ctl-scene-1" {
		t.Errorf("进入空档应该隐藏上一个场景，得到: %s", got)
	}
}

// TestSwitcherOverlapFirstWins 区间重叠时场景表里靠前的场景优先
func TestSwitcherOverlapFirstWins(t *testing.T) {
	table := []models.SceneEntry{
		{SceneID: "ctl-scene-1", AbsoluteStart: 0, AbsoluteEnd: 5},
		{SceneID: "ctl-scene-2", AbsoluteStart: 3, AbsoluteEnd: 8},
	}
	sink := &recordingSink{}
	s := expired(NewSwitcher(table, sink))

	s.Update(4.0)
	if got := s.ActiveScene(); got != "ctl-scene-1" {
		t.Errorf("重叠区间应该由靠前的场景胜出，得到 %s", got)
	}

	s.Update(6.0)
	if got := s.ActiveScene(); got != "ctl-scene-2" {
		t.Errorf("离开重叠区后应该切到后一个场景，得到 %s", got)
	}
}

func TestSwitcherStartupGrace(t *testing.T) {
	table := []models.SceneEntry{
		{SceneID: "ctl-scene-1", AbsoluteStart: 2, AbsoluteEnd: 5},
	}
	sink := &recordingSink{}
	s := NewSwitcher(table, sink)

	s.Start()
	if got := s.ActiveScene(); got != "ctl-scene-1" {
		t.Errorf("启动后应该强制展示第一个场景，得到 %s", got)
	}

	// 宽限窗口内，落在空档的时刻仍然保持第一个场景
	s.Update(0.5)
	if got := s.ActiveScene(); got != "ctl-scene-1" {
		t.Errorf("宽限窗口内应该保持第一个场景，得到 %s", got)
	}

	// 宽限过期后恢复正常规则
	expired(s)
	s.Update(0.5)
	if got := s.ActiveScene(); got != "" {
		t.Errorf("宽限过期后空档时刻不应该有活跃场景，得到 %s", got)
	}
}

// TestSwitcherSinkErrorsSwallowed 指令失败不影响状态机推进
func TestSwitcherSinkErrorsSwallowed(t *testing.T) {
	sink := &recordingSink{fail: true}
	s := expired(NewSwitcher(testTable(), sink))

	s.Update(1.0)
	s.Update(4.0)

	if got := s.ActiveScene(); got != "ctl-scene-2" {
		t.Errorf("指令失败时状态机仍然应该推进，得到 %s", got)
	}
}

func TestSwitcherEmptyTable(t *testing.T) {
	sink := &recordingSink{}
	s := NewSwitcher(nil, sink)

	s.Start()
	s.Update(1.0)

	if got := s.ActiveScene(); got != "" {
		t.Errorf("空场景表不应该有活跃场景，得到 %s", got)
	}
}
