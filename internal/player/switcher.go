// internal/player/switcher.go
package player

import (
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// 启动宽限窗口：尚未收到时间消息前强制展示第一个场景
const startupGrace = 1200 * time.Millisecond

// Sink 接收场景切换指令的目标
// 实现方可能是websocket连接、预览渲染器或测试桩；
// 指令失败只记日志不中断时间轴推进
type Sink interface {
	ShowScene(sceneID string) error
	HideScene(sceneID string) error
	// SeekTimeline 的localTime以场景自身起点为0
	SeekTimeline(sceneID string, localTime float64) error
}

// Switcher 场景切换状态机
// 场景区间是半开区间 [start, end)，重叠时场景表顺序靠前者优先；
// 每次Update都会对活跃场景重新seek，所以时间往回跳不需要特殊处理
type Switcher struct {
	table  []models.SceneEntry
	sink   Sink
	active int // 活跃场景在table中的下标，-1表示无活跃场景

	bootedAt time.Time
	now      func() time.Time
}

// NewSwitcher 创建切换器并进入启动宽限状态
func NewSwitcher(table []models.SceneEntry, sink Sink) *Switcher {
	s := &Switcher{
		table:  table,
		sink:   sink,
		active: -1,
		now:    time.Now,
	}
	s.bootedAt = s.now()
	return s
}

// Start 展示启动画面：第一个场景的起始帧
func (s *Switcher) Start() {
	if len(s.table) == 0 {
		return
	}
	s.activate(0, s.table[0].AbsoluteStart)
}

// Update 将时间轴推进到绝对时刻t
func (s *Switcher) Update(t float64) {
	next := s.findScene(t)

	// 宽限窗口内时刻落在空档时保持第一个场景，避免启动瞬间黑屏
	if next < 0 && s.inGrace() && len(s.table) > 0 {
		next = 0
	}

	if next < 0 {
		s.deactivate()
		return
	}

	s.activate(next, t)
}

// ActiveScene 返回当前活跃场景的ID，无活跃场景时返回空串
func (s *Switcher) ActiveScene() string {
	if s.active < 0 {
		return ""
	}
	return s.table[s.active].SceneID
}

// findScene 返回包含时刻t的第一个场景下标，没有则返回-1
func (s *Switcher) findScene(t float64) int {
	for i, entry := range s.table {
		if t >= entry.AbsoluteStart && t < entry.AbsoluteEnd {
			return i
		}
	}
	return -1
}

func (s *Switcher) inGrace() bool {
	return s.now().Sub(s.bootedAt) < startupGrace
}

func (s *Switcher) activate(index int, t float64) {
	entry := s.table[index]

	if s.active != index {
		if s.active >= 0 {
			if err := s.sink.HideScene(s.table[s.active].SceneID); err != nil {
				utils.Warnf("隐藏场景 %s 失败: %v", s.table[s.active].SceneID, err)
			}
		}
		s.active = index
		if err := s.sink.ShowScene(entry.SceneID); err != nil {
			utils.Warnf("展示场景 %s 失败: %v", entry.SceneID, err)
		}
	}

	// 同一场景内也要重新seek，本地时间是t相对场景起点的偏移
	if err := s.sink.SeekTimeline(entry.SceneID, t-entry.AbsoluteStart); err != nil {
		utils.Warnf("场景 %s seek失败: %v", entry.SceneID, err)
	}
}

func (s *Switcher) deactivate() {
	if s.active < 0 {
		return
	}
	if err := s.sink.HideScene(s.table[s.active].SceneID); err != nil {
		utils.Warnf("隐藏场景 %s 失败: %v", s.table[s.active].SceneID, err)
	}
	s.active = -1
}
