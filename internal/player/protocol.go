// internal/player/protocol.go
package player

import (
	"context"
	"sync"
)

// 播放同步消息类型
// 同步是单向的：宿主播放器发布，合成文档订阅，文档永远不会反向控制播放
const (
	MessageTimeUpdate = "timeupdate"
	MessagePlay       = "play"
	MessagePause      = "pause"
)

// PlaybackMessage 宿主播放器发出的同步消息
type PlaybackMessage struct {
	Type string  `json:"type"`
	// Time 是主时间轴上的绝对时刻（秒），仅timeupdate携带
	Time float64 `json:"time,omitempty"`
}

// Coalescer 同步消息的最新值合并器
// 消费侧慢于发布侧时中间消息直接丢弃，只保留最新一条——
// 画面是时刻的纯函数，错过的中间时刻不需要补播，也绝不缓冲排队
type Coalescer struct {
	mutex  sync.Mutex
	latest *PlaybackMessage
	ready  bool
	signal chan struct{}
}

// NewCoalescer 创建合并器，初始处于未就绪状态
func NewCoalescer() *Coalescer {
	return &Coalescer{
		signal: make(chan struct{}, 1),
	}
}

// SetReady 标记消费侧已就绪
// 就绪前发布的消息全部丢弃：文档尚未完成初始化时套用旧时刻没有意义
func (c *Coalescer) SetReady() {
	c.mutex.Lock()
	c.ready = true
	c.mutex.Unlock()
}

// Publish 发布一条消息，覆盖尚未被消费的旧消息
func (c *Coalescer) Publish(msg PlaybackMessage) {
	c.mutex.Lock()
	if !c.ready {
		c.mutex.Unlock()
		return
	}
	c.latest = &msg
	c.mutex.Unlock()

	// 信号通道容量为1：消费侧只需要知道"有新消息"，不需要知道有几条
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Next 阻塞等待下一条消息
func (c *Coalescer) Next(ctx context.Context) (PlaybackMessage, error) {
	for {
		c.mutex.Lock()
		if c.latest != nil {
			msg := *c.latest
			c.latest = nil
			c.mutex.Unlock()
			return msg, nil
		}
		c.mutex.Unlock()

		select {
		case <-c.signal:
		case <-ctx.Done():
			return PlaybackMessage{}, ctx.Err()
		}
	}
}

// TryNext 非阻塞取走最新消息
func (c *Coalescer) TryNext() (PlaybackMessage, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.latest == nil {
		return PlaybackMessage{}, false
	}
	msg := *c.latest
	c.latest = nil
	return msg, true
}

// Controller 把同步消息应用到场景切换器
type Controller struct {
	switcher *Switcher
	mutex    sync.Mutex
	playing  bool
}

// NewController 创建播放控制器
func NewController(switcher *Switcher) *Controller {
	return &Controller{switcher: switcher}
}

// Apply 应用一条同步消息
func (c *Controller) Apply(msg PlaybackMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch msg.Type {
	case MessageTimeUpdate:
		c.switcher.Update(msg.Time)
	case MessagePlay:
		c.playing = true
	case MessagePause:
		c.playing = false
	}
}

// ActiveScene 返回切换器当前的活跃场景ID
func (c *Controller) ActiveScene() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.switcher.ActiveScene()
}

// Playing 返回宿主播放器最近报告的播放状态
func (c *Controller) Playing() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.playing
}

// Run 持续消费合并器的消息直到上下文取消
func (c *Controller) Run(ctx context.Context, coalescer *Coalescer) error {
	for {
		msg, err := coalescer.Next(ctx)
		if err != nil {
			return err
		}
		c.Apply(msg)
	}
}
