// internal/player/protocol_test.go
package player

import (
	"context"
	"testing"
	"time"
)

func TestCoalescerDropsBeforeReady(t *testing.T) {
	c := NewCoalescer()

	// 就绪前发布的消息全部丢弃
	c.Publish(PlaybackMessage{Type: MessageTimeUpdate, Time: 1.0})
	if _, ok := c.TryNext(); ok {
		t.Error("就绪前的消息应该被丢弃")
	}

	c.SetReady()
	c.Publish(PlaybackMessage{Type: MessageTimeUpdate, Time: 2.0})
	msg, ok := c.TryNext()
	if !ok {
		t.Fatal("就绪后的消息应该可以取到")
	}
	if msg.Time != 2.0 {
		t.Errorf("期望时刻2.0，得到 %g", msg.Time)
	}
}

// TestCoalescerLatestWins 消费不及时只保留最新一条，不排队
func TestCoalescerLatestWins(t *testing.T) {
	c := NewCoalescer()
	c.SetReady()

	for i := 1; i <= 100; i++ {
		c.Publish(PlaybackMessage{Type: MessageTimeUpdate, Time: float64(i)})
	}

	msg, ok := c.TryNext()
	if !ok {
		t.Fatal("应该能取到消息")
	}
	if msg.Time != 100 {
		t.Errorf("应该只保留最后一条消息，得到时刻 %g", msg.Time)
	}

	if _, ok := c.TryNext(); ok {
		t.Error("取走后不应该还有积压消息")
	}
}

func TestCoalescerNextBlocking(t *testing.T) {
	c := NewCoalescer()
	c.SetReady()

	done := make(chan PlaybackMessage, 1)
	go func() {
		msg, err := c.Next(context.Background())
		if err != nil {
			return
		}
		done <- msg
	}()

	time.Sleep(20 * time.Millisecond)
	c.Publish(PlaybackMessage{Type: MessagePlay})

	select {
	case msg := <-done:
		if msg.Type != MessagePlay {
			t.Errorf("期望play消息，得到 %s", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Next没有被唤醒")
	}
}

func TestCoalescerNextContextCancel(t *testing.T) {
	c := NewCoalescer()
	c.SetReady()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Next(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Error("取消上下文后Next应该返回错误")
		}
	case <-time.After(time.Second):
		t.Fatal("Next没有响应上下文取消")
	}
}

func TestControllerApply(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))
	ctrl := NewController(s)

	ctrl.Apply(PlaybackMessage{Type: MessageTimeUpdate, Time: 4.0})
	if got := s.ActiveScene(); got != "ctl-scene-2" {
		t.Errorf("timeupdate应该推进切换器，得到 %s", got)
	}

	ctrl.Apply(PlaybackMessage{Type: MessagePlay})
	if !ctrl.Playing() {
		t.Error("play消息后应该处于播放状态")
	}

	ctrl.Apply(PlaybackMessage{Type: MessagePause})
	if ctrl.Playing() {
		t.Error("pause消息后应该处于暂停状态")
	}

	// 播放状态切换不影响场景
	if got := s.ActiveScene(); got != "ctl-scene-2" {
		t.Errorf("play/pause不应该改变活跃场景，得到 %s", got)
	}
}

func TestControllerRun(t *testing.T) {
	sink := &recordingSink{}
	s := expired(NewSwitcher(testTable(), sink))
	ctrl := NewController(s)
	c := NewCoalescer()
	c.SetReady()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = ctrl.Run(ctx, c)
		close(done)
	}()

	c.Publish(PlaybackMessage{Type: MessageTimeUpdate, Time: 8.0})

	deadline := time.After(time.Second)
	for ctrl.ActiveScene() != "ctl-scene-3" {
		select {
		case <-deadline:
			t.Fatal("Run没有消费并应用消息")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run没有响应上下文取消")
	}
}
