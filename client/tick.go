package client

import (
	"sync"
	"time"
)

const (
	// DefaultTickRate 移动意图采样频率（接近显示刷新率）
	DefaultTickRate = 60
)

// Sender 出站发送端（由 Session 实现）
type Sender interface {
	Send(event string, data any) bool
}

// Emitter 固定频率读取按键状态，每个按住的方向发送一条移动意图
type Emitter struct {
	input    *InputSampler
	out      Sender
	interval time.Duration
	metrics  *Metrics

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewEmitter(input *InputSampler, out Sender, tickRate int, m *Metrics) *Emitter {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	if m == nil {
		m = &Metrics{}
	}
	return &Emitter{
		input:    input,
		out:      out,
		interval: time.Second / time.Duration(tickRate),
		metrics:  m,
	}
}

// Tick 执行一次采样与发送，返回成功发出的意图数
// 没有按键时什么也不发；斜向移动由两条轴向意图组成，合成规则由服务端决定
func (e *Emitter) Tick() int {
	start := time.Now()
	sent := 0
	for _, d := range e.input.Held() {
		if e.out.Send(EventMovePlayer, MovePlayer{Direction: d.String()}) {
			sent++
		}
	}
	e.metrics.AddIntents(sent)
	e.metrics.AddTick(time.Since(start).Nanoseconds())
	return sent
}

// Start 启动 Tick 循环；已在运行时忽略
func (e *Emitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		return
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.loop(e.stop, e.done)
}

// Stop 停止 Tick 循环并等待其退出，返回后不会再有任何发送
func (e *Emitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop == nil {
		return
	}
	close(e.stop)
	<-e.done
	e.stop, e.done = nil, nil
}

func (e *Emitter) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stop != nil
}

func (e *Emitter) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}
