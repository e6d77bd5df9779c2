package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// ConnState 连接状态机：disconnected → connecting → connected → disconnected（重试）| closed
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler 处理某个入站事件的载荷；在读协程中按帧到达顺序调用
type Handler func(data json.RawMessage)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionStarted = errors.New("session already started")
)

// SessionConfig 传输会话配置；零值字段在 NewSession 中补默认值（MaxRetries 除外）
type SessionConfig struct {
	URL    string
	Header http.Header

	MaxRetries    int           // 连续失败后的最大重连次数，0 表示不重连
	RetryDelay    time.Duration // 首次重连等待
	MaxRetryDelay time.Duration // 退避上限
	RetryJitter   float64       // 退避随机因子，0 表示固定序列

	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
	SendBuffer int

	Dialer  *websocket.Dialer
	Metrics *Metrics
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = 5 * c.RetryDelay
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}
	return c
}

// Session 维护到服务端的唯一一条长连接，断线后有限次自动重连
type Session struct {
	cfg     SessionConfig
	metrics *Metrics

	mu       sync.RWMutex
	handlers map[string]Handler
	stateFns []func(ConnState)
	state    ConnState
	conn     *wsConn
	cancel   context.CancelFunc
	closing  bool

	done     chan struct{}
	doneOnce sync.Once

	// 正在执行状态回调或事件处理器的层数（均运行在连接协程上）
	inLoop atomic.Int32
}

func NewSession(cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:      cfg,
		metrics:  cfg.Metrics,
		handlers: make(map[string]Handler),
		state:    StateDisconnected,
		done:     make(chan struct{}),
	}
}

// On 订阅某个入站事件；同名事件后注册的覆盖先注册的
func (s *Session) On(event string, h Handler) {
	s.mu.Lock()
	s.handlers[event] = h
	s.mu.Unlock()
}

// OnStateChange 注册连接状态变化回调
func (s *Session) OnStateChange(fn func(ConnState)) {
	s.mu.Lock()
	s.stateFns = append(s.stateFns, fn)
	s.mu.Unlock()
}

func (s *Session) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done 在会话进入 closed 后关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// Start 启动连接协程（不阻塞）
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrSessionStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Close 关闭会话并等待连接协程退出；可重复调用
// 在状态回调或事件处理器中调用时只发起关闭，不等待，调用方可等待 Done()
func (s *Session) Close() error {
	s.mu.Lock()
	s.closing = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		s.setState(StateClosed)
		s.doneOnce.Do(func() { close(s.done) })
		return nil
	}
	cancel()
	if s.inLoop.Load() > 0 {
		return nil
	}
	<-s.done
	return nil
}

// Send 发送一条事件（尽力而为）；未连接时直接丢弃，不排队
func (s *Session) Send(event string, data any) bool {
	s.mu.RLock()
	c, st := s.conn, s.state
	s.mu.RUnlock()
	if st != StateConnected || c == nil {
		s.metrics.IncDroppedOffline()
		return false
	}
	b, err := Encode(event, data)
	if err != nil {
		Log.Debugw("drop unencodable frame", "event", event, "error", err)
		return false
	}
	return c.Enqueue(b)
}

func (s *Session) setState(st ConnState) {
	s.mu.Lock()
	if s.state == st || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = st
	fns := slices.Clone(s.stateFns)
	s.mu.Unlock()

	Log.Infow("connection state changed", "state", st.String(), "url", s.cfg.URL)
	s.inLoop.Add(1)
	defer s.inLoop.Add(-1)
	for _, fn := range fns {
		fn(st)
	}
}

func (s *Session) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.RetryDelay
	exp.MaxInterval = s.cfg.MaxRetryDelay
	exp.RandomizationFactor = s.cfg.RetryJitter
	exp.MaxElapsedTime = 0
	retries := s.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithMaxRetries(exp, uint64(retries))
	bo.Reset()
	return bo
}

// run 连接主循环：拨号 → 服务 → 断线后按退避重试，重试耗尽即终止
func (s *Session) run(ctx context.Context) {
	defer s.doneOnce.Do(func() { close(s.done) })
	defer s.setState(StateClosed)

	bo := s.newBackOff()
	for {
		s.setState(StateConnecting)
		ws, _, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, s.cfg.Header)
		if err == nil {
			bo.Reset()
			s.serve(ctx, ws)
		} else if ctx.Err() == nil {
			Log.Warnw("dial failed", "url", s.cfg.URL, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			Log.Warnw("reconnect attempts exhausted", "url", s.cfg.URL, "max_retries", s.cfg.MaxRetries)
			return
		}
		s.metrics.IncReconnect()
		Log.Infow("reconnecting", "url", s.cfg.URL, "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve 在一条已建立的连接上运行读写协程，直到连接断开或 ctx 取消
func (s *Session) serve(ctx context.Context, ws *websocket.Conn) {
	c := newWSConn(ws, s.cfg.SendBuffer, s.metrics)

	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
	s.setState(StateConnected)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump(s.cfg.PingPeriod, s.cfg.WriteWait)
	}()

	readErr := make(chan error, 1)
	go func() { readErr <- c.readPump(s.dispatch, s.cfg.PongWait) }()

	select {
	case <-ctx.Done():
		c.shutdown(s.cfg.WriteWait)
		<-readErr
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			Log.Infow("connection closed by server", "url", s.cfg.URL)
		} else {
			Log.Warnw("connection lost", "url", s.cfg.URL, "error", err)
		}
	}

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
	c.Close()
	wg.Wait()
}

// dispatch 解析一帧并交给订阅者；非法帧与无人订阅的事件直接丢弃
func (s *Session) dispatch(frame []byte) {
	s.metrics.IncReceived()
	env, err := DecodeEnvelope(frame)
	if err != nil {
		s.metrics.IncDecodeFailed()
		Log.Debugw("drop undecodable frame", "error", err)
		return
	}
	s.mu.RLock()
	h := s.handlers[env.Event]
	s.mu.RUnlock()
	if h == nil {
		s.metrics.IncUnhandled()
		Log.Debugw("drop unhandled event", "event", env.Event)
		return
	}
	s.inLoop.Add(1)
	defer s.inLoop.Add(-1)
	h(env.Data)
}

// wsConn 单条连接的轻量包装：发送队列 + 读写协程
type wsConn struct {
	ws        *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	metrics   *Metrics
}

func newWSConn(ws *websocket.Conn, buffer int, m *Metrics) *wsConn {
	return &wsConn{
		ws:      ws,
		send:    make(chan []byte, buffer),
		closed:  make(chan struct{}),
		metrics: m,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *wsConn) Enqueue(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃新消息而不是阻塞调用方
		c.metrics.IncChanFullDiscarded()
		return false
	}
}

// Close 关闭底层连接；可重复调用
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// shutdown 主动断开：先发送关闭帧再关闭连接
func (c *wsConn) shutdown(writeWait time.Duration) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutting down")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *wsConn) writePump(pingPeriod, writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.Close()
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			c.metrics.IncSent()
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取服务端帧并逐帧分发；返回导致退出的错误
func (c *wsConn) readPump(dispatch func([]byte), pongWait time.Duration) error {
	defer c.Close()
	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		dispatch(payload)
	}
}
