package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrInvalidName  = errors.New("invalid player name")
	ErrNotConnected = errors.New("not connected")
)

// Options 客户端装配参数
type Options struct {
	ServerURL     string
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	RetryJitter   float64
	TickRate      int
	Dialer        *websocket.Dialer
}

// Client 把传输、名单、输入与发射器装配在一起，生命周期由调用方显式管理
type Client struct {
	ID string // 本进程实例 ID，随连接 URL 发送，便于服务端日志关联

	session *Session
	roster  *Roster
	input   *InputSampler
	emitter *Emitter
	metrics *Metrics
}

func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("server url %q: scheme must be ws or wss", opts.ServerURL)
	}
	id := uuid.NewString()
	q := u.Query()
	q.Set("client", id)
	u.RawQuery = q.Encode()

	m := &Metrics{}
	c := &Client{
		ID:      id,
		metrics: m,
		roster:  NewRoster(m),
		input:   NewInputSampler(),
	}
	c.session = NewSession(SessionConfig{
		URL:           u.String(),
		MaxRetries:    opts.MaxRetries,
		RetryDelay:    opts.RetryDelay,
		MaxRetryDelay: opts.MaxRetryDelay,
		RetryJitter:   opts.RetryJitter,
		Dialer:        opts.Dialer,
		Metrics:       m,
	})
	c.emitter = NewEmitter(c.input, c.session, opts.TickRate, m)

	c.roster.Bind(c.session)
	c.session.OnStateChange(c.onStateChange)
	return c, nil
}

// onStateChange 发射器只在已连接时运行
func (c *Client) onStateChange(st ConnState) {
	if st == StateConnected {
		c.emitter.Start()
		return
	}
	c.emitter.Stop()
}

// Start 开始连接（不阻塞）
func (c *Client) Start(ctx context.Context) error {
	Log.Infow("client starting", "client", c.ID, "url", c.session.cfg.URL)
	return c.session.Start(ctx)
}

// Close 释放连接、计时器与协程
func (c *Client) Close() error {
	err := c.session.Close()
	c.emitter.Stop()
	return err
}

// SubmitName 提交改名；去除首尾空白后为空或超长的输入直接丢弃，不产生网络请求
func (c *Client) SubmitName(raw string) error {
	msg := UpdatePlayerName{Name: strings.TrimSpace(raw)}
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if !c.session.Send(EventUpdatePlayerName, msg) {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) Roster() *Roster { return c.roster }
func (c *Client) Input() *InputSampler { return c.input }
func (c *Client) Metrics() *Metrics { return c.metrics }
func (c *Client) State() ConnState { return c.session.State() }
func (c *Client) Connected() bool { return c.session.State() == StateConnected }
func (c *Client) Done() <-chan struct{} { return c.session.Done() }
func (c *Client) Identity() Identity { return ResolveSelf(c.roster.Snapshot()) }
func (c *Client) EmitterRunning() bool { return c.emitter.Running() }
