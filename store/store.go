// Package store 是与实时名单无关的玩家持久化接口（可选协作方）。
// 它不是在线名单的数据来源，客户端主流程不会读写它。
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// StaleAfter 超过该时长未更新的玩家视为不活跃
const StaleAfter = 5 * time.Minute

var (
	ErrNotFound  = errors.New("player not found")
	ErrDuplicate = errors.New("player already exists")
)

// Row 持久化的一行玩家记录
type Row struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	Name       string    `json:"name"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"created_at"`
	LastUpdate time.Time `json:"last_update"`
}

// PlayerStore 按玩家 ID 存取的行存储
type PlayerStore interface {
	// Insert 写入新玩家；ID 已存在时返回 ErrDuplicate，不覆盖原记录
	Insert(ctx context.Context, row Row) (Row, error)
	UpdatePosition(ctx context.Context, id string, x, y float64) (Row, error)
	UpdateName(ctx context.Context, id, name string) (Row, error)
	Delete(ctx context.Context, id string) error
	// List 按创建时间升序返回全部玩家
	List(ctx context.Context) ([]Row, error)
	// DeleteStale 删除 last_update 早于 now-olderThan 的玩家，返回删除数
	DeleteStale(ctx context.Context, olderThan time.Duration) (int, error)
	Close() error
}

type options struct {
	now    func() time.Time
	prefix string
}

type Option func(*options)

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithKeyPrefix Redis 键前缀
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, prefix: "pixelarena:"}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// prepare 补齐默认值：ID、名字、出生点与颜色
func prepare(row Row, now time.Time) Row {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Name == "" {
		row.Name = "Player"
	}
	if row.X == 0 && row.Y == 0 {
		row.X, row.Y = 400, 300
	}
	if row.Color == "" {
		row.Color = "#FF6B6B"
	}
	row.CreatedAt = now
	row.LastUpdate = now
	return row
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
