package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore 基于 Redis 的 PlayerStore：
// 每个玩家一个 hash，另有按创建时间与最后更新时间排序的两个 zset
type RedisStore struct {
	rdb    *redis.Client
	now    func() time.Time
	prefix string
}

// OpenRedis 按 URL（redis://host:port/db）连接并检查可用性
func OpenRedis(ctx context.Context, url string, opts ...Option) (*RedisStore, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb, opts...), nil
}

func NewRedisStore(rdb *redis.Client, opts ...Option) *RedisStore {
	o := newOptions(opts)
	return &RedisStore{rdb: rdb, now: o.now, prefix: o.prefix}
}

func (s *RedisStore) playerKey(id string) string { return s.prefix + "player:" + id }
func (s *RedisStore) createdKey() string { return s.prefix + "players:created" }
func (s *RedisStore) updatedKey() string { return s.prefix + "players:updated" }

// watchRetries 乐观事务因并发修改失败时的重试次数
const watchRetries = 3

// watch 在 WATCH key 下执行 fn；键在 EXEC 前被他人修改时重试
func (s *RedisStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	var err error
	for i := 0; i < watchRetries; i++ {
		err = s.rdb.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *RedisStore) Insert(ctx context.Context, row Row) (Row, error) {
	row = prepare(row, s.now())
	key := s.playerKey(row.ID)
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"id":          row.ID,
				"session_id":  row.SessionID,
				"name":        row.Name,
				"x":           row.X,
				"y":           row.Y,
				"color":       row.Color,
				"created_at":  toMillis(row.CreatedAt),
				"last_update": toMillis(row.LastUpdate),
			})
			pipe.ZAdd(ctx, s.createdKey(), &redis.Z{Score: float64(toMillis(row.CreatedAt)), Member: row.ID})
			pipe.ZAdd(ctx, s.updatedKey(), &redis.Z{Score: float64(toMillis(row.LastUpdate)), Member: row.ID})
			return nil
		})
		return err
	})
	if errors.Is(err, ErrDuplicate) {
		return Row{}, ErrDuplicate
	}
	if err != nil {
		return Row{}, fmt.Errorf("insert player %s: %w", row.ID, err)
	}
	return s.get(ctx, row.ID)
}

func (s *RedisStore) UpdatePosition(ctx context.Context, id string, x, y float64) (Row, error) {
	return s.update(ctx, id, map[string]interface{}{"x": x, "y": y})
}

func (s *RedisStore) UpdateName(ctx context.Context, id, name string) (Row, error) {
	return s.update(ctx, id, map[string]interface{}{"name": name})
}

// update 只修改已存在的玩家；与 Delete 并发时不会留下残缺的 hash
func (s *RedisStore) update(ctx context.Context, id string, fields map[string]interface{}) (Row, error) {
	key := s.playerKey(id)
	now := toMillis(s.now())
	fields["last_update"] = now
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.ZAdd(ctx, s.updatedKey(), &redis.Z{Score: float64(now), Member: id})
			return nil
		})
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("update player %s: %w", id, err)
	}
	return s.get(ctx, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.playerKey(id))
		pipe.ZRem(ctx, s.createdKey(), id)
		pipe.ZRem(ctx, s.updatedKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete player %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Row, error) {
	ids, err := s.rdb.ZRange(ctx, s.createdKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if len(ids) == 0 {
		return []Row{}, nil
	}
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.playerKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]Row, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		row, err := parseRow(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *RedisStore) DeleteStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := toMillis(s.now().Add(-olderThan))
	ids, err := s.rdb.ZRangeByScore(ctx, s.updatedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("delete stale players: %w", err)
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) get(ctx context.Context, id string) (Row, error) {
	fields, err := s.rdb.HGetAll(ctx, s.playerKey(id)).Result()
	if err != nil {
		return Row{}, fmt.Errorf("get player %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Row{}, ErrNotFound
	}
	return parseRow(fields)
}

func parseRow(fields map[string]string) (Row, error) {
	row := Row{
		ID:        fields["id"],
		SessionID: fields["session_id"],
		Name:      fields["name"],
		Color:     fields["color"],
	}
	var err error
	if row.X, err = strconv.ParseFloat(fields["x"], 64); err != nil {
		return Row{}, fmt.Errorf("player %s: bad x: %w", row.ID, err)
	}
	if row.Y, err = strconv.ParseFloat(fields["y"], 64); err != nil {
		return Row{}, fmt.Errorf("player %s: bad y: %w", row.ID, err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("player %s: bad created_at: %w", row.ID, err)
	}
	updated, err := strconv.ParseInt(fields["last_update"], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("player %s: bad last_update: %w", row.ID, err)
	}
	row.CreatedAt = fromMillis(created)
	row.LastUpdate = fromMillis(updated)
	return row, nil
}
