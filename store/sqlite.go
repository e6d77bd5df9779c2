package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		color TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_update INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_players_last_update ON players (last_update)`,
}

// sqlRow 数据库中的行，时间以毫秒存储
type sqlRow struct {
	ID         string  `db:"id"`
	SessionID  string  `db:"session_id"`
	Name       string  `db:"name"`
	X          float64 `db:"x"`
	Y          float64 `db:"y"`
	Color      string  `db:"color"`
	CreatedAt  int64   `db:"created_at"`
	LastUpdate int64   `db:"last_update"`
}

func (r sqlRow) row() Row {
	return Row{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Name:       r.Name,
		X:          r.X,
		Y:          r.Y,
		Color:      r.Color,
		CreatedAt:  fromMillis(r.CreatedAt),
		LastUpdate: fromMillis(r.LastUpdate),
	}
}

const selectColumns = `SELECT id, session_id, name, x, y, color, created_at, last_update FROM players`

// SQLStore 基于 SQLite 的 PlayerStore
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite 打开（必要时创建）数据库文件并确保表结构存在
// path 为 ":memory:" 时使用单连接内存库
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	o := newOptions(opts)
	return &SQLStore{db: db, now: o.now}, nil
}

func (s *SQLStore) Insert(ctx context.Context, row Row) (Row, error) {
	row = prepare(row, s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, session_id, name, x, y, color, created_at, last_update) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		row.ID, row.SessionID, row.Name, row.X, row.Y, row.Color, toMillis(row.CreatedAt), toMillis(row.LastUpdate))
	if err != nil {
		return Row{}, fmt.Errorf("insert player %s: %w", row.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Row{}, fmt.Errorf("insert player %s: %w", row.ID, err)
	}
	if n == 0 {
		return Row{}, ErrDuplicate
	}
	return s.get(ctx, row.ID)
}

func (s *SQLStore) UpdatePosition(ctx context.Context, id string, x, y float64) (Row, error) {
	return s.update(ctx, id, `UPDATE players SET x = ?, y = ?, last_update = ? WHERE id = ?`, x, y, toMillis(s.now()), id)
}

func (s *SQLStore) UpdateName(ctx context.Context, id, name string) (Row, error) {
	return s.update(ctx, id, `UPDATE players SET name = ?, last_update = ? WHERE id = ?`, name, toMillis(s.now()), id)
}

func (s *SQLStore) update(ctx context.Context, id, query string, args ...any) (Row, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Row{}, fmt.Errorf("update player %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Row{}, fmt.Errorf("update player %s: %w", id, err)
	}
	if n == 0 {
		return Row{}, ErrNotFound
	}
	return s.get(ctx, id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete player %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Row, error) {
	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY created_at ASC, rowid ASC`); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.row())
	}
	return out, nil
}

func (s *SQLStore) DeleteStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := toMillis(s.now().Add(-olderThan))
	res, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE last_update < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale players: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale players: %w", err)
	}
	return int(n), nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) get(ctx context.Context, id string) (Row, error) {
	var r sqlRow
	err := s.db.GetContext(ctx, &r, selectColumns+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("get player %s: %w", id, err)
	}
	return r.row(), nil
}
