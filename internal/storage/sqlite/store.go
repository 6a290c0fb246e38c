// Package sqlite 基于内嵌 SQLite 的 todo 存储
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"todo_api/internal/database"
	"todo_api/internal/storage/sqlite/migrations"
	"todo_api/internal/todo"
)

const memoryPath = ":memory:"

type Store struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open 打开 path 处的数据库（允许 ":memory:"）并执行迁移
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := memoryPath
	if path != memoryPath {
		dsn = "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite 只允许单写；内存库每个连接是独立的库
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := database.ApplyMigrations(ctx, db, database.SQLite, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// DB 供统计等共用同一张表的模块使用
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) List(ctx context.Context, q todo.ListQuery) ([]todo.Todo, error) {
	limit := int64(-1)
	if q.Limit > 0 {
		limit = int64(q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, created_at
		FROM todos
		WHERE (?1 IS NULL OR completed = ?1)
		ORDER BY created_at DESC, id DESC
		LIMIT ?2 OFFSET ?3
	`, nullableBool(q.Completed), limit, max(q.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := []todo.Todo{}
	for rows.Next() {
		item, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return todos, nil
}

func (s *Store) Count(ctx context.Context, completed *bool) (int, error) {
	var total int
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM todos
		WHERE (?1 IS NULL OR completed = ?1)
	`, nullableBool(completed))
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return total, nil
}

func (s *Store) Insert(ctx context.Context, input todo.NewTodo) (todo.Todo, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO todos (title, completed, created_at)
		VALUES (?, ?, ?)
		RETURNING id, title, completed, created_at
	`, input.Title, input.Completed, toMillis(createdAt))
	item, err := scanTodo(row)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return item, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (todo.Todo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, completed, created_at
		FROM todos
		WHERE id = ?
	`, id)
	item, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("find todo %d: %w", id, err)
	}
	return item, nil
}

func (s *Store) UpdateCompleted(ctx context.Context, id int64, completed bool) (todo.Todo, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE todos
		SET completed = ?
		WHERE id = ?
		RETURNING id, title, completed, created_at
	`, completed, id)
	item, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (todo.Todo, error) {
	var (
		item      todo.Todo
		createdAt int64
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Completed, &createdAt); err != nil {
		return todo.Todo{}, err
	}
	item.CreatedAt = fromMillis(createdAt)
	return item, nil
}

func nullableBool(value *bool) sql.NullBool {
	if value == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *value, Valid: true}
}
