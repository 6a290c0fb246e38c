// Package postgres 基于 pgx 驱动的 PostgreSQL todo 存储
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"todo_api/internal/database"
	"todo_api/internal/storage/postgres/migrations"
	"todo_api/internal/todo"
)

// DriverName 是 pgx stdlib 注册的 database/sql 驱动名
const DriverName = "pgx"

type Store struct {
	db *sql.DB
}

// Open 打开连接池并做连通性检查
func Open(ctx context.Context, dsn string, logger *log.Logger) (*sql.DB, error) {
	return database.Open(ctx, DriverName, dsn, database.DefaultPool, logger)
}

// Migrate 执行内嵌的建表脚本
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	return database.ApplyMigrations(ctx, db, database.Postgres, migrations.FS, ".")
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context, q todo.ListQuery) ([]todo.Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, created_at
		FROM todos
		WHERE ($1::boolean IS NULL OR completed = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, nullableBool(q.Completed), nullableLimit(q.Limit), max(q.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := []todo.Todo{}
	for rows.Next() {
		var item todo.Todo
		if err := rows.Scan(&item.ID, &item.Title, &item.Completed, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
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
		WHERE ($1::boolean IS NULL OR completed = $1)
	`, nullableBool(completed))
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return total, nil
}

func (s *Store) Insert(ctx context.Context, input todo.NewTodo) (todo.Todo, error) {
	var item todo.Todo
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO todos (title, completed, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, title, completed, created_at
	`, input.Title, input.Completed, input.CreatedAt)
	if err := row.Scan(&item.ID, &item.Title, &item.Completed, &item.CreatedAt); err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (todo.Todo, error) {
	var item todo.Todo
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, completed, created_at
		FROM todos
		WHERE id = $1
	`, id)
	if err := row.Scan(&item.ID, &item.Title, &item.Completed, &item.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("find todo %d: %w", id, err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func (s *Store) UpdateCompleted(ctx context.Context, id int64, completed bool) (todo.Todo, error) {
	var item todo.Todo
	row := s.db.QueryRowContext(ctx, `
		UPDATE todos
		SET completed = $1
		WHERE id = $2
		RETURNING id, title, completed, created_at
	`, completed, id)
	if err := row.Scan(&item.ID, &item.Title, &item.Completed, &item.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}
