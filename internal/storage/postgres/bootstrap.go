package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const duplicateDatabaseCode = "42P04"

// EnsureDatabase 连接维护库（通常是 postgres），目标库不存在时创建。
// 返回值表示本次是否新建了数据库。
func EnsureDatabase(ctx context.Context, adminDSN, name string, logger *log.Logger) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, errors.New("database name is required")
	}

	conn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		return false, fmt.Errorf("connect maintenance db: %w", err)
	}
	defer conn.Close(context.Background())

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup database %q: %w", name, err)
	}
	if exists {
		logger.Printf("database %q already exists", name)
		return false, nil
	}

	// CREATE DATABASE 不支持参数占位符，只能拼接已转义的标识符
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		if isDuplicateDatabase(err) {
			logger.Printf("database %q created concurrently", name)
			return false, nil
		}
		return false, fmt.Errorf("create database %q: %w", name, err)
	}

	logger.Printf("database %q created", name)
	return true, nil
}

func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == duplicateDatabaseCode
	}
	return false
}
