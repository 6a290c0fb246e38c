package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todo_api/internal/config"
)

func TestRunPreparesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")
	var out bytes.Buffer
	logger := log.New(&out, "", 0)

	cfg := config.Config{DatabaseDriver: config.DriverSQLite, SQLitePath: path}
	if err := run(context.Background(), cfg, false, logger); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	// 再次执行应当是幂等的
	if err := run(context.Background(), cfg, false, logger); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("sqlite schema ready")) {
		t.Fatalf("unexpected log output: %s", out.String())
	}
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	cfg := config.Config{DatabaseDriver: "oracle"}
	if err := run(context.Background(), cfg, false, log.New(io.Discard, "", 0)); err == nil {
		t.Fatal("expected error")
	}
}

func TestRootCommandFlags(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "flags.db"))

	cmd := newRootCmd(log.New(io.Discard, "", 0))
	cmd.SetArgs([]string{"--driver", "sqlite", "--timeout", "5s"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestRunNeedsTargetFromDatabaseURL(t *testing.T) {
	// 无法从 DATABASE_URL 推出目标库时不能退回 DB_* 去建库
	cfg := config.Config{
		DatabaseDriver: config.DriverPostgres,
		DatabaseURL:    "host=elsewhere dbname=orders",
		DBHost:         "localhost",
		DBName:         "todo_db",
		DBAdminName:    "postgres",
	}
	err := run(context.Background(), cfg, false, log.New(io.Discard, "", 0))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}
