package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_api/internal/cache"
	"todo_api/internal/config"
	"todo_api/internal/server"
	"todo_api/internal/stats"
	"todo_api/internal/storage/postgres"
	"todo_api/internal/storage/sqlite"
	"todo_api/internal/todo"
)

func main() {
	// 主流程：加载配置、连接存储与缓存、启动 HTTP 服务并等待退出信号
	logger := log.New(os.Stdout, "todo-api ", log.LstdFlags|log.LUTC)
	cfg, err := config.Load(":8081")
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	repo, db, closer, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer closer.Close()

	opts := []todo.Option{}
	listCache, cacheCloser, err := openCache(ctx, cfg)
	if err != nil {
		// 缓存只是优化，连不上时降级为直接读库
		logger.Printf("cache disabled: %v", err)
	} else if listCache != nil {
		defer cacheCloser.Close()
		opts = append(opts, todo.WithCache(listCache, cfg.CacheTTL))
		logger.Printf("list cache enabled (%s, ttl %s)", cfg.CacheDriver, cfg.CacheTTL)
	}

	service := todo.NewService(repo, logger, opts...)
	router := server.NewRouter(
		todo.NewHandler(service, logger),
		stats.NewHandler(stats.NewStore(db), logger),
		db,
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		// 启动 HTTP 服务，非正常关闭才记录错误
		logger.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// 监听系统信号，触发优雅退出
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Println("shutting down")
	// 给予超时时间完成正在处理的请求
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *log.Logger) (todo.Repository, *sql.DB, io.Closer, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Printf("sqlite storage at %s", cfg.SQLitePath)
		return store, store.DB(), store, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.AutoMigrate {
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		logger.Printf("applied %d migration(s)", applied)
	}
	return postgres.NewStore(db), db, db, nil
}

func openCache(ctx context.Context, cfg config.Config) (cache.Cache, io.Closer, error) {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		c, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.CacheMemory:
		return cache.NewMemory(), io.NopCloser(nil), nil
	default:
		return nil, nil, nil
	}
}
