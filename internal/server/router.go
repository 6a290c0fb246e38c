// Package server 组装 todo 服务的 HTTP 入口
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"todo_api/internal/stats"
	"todo_api/internal/todo"
)

//go:embed static/index.html
var indexHTML []byte

// Pinger 用于健康检查，一般是 *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Router struct {
	todos  *todo.Handler
	stats  *stats.Handler
	db     Pinger
	logger *log.Logger
}

func NewRouter(todos *todo.Handler, statsHandler *stats.Handler, db Pinger, logger *log.Logger) *Router {
	return &Router{
		todos:  todos,
		stats:  statsHandler,
		db:     db,
		logger: logger,
	}
}

// Handler 注册路由与中间件
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", rt.handleIndex)
	r.Get("/health", rt.handleHealth)
	r.Mount("/todos", rt.todos.Routes())
	if rt.stats != nil {
		r.Mount("/stats", rt.stats.Routes())
	}
	return r
}

func (rt *Router) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(indexHTML); err != nil {
		rt.logger.Printf("write index: %v", err)
	}
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.db.PingContext(ctx); err != nil {
			rt.logger.Printf("health check failed: %v", err)
			rt.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	rt.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.logger.Printf("json encode error: %v", err)
	}
}
