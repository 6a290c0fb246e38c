package todo

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	logger  *log.Logger
}

func NewHandler(service *Service, logger *log.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes 返回挂载在 /todos 下的子路由
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleListTodos)
	r.Post("/", h.handleCreateTodo)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetTodo)
		r.Put("/", h.handleUpdateTodo)
	})
	return r
}

func (h *Handler) handleListTodos(w http.ResponseWriter, r *http.Request) {
	// 带 page 或 per_page 时返回分页信封，否则返回数组
	query := r.URL.Query()
	completed := parseCompleted(query)

	if query.Has("page") || query.Has("per_page") {
		page, err := h.service.ListPage(r.Context(), ListParams{
			Completed: completed,
			Page:      parseIntParam(query.Get("page"), DefaultPage),
			PerPage:   parseIntParam(query.Get("per_page"), DefaultPerPage),
		})
		if err != nil {
			h.writeServiceError(w, err, "failed to load todos")
			return
		}
		h.writeJSON(w, http.StatusOK, page)
		return
	}

	items, err := h.service.List(r.Context(), completed)
	if err != nil {
		h.writeServiceError(w, err, "failed to load todos")
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to load todo")
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var input createTodoRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.Create(r.Context(), input.Title)
	if err != nil {
		h.writeServiceError(w, err, "failed to create todo")
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var input updateTodoRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		// 先确认 id 存在，不存在的 id 总是 404
		if _, findErr := h.service.Get(r.Context(), id); findErr != nil {
			h.writeServiceError(w, findErr, "failed to update todo")
			return
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "completed" {
			h.writeError(w, http.StatusBadRequest, "completed must be a boolean")
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.Update(r.Context(), id, input.Completed)
	if err != nil {
		h.writeServiceError(w, err, "failed to update todo")
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// writeServiceError 将服务层错误映射为 HTTP 状态码，存储错误只记录日志
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "todo not found")
	default:
		h.logger.Printf("%s: %v", fallback, err)
		h.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// 限制请求体大小并严格解析 JSON
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Printf("json encode error: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func readIDParam(r *http.Request) (int64, error) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parseCompleted: 不带参数为不过滤，"true"（不区分大小写）为 true，其余值为 false
func parseCompleted(query url.Values) *bool {
	values, ok := query["completed"]
	if !ok || len(values) == 0 {
		return nil
	}
	completed := strings.EqualFold(values[0], "true")
	return &completed
}

func parseIntParam(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
