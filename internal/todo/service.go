package todo

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"todo_api/internal/cache"
)

const (
	// ListCacheKey 是完整列表快照的键前缀，实际键带上代数：todos:all:<gen>
	ListCacheKey = "todos:all"
	// ListGenerationKey 每次写操作加一，旧代数的快照不再被读取
	ListGenerationKey = "todos:gen"

	DefaultCacheTTL = time.Hour
	DefaultPage     = 1
	DefaultPerPage  = 10
	MaxPerPage      = 100
)

type Service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *log.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithCache 启用读穿透缓存，c 为 nil 时等同于不启用
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithClock 替换时间来源，测试使用
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		cacheTTL: DefaultCacheTTL,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List 返回全部（或按 completed 过滤的）todo，不分页。
// 只有未过滤的读取会命中或回填缓存。
func (s *Service) List(ctx context.Context, completed *bool) ([]Todo, error) {
	if completed != nil {
		return s.listFromStorage(ctx, completed)
	}

	// 代数在读库之前取得；读库期间发生的写操作会让这份快照落在旧代数下
	gen, ok := s.cacheGeneration(ctx)
	if !ok {
		return s.listFromStorage(ctx, nil)
	}
	if items, ok := s.readCache(ctx, gen); ok {
		return items, nil
	}

	items, err := s.listFromStorage(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, gen, items)
	return items, nil
}

func (s *Service) listFromStorage(ctx context.Context, completed *bool) ([]Todo, error) {
	items, err := s.repo.List(ctx, ListQuery{Completed: completed})
	if err != nil {
		return nil, storageErr("list", err)
	}
	if items == nil {
		items = []Todo{}
	}
	return items, nil
}

// ListPage 返回一页数据和分页信息
func (s *Service) ListPage(ctx context.Context, params ListParams) (Page, error) {
	page, perPage := normalizePaging(params.Page, params.PerPage)

	total, err := s.repo.Count(ctx, params.Completed)
	if err != nil {
		return Page{}, storageErr("count", err)
	}

	items, err := s.repo.List(ctx, ListQuery{
		Completed: params.Completed,
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	})
	if err != nil {
		return Page{}, storageErr("list", err)
	}
	if items == nil {
		items = []Todo{}
	}

	pages := 0
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}

	return Page{
		Todos:       items,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Todo, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Todo{}, storageErr("find", err)
	}
	return item, nil
}

// Create 校验标题后写入，超过 MaxTitleLength 的部分被截断而不是拒绝
func (s *Service) Create(ctx context.Context, title string) (Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Todo{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	title = truncateRunes(title, MaxTitleLength)

	item, err := s.repo.Insert(ctx, NewTodo{
		Title:     title,
		Completed: false,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return Todo{}, storageErr("insert", err)
	}

	s.invalidate(ctx)
	s.logger.Printf("created todo id=%d title=%q", item.ID, item.Title)
	return item, nil
}

// Update 只修改 completed；先确认 id 存在，再校验字段
func (s *Service) Update(ctx context.Context, id int64, completed *bool) (Todo, error) {
	if completed == nil {
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			return Todo{}, storageErr("find", err)
		}
		return Todo{}, &ValidationError{Field: "completed", Message: "completed must be a boolean"}
	}

	item, err := s.repo.UpdateCompleted(ctx, id, *completed)
	if err != nil {
		return Todo{}, storageErr("update", err)
	}

	s.invalidate(ctx)
	s.logger.Printf("updated todo id=%d completed=%t", item.ID, item.Completed)
	return item, nil
}

// ListSnapshotKey 返回某一代列表快照的缓存键
func ListSnapshotKey(gen int64) string {
	return ListCacheKey + ":" + strconv.FormatInt(gen, 10)
}

// cacheGeneration 读取当前代数，键不存在视为第 0 代；读失败时本次请求不使用缓存
func (s *Service) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	raw, err := s.cache.Get(ctx, ListGenerationKey)
	if errors.Is(err, cache.ErrMiss) {
		return 0, true
	}
	if err != nil {
		s.logger.Printf("cache read failed, falling back to storage: %v", err)
		return 0, false
	}
	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		s.logger.Printf("cache generation %q is not an integer, bypassing cache", raw)
		return 0, false
	}
	return gen, true
}

func (s *Service) readCache(ctx context.Context, gen int64) ([]Todo, bool) {
	key := ListSnapshotKey(gen)
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Printf("cache read failed, falling back to storage: %v", err)
		}
		return nil, false
	}

	var items []Todo
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Printf("cache snapshot undecodable, dropping it: %v", err)
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Printf("cache delete failed: %v", err)
		}
		return nil, false
	}
	if items == nil {
		items = []Todo{}
	}
	return items, true
}

func (s *Service) writeCache(ctx context.Context, gen int64, items []Todo) {
	raw, err := json.Marshal(items)
	if err != nil {
		s.logger.Printf("cache encode failed: %v", err)
		return
	}
	if err := s.cache.Set(ctx, ListSnapshotKey(gen), raw, s.cacheTTL); err != nil {
		s.logger.Printf("cache write failed: %v", err)
	}
}

// invalidate 推进代数，再删除上一代快照；并发读写回的旧快照只会落在旧代数下
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	gen, err := s.cache.Incr(ctx, ListGenerationKey)
	if err != nil {
		s.logger.Printf("cache invalidation failed: %v", err)
		return
	}
	if err := s.cache.Delete(ctx, ListSnapshotKey(gen-1)); err != nil {
		s.logger.Printf("cache delete failed: %v", err)
	}
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
