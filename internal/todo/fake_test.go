package todo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memoryRepo 是测试用的内存实现，排序规则与 SQL 实现一致
type memoryRepo struct {
	mu     sync.RWMutex
	items  map[int64]Todo
	nextID int64

	listCalls int
	failWith  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Todo)}
}

func (r *memoryRepo) List(ctx context.Context, q ListQuery) ([]Todo, error) {
	r.mu.Lock()
	r.listCalls++
	r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Todo, 0, len(r.items))
	for _, item := range r.items {
		if q.Completed != nil && item.Completed != *q.Completed {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []Todo{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memoryRepo) Count(ctx context.Context, completed *bool) (int, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, item := range r.items {
		if completed == nil || item.Completed == *completed {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Insert(ctx context.Context, input NewTodo) (Todo, error) {
	if r.failWith != nil {
		return Todo{}, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item := Todo{
		ID:        r.nextID,
		Title:     input.Title,
		Completed: input.Completed,
		CreatedAt: input.CreatedAt,
	}
	r.items[item.ID] = item
	return item, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (Todo, error) {
	if r.failWith != nil {
		return Todo{}, r.failWith
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	return item, nil
}

func (r *memoryRepo) UpdateCompleted(ctx context.Context, id int64, completed bool) (Todo, error) {
	if r.failWith != nil {
		return Todo{}, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	item.Completed = completed
	r.items[id] = item
	return item, nil
}

func (r *memoryRepo) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

var errCacheDown = errors.New("cache unavailable")

// brokenCache 每个操作都失败，用于验证缓存失败不影响请求
type brokenCache struct {
	gets, sets, deletes, incrs int
}

func (c *brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return nil, errCacheDown
}

func (c *brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	return errCacheDown
}

func (c *brokenCache) Delete(ctx context.Context, key string) error {
	c.deletes++
	return errCacheDown
}

func (c *brokenCache) Incr(ctx context.Context, key string) (int64, error) {
	c.incrs++
	return 0, errCacheDown
}

// gatedRepo 让第一次 List 在读完存储后停住，直到 release 关闭
type gatedRepo struct {
	*memoryRepo
	listed  chan struct{}
	release chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{
		memoryRepo: newMemoryRepo(),
		listed:     make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (r *gatedRepo) List(ctx context.Context, q ListQuery) ([]Todo, error) {
	items, err := r.memoryRepo.List(ctx, q)
	if r.listed != nil {
		listed := r.listed
		r.listed = nil
		close(listed)
		<-r.release
	}
	return items, err
}

// steppingClock 每次调用前进一分钟，保证 created_at 严格递增
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(time.Minute)
		return now
	}
}
