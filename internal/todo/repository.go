package todo

import "context"

// Repository 是服务依赖的存储能力，按 created_at DESC, id DESC 排序返回
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Todo, error)
	Count(ctx context.Context, completed *bool) (int, error)
	Insert(ctx context.Context, input NewTodo) (Todo, error)
	FindByID(ctx context.Context, id int64) (Todo, error)
	UpdateCompleted(ctx context.Context, id int64, completed bool) (Todo, error)
}
