package todo

import "time"

// MaxTitleLength 对应 todos.title 列的 VARCHAR(100)
const MaxTitleLength = 100

type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTodo 是写入存储前的数据，ID 由存储分配
type NewTodo struct {
	Title     string
	Completed bool
	CreatedAt time.Time
}

// ListQuery 为存储层的查询条件，Completed 为 nil 表示不过滤，Limit 为 0 表示不分页
type ListQuery struct {
	Completed *bool
	Limit     int
	Offset    int
}

// ListParams 为分页列表的入参，零值会被替换为默认值
type ListParams struct {
	Completed *bool
	Page      int
	PerPage   int
}

// Page 是分页响应信封
type Page struct {
	Todos       []Todo `json:"todos"`
	Total       int    `json:"total"`
	Pages       int    `json:"pages"`
	CurrentPage int    `json:"current_page"`
	HasNext     bool   `json:"has_next"`
	HasPrev     bool   `json:"has_prev"`
}

type createTodoRequest struct {
	Title string `json:"title"`
}

type updateTodoRequest struct {
	Completed *bool `json:"completed"`
}
