package postgres

import "database/sql"

func nullableBool(value *bool) sql.NullBool {
	// 将可选布尔转换为 SQL 可空类型，NULL 表示不过滤
	if value == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *value, Valid: true}
}

func nullableLimit(limit int) sql.NullInt64 {
	// LIMIT NULL 在 PostgreSQL 中等价于不限制
	if limit <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(limit), Valid: true}
}
