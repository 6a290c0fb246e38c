package todo

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示 id 不存在
var ErrNotFound = errors.New("todo not found")

// ValidationError 表示客户端输入不合法，Message 可以直接返回给调用方
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError 包装底层存储错误，不对外暴露细节
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
