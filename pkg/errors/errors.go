package errors

import (
	"errors"
	"fmt"
)

// 错误类别：业务错误均包装其中之一，调用方通过 errors.Is 判别
var (
	ErrNotFound   = errors.New("资源不存在")
	ErrConflict   = errors.New("资源冲突")
	ErrValidation = errors.New("参数校验失败")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = fmt.Errorf("%w: 数据已被其他操作修改，请刷新后重试", ErrConflict)

// NotFound 构造 NotFound 类别的业务错误
func NotFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }

// Conflict 构造 Conflict 类别的业务错误
func Conflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }

// Validation 构造 Validation 类别的业务错误
func Validation(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }
