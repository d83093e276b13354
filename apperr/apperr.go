// Package apperr 定义全局错误分类
// 四类错误对应四种对外表现：参数校验失败、未授权、资源不存在、内部错误
package apperr

import "fmt"

// ValidationError 输入不合法（如分摊百分比之和不为 100）
// 校验在任何写入之前执行，命中后整个请求被拒绝，不产生部分提交
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf 构造校验错误
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedAccessError 会话缺失/失效或权限不足
type UnauthorizedAccessError struct {
	Message string
}

func (e *UnauthorizedAccessError) Error() string {
	return e.Message
}

// Unauthorized 构造未授权错误
func Unauthorized(message string) *UnauthorizedAccessError {
	return &UnauthorizedAccessError{Message: message}
}

// NotFoundError 资源不存在或不属于调用方小组
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + "不存在"
}

// NotFound 构造资源不存在错误
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// InternalError 持久化等意外失败，对外只展示笼统信息
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Internal 构造内部错误
func Internal(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}
