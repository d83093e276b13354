package api

import (
	"errors"
	"net/http"

	"tripmate/apperr"

	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// FromError 把业务层错误按分类映射为对应的 HTTP 响应
// 校验错误 → 400，未授权 → 401，不存在 → 404，其余 → 500（按运行模式脱敏）
func FromError(c *gin.Context, err error, fallback string) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		BadRequest(c, verr.Message)
		return
	}
	var uerr *apperr.UnauthorizedAccessError
	if errors.As(err, &uerr) {
		Unauthorized(c, uerr.Message)
		return
	}
	var nerr *apperr.NotFoundError
	if errors.As(err, &nerr) {
		NotFound(c, nerr.Error())
		return
	}
	InternalError(c, SafeErrorMessage(err, fallback))
}
