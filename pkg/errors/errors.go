// Package errors 提供统一的应用错误定义
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码
type ErrorCode string

const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeComicNotFound         ErrorCode = "3001"
	CodePromptVersionNotFound ErrorCode = "3002"
	CodeImageNotFound         ErrorCode = "3003"

	// 业务错误 (4xxx)
	CodeGenerationFailed ErrorCode = "4001"
	CodeValidationFailed ErrorCode = "4002"
	CodeSafetyWarning    ErrorCode = "4003"
	CodeUnknownConfigKey ErrorCode = "4004"
	CodeUnknownStage     ErrorCode = "4005"
	CodeStageFailed      ErrorCode = "4006"
	CodeMalformedOutput  ErrorCode = "4007"

	// 外部服务错误 (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodeQueueError    ErrorCode = "5003"
	CodeStorageFailed ErrorCode = "5004"
	CodeLLMCallFailed ErrorCode = "5005"
	CodeRenderFailed  ErrorCode = "5006"
	CodeRateLimited   ErrorCode = "5007"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 返回附带详情的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Is 按错误码比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New 创建应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装底层错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeUnknownStage:
		return http.StatusBadRequest
	case CodeNotFound, CodeComicNotFound, CodePromptVersionNotFound, CodeImageNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidationFailed, CodeSafetyWarning, CodeGenerationFailed, CodeStageFailed, CodeMalformedOutput, CodeUnknownConfigKey:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests, CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeLLMCallFailed, CodeRenderFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrComicNotFound         = New(CodeComicNotFound, "comic not found")
	ErrPromptVersionNotFound = New(CodePromptVersionNotFound, "prompt version not found")
	ErrImageNotFound         = New(CodeImageNotFound, "image not found")

	ErrGenerationFailed = New(CodeGenerationFailed, "comic generation failed")
	ErrValidationFailed = New(CodeValidationFailed, "validation failed")
	ErrUnknownStage     = New(CodeUnknownStage, "unknown pipeline stage")
	ErrMalformedOutput  = New(CodeMalformedOutput, "malformed model output")
	ErrLLMCallFailed    = New(CodeLLMCallFailed, "LLM call failed")
	ErrRenderFailed     = New(CodeRenderFailed, "image render failed")
	ErrRateLimited      = New(CodeRateLimited, "upstream rate limited")
)

// 面向用户的粗粒度提示
const (
	UserMessageRateLimited = "The service is busy right now. Please try again in a moment."
	UserMessageGeneric     = "Something went wrong while making your comic. Please try again."
)

// UserMessage 将内部错误折叠为两类用户可见提示
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	code := AsAppError(err).Code
	if code == CodeRateLimited || code == CodeTooManyRequests {
		return UserMessageRateLimited
	}
	return UserMessageGeneric
}

// IsAppError 判断错误链上是否存在 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError 将任意错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
