// Package errors defines the error values shared by the shopfront service.
// Sentinel errors describe the outcome class (not found, unauthorized, upstream failure),
// while KeyError and AppError attach the offending key or the HTTP status to report.
//
// Package errors 定义shopfront服务共享的错误值。
// 哨兵错误描述结果类别（未找到、未授权、上游失败），
// KeyError和AppError附加出错的键或要报告的HTTP状态码。
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a product or cache entry does not exist.
	// ErrNotFound 在商品或缓存条目不存在时返回。
	ErrNotFound = errors.New("shopfront: not found")

	// ErrUnauthorized is the typed outcome for a missing, expired or rejected credential.
	// Callers decide what to do with it; nothing in this service redirects.
	//
	// ErrUnauthorized 表示凭证缺失、过期或被拒绝的类型化结果。
	ErrUnauthorized = errors.New("shopfront: unauthorized")

	// ErrUpstream is returned when the storefront backend fails or is unreachable.
	// ErrUpstream 在店面后端失败或不可达时返回。
	ErrUpstream = errors.New("shopfront: upstream failure")

	// ErrInvalidInput is returned for request payloads that cannot be interpreted.
	// ErrInvalidInput 在请求负载无法解析时返回。
	ErrInvalidInput = errors.New("shopfront: invalid input")

	// ErrCacheMiss is returned by cache backends when a key is absent or expired.
	// ErrCacheMiss 在键不存在或已过期时由缓存后端返回。
	ErrCacheMiss = errors.New("cache: miss")

	// ErrKeyEmpty is returned when an empty key is used.
	ErrKeyEmpty = errors.New("cache: key is empty")

	// ErrSerializationFailed is returned when a value cannot be encoded.
	ErrSerializationFailed = errors.New("cache: serialization failed")

	// ErrDeserializationFailed is returned when stored bytes cannot be decoded.
	ErrDeserializationFailed = errors.New("cache: deserialization failed")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: cache is closed")
)

// KeyError represents an error associated with a specific key.
// It wraps another error and includes the key that caused the error.
//
// KeyError 表示与特定键相关的错误。
// 它包装另一个错误并包含导致错误的键。
type KeyError struct {
	Key string // The key that caused the error / 导致错误的键
	Err error  // The underlying error / 底层错误
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Key)
}

// Unwrap returns the underlying error.
func (e *KeyError) Unwrap() error {
	return e.Err
}

// NewKeyError creates a new KeyError.
func NewKeyError(key string, err error) *KeyError {
	return &KeyError{Key: key, Err: err}
}

// AppError wraps an underlying error with an HTTP status and a message that is
// safe to show to API clients.
//
// AppError 用HTTP状态码和可安全展示给客户端的消息包装底层错误。
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(err error, status int, message string) *AppError {
	return &AppError{Err: err, Status: status, Message: message}
}

// HTTPStatus maps an error chain to the status code the API reports.
// AppError wins over sentinels so handlers can override the default mapping.
//
// HTTPStatus 将错误链映射为API返回的状态码。
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message an API client may see for err.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	switch HTTPStatus(err) {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not found"
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusBadGateway:
		return "storefront backend unavailable"
	default:
		return "internal server error"
	}
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error is or wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUpstream checks if an error is or wraps ErrUpstream.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsCacheMiss checks if an error is or wraps ErrCacheMiss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// IsClosed checks if an error is or wraps ErrClosed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsSerializationError checks if an error is related to serialization or deserialization.
func IsSerializationError(err error) bool {
	return errors.Is(err, ErrSerializationFailed) || errors.Is(err, ErrDeserializationFailed)
}
