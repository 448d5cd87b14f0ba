package apperr

import (
	"errors"
	"fmt"
)

// Kind 业务错误类别，handler 据此映射 HTTP 状态码
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindInvalidTransition
	KindInsufficientStock
	KindItemUnavailable
	KindSelfAction
	KindDuplicateRating
	KindConflict
)

// Error 携带类别的业务错误
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New 创建指定类别的错误
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf 创建带格式化消息的错误
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf 提取错误类别，非业务错误一律视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 将错误类别映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return 404
	case KindForbidden:
		return 403
	case KindValidation, KindSelfAction:
		return 400
	case KindInvalidTransition, KindInsufficientStock, KindItemUnavailable,
		KindDuplicateRating, KindConflict:
		return 409
	default:
		return 500
	}
}
