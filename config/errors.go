package config

import (
	"errors"
	"fmt"
)

// ErrInvalid 配置非法
var ErrInvalid = errors.New("invalid configuration")

// Error 配置错误, 定位到文件和字段
type Error struct {
	Path  string // 文件
	Field string // 字段, 如 cond.ttd_l
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := "config"
	if e.Path != "" {
		base += " " + e.Path
	}
	if e.Field != "" {
		base += ": " + e.Field
	}
	if e.Err != nil {
		base += ": " + e.Err.Error()
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalidField(path, field, format string, args ...any) *Error {
	return &Error{Path: path, Field: field, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)}
}

func wrapField(path, field string, err error) *Error {
	return &Error{Path: path, Field: field, Err: err}
}
