package network

import (
	"errors"
	"fmt"
)

// 网络结构错误
var (
	// ErrUnderdetermined 变量多于方程
	ErrUnderdetermined = errors.New("network: underdetermined")
	// ErrOverdetermined 方程多于变量
	ErrOverdetermined = errors.New("network: overdetermined")
	// ErrDanglingStream 引用未声明流股, 或流股未接入任何部件
	ErrDanglingStream = errors.New("network: dangling stream reference")
	// ErrDuplicatePort 流股被两个部件同时作为进口或出口
	ErrDuplicatePort = errors.New("network: stream connected twice")
)

// StructureError 网络结构错误, 在迭代前抛出
type StructureError struct {
	Variables int    // 自由变量数
	Equations int    // 方程数
	Detail    string // 附加说明
	Err       error
}

func (e *StructureError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}
	return fmt.Sprintf("%v: %d variables, %d equations", e.Err, e.Variables, e.Equations)
}

func (e *StructureError) Unwrap() error { return e.Err }
