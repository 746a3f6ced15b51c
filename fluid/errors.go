package fluid

import (
	"errors"
	"fmt"
)

// 物性错误
var (
	// ErrOutOfRange 输入超出物性关联式适用范围
	ErrOutOfRange = errors.New("fluid: property out of range")
	// ErrConvergence 物性后端内部迭代未收敛
	ErrConvergence = errors.New("fluid: property iteration did not converge")
	// ErrUnknownFluid 未知工质
	ErrUnknownFluid = errors.New("fluid: unknown fluid")
	// ErrUnsupported 不支持的输入组合
	ErrUnsupported = errors.New("fluid: unsupported input pair")
)

// PropertyError 物性查询失败
type PropertyError struct {
	Op    string  // 查询, 如 "T(P,H)"
	Fluid string  // 工质
	In1   float64 // 第一输入
	In2   float64 // 第二输入
	Err   error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s %s with (%g, %g): %v", e.Fluid, e.Op, e.In1, e.In2, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }

// IsPropertyError 判断是否属于物性失败(超出范围或不收敛)
func IsPropertyError(err error) bool {
	return errors.Is(err, ErrOutOfRange) || errors.Is(err, ErrConvergence)
}
