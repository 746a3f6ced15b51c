package fluid

import "fmt"

// Param 物性参数标识
type Param int

// 物性参数
const (
	ParamP     Param = iota // 压力 Pa
	ParamT                  // 温度 K
	ParamH                  // 比焓 J/kg
	ParamS                  // 比熵 J/(kg K)
	ParamQ                  // 干度
	ParamPhase              // 相态编码(types.Phase)
)

// String 参数简写
func (p Param) String() string {
	switch p {
	case ParamP:
		return "P"
	case ParamT:
		return "T"
	case ParamH:
		return "H"
	case ParamS:
		return "S"
	case ParamQ:
		return "Q"
	case ParamPhase:
		return "Phase"
	}
	return fmt.Sprintf("Param(%d)", int(p))
}

// Backend 物性后端
//
// 调用方式与 CoolProp 的 PropsSI 相同: 给定两个独立状态参数, 返回一个输出参数。
type Backend interface {
	// Name 后端名称
	Name() string
	// Resolve 解析工质标识, 返回后端内的规范名称
	Resolve(fluid string) (string, error)
	// Props 物性查询
	Props(out Param, in1 Param, v1 float64, in2 Param, v2 float64, fluid string) (float64, error)
}

// Reentrant 可选接口, 报告后端是否可并发调用
type Reentrant interface {
	Reentrant() bool
}
