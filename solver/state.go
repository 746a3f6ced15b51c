package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrSingularJacobian 雅可比矩阵奇异或病态, 正则化重试失败
var ErrSingularJacobian = errors.New("solver: singular jacobian")

// Status 求解状态
type Status int

// 状态机: Initialized -> Iterating -> {Converged, Diverged, MaxIterationsExceeded, TimeoutExceeded, PropertyFailure}
const (
	Initialized           Status = iota // 已初始化
	Iterating                           // 迭代中
	Converged                           // 收敛
	Diverged                            // 发散
	MaxIterationsExceeded               // 超过迭代上限
	TimeoutExceeded                     // 超时
	PropertyFailure                     // 初始点物性失败
)

var statusName = [...]string{"initialized", "iterating", "converged", "diverged", "max-iterations", "timeout", "property-failure"}

func (s Status) String() string {
	if int(s) < len(statusName) {
		return statusName[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText 以名称导出
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal 是否为终止状态
func (s Status) Terminal() bool { return s > Iterating }

// Cause 发散原因
type Cause int

// 发散原因
const (
	CauseNone     Cause = iota // 无
	CauseSingular              // 雅可比奇异
	CauseDamping               // 步长减半耗尽
	CauseProperty              // 物性失败
)

var causeName = [...]string{"", "singular", "damping", "property"}

func (c Cause) String() string {
	if int(c) < len(causeName) {
		return causeName[c]
	}
	return fmt.Sprintf("Cause(%d)", int(c))
}

// MarshalText 以名称导出
func (c Cause) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// State 单次求解的状态, 由 Solve 独占
type State struct {
	X         []float64 // 迭代点
	Residual  []float64 // 残差 lhs - rhs
	Relative  []float64 // 相对残差
	Iteration int       // 已完成的牛顿步数
	Norm      float64   // 当前相对残差范数
	History   []float64 // 范数历史
	Status    Status    // 状态
	Cause     Cause     // 发散原因
	Err       error     // 终止时的底层错误
}

// Converged 是否收敛
func (st *State) Converged() bool { return st.Status == Converged }

// Failure 未满足的方程
type Failure struct {
	Row      int     // 方程序号
	Label    string  // 方程标识
	Residual float64 // 残差
	Relative float64 // 相对残差
}

// Failures 相对残差超过容差的方程, 按大小降序
func (st *State) Failures(sys System, tol float64) []Failure {
	var list []Failure
	for i, rel := range st.Relative {
		if math.Abs(rel) > tol || math.IsNaN(rel) {
			list = append(list, Failure{Row: i, Label: sys.Label(i), Residual: st.Residual[i], Relative: rel})
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		return math.Abs(list[a].Relative) > math.Abs(list[b].Relative)
	})
	return list
}

// norm2 二范数
func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
