package solver

import (
	"context"
	"errors"
	"math"
	"runtime"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"

	"carnot/fluid"
	"carnot/types"
)

// System 求解器看到的方程组
type System interface {
	// Size 变量数(等于方程数)
	Size() int
	// Rows 依赖第 col 个变量的方程
	Rows(col int) []int
	// Nominal 变量量级
	Nominal(col int) float64
	// Label 方程标识
	Label(row int) string
	// Eval 第 row 个方程在 x 处的残差和相对残差
	Eval(row int, x []float64, props fluid.Properties) (r, rel float64, err error)
	// Feasible 压力为正, 质量流量非负
	Feasible(x []float64) bool
}

// Step 单步迭代记录
type Step struct {
	Iteration   int       // 步数
	Norm        float64   // 步后范数
	Damping     float64   // 阻尼因子
	Shrinks     int       // 减半次数
	Cond        float64   // 缩放后条件数估计
	Regularized bool      // 是否使用正则化
	X           []float64 // 步后迭代点副本
}

// Options 求解参数
type Options struct {
	Tolerance      float64       // 收敛容差(相对残差二范数)
	MaxIterations  int           // 最大迭代次数
	MaxShrink      int           // 最大步长减半次数
	Workers        int           // 雅可比并行列数
	ConditionLimit float64       // 条件数上限
	Regularization float64       // 正则化系数(相对)
	Perturbation   float64       // 有限差分相对步长
	Timeout        time.Duration // 墙钟超时, 0 为不限
	Observer       func(Step)    // 迭代回调
	Logger         *log.Entry    // 日志
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		Tolerance:      types.Tolerance,
		MaxIterations:  types.MaxIterations,
		MaxShrink:      types.MaxShrink,
		Workers:        runtime.GOMAXPROCS(0),
		ConditionLimit: types.ConditionLimit,
		Regularization: types.Regularization,
		Perturbation:   types.PerturbationStep,
	}
}

// Solver 阻尼牛顿求解器
type Solver struct {
	opts  Options
	props fluid.Properties
	log   *log.Entry
}

// New 创建求解器, props 为物性查询(通常是 *fluid.Adapter)
func New(props fluid.Properties, opts Options) *Solver {
	def := DefaultOptions()
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.MaxShrink <= 0 {
		opts.MaxShrink = def.MaxShrink
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.ConditionLimit <= 0 {
		opts.ConditionLimit = def.ConditionLimit
	}
	if opts.Regularization <= 0 {
		opts.Regularization = def.Regularization
	}
	if opts.Perturbation <= 0 {
		opts.Perturbation = def.Perturbation
	}
	entry := opts.Logger
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &Solver{opts: opts, props: props, log: entry}
}

// Options 当前参数
func (s *Solver) Options() Options { return s.opts }

// sweep 每次残差扫描使用新的缓存
func (s *Solver) sweep() fluid.Properties {
	if a, ok := s.props.(*fluid.Adapter); ok {
		return a.Sweep()
	}
	return s.props
}

// residual 求全部残差
func (s *Solver) residual(sys System, x []float64, props fluid.Properties, r, rel []float64) error {
	for i := range r {
		var err error
		if r[i], rel[i], err = sys.Eval(i, x, props); err != nil {
			return &EquationError{Row: i, Label: sys.Label(i), Err: err}
		}
	}
	return nil
}

// Solve 从 x0 出发求解
//
// 每步先求残差, 范数低于容差即收敛; 否则求雅可比和牛顿步, 步长在越界或物性失败时减半。
// 返回的状态总带有最后的迭代点和残差向量。
func (s *Solver) Solve(ctx context.Context, sys System, x0 []float64) *State {
	n := sys.Size()
	st := &State{
		X:        slices.Clone(x0),
		Residual: make([]float64, n),
		Relative: make([]float64, n),
		Status:   Initialized,
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	props := s.sweep()
	if err := s.residual(sys, st.X, props, st.Residual, st.Relative); err != nil {
		st.Status, st.Cause, st.Err = PropertyFailure, CauseProperty, err
		s.log.WithError(err).Error("初始点残差计算失败")
		return st
	}
	st.Status = Iterating
	for {
		st.Norm = norm2(st.Relative)
		st.History = append(st.History, st.Norm)
		s.log.WithFields(log.Fields{"iter": st.Iteration, "norm": st.Norm}).Debug("残差")
		switch {
		case st.Norm < s.opts.Tolerance:
			st.Status = Converged
			return st
		case math.IsNaN(st.Norm):
			st.Status, st.Cause = Diverged, CauseProperty
			return st
		case st.Iteration >= s.opts.MaxIterations:
			st.Status = MaxIterationsExceeded
			return st
		case ctx.Err() != nil:
			st.Status, st.Err = TimeoutExceeded, ctx.Err()
			return st
		}
		jac, err := s.jacobian(ctx, sys, st.X, st.Residual, props)
		if err != nil {
			if ctx.Err() != nil {
				st.Status, st.Err = TimeoutExceeded, ctx.Err()
				return st
			}
			st.Status, st.Cause, st.Err = Diverged, CauseProperty, err
			return st
		}
		dx, info, err := s.newtonStep(sys, jac, st.Residual, st.X)
		if err != nil {
			st.Status, st.Cause, st.Err = Diverged, CauseSingular, err
			s.log.WithError(err).WithField("iter", st.Iteration).Warn("雅可比矩阵奇异")
			return st
		}
		if info.Regularized {
			s.log.WithFields(log.Fields{"iter": st.Iteration, "cond": info.Cond}).Warn("雅可比病态, 使用正则化步")
		}
		// 阻尼
		var (
			trial   = make([]float64, n)
			r       = make([]float64, n)
			rel     = make([]float64, n)
			alpha   = 1.0
			ok      bool
			lastErr error
			shrinks int
		)
		for ; shrinks <= s.opts.MaxShrink; shrinks++ {
			for i := range trial {
				trial[i] = st.X[i] + alpha*dx[i]
			}
			if sys.Feasible(trial) {
				next := s.sweep()
				if lastErr = s.residual(sys, trial, next, r, rel); lastErr == nil {
					props, ok = next, true
					break
				}
			}
			alpha /= 2
		}
		if !ok {
			st.Status, st.Cause, st.Err = Diverged, CauseDamping, lastErr
			s.log.WithField("iter", st.Iteration).WithError(lastErr).Warn("步长减半次数耗尽")
			return st
		}
		st.X, st.Residual, st.Relative = trial, r, rel
		st.Iteration++
		if s.opts.Observer != nil {
			s.opts.Observer(Step{
				Iteration:   st.Iteration,
				Norm:        norm2(rel),
				Damping:     alpha,
				Shrinks:     shrinks,
				Cond:        info.Cond,
				Regularized: info.Regularized,
				X:           slices.Clone(trial),
			})
		}
	}
}

// EquationError 方程求值失败
type EquationError struct {
	Row   int    // 方程序号
	Label string // 方程标识
	Err   error
}

func (e *EquationError) Error() string { return e.Label + ": " + e.Err.Error() }

func (e *EquationError) Unwrap() error { return e.Err }

// IsProperty 错误是否来自物性后端
func IsProperty(err error) bool {
	var pe *fluid.PropertyError
	return errors.As(err, &pe) || fluid.IsPropertyError(err)
}
