package carnot

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"carnot/result"
)

// ErrNoBracket 参数区间两端同为满足或同为不满足目标夹点
var ErrNoBracket = errors.New("carnot: target pinch is not bracketed")

// pinchSlack 判断满足目标夹点时允许的温差误差 K
const pinchSlack = 1e-6

// Target 目标夹点优化
type Target struct {
	Parameter string  // 调节参数, 形如 c32.p, 文件单位
	Component string  // 换热器
	Pinch     float64 // 目标最小温差 K
	Low, High float64 // 参数区间
	Tolerance float64 // 参数收敛宽度, 为零时取区间宽度的 1e-4
}

// Optimum 优化结果
type Optimum struct {
	Value      float64          // 满足目标夹点且最接近边界的参数值
	Bound      float64          // 不满足目标夹点一侧的参数值
	Pinch      result.Pinch     // Value 处的 QT 分析
	Snapshot   *result.Snapshot // Value 处的结果
	Iterations int              // 求解次数
}

// Optimize 二分调节参数, 使换热器的最小温差恰好达到目标
//
// 收敛且最小温差不低于目标的点为满足, 不收敛的点为不满足。区间一端满足另一端不满足,
// 结果是满足一侧距边界不超过 Tolerance 的参数值, 例如冷凝压力的最低可行值。
func (c *Cycle) Optimize(ctx context.Context, t Target) (*Optimum, error) {
	if err := c.Config.Clone().Set(t.Parameter, t.Low); err != nil {
		return nil, err
	}
	tol := t.Tolerance
	if tol <= 0 {
		tol = 1e-4 * math.Abs(t.High-t.Low)
	}
	entry := c.Logger.WithFields(log.Fields{"cycle": c.Config.Setup.Name, "target": t.Parameter, "component": t.Component})
	opt := &Optimum{}
	var warm *result.Snapshot
	eval := func(v float64) (bool, *result.Snapshot, result.Pinch, error) {
		opt.Iterations++
		cfg := c.Config.Clone()
		if err := cfg.Set(t.Parameter, v); err != nil {
			return false, nil, result.Pinch{}, err
		}
		point := c.variant(cfg, log.Fields{"target": t.Parameter, "value": v})
		snap, err := point.warmSolve(ctx, warm)
		if err != nil {
			return false, nil, result.Pinch{}, err
		}
		if !snap.Converged() {
			entry.WithField("value", v).Debug("未收敛")
			return false, snap, result.Pinch{}, nil
		}
		warm = snap
		for _, p := range snap.Pinch {
			if p.Label == t.Component {
				entry.WithFields(log.Fields{"value": v, "min": p.Min}).Debug("夹点")
				return p.Min >= t.Pinch-pinchSlack, snap, p, nil
			}
		}
		return false, snap, result.Pinch{}, fmt.Errorf("optimize: %s is not a heat exchanger", t.Component)
	}

	lo, hi := t.Low, t.High
	okLo, snapLo, pinchLo, err := eval(lo)
	if err != nil {
		return nil, err
	}
	okHi, snapHi, pinchHi, err := eval(hi)
	if err != nil {
		return nil, err
	}
	if okLo == okHi {
		return nil, fmt.Errorf("%w: %s in [%g, %g]", ErrNoBracket, t.Parameter, lo, hi)
	}
	// lo 不满足, hi 满足
	if okLo {
		lo, hi = hi, lo
		snapHi, pinchHi = snapLo, pinchLo
	}
	for math.Abs(hi-lo) > tol {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mid := (lo + hi) / 2
		ok, snap, p, err := eval(mid)
		if err != nil {
			return nil, err
		}
		if ok {
			hi, snapHi, pinchHi = mid, snap, p
		} else {
			lo = mid
		}
	}
	opt.Value, opt.Bound, opt.Snapshot, opt.Pinch = hi, lo, snapHi, pinchHi
	entry.WithFields(log.Fields{"value": hi, "min": pinchHi.Min, "solves": opt.Iterations}).Info("目标夹点优化完成")
	return opt, nil
}

// warmSolve 以上一个收敛点为初值求解, 变量不一致或未收敛时从配置初值重新求解
func (c *Cycle) warmSolve(ctx context.Context, warm *result.Snapshot) (*result.Snapshot, error) {
	if warm != nil {
		run, err := c.Resolve(ctx, warm)
		switch {
		case err == nil && run.Snapshot.Converged():
			return run.Snapshot, nil
		case err != nil && !errors.Is(err, ErrStateMismatch):
			return nil, err
		}
	}
	run, err := c.Solve(ctx)
	if err != nil {
		return nil, err
	}
	return run.Snapshot, nil
}
