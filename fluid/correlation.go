package fluid

import (
	"fmt"
	"math"

	"carnot/types"
)

// Correlation 内置对应态物性后端
//
// 液相比热、气相比热取常数, 饱和曲线和汽化潜热由临界参数、沸点和偏心因子给出。
// 除饱和温度外全部为解析反算, 适合方程求解器反复调用。
type Correlation struct {
	fluids map[string]*Fluid // 规范名称
	alias  map[string]string // 别名 -> 规范名称
}

// NewCorrelation 创建后端, 未指定工质时加载默认工质库
func NewCorrelation(fluids ...*Fluid) (*Correlation, error) {
	if len(fluids) == 0 {
		fluids = Library()
	}
	c := &Correlation{fluids: map[string]*Fluid{}, alias: map[string]string{}}
	for _, f := range fluids {
		if err := f.Init(); err != nil {
			return nil, err
		}
		name := Canonical(f.Name)
		if _, ok := c.alias[name]; ok {
			return nil, fmt.Errorf("fluid %s registered twice", f.Name)
		}
		c.fluids[name] = f
		c.alias[name] = name
		for _, a := range f.Aliases {
			c.alias[Canonical(a)] = name
		}
	}
	return c, nil
}

// Name 后端名称
func (*Correlation) Name() string { return "correlation" }

// Reentrant 只读表, 可并发调用
func (*Correlation) Reentrant() bool { return true }

// Resolve 解析工质标识
func (c *Correlation) Resolve(fluid string) (string, error) {
	if name, ok := c.alias[Canonical(fluid)]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFluid, fluid)
}

// Fluid 获取工质参数
func (c *Correlation) Fluid(fluid string) (*Fluid, error) {
	name, err := c.Resolve(fluid)
	if err != nil {
		return nil, err
	}
	return c.fluids[name], nil
}

// state 由 (p, h) 确定的完整状态
type state struct {
	T, h, s, x float64
	phase      types.Phase
}

// Props 物性查询
func (c *Correlation) Props(out Param, in1 Param, v1 float64, in2 Param, v2 float64, fluid string) (float64, error) {
	f, err := c.Fluid(fluid)
	if err != nil {
		return 0, err
	}
	if in2 == ParamP {
		in1, v1, in2, v2 = in2, v2, in1, v1
	}
	if in1 != ParamP {
		return 0, ErrUnsupported
	}
	p := v1
	if !(p > 0 && p <= f.Pmax) {
		return 0, ErrOutOfRange
	}
	var h float64
	switch in2 {
	case ParamH:
		h = v2
	case ParamT:
		if h, err = f.enthalpyPT(p, v2); err != nil {
			return 0, err
		}
	case ParamS:
		if h, err = f.enthalpyPS(p, v2); err != nil {
			return 0, err
		}
	case ParamQ:
		if !(v2 >= 0 && v2 <= 1) {
			return 0, ErrOutOfRange
		}
		sat, err := f.saturation(p)
		if err != nil {
			return 0, err
		}
		h = sat.hL + v2*(sat.hV-sat.hL)
	default:
		return 0, ErrUnsupported
	}
	st, err := f.statePH(p, h)
	if err != nil {
		return 0, err
	}
	switch out {
	case ParamP:
		return p, nil
	case ParamT:
		return st.T, nil
	case ParamH:
		return st.h, nil
	case ParamS:
		return st.s, nil
	case ParamQ:
		return st.x, nil
	case ParamPhase:
		return float64(st.phase), nil
	}
	return 0, ErrUnsupported
}

// statePH 由压力和比焓求状态
func (f *Fluid) statePH(p, h float64) (st state, err error) {
	st.h, st.x = h, -1
	if p >= f.Pc {
		st.phase = types.PhaseSupercritical
		if hc := f.hLiquid(p, f.Tc); h <= hc {
			st.T = f.tLiquid(p, h)
			st.s = f.sLiquid(st.T)
		} else {
			st.T = f.Tc + (h-hc)/f.Cpv
			st.s = f.sLiquid(f.Tc) + f.Cpv*math.Log(st.T/f.Tc)
		}
		return st, f.checkT(st.T)
	}
	sat, err := f.saturation(p)
	if err != nil {
		return st, err
	}
	switch {
	case h < sat.hL:
		st.phase = types.PhaseSubcooled
		st.T = f.tLiquid(p, h)
		if err = f.checkT(st.T); err != nil {
			return st, err
		}
		st.s = f.sLiquid(st.T)
	case h <= sat.hV:
		st.phase = types.PhaseTwoPhase
		st.T = sat.T
		st.x = (h - sat.hL) / (sat.hV - sat.hL)
		st.s = sat.sL + (h-sat.hL)/sat.T
	default:
		st.phase = types.PhaseSuperheated
		st.T = sat.T + (h-sat.hV)/f.Cpv
		st.s = sat.sV + f.Cpv*math.Log(st.T/sat.T)
	}
	return st, f.checkT(st.T)
}

// enthalpyPT 由压力和温度求比焓, 饱和温度处取液相
func (f *Fluid) enthalpyPT(p, T float64) (float64, error) {
	if err := f.checkT(T); err != nil {
		return 0, err
	}
	if p >= f.Pc {
		if T <= f.Tc {
			return f.hLiquid(p, T), nil
		}
		return f.hLiquid(p, f.Tc) + f.Cpv*(T-f.Tc), nil
	}
	sat, err := f.saturation(p)
	if err != nil {
		return 0, err
	}
	if T <= sat.T {
		return f.hLiquid(p, T), nil
	}
	return sat.hV + f.Cpv*(T-sat.T), nil
}

// enthalpyPS 由压力和比熵求比焓
func (f *Fluid) enthalpyPS(p, s float64) (float64, error) {
	if p >= f.Pc {
		if sc := f.sLiquid(f.Tc); s > sc {
			return f.hLiquid(p, f.Tc) + f.Cpv*(f.Tc*math.Exp((s-sc)/f.Cpv)-f.Tc), nil
		}
		return f.hLiquid(p, tRef*math.Exp(s/f.Cpl)), nil
	}
	sat, err := f.saturation(p)
	if err != nil {
		return 0, err
	}
	switch {
	case s < sat.sL:
		return f.hLiquid(p, tRef*math.Exp(s/f.Cpl)), nil
	case s <= sat.sV:
		return sat.hL + (s-sat.sL)*sat.T, nil
	}
	T := sat.T * math.Exp((s-sat.sV)/f.Cpv)
	return sat.hV + f.Cpv*(T-sat.T), nil
}

func (f *Fluid) checkT(T float64) error {
	if math.IsNaN(T) || T < f.Tmin || T > f.Tmax {
		return ErrOutOfRange
	}
	return nil
}
