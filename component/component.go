package component

import (
	"fmt"
	"math"

	"carnot/fluid"
	"carnot/types"
)

// Values 流股状态读取
type Values interface {
	P(id types.StreamID) float64
	H(id types.StreamID) float64
	M(id types.StreamID) float64
	Fluid(id types.StreamID) string
}

// EquationKind 方程类别
type EquationKind int

// 方程类别
const (
	EqMass       EquationKind = iota // 质量守恒
	EqEnergy                         // 能量守恒
	EqPressure                       // 压比/等压
	EqPinch                          // 端差
	EqEfficiency                     // 等熵效率
	EqEnthalpy                       // 等焓
	EqBoundary                       // 边界条件
)

var kindName = [...]string{"mass", "energy", "pressure", "pinch", "efficiency", "enthalpy", "boundary"}

func (k EquationKind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}
	return fmt.Sprintf("EquationKind(%d)", int(k))
}

// floor 相对残差分母下限
var floor = map[EquationKind]float64{
	EqMass:       1e-3,
	EqEnergy:     1,
	EqPressure:   1,
	EqPinch:      1,
	EqEfficiency: 1,
	EqEnthalpy:   1,
	EqBoundary:   1,
}

// Eval 方程求值, 残差为 lhs - rhs
type Eval func(v Values, props fluid.Properties) (lhs, rhs float64, err error)

// Equation 残差方程
type Equation struct {
	Label   string           // 如 cond.energy
	Owner   string           // 所属部件或流股
	Kind    EquationKind     // 类别
	Streams []types.StreamID // 依赖流股
	Eval    Eval
}

// Residual 残差和相对残差
func (e *Equation) Residual(v Values, props fluid.Properties) (r, rel float64, err error) {
	lhs, rhs, err := e.Eval(v, props)
	if err != nil {
		return 0, 0, err
	}
	r = lhs - rhs
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return r, r, fmt.Errorf("%s: non-finite residual", e.Label)
	}
	return r, r / math.Max(math.Max(math.Abs(lhs), math.Abs(rhs)), floor[e.Kind]), nil
}

// NewEquation 创建方程
func NewEquation(owner, name string, kind EquationKind, eval Eval, streams ...types.StreamID) Equation {
	return Equation{Label: owner + "." + name, Owner: owner, Kind: kind, Streams: streams, Eval: eval}
}

// Params 部件参数, 封闭变体集合
type Params interface {
	kind() types.Kind
}

// Component 部件
type Component struct {
	Label  string // 标识, 如 cond
	Params Params // 参数
}

// Kind 部件类型
func (c Component) Kind() types.Kind {
	if c.Params == nil {
		return types.KindUnknown
	}
	return c.Params.kind()
}

// Side 一侧的进出口
type Side struct {
	Name    string         // hot/cold/main
	In, Out types.StreamID // 进出口流股
}

// Sides 质量守恒的流道
func (c Component) Sides() []Side {
	switch p := c.Params.(type) {
	case *HeatExchanger:
		return []Side{{"hot", p.HotIn, p.HotOut}, {"cold", p.ColdIn, p.ColdOut}}
	case *IHX:
		return []Side{{"hot", p.HotIn, p.HotOut}, {"cold", p.ColdIn, p.ColdOut}}
	case *Compressor:
		return []Side{{"main", p.In, p.Out}}
	case *Pump:
		return []Side{{"main", p.In, p.Out}}
	case *Expander:
		return []Side{{"main", p.In, p.Out}}
	case *Valve:
		return []Side{{"main", p.In, p.Out}}
	case *CycleCloser:
		return []Side{{"main", p.In, p.Out}}
	}
	return nil
}

// Ports 全部进口和出口
func (c Component) Ports() (in, out []types.StreamID) {
	switch p := c.Params.(type) {
	case *Splitter:
		return []types.StreamID{p.In}, append([]types.StreamID(nil), p.Out...)
	case *Mixer:
		return append([]types.StreamID(nil), p.In...), []types.StreamID{p.Out}
	}
	for _, s := range c.Sides() {
		in = append(in, s.In)
		out = append(out, s.Out)
	}
	return in, out
}

// Validate 参数检查
func (c Component) Validate() error {
	if c.Label == "" {
		return fmt.Errorf("component: empty label")
	}
	var err error
	switch p := c.Params.(type) {
	case *HeatExchanger:
		err = p.validate()
	case *IHX:
		err = p.validate()
	case *Compressor:
		err = p.validate()
	case *Pump:
		err = p.validate()
	case *Expander:
		err = p.validate()
	case *Valve:
		err = checkRatio("pr", p.PR, true)
	case *Splitter:
		if len(p.Out) == 0 {
			err = fmt.Errorf("splitter needs at least one outlet")
		}
	case *Mixer:
		if len(p.In) == 0 {
			err = fmt.Errorf("mixer needs at least one inlet")
		}
	case *CycleCloser:
	default:
		err = fmt.Errorf("unknown component parameters %T", c.Params)
	}
	if err != nil {
		return fmt.Errorf("component %s: %w", c.Label, err)
	}
	return nil
}

// Equations 部件贡献的残差方程
func (c Component) Equations() []Equation {
	switch p := c.Params.(type) {
	case *HeatExchanger:
		return twoSide(c.Label, &p.Exchanger)
	case *IHX:
		return twoSide(c.Label, &p.Exchanger)
	case *Compressor:
		return machine(c.Label, &p.Machine, compression)
	case *Pump:
		return machine(c.Label, &p.Machine, compression)
	case *Expander:
		return machine(c.Label, &p.Machine, expansion)
	case *Valve:
		return valve(c.Label, p)
	case *Splitter:
		return splitter(c.Label, p)
	case *Mixer:
		return mixer(c.Label, p)
	case *CycleCloser:
		return closer(c.Label, p)
	}
	return nil
}

// Residuals 在给定状态下求部件残差
func (c Component) Residuals(v Values, props fluid.Properties) ([]float64, error) {
	eqs := c.Equations()
	res := make([]float64, len(eqs))
	for i := range eqs {
		r, _, err := eqs[i].Residual(v, props)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", eqs[i].Label, err)
		}
		res[i] = r
	}
	return res, nil
}

// Temperature 流股温度
func Temperature(v Values, props fluid.Properties, id types.StreamID) (float64, error) {
	return props.Temperature(v.Fluid(id), v.P(id), v.H(id))
}

func checkRatio(name string, pr float64, optional bool) error {
	if optional && pr == 0 {
		return nil
	}
	if !(pr > 0) || math.IsInf(pr, 0) {
		return fmt.Errorf("%s must be positive, got %g", name, pr)
	}
	return nil
}

// 通用方程
func massEq(owner, name string, in, out types.StreamID) Equation {
	return NewEquation(owner, name, EqMass, func(v Values, _ fluid.Properties) (float64, float64, error) {
		return v.M(in), v.M(out), nil
	}, in, out)
}

func ratioEq(owner, name string, pr float64, in, out types.StreamID) Equation {
	return NewEquation(owner, name, EqPressure, func(v Values, _ fluid.Properties) (float64, float64, error) {
		return v.P(out), pr * v.P(in), nil
	}, in, out)
}

func equalEq(owner, name string, kind EquationKind, q types.Quantity, a, b types.StreamID) Equation {
	return NewEquation(owner, name, kind, func(v Values, _ fluid.Properties) (float64, float64, error) {
		if q == types.Pressure {
			return v.P(a), v.P(b), nil
		}
		return v.H(a), v.H(b), nil
	}, a, b)
}
