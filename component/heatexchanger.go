package component

import (
	"fmt"
	"math"

	"carnot/fluid"
	"carnot/types"
)

// Terminal 端差位置
type Terminal int

// 端差位置
const (
	TerminalUpper Terminal = iota + 1 // 热端: T_hot_in - T_cold_out
	TerminalLower                     // 冷端: T_hot_out - T_cold_in
)

func (t Terminal) String() string {
	switch t {
	case TerminalUpper:
		return "ttd_u"
	case TerminalLower:
		return "ttd_l"
	}
	return "ttd_?"
}

// Pinch 端差约束
type Pinch struct {
	End Terminal // 约束端
	TTD float64  // 端差 K
}

// Exchanger 双侧换热参数
type Exchanger struct {
	HotIn, HotOut   types.StreamID // 热侧进出口
	ColdIn, ColdOut types.StreamID // 冷侧进出口
	PR1             float64        // 热侧压比
	PR2             float64        // 冷侧压比
	Pinch           Pinch          // 端差
}

// HeatExchanger 冷凝器/蒸发器
type HeatExchanger struct{ Exchanger }

// IHX 内部回热器, 两侧为同一工质
type IHX struct{ Exchanger }

func (*HeatExchanger) kind() types.Kind { return types.KindHeatExchanger }
func (*IHX) kind() types.Kind           { return types.KindIHX }

func (x *Exchanger) validate() error {
	if err := checkRatio("pr1", x.PR1, false); err != nil {
		return err
	}
	if err := checkRatio("pr2", x.PR2, false); err != nil {
		return err
	}
	if x.Pinch.End != TerminalUpper && x.Pinch.End != TerminalLower {
		return fmt.Errorf("exactly one of ttd_u/ttd_l is required")
	}
	if x.Pinch.TTD < 0 || math.IsNaN(x.Pinch.TTD) {
		return fmt.Errorf("%s must be non-negative, got %g", x.Pinch.End, x.Pinch.TTD)
	}
	return nil
}

// Terminals 两端温差 (热端, 冷端)
func (x *Exchanger) Terminals(v Values, props fluid.Properties) (upper, lower float64, err error) {
	var t [4]float64
	for i, id := range [...]types.StreamID{x.HotIn, x.HotOut, x.ColdIn, x.ColdOut} {
		if t[i], err = Temperature(v, props, id); err != nil {
			return 0, 0, err
		}
	}
	return t[0] - t[3], t[1] - t[2], nil
}

// twoSide 两侧质量守恒, 能量守恒, 两个压比, 一个端差
func twoSide(label string, x *Exchanger) []Equation {
	hi, ho, ci, co := x.HotIn, x.HotOut, x.ColdIn, x.ColdOut
	pinch := x.Pinch
	a, b := hi, co
	if pinch.End == TerminalLower {
		a, b = ho, ci
	}
	return []Equation{
		massEq(label, "mass_hot", hi, ho),
		massEq(label, "mass_cold", ci, co),
		NewEquation(label, "energy", EqEnergy, func(v Values, _ fluid.Properties) (float64, float64, error) {
			return v.M(hi) * (v.H(hi) - v.H(ho)), v.M(ci) * (v.H(co) - v.H(ci)), nil
		}, hi, ho, ci, co),
		ratioEq(label, "pr1", x.PR1, hi, ho),
		ratioEq(label, "pr2", x.PR2, ci, co),
		NewEquation(label, pinch.End.String(), EqPinch, func(v Values, props fluid.Properties) (float64, float64, error) {
			ta, err := Temperature(v, props, a)
			if err != nil {
				return 0, 0, err
			}
			tb, err := Temperature(v, props, b)
			if err != nil {
				return 0, 0, err
			}
			return ta - tb, pinch.TTD, nil
		}, a, b),
	}
}
