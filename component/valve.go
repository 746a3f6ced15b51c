package component

import "carnot/types"

// Valve 节流阀, 等焓
type Valve struct {
	In, Out types.StreamID // 进出口
	PR      float64        // 可选压比
}

// CycleCloser 循环闭合点
//
// 闭合回路的质量方程线性相关, 此处只约束压力和比焓。
type CycleCloser struct {
	In, Out types.StreamID // 进出口
}

func (*Valve) kind() types.Kind       { return types.KindValve }
func (*CycleCloser) kind() types.Kind { return types.KindCycleCloser }

func valve(label string, p *Valve) []Equation {
	eqs := []Equation{
		massEq(label, "mass", p.In, p.Out),
		equalEq(label, "enthalpy", EqEnthalpy, types.Enthalpy, p.In, p.Out),
	}
	if p.PR != 0 {
		eqs = append(eqs, ratioEq(label, "pr", p.PR, p.In, p.Out))
	}
	return eqs
}

func closer(label string, p *CycleCloser) []Equation {
	return []Equation{
		equalEq(label, "pressure", EqPressure, types.Pressure, p.In, p.Out),
		equalEq(label, "enthalpy", EqEnthalpy, types.Enthalpy, p.In, p.Out),
	}
}
