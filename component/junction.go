package component

import (
	"fmt"

	"carnot/fluid"
	"carnot/types"
)

// Splitter 分流器
type Splitter struct {
	In  types.StreamID   // 进口
	Out []types.StreamID // 出口
}

// Mixer 混合器
type Mixer struct {
	In  []types.StreamID // 进口
	Out types.StreamID   // 出口
}

func (*Splitter) kind() types.Kind { return types.KindSplitter }
func (*Mixer) kind() types.Kind    { return types.KindMixer }

// splitter 质量守恒, 各出口与进口等压等焓
func splitter(label string, p *Splitter) []Equation {
	in, outs := p.In, append([]types.StreamID(nil), p.Out...)
	eqs := []Equation{
		NewEquation(label, "mass", EqMass, func(v Values, _ fluid.Properties) (float64, float64, error) {
			var sum float64
			for _, o := range outs {
				sum += v.M(o)
			}
			return v.M(in), sum, nil
		}, append([]types.StreamID{in}, outs...)...),
	}
	for i, o := range outs {
		eqs = append(eqs,
			equalEq(label, fmt.Sprintf("pressure_%d", i+1), EqPressure, types.Pressure, in, o),
			equalEq(label, fmt.Sprintf("enthalpy_%d", i+1), EqEnthalpy, types.Enthalpy, in, o),
		)
	}
	return eqs
}

// mixer 质量守恒, 能量守恒, 各进口与出口等压
func mixer(label string, p *Mixer) []Equation {
	ins, out := append([]types.StreamID(nil), p.In...), p.Out
	all := append(append([]types.StreamID(nil), ins...), out)
	eqs := []Equation{
		NewEquation(label, "mass", EqMass, func(v Values, _ fluid.Properties) (float64, float64, error) {
			var sum float64
			for _, i := range ins {
				sum += v.M(i)
			}
			return sum, v.M(out), nil
		}, all...),
		NewEquation(label, "energy", EqEnergy, func(v Values, _ fluid.Properties) (float64, float64, error) {
			var sum float64
			for _, i := range ins {
				sum += v.M(i) * v.H(i)
			}
			return sum, v.M(out) * v.H(out), nil
		}, all...),
	}
	for i, in := range ins {
		eqs = append(eqs, equalEq(label, fmt.Sprintf("pressure_%d", i+1), EqPressure, types.Pressure, in, out))
	}
	return eqs
}
