package component

import (
	"fmt"

	"carnot/fluid"
	"carnot/types"
)

// Machine 单流道叶轮机械参数
type Machine struct {
	In, Out types.StreamID // 进出口
	EtaS    float64        // 等熵效率
	PR      float64        // 压比 p_out/p_in, 0 表示由网络给定出口压力
}

// Compressor 压缩机
type Compressor struct{ Machine }

// Pump 泵
type Pump struct{ Machine }

// Expander 膨胀机
type Expander struct{ Machine }

func (*Compressor) kind() types.Kind { return types.KindCompressor }
func (*Pump) kind() types.Kind       { return types.KindPump }
func (*Expander) kind() types.Kind   { return types.KindExpander }

func (m *Machine) validate() error {
	if !(m.EtaS > 0 && m.EtaS <= 1) {
		return fmt.Errorf("eta_s must be in (0, 1], got %g", m.EtaS)
	}
	return checkRatio("pr", m.PR, true)
}

// process 压缩或膨胀
type process int

const (
	compression process = iota
	expansion
)

// machine 质量守恒, 等熵效率, 可选压比
func machine(label string, m *Machine, proc process) []Equation {
	in, out, eta := m.In, m.Out, m.EtaS
	eqs := []Equation{
		massEq(label, "mass", in, out),
		NewEquation(label, "eta_s", EqEfficiency, func(v Values, props fluid.Properties) (float64, float64, error) {
			f := v.Fluid(in)
			s, err := props.Entropy(f, v.P(in), v.H(in))
			if err != nil {
				return 0, 0, err
			}
			hs, err := props.IsentropicEnthalpy(f, v.P(out), s)
			if err != nil {
				return 0, 0, err
			}
			if proc == compression {
				// h_out = h_in + (h_s - h_in)/eta
				return eta * (v.H(out) - v.H(in)), hs - v.H(in), nil
			}
			// h_out = h_in - eta (h_in - h_s)
			return v.H(in) - v.H(out), eta * (v.H(in) - hs), nil
		}, in, out),
	}
	if m.PR != 0 {
		eqs = append(eqs, ratioEq(label, "pr", m.PR, in, out))
	}
	return eqs
}
