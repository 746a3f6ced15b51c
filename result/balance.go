package result

import (
	"fmt"

	"carnot/component"
	"carnot/network"
	"carnot/types"
)

// Balance 部件平衡
//
// 功率以输入为正; 换热器的 Q 为热侧传给冷侧的热量。
type Balance struct {
	Label             string     `json:"label"`
	Kind              types.Kind `json:"kind"`
	Q                 float64    `json:"Q"`      // 热负荷 W
	P                 float64    `json:"P"`      // 功率 W
	SGen              float64    `json:"S_gen"`  // 熵产 W/K
	Mass              float64    `json:"mass"`   // 质量不平衡 kg/s
	Energy            float64    `json:"energy"` // 能量不平衡 W
	ExergyDestruction float64    `json:"E_D,omitempty"`
	ExergyEfficiency  float64    `json:"epsilon,omitempty"` // 无定义时为 0
}

// balance 部件的能量, 熵和㶲平衡
func (snap *Snapshot) balance(c component.Component, v component.Values) (Balance, error) {
	b := Balance{Label: c.Label, Kind: c.Kind()}
	in, out := c.Ports()
	var ein, eout float64
	for _, id := range append(append([]types.StreamID(nil), in...), out...) {
		if snap.Streams[id].Error != "" {
			return b, fmt.Errorf("stream %s: %s", snap.Streams[id].Label, snap.Streams[id].Error)
		}
	}
	for _, id := range in {
		ss := snap.Streams[id]
		b.Mass += ss.M
		b.Energy += ss.M * ss.H
		b.SGen -= ss.M * ss.S
		ein += ss.M * ss.Exergy
	}
	for _, id := range out {
		ss := snap.Streams[id]
		b.Mass -= ss.M
		b.Energy -= ss.M * ss.H
		b.SGen += ss.M * ss.S
		eout += ss.M * ss.Exergy
	}
	flow := func(id types.StreamID) float64 { return v.M(id) * snap.Streams[id].Exergy }
	switch p := c.Params.(type) {
	case *component.HeatExchanger, *component.IHX:
		x := exchanger(p)
		b.Q = v.M(x.ColdIn) * (v.H(x.ColdOut) - v.H(x.ColdIn))
		if d := flow(x.HotIn) - flow(x.HotOut); d > 0 {
			b.ExergyEfficiency = (flow(x.ColdOut) - flow(x.ColdIn)) / d
		}
	case *component.Compressor, *component.Pump, *component.Expander:
		b.P = -b.Energy
		b.Energy = 0
		switch {
		case b.P > 0:
			b.ExergyEfficiency = (eout - ein) / b.P
		case b.P < 0 && ein > eout:
			b.ExergyEfficiency = -b.P / (ein - eout)
		}
	case *component.Valve:
		if ein > 0 {
			b.ExergyEfficiency = eout / ein
		}
	}
	if snap.Ambient != nil {
		b.ExergyDestruction = snap.Ambient.T * b.SGen
	}
	return b, nil
}

func exchanger(p component.Params) *component.Exchanger {
	switch x := p.(type) {
	case *component.HeatExchanger:
		return &x.Exchanger
	case *component.IHX:
		return &x.Exchanger
	}
	return nil
}

// Indicators 性能指标
type Indicators struct {
	Working     string  `json:"working"`               // 循环工质
	HeatInput   float64 `json:"heat_input"`            // 工质吸热 W
	HeatOutput  float64 `json:"heat_output"`           // 工质放热 W
	PowerInput  float64 `json:"power_input"`           // 输入功率 W
	PowerOutput float64 `json:"power_output"`          // 输出功率 W
	NetPower    float64 `json:"net_power"`             // 净输出功率 W
	COP         float64 `json:"cop,omitempty"`         // 热泵性能系数
	Efficiency  float64 `json:"efficiency,omitempty"`  // 热效率
	Destruction float64 `json:"destruction,omitempty"` // 总㶲损 W
}

// indicators 热泵 COP 和动力循环效率
func (snap *Snapshot) indicators(sys *network.System, working string) Indicators {
	comps := sys.Network.Components
	if working == "" {
		for _, c := range comps {
			switch p := c.Params.(type) {
			case *component.Compressor:
				working = sys.Fluid(p.In)
			case *component.Pump:
				working = sys.Fluid(p.In)
			case *component.Expander:
				working = sys.Fluid(p.In)
			default:
				continue
			}
			break
		}
	}
	k := Indicators{Working: working}
	for i, b := range snap.Balances {
		k.Destruction += b.ExergyDestruction
		c, ok := sys.Network.Component(snap.Balances[i].Label)
		if !ok {
			continue
		}
		switch p := c.Params.(type) {
		case *component.HeatExchanger:
			if sys.Fluid(p.HotIn) == working {
				k.HeatOutput += b.Q
			}
			if sys.Fluid(p.ColdIn) == working {
				k.HeatInput += b.Q
			}
		case *component.Compressor, *component.Pump, *component.Expander:
			if b.P > 0 {
				k.PowerInput += b.P
			} else {
				k.PowerOutput -= b.P
			}
		}
	}
	k.NetPower = k.PowerOutput - k.PowerInput
	if k.NetPower < 0 && k.PowerInput > 0 {
		k.COP = k.HeatOutput / k.PowerInput
	}
	if k.NetPower > 0 && k.HeatInput > 0 {
		k.Efficiency = k.NetPower / k.HeatInput
	}
	return k
}
