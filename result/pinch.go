package result

import (
	"math"

	"carnot/component"
	"carnot/fluid"
	"carnot/types"
)

// pinchTolerance 端差低于设定值超过该量视为违反
const pinchTolerance = 1e-2

// Pinch 换热器 QT 分析
//
// 逆流假设下沿比焓均分, 压力线性插值。
type Pinch struct {
	Label    string    `json:"label"`
	Q        []float64 `json:"Q"`        // 累计换热量 W, 自冷端起
	Hot      []float64 `json:"hot"`      // 热侧温度 K
	Cold     []float64 `json:"cold"`     // 冷侧温度 K
	Min      float64   `json:"min"`      // 最小温差 K
	Max      float64   `json:"max"`      // 最大温差 K
	Target   float64   `json:"target"`   // 设定端差 K
	Crossed  bool      `json:"crossed"`  // 温度交叉
	Violated bool      `json:"violated"` // 低于设定端差
}

// pinch 计算换热器温度曲线
func pinch(c component.Component, v component.Values, props fluid.Properties, steps int) (Pinch, bool, error) {
	x := exchanger(c.Params)
	if x == nil {
		return Pinch{}, false, nil
	}
	p := Pinch{Label: c.Label, Target: x.Pinch.TTD, Min: math.Inf(1), Max: math.Inf(-1)}
	hotFluid, coldFluid := v.Fluid(x.HotIn), v.Fluid(x.ColdIn)
	m := v.M(x.ColdIn)
	for i := range steps + 1 {
		f := float64(i) / float64(steps)
		hh := lerp(v.H(x.HotOut), v.H(x.HotIn), f)
		ph := lerp(v.P(x.HotOut), v.P(x.HotIn), f)
		hc := lerp(v.H(x.ColdIn), v.H(x.ColdOut), f)
		pc := lerp(v.P(x.ColdIn), v.P(x.ColdOut), f)
		th, err := props.Temperature(hotFluid, ph, hh)
		if err != nil {
			return p, false, err
		}
		tc, err := props.Temperature(coldFluid, pc, hc)
		if err != nil {
			return p, false, err
		}
		p.Q = append(p.Q, m*(hc-v.H(x.ColdIn)))
		p.Hot = append(p.Hot, th)
		p.Cold = append(p.Cold, tc)
		d := th - tc
		p.Min = math.Min(p.Min, d)
		p.Max = math.Max(p.Max, d)
	}
	p.Crossed = p.Min < 0
	p.Violated = p.Min < p.Target-pinchTolerance
	return p, true, nil
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

// Terminal 换热器两端温差
type Terminal struct {
	Upper float64 // 热端 T_hot_in - T_cold_out
	Lower float64 // 冷端 T_hot_out - T_cold_in
}

// Terminals 收敛状态下各换热器的端差
func (snap *Snapshot) Terminals(c component.Component) (Terminal, bool) {
	x := exchanger(c.Params)
	if x == nil || len(snap.Streams) == 0 {
		return Terminal{}, false
	}
	t := func(id types.StreamID) float64 { return snap.Streams[id].T }
	return Terminal{
		Upper: t(x.HotIn) - t(x.ColdOut),
		Lower: t(x.HotOut) - t(x.ColdIn),
	}, true
}
