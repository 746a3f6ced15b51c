package network

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"carnot/component"
	"carnot/fluid"
	"carnot/types"
)

// seed 初值推算中的流股状态
type seed struct {
	v     [3]float64
	known [3]bool
}

func (s *seed) set(q types.Quantity, v float64) bool {
	if s.known[q] {
		return false
	}
	s.v[q], s.known[q] = v, true
	return true
}

// Initialize 生成第一个迭代点
//
// 先取固定值和给定初值, 再沿部件向相邻流股传播(节流和闭合点等焓, 按压比传播压力,
// 同一流道质量流量相等), 仍缺失的取缺省值。初始化只生成迭代点, 不满足任何方程。
func (s *System) Initialize(props fluid.Properties, entry *log.Entry) ([]float64, error) {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	n := s.Network
	seeds := make([]seed, n.Streams.Len())
	for id := range seeds {
		for _, q := range types.Quantities {
			if s.index[id][q] < 0 {
				seeds[id].set(q, s.fixed[id][q])
			}
		}
		st := n.starts[id]
		if st.P != nil {
			seeds[id].set(types.Pressure, *st.P)
		}
		if st.H != nil {
			seeds[id].set(types.Enthalpy, *st.H)
		}
		if st.M != nil {
			seeds[id].set(types.MassFlow, *st.M)
		}
	}
	// 逐级传播直至不动点: 0 级只用等焓部件和分流/混合, 1 级允许跨越任意流道
	for level := range 2 {
		for changed := true; changed; {
			changed = false
			for id := range seeds {
				ok, err := s.seedEnthalpy(props, id, &seeds[id])
				if err != nil {
					return nil, fmt.Errorf("initialize %s: %w", n.Streams.Label(id), err)
				}
				changed = changed || ok
			}
			for _, c := range n.Components {
				changed = propagate(c, seeds, level) || changed
			}
		}
	}
	// 缺省值
	for id := range seeds {
		sd := &seeds[id]
		var missing []string
		if sd.set(types.Pressure, types.DefaultPressure) {
			missing = append(missing, "p")
		}
		if sd.set(types.MassFlow, types.DefaultMassFlow) {
			missing = append(missing, "m")
		}
		if !sd.known[types.Enthalpy] {
			h, err := props.Enthalpy(s.fluids[id], sd.v[types.Pressure], types.DefaultTemperature)
			if err != nil {
				return nil, fmt.Errorf("initialize %s: %w", n.Streams.Label(id), err)
			}
			sd.set(types.Enthalpy, h)
			missing = append(missing, "h")
		}
		if len(missing) > 0 {
			entry.WithFields(log.Fields{
				"stream":   n.Streams.Label(id),
				"defaults": missing,
			}).Warn("流股缺少初值, 使用缺省值")
		}
	}
	x := make([]float64, len(s.Variables))
	for col, v := range s.Variables {
		x[col] = seeds[v.Stream].v[v.Quantity]
	}
	for id := range seeds {
		for _, q := range types.Quantities {
			if err := n.Streams.Set(id, q, seeds[id].v[q]); err != nil {
				return nil, err
			}
		}
	}
	return x, nil
}

// seedEnthalpy 由温度、干度或过热度推算比焓
func (s *System) seedEnthalpy(props fluid.Properties, id types.StreamID, sd *seed) (bool, error) {
	if sd.known[types.Enthalpy] || !sd.known[types.Pressure] {
		return false, nil
	}
	f, p := s.fluids[id], sd.v[types.Pressure]
	st := s.Network.starts[id]
	var (
		h   float64
		err error
		ok  bool
	)
	for _, spec := range s.Network.specs {
		if spec.Stream != id || ok {
			continue
		}
		switch spec.Kind {
		case SpecTemperature:
			h, err = props.Enthalpy(f, p, spec.Value)
			ok = true
		case SpecQuality:
			h, err = props.EnthalpyPQ(f, p, spec.Value)
			ok = true
		case SpecSuperheat:
			h, err = props.EnthalpyOffset(f, p, spec.Value)
			ok = true
		}
	}
	switch {
	case ok:
	case st.T != nil:
		h, err = props.Enthalpy(f, p, *st.T)
		ok = true
	case st.X != nil:
		h, err = props.EnthalpyPQ(f, p, *st.X)
		ok = true
	}
	if !ok {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sd.set(types.Enthalpy, h), nil
}

// propagate 沿部件传播一次, 返回是否有更新
func propagate(c component.Component, seeds []seed, level int) bool {
	var changed bool
	copyQ := func(q types.Quantity, from, to types.StreamID, scale float64) {
		if seeds[from].known[q] && !seeds[to].known[q] {
			changed = seeds[to].set(q, seeds[from].v[q]*scale) || changed
		}
	}
	switch p := c.Params.(type) {
	case *component.Splitter:
		for _, o := range p.Out {
			copyQ(types.Pressure, p.In, o, 1)
			copyQ(types.Pressure, o, p.In, 1)
			copyQ(types.Enthalpy, p.In, o, 1)
			copyQ(types.Enthalpy, o, p.In, 1)
			copyQ(types.MassFlow, p.In, o, 1/float64(len(p.Out)))
		}
		return changed
	case *component.Mixer:
		var m, mh float64
		all := true
		for _, i := range p.In {
			copyQ(types.Pressure, p.Out, i, 1)
			copyQ(types.Pressure, i, p.Out, 1)
			sd := seeds[i]
			if !sd.known[types.MassFlow] || !sd.known[types.Enthalpy] {
				all = false
				continue
			}
			m += sd.v[types.MassFlow]
			mh += sd.v[types.MassFlow] * sd.v[types.Enthalpy]
		}
		if all && m > 0 {
			changed = seeds[p.Out].set(types.MassFlow, m) || changed
			changed = seeds[p.Out].set(types.Enthalpy, mh/m) || changed
		}
		return changed
	}
	passive := c.Kind() == types.KindValve || c.Kind() == types.KindCycleCloser
	for _, side := range c.Sides() {
		copyQ(types.MassFlow, side.In, side.Out, 1)
		copyQ(types.MassFlow, side.Out, side.In, 1)
		if pr, ok := sideRatio(c, side.Name); ok {
			copyQ(types.Pressure, side.In, side.Out, pr)
			copyQ(types.Pressure, side.Out, side.In, 1/pr)
		} else if level > 0 {
			copyQ(types.Pressure, side.In, side.Out, 1)
			copyQ(types.Pressure, side.Out, side.In, 1)
		}
		if passive || level > 0 {
			copyQ(types.Enthalpy, side.In, side.Out, 1)
			copyQ(types.Enthalpy, side.Out, side.In, 1)
		}
	}
	return changed
}

// sideRatio 流道压比, 未知时返回 false
func sideRatio(c component.Component, side string) (float64, bool) {
	switch p := c.Params.(type) {
	case *component.HeatExchanger:
		return exchangerRatio(&p.Exchanger, side), true
	case *component.IHX:
		return exchangerRatio(&p.Exchanger, side), true
	case *component.Compressor:
		return p.PR, p.PR != 0
	case *component.Pump:
		return p.PR, p.PR != 0
	case *component.Expander:
		return p.PR, p.PR != 0
	case *component.Valve:
		return p.PR, p.PR != 0
	case *component.CycleCloser:
		return 1, true
	}
	return 0, false
}

func exchangerRatio(x *component.Exchanger, side string) float64 {
	if side == "hot" {
		return x.PR1
	}
	return x.PR2
}
