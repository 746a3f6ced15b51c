package config

import (
	"fmt"
	"slices"
	"sort"

	"carnot/component"
	"carnot/fluid"
	"carnot/network"
	"carnot/result"
	"carnot/types"
)

// 参数键
var (
	exchangerKeys = []string{"pr1", "pr2", "ttd_l", "ttd_u"}
	machineKeys   = []string{"eta_s", "pr"}
	valveKeys     = []string{"pr"}
	streamKeys    = []string{"p", "T", "h", "m", "x", "Td_bp", "p0", "T0", "h0", "m0", "x0"}
)

// resolver 工质名称解析
type resolver interface {
	Resolve(fluid string) (string, error)
}

// Network 由配置构建循环网络, 文件单位在此换算为国际单位
func (c *Config) Network(props fluid.Properties) (*network.Network, error) {
	layout, err := c.LayoutOf()
	if err != nil {
		return nil, err
	}
	if err := c.checkBlocks(layout); err != nil {
		return nil, err
	}
	n := network.New(c.Setup.Name)
	handles := map[string]types.StreamID{}
	for _, s := range layout.Streams {
		f := c.fluid(s.Fluid)
		if f == "" {
			return nil, invalidField(c.Path, "fluids."+s.Fluid, "no fluid given for stream %s", s.Label)
		}
		if r, ok := props.(resolver); ok {
			if _, err := r.Resolve(f); err != nil {
				return nil, wrapField(c.Path, "fluids", fmt.Errorf("stream %s: %w", s.Label, err))
			}
		}
		id, err := n.AddStream(s.Label, f)
		if err != nil {
			return nil, wrapField(c.Path, "layout.streams", err)
		}
		handles[s.Label] = id
	}
	ref := func(field, label string) (types.StreamID, error) {
		id, ok := handles[label]
		if !ok {
			return types.NoStream, wrapField(c.Path, field, &network.StructureError{
				Err: network.ErrDanglingStream, Detail: fmt.Sprintf("stream %s is not declared", label)})
		}
		return id, nil
	}
	for _, d := range layout.Components {
		params, err := c.params(d, ref)
		if err != nil {
			return nil, err
		}
		if err := n.AddComponent(d.Label, params); err != nil {
			return nil, wrapField(c.Path, d.Label, err)
		}
	}
	if err := c.boundaries(n, layout); err != nil {
		return nil, err
	}
	for i, d := range c.Dimensions {
		field := fmt.Sprintf("dimension_parameters[%d]", i)
		switch d.Kind {
		case "mass_flow":
			err = n.Fix(d.Stream, types.MassFlow, d.Value)
		case "heat_duty":
			err = n.SetHeatDuty(d.Component, d.Side, d.Value)
		case "power":
			err = n.SetPower(d.Component, d.Value)
		}
		if err != nil {
			return nil, wrapField(c.Path, field, err)
		}
	}
	for _, s := range layout.Streams {
		if err := c.streamBlock(n, s.Label); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// checkBlocks 每个参数块必须对应部件或流股, 键必须适用于该部件
func (c *Config) checkBlocks(layout *Layout) error {
	labels := make([]string, 0, len(c.Blocks))
	for label := range c.Blocks {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		var allowed []string
		switch {
		case layout.hasStream(label):
			allowed = streamKeys
		case layout.hasComponent(label):
			i := slices.IndexFunc(layout.Components, func(d ComponentDecl) bool { return d.Label == label })
			kind, err := types.ParseKind(layout.Components[i].Kind)
			if err != nil {
				return wrapField(c.Path, label, err)
			}
			allowed = keysOf(kind)
		default:
			return invalidField(c.Path, label, "no component or stream named %s", label)
		}
		for key := range c.Blocks[label] {
			if !slices.Contains(allowed, key) {
				return invalidField(c.Path, label+"."+key, "unknown parameter")
			}
		}
	}
	return nil
}

func keysOf(kind types.Kind) []string {
	switch kind {
	case types.KindHeatExchanger, types.KindIHX:
		return exchangerKeys
	case types.KindCompressor, types.KindPump, types.KindExpander:
		return machineKeys
	case types.KindValve:
		return valveKeys
	}
	return nil
}

// params 部件参数
func (c *Config) params(d ComponentDecl, ref func(field, label string) (types.StreamID, error)) (component.Params, error) {
	kind, err := types.ParseKind(d.Kind)
	if err != nil {
		return nil, wrapField(c.Path, d.Label+".kind", err)
	}
	block := c.Blocks[d.Label]
	value := func(key string, def float64) float64 {
		if v, ok := block[key]; ok {
			return v
		}
		return def
	}
	refs := func(field string, labels []string) ([]types.StreamID, error) {
		ids := make([]types.StreamID, len(labels))
		for i, l := range labels {
			if ids[i], err = ref(d.Label+"."+field, l); err != nil {
				return nil, err
			}
		}
		return ids, nil
	}
	switch kind {
	case types.KindHeatExchanger, types.KindIHX:
		var x component.Exchanger
		for _, side := range []struct {
			name    string
			labels  []string
			in, out *types.StreamID
		}{{"hot", d.Hot, &x.HotIn, &x.HotOut}, {"cold", d.Cold, &x.ColdIn, &x.ColdOut}} {
			in, out, err := pair(c.Path, d.Label+"."+side.name, side.labels)
			if err != nil {
				return nil, err
			}
			if *side.in, err = ref(d.Label+"."+side.name, in); err != nil {
				return nil, err
			}
			if *side.out, err = ref(d.Label+"."+side.name, out); err != nil {
				return nil, err
			}
		}
		x.PR1, x.PR2 = value("pr1", 1), value("pr2", 1)
		lower, hasLower := block["ttd_l"]
		upper, hasUpper := block["ttd_u"]
		switch {
		case hasLower && hasUpper:
			return nil, invalidField(c.Path, d.Label, "give either ttd_l or ttd_u, not both")
		case hasLower:
			x.Pinch = component.Pinch{End: component.TerminalLower, TTD: lower}
		case hasUpper:
			x.Pinch = component.Pinch{End: component.TerminalUpper, TTD: upper}
		default:
			return nil, invalidField(c.Path, d.Label, "ttd_l or ttd_u is required")
		}
		if kind == types.KindIHX {
			return &component.IHX{Exchanger: x}, nil
		}
		return &component.HeatExchanger{Exchanger: x}, nil
	case types.KindCompressor, types.KindPump, types.KindExpander:
		in, err := single(c.Path, d.Label+".in", d.In)
		if err != nil {
			return nil, err
		}
		out, err := single(c.Path, d.Label+".out", d.Out)
		if err != nil {
			return nil, err
		}
		eta, ok := block["eta_s"]
		if !ok {
			return nil, invalidField(c.Path, d.Label+".eta_s", "isentropic efficiency is required")
		}
		m := component.Machine{EtaS: eta, PR: value("pr", 0)}
		if m.In, err = ref(d.Label+".in", in); err != nil {
			return nil, err
		}
		if m.Out, err = ref(d.Label+".out", out); err != nil {
			return nil, err
		}
		switch kind {
		case types.KindCompressor:
			return &component.Compressor{Machine: m}, nil
		case types.KindPump:
			return &component.Pump{Machine: m}, nil
		}
		return &component.Expander{Machine: m}, nil
	case types.KindValve, types.KindCycleCloser:
		in, err := single(c.Path, d.Label+".in", d.In)
		if err != nil {
			return nil, err
		}
		out, err := single(c.Path, d.Label+".out", d.Out)
		if err != nil {
			return nil, err
		}
		ids, err := refs("ports", []string{in, out})
		if err != nil {
			return nil, err
		}
		if kind == types.KindValve {
			return &component.Valve{In: ids[0], Out: ids[1], PR: value("pr", 0)}, nil
		}
		return &component.CycleCloser{In: ids[0], Out: ids[1]}, nil
	case types.KindSplitter:
		in, err := single(c.Path, d.Label+".in", d.In)
		if err != nil {
			return nil, err
		}
		ids, err := refs("ports", append([]string{in}, d.Out...))
		if err != nil {
			return nil, err
		}
		return &component.Splitter{In: ids[0], Out: ids[1:]}, nil
	case types.KindMixer:
		out, err := single(c.Path, d.Label+".out", d.Out)
		if err != nil {
			return nil, err
		}
		ids, err := refs("ports", append(slices.Clone(d.In), out))
		if err != nil {
			return nil, err
		}
		return &component.Mixer{In: ids[:len(ids)-1], Out: ids[len(ids)-1]}, nil
	}
	return nil, invalidField(c.Path, d.Label+".kind", "unsupported kind %s", kind)
}

// boundaries 环境侧和储热侧的压力与温度
func (c *Config) boundaries(n *network.Network, layout *Layout) error {
	if b := layout.Ambient; b != nil {
		a := c.Ambient
		tin, tout := a.TIn, a.TOut
		if tin == nil {
			tin = a.T
		}
		if err := c.boundary(n, b, "ambient", a.P, tin, tout); err != nil {
			return err
		}
	}
	if b := layout.TES; b != nil {
		tin, tout := c.TES.TLow, c.TES.THigh
		if b.Discharge {
			tin, tout = tout, tin
		}
		if err := c.boundary(n, b, "tes", c.TES.P, tin, tout); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) boundary(n *network.Network, b *Boundary, field string, p, tin, tout *float64) error {
	var err error
	if p != nil {
		err = n.Fix(b.In, types.Pressure, *p*types.Bar)
	}
	if err == nil && tin != nil {
		err = n.SetTemperature(b.In, *tin+types.ZeroCelsius)
	}
	if err == nil && tout != nil {
		err = n.SetTemperature(b.Out, *tout+types.ZeroCelsius)
	}
	if err != nil {
		return wrapField(c.Path, field, err)
	}
	return nil
}

// streamBlock 流股参数: 固定值, 温度/干度/过热度方程, 初值
func (c *Config) streamBlock(n *network.Network, label string) error {
	block, ok := c.Blocks[label]
	if !ok {
		return nil
	}
	ptr := func(v float64) *float64 { return &v }
	var start network.Start
	for _, key := range streamKeys {
		v, ok := block[key]
		if !ok {
			continue
		}
		var err error
		switch key {
		case "p":
			err = n.Fix(label, types.Pressure, v*types.Bar)
		case "h":
			err = n.Fix(label, types.Enthalpy, v*types.KiloJoule)
		case "m":
			err = n.Fix(label, types.MassFlow, v)
		case "T":
			err = n.SetTemperature(label, v+types.ZeroCelsius)
		case "x":
			err = n.SetQuality(label, v)
		case "Td_bp":
			err = n.SetSuperheat(label, v)
		case "p0":
			start.P = ptr(v * types.Bar)
		case "T0":
			start.T = ptr(v + types.ZeroCelsius)
		case "h0":
			start.H = ptr(v * types.KiloJoule)
		case "m0":
			start.M = ptr(v)
		case "x0":
			start.X = ptr(v)
		}
		if err != nil {
			return wrapField(c.Path, label+"."+key, err)
		}
	}
	if err := n.SetStart(label, start); err != nil {
		return wrapField(c.Path, label, err)
	}
	return nil
}

// DeadState 环境进口状态作为㶲分析死态, 未给出时为 nil
func (c *Config) DeadState() *result.Ambient {
	T := c.Ambient.TIn
	if T == nil {
		T = c.Ambient.T
	}
	if T == nil {
		return nil
	}
	d := &result.Ambient{T: *T + types.ZeroCelsius, P: types.Atmosphere}
	if c.Ambient.P != nil {
		d.P = *c.Ambient.P * types.Bar
	}
	return d
}
