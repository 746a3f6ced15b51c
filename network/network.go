package network

import (
	"fmt"

	"carnot/component"
	"carnot/stream"
	"carnot/types"
)

// SpecKind 边界条件类型
type SpecKind int

// 边界条件类型
const (
	SpecFixed       SpecKind = iota // 固定状态量 p/h/m
	SpecTemperature                 // 温度
	SpecQuality                     // 干度
	SpecSuperheat                   // 距饱和线温差 Td_bp
	SpecHeatDuty                    // 换热量
	SpecPower                       // 功率
)

var specName = [...]string{"fixed", "T", "x", "Td_bp", "Q", "P"}

func (k SpecKind) String() string {
	if int(k) < len(specName) {
		return specName[k]
	}
	return fmt.Sprintf("SpecKind(%d)", int(k))
}

// Spec 外部给定量
type Spec struct {
	Kind      SpecKind       // 类型
	Stream    types.StreamID // 流股(流股类)
	Quantity  types.Quantity // 状态量(固定类)
	Component string         // 部件(换热量/功率)
	Side      string         // 换热侧
	Value     float64        // 目标值, SI 单位
}

// Start 初值, nil 表示未给定
type Start struct {
	P *float64 // 压力 Pa
	T *float64 // 温度 K
	H *float64 // 比焓 J/kg
	M *float64 // 质量流量 kg/s
	X *float64 // 干度
}

// Network 循环网络
type Network struct {
	Name       string                // 名称
	Streams    *stream.Registry      // 流股表
	Components []component.Component // 部件
	specs      []Spec
	starts     map[types.StreamID]Start
	labels     map[string]int
}

// New 创建网络
func New(name string) *Network {
	return &Network{
		Name:    name,
		Streams: stream.NewRegistry(),
		starts:  map[types.StreamID]Start{},
		labels:  map[string]int{},
	}
}

// AddStream 声明流股
func (n *Network) AddStream(label, fluid string) (types.StreamID, error) {
	return n.Streams.Add(label, fluid)
}

// AddComponent 添加部件
func (n *Network) AddComponent(label string, params component.Params) error {
	if _, ok := n.labels[label]; ok {
		return fmt.Errorf("component %s declared twice", label)
	}
	c := component.Component{Label: label, Params: params}
	if err := c.Validate(); err != nil {
		return err
	}
	n.labels[label] = len(n.Components)
	n.Components = append(n.Components, c)
	return nil
}

// Component 按标识查找部件
func (n *Network) Component(label string) (component.Component, bool) {
	i, ok := n.labels[label]
	if !ok {
		return component.Component{}, false
	}
	return n.Components[i], true
}

// Stream 按标识查找流股
func (n *Network) Stream(label string) (types.StreamID, error) {
	id, ok := n.Streams.Lookup(label)
	if !ok {
		return types.NoStream, &StructureError{Err: ErrDanglingStream, Detail: fmt.Sprintf("stream %s is not declared", label)}
	}
	return id, nil
}

// Fix 固定流股状态量
func (n *Network) Fix(label string, q types.Quantity, v float64) error {
	id, err := n.Stream(label)
	if err != nil {
		return err
	}
	for _, s := range n.specs {
		if s.Kind == SpecFixed && s.Stream == id && s.Quantity == q {
			return fmt.Errorf("stream %s: %s fixed twice", label, q)
		}
	}
	if q == types.MassFlow && v < 0 {
		return fmt.Errorf("stream %s: negative mass flow %g", label, v)
	}
	if q == types.Pressure && v <= 0 {
		return fmt.Errorf("stream %s: non-positive pressure %g", label, v)
	}
	n.specs = append(n.specs, Spec{Kind: SpecFixed, Stream: id, Quantity: q, Value: v})
	return nil
}

func (n *Network) streamSpec(label string, kind SpecKind, v float64) error {
	id, err := n.Stream(label)
	if err != nil {
		return err
	}
	n.specs = append(n.specs, Spec{Kind: kind, Stream: id, Value: v})
	return nil
}

// SetTemperature 给定流股温度 K
func (n *Network) SetTemperature(label string, T float64) error {
	return n.streamSpec(label, SpecTemperature, T)
}

// SetQuality 给定流股干度
func (n *Network) SetQuality(label string, x float64) error {
	if x < 0 || x > 1 {
		return fmt.Errorf("stream %s: quality %g outside [0, 1]", label, x)
	}
	return n.streamSpec(label, SpecQuality, x)
}

// SetSuperheat 给定距饱和线温差, 正为过热, 负为过冷
func (n *Network) SetSuperheat(label string, dT float64) error {
	return n.streamSpec(label, SpecSuperheat, dT)
}

// SetHeatDuty 给定部件某侧换热量, 负为放热, 正为吸热
func (n *Network) SetHeatDuty(comp, side string, Q float64) error {
	c, ok := n.Component(comp)
	if !ok {
		return fmt.Errorf("heat duty: unknown component %s", comp)
	}
	sides := c.Sides()
	if len(sides) == 0 {
		return fmt.Errorf("heat duty: component %s has no flow sides", comp)
	}
	if side == "" {
		side = sides[0].Name
	}
	for _, s := range sides {
		if s.Name == side {
			n.specs = append(n.specs, Spec{Kind: SpecHeatDuty, Component: comp, Side: side, Value: Q})
			return nil
		}
	}
	return fmt.Errorf("heat duty: component %s has no side %q", comp, side)
}

// SetPower 给定叶轮机械功率, 负为耗功, 正为出功
func (n *Network) SetPower(comp string, P float64) error {
	c, ok := n.Component(comp)
	if !ok {
		return fmt.Errorf("power: unknown component %s", comp)
	}
	switch c.Kind() {
	case types.KindCompressor, types.KindPump, types.KindExpander:
	default:
		return fmt.Errorf("power: component %s is a %s", comp, c.Kind())
	}
	n.specs = append(n.specs, Spec{Kind: SpecPower, Component: comp, Side: "main", Value: P})
	return nil
}

// SetStart 设置流股初值, 与已有初值合并
func (n *Network) SetStart(label string, s Start) error {
	id, err := n.Stream(label)
	if err != nil {
		return err
	}
	old := n.starts[id]
	if s.P != nil {
		old.P = s.P
	}
	if s.T != nil {
		old.T = s.T
	}
	if s.H != nil {
		old.H = s.H
	}
	if s.M != nil {
		old.M = s.M
	}
	if s.X != nil {
		old.X = s.X
	}
	n.starts[id] = old
	return nil
}

// Specs 全部边界条件
func (n *Network) Specs() []Spec { return append([]Spec(nil), n.specs...) }

// Start 流股初值
func (n *Network) Start(id types.StreamID) Start { return n.starts[id] }
