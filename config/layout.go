package config

import "slices"

// 流股工质角色
const (
	RoleWorking = "working" // 循环工质
	RoleTES     = "tes"     // 储热介质
	RoleAmbient = "ambient" // 环境介质
)

// StreamDecl 流股声明
type StreamDecl struct {
	Label string `yaml:"label"`
	Fluid string `yaml:"fluid"` // 角色或工质名
}

// ComponentDecl 部件声明
type ComponentDecl struct {
	Label string   `yaml:"label"`
	Kind  string   `yaml:"kind"`
	In    []string `yaml:"in"`
	Out   []string `yaml:"out"`
	Hot   []string `yaml:"hot"`  // [进口, 出口]
	Cold  []string `yaml:"cold"` // [进口, 出口]
}

// Boundary 二次侧回路的进出口
type Boundary struct {
	In        string `yaml:"in"`
	Out       string `yaml:"out"`
	Discharge bool   `yaml:"discharge"` // 储热侧放热, 进口取高温
}

// Layout 循环拓扑
type Layout struct {
	Streams    []StreamDecl    `yaml:"streams"`
	Components []ComponentDecl `yaml:"components"`
	Ambient    *Boundary       `yaml:"ambient"`
	TES        *Boundary       `yaml:"tes"`
}

func (l *Layout) hasComponent(label string) bool {
	return slices.ContainsFunc(l.Components, func(c ComponentDecl) bool { return c.Label == label })
}

func (l *Layout) hasStream(label string) bool {
	return slices.ContainsFunc(l.Streams, func(s StreamDecl) bool { return s.Label == label })
}

func streams(role string, labels ...string) []StreamDecl {
	out := make([]StreamDecl, len(labels))
	for i, l := range labels {
		out[i] = StreamDecl{Label: l, Fluid: role}
	}
	return out
}

// heatPump 压缩式热泵: 空气蒸发器, 回热器, 节流阀, 向储热水放热的冷凝器
func heatPump() *Layout {
	return &Layout{
		Streams: slices.Concat(
			streams(RoleAmbient, "c11", "c12"),
			streams(RoleTES, "c21", "c22"),
			streams(RoleWorking, "c30", "c31", "c32", "c33", "c34", "c35", "c36"),
		),
		Components: []ComponentDecl{
			{Label: "comp", Kind: "compressor", In: []string{"c30"}, Out: []string{"c31"}},
			{Label: "cond", Kind: "condenser", Hot: []string{"c31", "c32"}, Cold: []string{"c21", "c22"}},
			{Label: "ihx", Kind: "ihx", Hot: []string{"c32", "c33"}, Cold: []string{"c35", "c36"}},
			{Label: "valve", Kind: "valve", In: []string{"c33"}, Out: []string{"c34"}},
			{Label: "eva", Kind: "evaporator", Hot: []string{"c11", "c12"}, Cold: []string{"c34", "c35"}},
			{Label: "cc", Kind: "cycle_closer", In: []string{"c36"}, Out: []string{"c30"}},
		},
		Ambient: &Boundary{In: "c11", Out: "c12"},
		TES:     &Boundary{In: "c21", Out: "c22"},
	}
}

// rankine 有机朗肯循环: 储热水蒸发器, 膨胀机, 回热器, 空冷冷凝器
func rankine() *Layout {
	return &Layout{
		Streams: slices.Concat(
			streams(RoleAmbient, "c13", "c14"),
			streams(RoleTES, "c23", "c24"),
			streams(RoleWorking, "c40", "c41", "c42", "c43", "c44", "c45", "c46"),
		),
		Components: []ComponentDecl{
			{Label: "pump", Kind: "pump", In: []string{"c40"}, Out: []string{"c41"}},
			{Label: "ihx", Kind: "ihx", Hot: []string{"c44", "c45"}, Cold: []string{"c41", "c42"}},
			{Label: "eva", Kind: "evaporator", Hot: []string{"c23", "c24"}, Cold: []string{"c42", "c43"}},
			{Label: "exp", Kind: "expander", In: []string{"c43"}, Out: []string{"c44"}},
			{Label: "cond", Kind: "condenser", Hot: []string{"c45", "c46"}, Cold: []string{"c13", "c14"}},
			{Label: "cc", Kind: "cycle_closer", In: []string{"c46"}, Out: []string{"c40"}},
		},
		Ambient: &Boundary{In: "c13", Out: "c14"},
		TES:     &Boundary{In: "c23", Out: "c24", Discharge: true},
	}
}

// Topologies 内置拓扑
var Topologies = map[string]func() *Layout{
	"hp":  heatPump,
	"orc": rankine,
}

// LayoutOf 配置使用的拓扑
func (c *Config) LayoutOf() (*Layout, error) {
	topo := c.Setup.Topology
	if topo == "" && c.Layout != nil {
		topo = "custom"
	}
	if topo == "custom" {
		if c.Layout == nil || len(c.Layout.Components) == 0 {
			return nil, invalidField(c.Path, "layout", "custom topology needs a layout section")
		}
		return c.Layout, nil
	}
	build, ok := Topologies[topo]
	if !ok {
		return nil, invalidField(c.Path, "setup.topology", "unknown topology %q", topo)
	}
	if c.Layout != nil {
		return nil, invalidField(c.Path, "layout", "layout is only read for the custom topology, got %q", topo)
	}
	return build(), nil
}

// pair 换热器一侧的 [进口, 出口]
func pair(path, field string, v []string) (in, out string, err error) {
	if len(v) != 2 {
		return "", "", invalidField(path, field, "expected [inlet, outlet], got %d entries", len(v))
	}
	return v[0], v[1], nil
}

func single(path, field string, v []string) (string, error) {
	if len(v) != 1 {
		return "", invalidField(path, field, "expected one stream, got %d", len(v))
	}
	return v[0], nil
}
