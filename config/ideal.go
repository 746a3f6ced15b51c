package config

import "carnot/types"

// IdealTTD 理想换热器的端差 K, 为零时端差方程在饱和线上奇异
const IdealTTD = 0.01

// Idealizable 可理想化的部件: 换热器和叶轮机械, 按拓扑顺序
//
// 节流阀, 分流器, 混合器和闭合器没有可理想化的参数。
func (c *Config) Idealizable() ([]string, error) {
	layout, err := c.LayoutOf()
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, d := range layout.Components {
		kind, err := types.ParseKind(d.Kind)
		if err != nil {
			return nil, wrapField(c.Path, d.Label+".kind", err)
		}
		switch kind {
		case types.KindHeatExchanger, types.KindIHX,
			types.KindCompressor, types.KindPump, types.KindExpander:
			labels = append(labels, d.Label)
		}
	}
	return labels, nil
}

// Idealize 把部件参数改为理想值: 等熵效率 1, 无压损, 端差 IdealTTD
//
// 换热器保留原端差所在的一端; 叶轮机械的压比是设计参数, 不修改。
func (c *Config) Idealize(label string) error {
	layout, err := c.LayoutOf()
	if err != nil {
		return err
	}
	var kind types.Kind
	for _, d := range layout.Components {
		if d.Label == label {
			if kind, err = types.ParseKind(d.Kind); err != nil {
				return wrapField(c.Path, label+".kind", err)
			}
			break
		}
	}
	set := func(key string, v float64) error { return c.Set(label+"."+key, v) }
	switch kind {
	case types.KindHeatExchanger, types.KindIHX:
		end := "ttd_u"
		if _, ok := c.Get(label + ".ttd_l"); ok {
			end = "ttd_l"
		}
		for key, v := range map[string]float64{"pr1": 1, "pr2": 1, end: IdealTTD} {
			if err := set(key, v); err != nil {
				return err
			}
		}
		return nil
	case types.KindCompressor, types.KindPump, types.KindExpander:
		return set("eta_s", 1)
	}
	return invalidField(c.Path, label, "component %s cannot be idealized", label)
}
