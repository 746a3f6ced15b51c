package config

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Setup 循环基本信息
type Setup struct {
	Name        string `yaml:"name"`
	Topology    string `yaml:"topology"`    // hp, orc, custom
	Refrigerant string `yaml:"refrigerant"` // 循环工质
}

// Fluids 工质
type Fluids struct {
	Working string `yaml:"working"`
	TES     string `yaml:"tes"`
	Ambient string `yaml:"ambient"`
}

// Ambient 环境侧, bar 和 °C
type Ambient struct {
	P    *float64 `yaml:"p"`
	T    *float64 `yaml:"T"`
	TIn  *float64 `yaml:"T_in"`
	TOut *float64 `yaml:"T_out"`
}

// TES 储热侧, bar 和 °C
type TES struct {
	P     *float64 `yaml:"p"`
	TLow  *float64 `yaml:"T_low"`
	THigh *float64 `yaml:"T_high"`
}

// Dimension 使系统确定的外部给定量
type Dimension struct {
	Kind      string  `yaml:"kind"` // mass_flow, heat_duty, power
	Stream    string  `yaml:"stream"`
	Component string  `yaml:"component"`
	Side      string  `yaml:"side"`
	Value     float64 `yaml:"value"` // kg/s 或 W
}

// Block 部件参数或流股参数
type Block map[string]float64

// Config 循环配置文件
type Config struct {
	Setup           Setup              `yaml:"setup"`
	Fluids          Fluids             `yaml:"fluids"`
	FluidProperties Fluids             `yaml:"fluid_properties"`
	Ambient         Ambient            `yaml:"ambient"`
	TES             TES                `yaml:"tes"`
	Dimensions      []Dimension        `yaml:"dimension_parameters"`
	Layout          *Layout            `yaml:"layout"`
	LogPH           map[string]float64 `yaml:"logph"`
	TS              map[string]float64 `yaml:"Ts"`
	Blocks          map[string]Block   `yaml:",inline"`

	Path string `yaml:"-"`
}

// Load 读取循环配置
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return Parse(b, path)
}

// Parse 解析循环配置
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalid, err)}
	}
	cfg.Path = path
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Setup.Name) == "" {
		return invalidField(c.Path, "setup.name", "cycle name is required")
	}
	if c.Working() == "" {
		return invalidField(c.Path, "setup.refrigerant", "working fluid is required")
	}
	if _, err := c.LayoutOf(); err != nil {
		return err
	}
	for i, d := range c.Dimensions {
		field := fmt.Sprintf("dimension_parameters[%d]", i)
		switch d.Kind {
		case "mass_flow":
			if d.Stream == "" {
				return invalidField(c.Path, field+".stream", "mass flow needs a stream")
			}
		case "heat_duty", "power":
			if d.Component == "" {
				return invalidField(c.Path, field+".component", "%s needs a component", d.Kind)
			}
		default:
			return invalidField(c.Path, field+".kind", "unknown kind %q", d.Kind)
		}
	}
	return nil
}

// Working 循环工质
func (c *Config) Working() string {
	for _, s := range []string{c.Fluids.Working, c.FluidProperties.Working, c.Setup.Refrigerant} {
		if s != "" {
			return s
		}
	}
	return ""
}

// fluid 由角色或工质名得到工质
func (c *Config) fluid(role string) string {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	switch role {
	case RoleWorking:
		return c.Working()
	case RoleTES:
		return pick(c.Fluids.TES, c.FluidProperties.TES)
	case RoleAmbient:
		return pick(c.Fluids.Ambient, c.FluidProperties.Ambient)
	}
	return role
}

// Clone 深拷贝, 参数扫描时各点独立修改
func (c *Config) Clone() *Config {
	cp := *c
	cp.Dimensions = slices.Clone(c.Dimensions)
	cp.Blocks = make(map[string]Block, len(c.Blocks))
	for k, b := range c.Blocks {
		cp.Blocks[k] = maps.Clone(b)
	}
	cp.LogPH = maps.Clone(c.LogPH)
	cp.TS = maps.Clone(c.TS)
	return &cp
}

// Set 修改部件或流股参数, target 形如 c32.p 或 cond.ttd_l, 文件单位
func (c *Config) Set(target string, value float64) error {
	label, key, ok := strings.Cut(target, ".")
	if !ok || label == "" || key == "" {
		return invalidField(c.Path, target, "target must look like <label>.<parameter>")
	}
	layout, err := c.LayoutOf()
	if err != nil {
		return err
	}
	if !layout.hasComponent(label) && !layout.hasStream(label) {
		return invalidField(c.Path, target, "unknown label %s", label)
	}
	if c.Blocks == nil {
		c.Blocks = map[string]Block{}
	}
	b := maps.Clone(c.Blocks[label])
	if b == nil {
		b = Block{}
	}
	b[key] = value
	c.Blocks[label] = b
	return nil
}

// Get 读取部件或流股参数
func (c *Config) Get(target string) (float64, bool) {
	label, key, ok := strings.Cut(target, ".")
	if !ok {
		return 0, false
	}
	v, ok := c.Blocks[label][key]
	return v, ok
}
