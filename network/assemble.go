package network

import (
	"fmt"
	"math"

	"carnot/component"
	"carnot/fluid"
	"carnot/types"
)

// Variable 自由变量
type Variable struct {
	Stream   types.StreamID // 流股
	Quantity types.Quantity // 状态量
	Label    string         // 如 c32.p
}

// System 组装后的方程组
//
// 变量向量按流股顺序打包每个未固定的 p, h, m; 方程按部件声明顺序排列, 边界方程在后。
type System struct {
	Network   *Network
	Variables []Variable
	Equations []component.Equation
	index     [][3]int     // 流股 -> 状态量 -> 变量序号, -1 为固定
	fixed     [][3]float64 // 固定值
	fluids    []string     // 流股工质
	rows      [][]int      // 变量 -> 依赖该变量的方程
}

// resolver 可选的工质名称解析
type resolver interface {
	Resolve(fluid string) (string, error)
}

// Assemble 组装方程组并检查确定性
//
// 变量数与方程数不等时在任何迭代之前返回 *StructureError。
func (n *Network) Assemble(props fluid.Properties) (*System, error) {
	sys := &System{Network: n}
	count := n.Streams.Len()
	if err := n.checkPorts(); err != nil {
		return nil, err
	}
	// 工质
	sys.fluids = make([]string, count)
	for id := range count {
		f := n.Streams.Get(id).Fluid
		if r, ok := props.(resolver); ok {
			name, err := r.Resolve(f)
			if err != nil {
				return nil, fmt.Errorf("stream %s: %w", n.Streams.Label(id), err)
			}
			f = name
		}
		sys.fluids[id] = f
	}
	// 变量
	sys.index = make([][3]int, count)
	sys.fixed = make([][3]float64, count)
	for id := range count {
		for _, q := range types.Quantities {
			if v, ok := n.fixedValue(id, q); ok {
				sys.index[id][q] = -1
				sys.fixed[id][q] = v
				continue
			}
			sys.index[id][q] = len(sys.Variables)
			sys.Variables = append(sys.Variables, Variable{
				Stream:   id,
				Quantity: q,
				Label:    n.Streams.Label(id) + "." + q.String(),
			})
		}
	}
	// 方程
	for _, c := range n.Components {
		sys.Equations = append(sys.Equations, c.Equations()...)
	}
	for _, spec := range n.specs {
		eq, ok, err := n.boundary(spec)
		if err != nil {
			return nil, err
		}
		if ok {
			sys.Equations = append(sys.Equations, eq)
		}
	}
	// 确定性检查
	nv, ne := len(sys.Variables), len(sys.Equations)
	switch {
	case nv > ne:
		return nil, &StructureError{Variables: nv, Equations: ne, Err: ErrUnderdetermined}
	case nv < ne:
		return nil, &StructureError{Variables: nv, Equations: ne, Err: ErrOverdetermined}
	}
	// 稀疏结构
	sys.rows = make([][]int, nv)
	for row, eq := range sys.Equations {
		seen := map[int]bool{}
		for _, id := range eq.Streams {
			for _, col := range sys.index[id] {
				if col >= 0 && !seen[col] {
					seen[col] = true
					sys.rows[col] = append(sys.rows[col], row)
				}
			}
		}
	}
	for col, rows := range sys.rows {
		if len(rows) == 0 {
			return nil, &StructureError{Variables: nv, Equations: ne, Err: ErrUnderdetermined,
				Detail: fmt.Sprintf("variable %s appears in no equation", sys.Variables[col].Label)}
		}
	}
	return sys, nil
}

// checkPorts 检查部件引用的流股
func (n *Network) checkPorts() error {
	source := map[types.StreamID]string{}
	sink := map[types.StreamID]string{}
	for _, c := range n.Components {
		in, out := c.Ports()
		for _, id := range append(append([]types.StreamID(nil), in...), out...) {
			if !n.Streams.Has(id) {
				return &StructureError{Err: ErrDanglingStream, Detail: fmt.Sprintf("component %s references stream handle %d", c.Label, id)}
			}
		}
		for _, id := range in {
			if prev, ok := sink[id]; ok {
				return &StructureError{Err: ErrDuplicatePort, Detail: fmt.Sprintf("stream %s enters %s and %s", n.Streams.Label(id), prev, c.Label)}
			}
			sink[id] = c.Label
		}
		for _, id := range out {
			if prev, ok := source[id]; ok {
				return &StructureError{Err: ErrDuplicatePort, Detail: fmt.Sprintf("stream %s leaves %s and %s", n.Streams.Label(id), prev, c.Label)}
			}
			source[id] = c.Label
		}
	}
	for id := range n.Streams.Len() {
		_, a := source[id]
		_, b := sink[id]
		if !a && !b {
			return &StructureError{Err: ErrDanglingStream, Detail: fmt.Sprintf("stream %s is not connected", n.Streams.Label(id))}
		}
	}
	return nil
}

// Size 变量数
func (s *System) Size() int { return len(s.Variables) }

// Rows 依赖第 col 个变量的方程
func (s *System) Rows(col int) []int { return s.rows[col] }

// Nominal 变量量级
func (s *System) Nominal(col int) float64 { return s.Variables[col].Quantity.Nominal() }

// Label 方程标识
func (s *System) Label(row int) string { return s.Equations[row].Label }

// Eval 求第 row 个方程的残差
func (s *System) Eval(row int, x []float64, props fluid.Properties) (r, rel float64, err error) {
	return s.Equations[row].Residual(s.View(x), props)
}

// Feasible 压力为正, 质量流量非负, 比焓有限
func (s *System) Feasible(x []float64) bool {
	for col, v := range s.Variables {
		switch {
		case math.IsNaN(x[col]) || math.IsInf(x[col], 0):
			return false
		case v.Quantity == types.Pressure && x[col] <= 0:
			return false
		case v.Quantity == types.MassFlow && x[col] < 0:
			return false
		}
	}
	return true
}

// Fluid 流股工质(规范名称)
func (s *System) Fluid(id types.StreamID) string { return s.fluids[id] }

// Value 在迭代点 x 下读取流股状态量
func (s *System) Value(x []float64, id types.StreamID, q types.Quantity) float64 {
	if col := s.index[id][q]; col >= 0 {
		return x[col]
	}
	return s.fixed[id][q]
}

// Column 变量序号, 固定量返回 -1
func (s *System) Column(id types.StreamID, q types.Quantity) int { return s.index[id][q] }

// View 迭代点上的流股状态视图
func (s *System) View(x []float64) component.Values { return values{sys: s, x: x} }

// Commit 把迭代点写回流股表
func (s *System) Commit(x []float64) error {
	reg := s.Network.Streams
	for id := range reg.Len() {
		for _, q := range types.Quantities {
			if err := reg.Set(id, q, s.Value(x, id, q)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Pack 由流股表打包变量向量
func (s *System) Pack() []float64 {
	x := make([]float64, len(s.Variables))
	for col, v := range s.Variables {
		x[col] = s.Network.Streams.Value(v.Stream, v.Quantity)
	}
	return x
}

type values struct {
	sys *System
	x   []float64
}

func (v values) P(id types.StreamID) float64     { return v.sys.Value(v.x, id, types.Pressure) }
func (v values) H(id types.StreamID) float64     { return v.sys.Value(v.x, id, types.Enthalpy) }
func (v values) M(id types.StreamID) float64     { return v.sys.Value(v.x, id, types.MassFlow) }
func (v values) Fluid(id types.StreamID) string { return v.sys.fluids[id] }
