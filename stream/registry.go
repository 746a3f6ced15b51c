package stream

import (
	"errors"
	"fmt"

	"carnot/types"
)

// ErrFrozen 收敛后流股表只读
var ErrFrozen = errors.New("stream: registry is frozen")

// Stream 流股记录
type Stream struct {
	ID    types.StreamID // 句柄
	Label string         // 标识, 如 c32
	Fluid string         // 工质(规范名称)
	P     float64        // 压力 Pa
	H     float64        // 比焓 J/kg
	M     float64        // 质量流量 kg/s
}

// Registry 流股表, 流股数据的唯一持有者
//
// 部件只持有句柄, 流股按声明顺序连续存放。
type Registry struct {
	list   []Stream
	labels map[string]types.StreamID
	frozen bool
}

// NewRegistry 创建流股表
func NewRegistry() *Registry {
	return &Registry{labels: map[string]types.StreamID{}}
}

// Add 声明流股
func (r *Registry) Add(label, fluid string) (types.StreamID, error) {
	if r.frozen {
		return types.NoStream, ErrFrozen
	}
	if label == "" {
		return types.NoStream, fmt.Errorf("stream: empty label")
	}
	if _, ok := r.labels[label]; ok {
		return types.NoStream, fmt.Errorf("stream: %s declared twice", label)
	}
	id := types.StreamID(len(r.list))
	r.list = append(r.list, Stream{ID: id, Label: label, Fluid: fluid})
	r.labels[label] = id
	return id, nil
}

// Lookup 按标识查找
func (r *Registry) Lookup(label string) (types.StreamID, bool) {
	id, ok := r.labels[label]
	return id, ok
}

// Has 句柄是否有效
func (r *Registry) Has(id types.StreamID) bool { return id >= 0 && id < len(r.list) }

// Get 获取流股副本
func (r *Registry) Get(id types.StreamID) Stream { return r.list[id] }

// Len 流股数量
func (r *Registry) Len() int { return len(r.list) }

// All 全部流股副本, 按句柄排序
func (r *Registry) All() []Stream { return append([]Stream(nil), r.list...) }

// Label 句柄对应标识
func (r *Registry) Label(id types.StreamID) string {
	if !r.Has(id) {
		return fmt.Sprintf("#%d", id)
	}
	return r.list[id].Label
}

// Set 写入单个状态量
func (r *Registry) Set(id types.StreamID, q types.Quantity, v float64) error {
	if r.frozen {
		return ErrFrozen
	}
	if !r.Has(id) {
		return fmt.Errorf("stream: unknown handle %d", id)
	}
	s := &r.list[id]
	switch q {
	case types.Pressure:
		s.P = v
	case types.Enthalpy:
		s.H = v
	case types.MassFlow:
		if v < 0 {
			return fmt.Errorf("stream: %s negative mass flow %g", s.Label, v)
		}
		s.M = v
	}
	return nil
}

// Value 读取单个状态量
func (r *Registry) Value(id types.StreamID, q types.Quantity) float64 {
	s := r.list[id]
	switch q {
	case types.Pressure:
		return s.P
	case types.Enthalpy:
		return s.H
	}
	return s.M
}

// Freeze 收敛后冻结
func (r *Registry) Freeze() { r.frozen = true }

// Frozen 是否已冻结
func (r *Registry) Frozen() bool { return r.frozen }
