package types

import "fmt"

// StreamID 流股句柄
type StreamID = int

// ComponentID 部件句柄
type ComponentID = int

// Quantity 流股状态量
type Quantity int

// 流股状态量
const (
	Pressure Quantity = iota // 压力
	Enthalpy                 // 比焓
	MassFlow                 // 质量流量
)

// Quantities 按变量打包顺序排列
var Quantities = [...]Quantity{Pressure, Enthalpy, MassFlow}

// String 状态量简写
func (q Quantity) String() string {
	switch q {
	case Pressure:
		return "p"
	case Enthalpy:
		return "h"
	case MassFlow:
		return "m"
	}
	return fmt.Sprintf("Quantity(%d)", int(q))
}

// Nominal 状态量量级, 用于缩放和差分步长
func (q Quantity) Nominal() float64 {
	switch q {
	case Pressure:
		return 1e5
	case Enthalpy:
		return 1e5
	}
	return 1
}

// ParseQuantity 解析状态量简写
func ParseQuantity(s string) (Quantity, error) {
	for _, q := range Quantities {
		if q.String() == s {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown stream quantity %q", s)
}

// Phase 相态
type Phase int

// 相态
const (
	PhaseUnknown       Phase = iota // 未知
	PhaseSubcooled                  // 过冷液
	PhaseTwoPhase                   // 两相
	PhaseSuperheated                // 过热气
	PhaseSupercritical              // 超临界
)

var phaseName = map[Phase]string{
	PhaseUnknown:       "unknown",
	PhaseSubcooled:     "subcooled",
	PhaseTwoPhase:      "two-phase",
	PhaseSuperheated:   "superheated",
	PhaseSupercritical: "supercritical",
}

// String 返回相态名称
func (p Phase) String() string {
	if s, ok := phaseName[p]; ok {
		return s
	}
	return phaseName[PhaseUnknown]
}

// MarshalText 以名称导出
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
