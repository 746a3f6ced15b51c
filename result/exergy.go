package result

import (
	"fmt"

	"carnot/fluid"
	"carnot/network"
	"carnot/types"
)

// Ambient 环境死态
type Ambient struct {
	T float64 `json:"T"` // 温度 K
	P float64 `json:"p"` // 压力 Pa
}

// DefaultAmbient 10 °C, 1.013 bar
func DefaultAmbient() *Ambient {
	return &Ambient{T: types.ZeroCelsius + 10, P: 1.013 * types.Bar}
}

// dead 死态比焓和比熵
type dead struct{ h, s float64 }

// deadStates 各工质的死态, 失败的工质不做㶲分析
func (snap *Snapshot) deadStates(sys *network.System, props fluid.Properties) map[string]dead {
	if snap.Ambient == nil {
		return nil
	}
	out := map[string]dead{}
	seen := map[string]bool{}
	for id := range sys.Network.Streams.Len() {
		f := sys.Fluid(id)
		if seen[f] {
			continue
		}
		seen[f] = true
		h, err := props.Enthalpy(f, snap.Ambient.P, snap.Ambient.T)
		if err == nil {
			var s float64
			if s, err = props.Entropy(f, snap.Ambient.P, h); err == nil {
				out[f] = dead{h: h, s: s}
				continue
			}
		}
		snap.Notes = append(snap.Notes, fmt.Sprintf("dead state %s: %v", f, err))
	}
	return out
}
