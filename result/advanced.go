package result

import (
	"fmt"
	"slices"
	"strings"
)

// Case 部分部件取实际参数, 其余部件理想化后的求解结果
type Case struct {
	Real     []string  `json:"real"` // 取实际参数的部件
	Snapshot *Snapshot `json:"-"`
}

func (c Case) key() string {
	r := slices.Clone(c.Real)
	slices.Sort(r)
	return strings.Join(r, "+")
}

// Split 部件㶲损的内源和外源分解, W
type Split struct {
	Label string             `json:"label"`
	ED    float64            `json:"E_D"`      // 实际循环中的㶲损
	EN    float64            `json:"E_D_EN"`   // 内源: 仅本部件实际时的㶲损
	EX    float64            `json:"E_D_EX"`   // 外源: ED - EN
	MEXO  float64            `json:"E_D_MEXO"` // 多部件外源: EX 减去各成对外源之和
	Pairs map[string]float64 `json:"E_D_EX_l"` // 由部件 l 引起的外源㶲损
}

// Decompose 高级㶲分析
//
// cases 须包含全部实际的基准工况, 每个部件单独实际的工况和每对部件实际的工况, 且都已收敛。
func Decompose(labels []string, cases []Case) ([]Split, error) {
	byKey := make(map[string]*Snapshot, len(cases))
	for _, c := range cases {
		byKey[c.key()] = c.Snapshot
	}
	destruction := func(label string, real ...string) (float64, error) {
		key := Case{Real: real}.key()
		snap := byKey[key]
		if snap == nil {
			return 0, fmt.Errorf("advanced exergy: no case with %s real", key)
		}
		if !snap.Converged() {
			return 0, fmt.Errorf("advanced exergy: case %s %s", key, snap.Verdict)
		}
		b, ok := snap.Balance(label)
		if !ok {
			return 0, fmt.Errorf("advanced exergy: case %s has no balance for %s", key, label)
		}
		return b.ExergyDestruction, nil
	}
	splits := make([]Split, len(labels))
	for i, k := range labels {
		s := Split{Label: k, Pairs: map[string]float64{}}
		var err error
		if s.ED, err = destruction(k, labels...); err != nil {
			return nil, err
		}
		if s.EN, err = destruction(k, k); err != nil {
			return nil, err
		}
		s.EX = s.ED - s.EN
		s.MEXO = s.EX
		for _, l := range labels {
			if l == k {
				continue
			}
			ed, err := destruction(k, k, l)
			if err != nil {
				return nil, err
			}
			s.Pairs[l] = ed - s.EN
			s.MEXO -= s.Pairs[l]
		}
		splits[i] = s
	}
	return splits, nil
}
