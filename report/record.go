package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"carnot/network"
	"carnot/result"
	"carnot/solver"
	"carnot/types"
)

// Link 流股连接, 端点为部件序号, -1 为边界
type Link struct {
	Stream string `json:"stream"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// Record 记录求解历史
type Record struct {
	Name       string           `json:"name"`
	Components []string         `json:"components"` // 部件列表
	Links      []Link           `json:"links"`      // 连接信息
	Variables  []string         `json:"variables"`  // 变量标识
	Iteration  []int            `json:"iteration"`  // 步数列
	Norm       []float64        `json:"norm"`       // 残差范数列
	Damping    []float64        `json:"damping"`    // 阻尼因子列
	Cond       []float64        `json:"cond"`       // 条件数列
	X          [][]float64      `json:"x"`          // 迭代点列
	Result     *result.Snapshot `json:"result,omitempty"`
	mu         sync.Mutex
}

// Init 由方程组初始化部件和连接信息
func (list *Record) Init(sys *network.System, x0 []float64) {
	list.mu.Lock()
	defer list.mu.Unlock()
	net := sys.Network
	list.Name = net.Name
	list.Components = make([]string, 0, len(net.Components))
	from := map[types.StreamID]int{}
	to := map[types.StreamID]int{}
	for i, c := range net.Components {
		list.Components = append(list.Components, fmt.Sprintf("%s(%s)", c.Label, c.Kind()))
		in, out := c.Ports()
		for _, id := range in {
			to[id] = i
		}
		for _, id := range out {
			from[id] = i
		}
	}
	list.Links = list.Links[:0]
	for id := range net.Streams.Len() {
		l := Link{Stream: net.Streams.Label(id), From: -1, To: -1}
		if i, ok := from[id]; ok {
			l.From = i
		}
		if i, ok := to[id]; ok {
			l.To = i
		}
		list.Links = append(list.Links, l)
	}
	list.Variables = list.Variables[:0]
	for _, v := range sys.Variables {
		list.Variables = append(list.Variables, v.Label)
	}
	list.Iteration = []int{0}
	list.Norm = []float64{0}
	list.Damping = []float64{1}
	list.Cond = []float64{0}
	list.X = [][]float64{slices.Clone(x0)}
	list.Result = nil
}

// Update 记录一步迭代, 可直接用作求解器回调
func (list *Record) Update(step solver.Step) {
	list.mu.Lock()
	defer list.mu.Unlock()
	list.Iteration = append(list.Iteration, step.Iteration)
	list.Norm = append(list.Norm, step.Norm)
	list.Damping = append(list.Damping, step.Damping)
	list.Cond = append(list.Cond, step.Cond)
	list.X = append(list.X, slices.Clone(step.X))
}

// Finish 记录求解结果, 补上初始残差范数
func (list *Record) Finish(snap *result.Snapshot) {
	list.mu.Lock()
	defer list.mu.Unlock()
	list.Result = snap
	if len(snap.History) > 0 && len(list.Norm) > 0 {
		list.Norm[0] = snap.History[0]
	}
}

// Steps 已记录的迭代数
func (list *Record) Steps() int {
	list.mu.Lock()
	defer list.mu.Unlock()
	return max(len(list.Iteration)-1, 0)
}

// Render 格式和输出内容
func (list *Record) Render(w io.Writer) error {
	list.mu.Lock()
	defer list.mu.Unlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

func (list *Record) Error(err error) { log.WithError(err).Error("report") }
