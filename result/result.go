package result

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"carnot/component"
	"carnot/fluid"
	"carnot/network"
	"carnot/solver"
	"carnot/types"
)

// 进程退出码
const (
	ExitConverged = 0 // 收敛
	ExitFailure   = 1 // 未收敛(发散, 迭代上限, 超时)
	ExitInvalid   = 2 // 配置或网络结构错误, 初始化物性失败
)

// Verdict 收敛结论
type Verdict struct {
	Status     solver.Status `json:"status"`
	Cause      solver.Cause  `json:"cause,omitempty"`
	Iterations int           `json:"iterations"`
	Norm       float64       `json:"norm"`
	Error      string        `json:"error,omitempty"`
}

// ExitCode 退出码
func (v Verdict) ExitCode() int {
	switch v.Status {
	case solver.Converged:
		return ExitConverged
	case solver.PropertyFailure:
		return ExitInvalid
	}
	return ExitFailure
}

func (v Verdict) String() string {
	s := fmt.Sprintf("%s after %d iterations, norm %.3e", v.Status, v.Iterations, v.Norm)
	if v.Cause != solver.CauseNone {
		s += " (" + v.Cause.String() + ")"
	}
	return s
}

// StreamState 流股状态, 国际单位
type StreamState struct {
	Label   string      `json:"label"`
	Fluid   string      `json:"fluid"`
	P       float64     `json:"p"`
	H       float64     `json:"h"`
	T       float64     `json:"T"`
	S       float64     `json:"s"`
	M       float64     `json:"m"`
	Phase   types.Phase `json:"phase"`
	Quality float64     `json:"x"`               // 单相为 -1
	Exergy  float64     `json:"e,omitempty"`     // 比㶲 J/kg
	Error   string      `json:"error,omitempty"` // 物性失败
}

// Snapshot 一次求解的不可变结果
type Snapshot struct {
	RunID      uuid.UUID        `json:"run_id"`
	Name       string           `json:"name"`
	Created    time.Time        `json:"created"`
	Verdict    Verdict          `json:"verdict"`
	Streams    []StreamState    `json:"streams"`
	Balances   []Balance        `json:"balances,omitempty"`
	Indicators Indicators       `json:"indicators"`
	Pinch      []Pinch          `json:"pinch,omitempty"`
	History    []float64        `json:"history"`
	Failures   []solver.Failure `json:"failures,omitempty"`
	Variables  []string         `json:"variables"`
	X          []float64        `json:"x"`
	Residual   []float64        `json:"residual"`
	Notes      []string         `json:"notes,omitempty"`
	Ambient    *Ambient         `json:"ambient,omitempty"`
	index      map[string]int
}

// Stream 按标识查找流股
func (s *Snapshot) Stream(label string) (StreamState, bool) {
	if s.index == nil {
		for _, ss := range s.Streams {
			if ss.Label == label {
				return ss, true
			}
		}
		return StreamState{}, false
	}
	i, ok := s.index[label]
	if !ok {
		return StreamState{}, false
	}
	return s.Streams[i], true
}

// Balance 按部件查找平衡
func (s *Snapshot) Balance(label string) (Balance, bool) {
	for _, b := range s.Balances {
		if b.Label == label {
			return b, true
		}
	}
	return Balance{}, false
}

// Converged 是否收敛
func (s *Snapshot) Converged() bool { return s.Verdict.Status == solver.Converged }

// Options 结果生成参数
type Options struct {
	RunID     uuid.UUID // 运行标识, 为空时生成
	Name      string    // 循环名称
	Tolerance float64   // 判定失败方程的容差
	Ambient   *Ambient  // 环境死态, 为空时不做㶲分析
	Working   string    // 循环工质, 为空时取第一台叶轮机械的进口工质
	Steps     int       // QT 分段数
}

// Emit 由求解状态生成快照
//
// 任何终止状态都保留最后的迭代点和残差; 只在收敛时计算部件平衡和性能指标。
func Emit(sys *network.System, st *solver.State, props fluid.Properties, opts Options) *Snapshot {
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = types.Tolerance
	}
	if opts.Steps <= 0 {
		opts.Steps = 20
	}
	snap := &Snapshot{
		RunID:    opts.RunID,
		Name:     opts.Name,
		Created:  time.Now(),
		Ambient:  opts.Ambient,
		History:  append([]float64(nil), st.History...),
		X:        append([]float64(nil), st.X...),
		Residual: append([]float64(nil), st.Residual...),
		index:    map[string]int{},
		Verdict: Verdict{
			Status:     st.Status,
			Cause:      st.Cause,
			Iterations: st.Iteration,
			Norm:       st.Norm,
		},
	}
	if st.Err != nil {
		snap.Verdict.Error = st.Err.Error()
	}
	for _, v := range sys.Variables {
		snap.Variables = append(snap.Variables, v.Label)
	}
	if len(st.X) != sys.Size() {
		return snap
	}
	if len(st.Relative) == sys.Size() && st.Status != solver.Converged {
		snap.Failures = st.Failures(sys, opts.Tolerance)
	}
	view := sys.View(st.X)
	dead := snap.deadStates(sys, props)
	reg := sys.Network.Streams
	for id := range reg.Len() {
		ss := streamState(view, props, id, reg.Label(id))
		if d, ok := dead[ss.Fluid]; ok && ss.Error == "" {
			ss.Exergy = (ss.H - d.h) - opts.Ambient.T*(ss.S-d.s)
		}
		snap.index[ss.Label] = len(snap.Streams)
		snap.Streams = append(snap.Streams, ss)
	}
	if st.Status != solver.Converged {
		return snap
	}
	for _, c := range sys.Network.Components {
		b, err := snap.balance(c, view)
		if err != nil {
			snap.Notes = append(snap.Notes, fmt.Sprintf("balance %s: %v", c.Label, err))
			continue
		}
		snap.Balances = append(snap.Balances, b)
		if p, ok, err := pinch(c, view, props, opts.Steps); err != nil {
			snap.Notes = append(snap.Notes, fmt.Sprintf("pinch %s: %v", c.Label, err))
		} else if ok {
			snap.Pinch = append(snap.Pinch, p)
		}
	}
	snap.Indicators = snap.indicators(sys, opts.Working)
	return snap
}

// streamState 单个流股的派生状态, 物性失败记录在 Error 中
func streamState(v component.Values, props fluid.Properties, id types.StreamID, label string) StreamState {
	ss := StreamState{Label: label, Fluid: v.Fluid(id), P: v.P(id), H: v.H(id), M: v.M(id), Quality: -1}
	if err := ss.derive(props); err != nil {
		ss.Error = err.Error()
	}
	return ss
}

func (ss *StreamState) derive(props fluid.Properties) error {
	T, err := props.Temperature(ss.Fluid, ss.P, ss.H)
	if err != nil {
		return err
	}
	s, err := props.Entropy(ss.Fluid, ss.P, ss.H)
	if err != nil {
		return err
	}
	phase, err := props.Phase(ss.Fluid, ss.P, ss.H)
	if err != nil {
		return err
	}
	x, err := props.Quality(ss.Fluid, ss.P, ss.H)
	if err != nil || math.IsNaN(x) {
		x = -1
	}
	ss.T, ss.S, ss.Phase, ss.Quality = T, s, phase, x
	return nil
}
