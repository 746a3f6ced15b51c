package fluid

import (
	"errors"
	"math"
	"sync"

	"carnot/types"
)

// Properties 部件模型所需的物性查询
type Properties interface {
	// Temperature T(p, h)
	Temperature(fluid string, p, h float64) (float64, error)
	// Enthalpy h(p, T)
	Enthalpy(fluid string, p, T float64) (float64, error)
	// EnthalpyPQ h(p, x)
	EnthalpyPQ(fluid string, p, x float64) (float64, error)
	// Entropy s(p, h)
	Entropy(fluid string, p, h float64) (float64, error)
	// IsentropicEnthalpy h(p_out, s_in)
	IsentropicEnthalpy(fluid string, pOut, sIn float64) (float64, error)
	// Saturation 饱和温度 Tsat(p)
	Saturation(fluid string, p float64) (float64, error)
	// EnthalpyOffset 距饱和线 dT 的比焓, dT > 0 为过热蒸汽, dT < 0 为过冷液体,
	// dT 恰为零时取饱和蒸汽 x=1, 两侧分别连续趋近露点和泡点
	EnthalpyOffset(fluid string, p, dT float64) (float64, error)
	// Quality 干度, 单相返回 -1
	Quality(fluid string, p, h float64) (float64, error)
	// Phase 相态
	Phase(fluid string, p, h float64) (types.Phase, error)
}

// call 原始查询
type call func(out Param, in1 Param, v1 float64, in2 Param, v2 float64, fluid string) (float64, error)

// query 由原始查询派生的类型化查询
type query struct{ call call }

func (q query) Temperature(fluid string, p, h float64) (float64, error) {
	return q.call(ParamT, ParamP, p, ParamH, h, fluid)
}

func (q query) Enthalpy(fluid string, p, T float64) (float64, error) {
	return q.call(ParamH, ParamP, p, ParamT, T, fluid)
}

func (q query) EnthalpyPQ(fluid string, p, x float64) (float64, error) {
	return q.call(ParamH, ParamP, p, ParamQ, x, fluid)
}

func (q query) Entropy(fluid string, p, h float64) (float64, error) {
	return q.call(ParamS, ParamP, p, ParamH, h, fluid)
}

func (q query) IsentropicEnthalpy(fluid string, pOut, sIn float64) (float64, error) {
	return q.call(ParamH, ParamP, pOut, ParamS, sIn, fluid)
}

func (q query) Saturation(fluid string, p float64) (float64, error) {
	return q.call(ParamT, ParamP, p, ParamQ, 0, fluid)
}

func (q query) EnthalpyOffset(fluid string, p, dT float64) (float64, error) {
	if dT == 0 {
		return q.EnthalpyPQ(fluid, p, 1)
	}
	ts, err := q.Saturation(fluid, p)
	if err != nil {
		return 0, err
	}
	return q.Enthalpy(fluid, p, ts+dT)
}

func (q query) Quality(fluid string, p, h float64) (float64, error) {
	return q.call(ParamQ, ParamP, p, ParamH, h, fluid)
}

func (q query) Phase(fluid string, p, h float64) (types.Phase, error) {
	v, err := q.call(ParamPhase, ParamP, p, ParamH, h, fluid)
	return types.Phase(v), err
}

// Adapter 物性适配层
//
// 统一错误类型, 后端不可重入时用互斥锁串行化调用。
type Adapter struct {
	query
	backend Backend
	mu      *sync.Mutex
}

// NewAdapter 创建适配层
func NewAdapter(backend Backend) *Adapter {
	a := &Adapter{backend: backend}
	if r, ok := backend.(Reentrant); !ok || !r.Reentrant() {
		a.mu = &sync.Mutex{}
	}
	a.query = query{call: a.props}
	return a
}

// NewDefault 使用内置后端和默认工质库
func NewDefault() (*Adapter, error) {
	b, err := NewCorrelation()
	if err != nil {
		return nil, err
	}
	return NewAdapter(b), nil
}

// Backend 后端
func (a *Adapter) Backend() Backend { return a.backend }

// Resolve 解析工质标识
func (a *Adapter) Resolve(fluid string) (string, error) {
	if a.mu != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	return a.backend.Resolve(fluid)
}

func (a *Adapter) props(out Param, in1 Param, v1 float64, in2 Param, v2 float64, fluid string) (float64, error) {
	if math.IsNaN(v1) || math.IsNaN(v2) || math.IsInf(v1, 0) || math.IsInf(v2, 0) {
		return 0, a.wrap(out, in1, v1, in2, v2, fluid, ErrOutOfRange)
	}
	if a.mu != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	v, err := a.backend.Props(out, in1, v1, in2, v2, fluid)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = ErrOutOfRange
	}
	if err != nil {
		return 0, a.wrap(out, in1, v1, in2, v2, fluid, err)
	}
	return v, nil
}

func (a *Adapter) wrap(out Param, in1 Param, v1 float64, in2 Param, v2 float64, fluid string, err error) error {
	var pe *PropertyError
	if errors.As(err, &pe) {
		return err
	}
	return &PropertyError{
		Op:    out.String() + "(" + in1.String() + "," + in2.String() + ")",
		Fluid: fluid,
		In1:   v1,
		In2:   v2,
		Err:   err,
	}
}

// Sweep 单次残差/雅可比扫描内的缓存查询
//
// 同一扫描中多个方程会重复查询同一流股的未扰动状态, 结果按输入精确值缓存。
// 每次扫描新建, 不跨迭代复用。
func (a *Adapter) Sweep() *Sweep {
	s := &Sweep{adapter: a, memo: map[memoKey]memoValue{}}
	s.query = query{call: s.props}
	return s
}

type memoKey struct {
	out, in1, in2 Param
	v1, v2        float64
	fluid         string
}

type memoValue struct {
	v   float64
	err error
}

// Sweep 缓存查询, 可并发使用
type Sweep struct {
	query
	adapter *Adapter
	mu      sync.RWMutex
	memo    map[memoKey]memoValue
	hits    int
}

func (s *Sweep) props(out Param, in1 Param, v1 float64, in2 Param, v2 float64, fluid string) (float64, error) {
	k := memoKey{out: out, in1: in1, in2: in2, v1: v1, v2: v2, fluid: fluid}
	s.mu.RLock()
	m, ok := s.memo[k]
	s.mu.RUnlock()
	if ok {
		s.mu.Lock()
		s.hits++
		s.mu.Unlock()
		return m.v, m.err
	}
	v, err := s.adapter.props(out, in1, v1, in2, v2, fluid)
	s.mu.Lock()
	s.memo[k] = memoValue{v: v, err: err}
	s.mu.Unlock()
	return v, err
}

// Stats 缓存条目数和命中次数
func (s *Sweep) Stats() (entries, hits int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memo), s.hits
}
