package result

import (
	"context"
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"carnot/component"
	"carnot/fluid"
	"carnot/network"
	"carnot/solver"
	"carnot/types"
)

// throttle 过热蒸汽节流
func throttle(t *testing.T) (*network.System, *fluid.Adapter) {
	t.Helper()
	props, err := fluid.NewDefault()
	assert.NilError(t, err)
	n := network.New("throttle")
	a, err := n.AddStream("a", "water")
	assert.NilError(t, err)
	b, err := n.AddStream("b", "H2O")
	assert.NilError(t, err)
	assert.NilError(t, n.AddComponent("v", &component.Valve{In: a, Out: b, PR: 0.5}))
	assert.NilError(t, n.Fix("a", types.Pressure, types.Bar))
	assert.NilError(t, n.Fix("a", types.MassFlow, 2))
	assert.NilError(t, n.SetTemperature("a", types.ZeroCelsius+150))
	sys, err := n.Assemble(props)
	assert.NilError(t, err)
	return sys, props
}

func TestEmitConverged(t *testing.T) {
	sys, props := throttle(t)
	x0, err := sys.Initialize(props, nil)
	assert.NilError(t, err)
	st := solver.New(props, solver.Options{}).Solve(context.Background(), sys, x0)
	assert.Equal(t, st.Status, solver.Converged)

	snap := Emit(sys, st, props, Options{Name: "throttle", Ambient: DefaultAmbient()})
	assert.Equal(t, snap.Verdict.ExitCode(), ExitConverged)
	assert.Equal(t, len(snap.Streams), 2)
	assert.Equal(t, len(snap.Failures), 0)

	a, ok := snap.Stream("a")
	assert.Assert(t, ok)
	assert.Equal(t, a.Fluid, "WATER")
	assert.Equal(t, a.Phase, types.PhaseSuperheated)
	assert.Assert(t, math.Abs(a.T-(types.ZeroCelsius+150)) < 1e-6)
	b, ok := snap.Stream("b")
	assert.Assert(t, ok)
	assert.Assert(t, math.Abs(b.P-0.5*types.Bar) < 1e-6)
	assert.Assert(t, math.Abs(b.H-a.H) < 1e-6)
	assert.Equal(t, b.M, 2.0)

	v, ok := snap.Balance("v")
	assert.Assert(t, ok)
	assert.Equal(t, v.Kind, types.KindValve)
	assert.Assert(t, math.Abs(v.Mass) < 1e-9)
	assert.Assert(t, math.Abs(v.Energy) < 1e-3)
	assert.Equal(t, v.P, 0.0)
	assert.Equal(t, v.ExergyDestruction, snap.Ambient.T*v.SGen)
	assert.Equal(t, snap.Indicators.COP, 0.0)
	assert.Equal(t, len(snap.Pinch), 0)
}

func TestEmitFailure(t *testing.T) {
	sys, props := throttle(t)
	x0, err := sys.Initialize(props, nil)
	assert.NilError(t, err)
	st := &solver.State{
		X:         x0,
		Residual:  make([]float64, sys.Size()),
		Relative:  make([]float64, sys.Size()),
		Iteration: 7,
		Status:    solver.Diverged,
		Cause:     solver.CauseDamping,
	}
	st.Residual[1], st.Relative[1] = 3, 0.5
	snap := Emit(sys, st, props, Options{})
	assert.Equal(t, snap.Verdict.ExitCode(), ExitFailure)
	assert.Equal(t, snap.Verdict.Iterations, 7)
	assert.Equal(t, len(snap.Failures), 1)
	assert.Equal(t, snap.Failures[0].Label, sys.Label(1))
	assert.Equal(t, len(snap.Balances), 0)
	assert.Equal(t, len(snap.X), sys.Size())
	assert.Equal(t, len(snap.Streams), 2)
}

func TestEmitPropertyFailure(t *testing.T) {
	sys, props := throttle(t)
	st := &solver.State{Status: solver.PropertyFailure, Cause: solver.CauseProperty, Err: fluid.ErrOutOfRange}
	snap := Emit(sys, st, props, Options{})
	assert.Equal(t, snap.Verdict.ExitCode(), ExitInvalid)
	assert.Equal(t, len(snap.Streams), 0)
	assert.Equal(t, snap.Verdict.Error, fluid.ErrOutOfRange.Error())
	assert.Equal(t, len(snap.Variables), sys.Size())
}

func TestExitCode(t *testing.T) {
	cases := map[solver.Status]int{
		solver.Converged:             ExitConverged,
		solver.Diverged:              ExitFailure,
		solver.MaxIterationsExceeded: ExitFailure,
		solver.TimeoutExceeded:       ExitFailure,
		solver.PropertyFailure:       ExitInvalid,
	}
	for status, code := range cases {
		assert.Equal(t, Verdict{Status: status}.ExitCode(), code, status.String())
	}
}

// linearT 温度等于比焓/1000
type linearT struct{ fluid.Properties }

func (linearT) Temperature(_ string, _, h float64) (float64, error) { return h / 1000, nil }

// fixedValues 按流股序号给定的状态
type fixedValues [][3]float64

func (v fixedValues) P(id types.StreamID) float64     { return v[id][0] }
func (v fixedValues) H(id types.StreamID) float64     { return v[id][1] }
func (v fixedValues) M(id types.StreamID) float64     { return v[id][2] }
func (v fixedValues) Fluid(id types.StreamID) string { return "TEST" }

func TestPinchProfile(t *testing.T) {
	c := component.Component{Label: "hx", Params: &component.HeatExchanger{Exchanger: component.Exchanger{
		HotIn: 0, HotOut: 1, ColdIn: 2, ColdOut: 3, PR1: 1, PR2: 1,
		Pinch: component.Pinch{End: component.TerminalLower, TTD: 5},
	}}}
	v := fixedValues{{1e5, 400e3, 1}, {1e5, 320e3, 1}, {1e5, 300e3, 1}, {1e5, 398e3, 1}}
	p, ok, err := pinch(c, v, linearT{}, 10)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, len(p.Q), 11)
	assert.Assert(t, math.Abs(p.Max-20) < 1e-9)
	assert.Assert(t, math.Abs(p.Min-2) < 1e-9)
	assert.Assert(t, math.Abs(p.Q[10]-98e3) < 1e-6)
	assert.Assert(t, p.Violated)
	assert.Assert(t, !p.Crossed)

	v[3][1] = 380e3
	p, _, err = pinch(c, v, linearT{}, 4)
	assert.NilError(t, err)
	assert.Assert(t, math.Abs(p.Min-20) < 1e-9)
	assert.Assert(t, !p.Violated)

	_, ok, err = pinch(component.Component{Label: "v", Params: &component.Valve{In: 0, Out: 1}}, v, linearT{}, 4)
	assert.NilError(t, err)
	assert.Assert(t, !ok)
}
