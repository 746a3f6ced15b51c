package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"carnot/fluid"
)

// toy 测试用方程组, 相对残差等于残差
type toy struct {
	rows  [][]int
	f     func(row int, x []float64) (float64, error)
	lower float64 // 可行下限
	delay time.Duration
}

func (t *toy) Size() int               { return len(t.rows) }
func (t *toy) Rows(col int) []int      { return t.rows[col] }
func (t *toy) Nominal(col int) float64 { return 1 }
func (t *toy) Label(row int) string    { return fmt.Sprintf("eq%d", row) }

func (t *toy) Eval(row int, x []float64, _ fluid.Properties) (float64, float64, error) {
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	r, err := t.f(row, x)
	return r, r, err
}

func (t *toy) Feasible(x []float64) bool {
	for _, v := range x {
		if v <= t.lower {
			return false
		}
	}
	return true
}

func circle() *toy {
	return &toy{
		rows: [][]int{{0, 1}, {0, 1}},
		f: func(row int, x []float64) (float64, error) {
			if row == 0 {
				return x[0]*x[0] + x[1]*x[1] - 4, nil
			}
			return x[0] - x[1], nil
		},
		lower: math.Inf(-1),
	}
}

func scalar(f func(x float64) (float64, error), lower float64) *toy {
	return &toy{
		rows:  [][]int{{0}},
		f:     func(_ int, x []float64) (float64, error) { return f(x[0]) },
		lower: lower,
	}
}

func TestSolveConverges(t *testing.T) {
	var steps []Step
	opts := DefaultOptions()
	opts.Observer = func(s Step) { steps = append(steps, s) }
	st := New(nil, opts).Solve(context.Background(), circle(), []float64{1, 0.5})
	assert.Equal(t, st.Status, Converged)
	assert.Assert(t, math.Abs(st.X[0]-math.Sqrt2) < 1e-8, "x0 = %g", st.X[0])
	assert.Assert(t, math.Abs(st.X[1]-math.Sqrt2) < 1e-8, "x1 = %g", st.X[1])
	assert.Equal(t, len(steps), st.Iteration)
	assert.Equal(t, len(st.History), st.Iteration+1)
	assert.Assert(t, st.Norm < opts.Tolerance)
}

func TestSolveConvergedStart(t *testing.T) {
	sys := scalar(func(x float64) (float64, error) { return x - 1, nil }, 0)
	st := New(nil, Options{}).Solve(context.Background(), sys, []float64{1})
	assert.Equal(t, st.Status, Converged)
	assert.Equal(t, st.Iteration, 0)
}

func TestSolveWorkersDeterministic(t *testing.T) {
	serial := New(nil, Options{Workers: 1}).Solve(context.Background(), circle(), []float64{3, 0.2})
	parallel := New(nil, Options{Workers: 8}).Solve(context.Background(), circle(), []float64{3, 0.2})
	assert.Equal(t, serial.Status, Converged)
	assert.DeepEqual(t, serial.X, parallel.X)
	assert.DeepEqual(t, serial.History, parallel.History)
}

func TestSolveSingular(t *testing.T) {
	sys := &toy{
		rows: [][]int{{0}, {}},
		f: func(row int, x []float64) (float64, error) {
			if row == 0 {
				return x[0] - 1, nil
			}
			return 1, nil
		},
		lower: math.Inf(-1),
	}
	st := New(nil, Options{}).Solve(context.Background(), sys, []float64{0, 0})
	assert.Equal(t, st.Status, Diverged)
	assert.Equal(t, st.Cause, CauseSingular)
	assert.Assert(t, errors.Is(st.Err, ErrSingularJacobian))
	assert.Equal(t, len(st.X), 2)
}

func TestSolveDamping(t *testing.T) {
	var steps []Step
	sys := scalar(func(x float64) (float64, error) { return math.Log(x), nil }, 0)
	st := New(nil, Options{Observer: func(s Step) { steps = append(steps, s) }}).
		Solve(context.Background(), sys, []float64{10})
	assert.Equal(t, st.Status, Converged)
	assert.Assert(t, math.Abs(st.X[0]-1) < 1e-8)
	assert.Assert(t, len(steps) > 0)
	assert.Equal(t, steps[0].Shrinks, 2)
	assert.Equal(t, steps[0].Damping, 0.25)
}

func TestSolveDampingExhausted(t *testing.T) {
	sys := scalar(func(x float64) (float64, error) {
		if x < 0.99 {
			return 0, &fluid.PropertyError{Op: "T(P,H)", Fluid: "TOY", In1: x, Err: fluid.ErrOutOfRange}
		}
		return x - 0.1, nil
	}, 0)
	st := New(nil, Options{MaxShrink: 3}).Solve(context.Background(), sys, []float64{1})
	assert.Equal(t, st.Status, Diverged)
	assert.Equal(t, st.Cause, CauseDamping)
	assert.Assert(t, errors.Is(st.Err, fluid.ErrOutOfRange))
	assert.Equal(t, st.X[0], 1.0)
}

func TestSolvePropertyFailure(t *testing.T) {
	sys := scalar(func(x float64) (float64, error) {
		if x > 2 {
			return 0, &fluid.PropertyError{Op: "T(P,H)", Fluid: "TOY", In1: x, Err: fluid.ErrOutOfRange}
		}
		return x - 1, nil
	}, 0)
	st := New(nil, Options{}).Solve(context.Background(), sys, []float64{3})
	assert.Equal(t, st.Status, PropertyFailure)
	assert.Assert(t, IsProperty(st.Err))
	var ee *EquationError
	assert.Assert(t, errors.As(st.Err, &ee))
	assert.Equal(t, ee.Label, "eq0")
}

func TestSolveMaxIterations(t *testing.T) {
	sys := scalar(func(x float64) (float64, error) { return x * x * x, nil }, math.Inf(-1))
	st := New(nil, Options{MaxIterations: 3}).Solve(context.Background(), sys, []float64{1})
	assert.Equal(t, st.Status, MaxIterationsExceeded)
	assert.Equal(t, st.Iteration, 3)
	assert.Equal(t, len(st.History), 4)
	failures := st.Failures(sys, 1e-8)
	assert.Equal(t, len(failures), 1)
	assert.Equal(t, failures[0].Label, "eq0")
}

func TestSolveTimeout(t *testing.T) {
	sys := scalar(func(x float64) (float64, error) { return x - 5, nil }, 0)
	sys.delay = 5 * time.Millisecond
	st := New(nil, Options{Timeout: time.Millisecond}).Solve(context.Background(), sys, []float64{1})
	assert.Equal(t, st.Status, TimeoutExceeded)
	assert.Assert(t, errors.Is(st.Err, context.DeadlineExceeded))
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sys := scalar(func(x float64) (float64, error) { return x - 5, nil }, 0)
	st := New(nil, Options{}).Solve(ctx, sys, []float64{1})
	assert.Equal(t, st.Status, TimeoutExceeded)
	assert.Assert(t, st.Status.Terminal())
	assert.Equal(t, st.Status.String(), "timeout")
}
