package solver

import (
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"carnot/fluid"
)

// jacobian 有限差分雅可比
//
// 各列并行计算, 每列只重算依赖该变量的方程; 前向差分失败时改用后向差分。
func (s *Solver) jacobian(ctx context.Context, sys System, x, r []float64, props fluid.Properties) (*mat.Dense, error) {
	n := sys.Size()
	cols := make([][]float64, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for j := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h := s.opts.Perturbation * math.Max(math.Abs(x[j]), sys.Nominal(j))
			col, err := column(sys, x, r, j, h, props)
			if err != nil {
				col, err = column(sys, x, r, j, -h, props)
			}
			if err != nil {
				return fmt.Errorf("jacobian column %d: %w", j, err)
			}
			cols[j] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	jac := mat.NewDense(n, n, nil)
	for j, col := range cols {
		for k, row := range sys.Rows(j) {
			jac.Set(row, j, col[k])
		}
	}
	return jac, nil
}

// column 第 j 列, 使用迭代点的私有副本
func column(sys System, x, r []float64, j int, h float64, props fluid.Properties) ([]float64, error) {
	xp := slices.Clone(x)
	xp[j] += h
	step := xp[j] - x[j]
	rows := sys.Rows(j)
	col := make([]float64, len(rows))
	for k, row := range rows {
		rp, _, err := sys.Eval(row, xp, props)
		if err != nil {
			return nil, &EquationError{Row: row, Label: sys.Label(row), Err: err}
		}
		col[k] = (rp - r[row]) / step
	}
	return col, nil
}
