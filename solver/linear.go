package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// linearTolerance 正则化步的线性残差上限(相对)
const linearTolerance = 1e-6

// stepInfo 牛顿步信息
type stepInfo struct {
	Cond        float64 // 缩放后条件数估计
	Regularized bool    // 是否正则化
}

// newtonStep 求解 J dx = -r
//
// 列按变量量级缩放, 行按最大元素缩放; 条件数超限时改用 Levenberg-Marquardt 步。
func (s *Solver) newtonStep(sys System, jac *mat.Dense, r, x []float64) ([]float64, stepInfo, error) {
	n := len(r)
	var info stepInfo
	scale := make([]float64, n)
	for j := range n {
		scale[j] = math.Max(math.Abs(x[j]), sys.Nominal(j))
	}
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := range n {
		var big float64
		for j := range n {
			big = math.Max(big, math.Abs(jac.At(i, j)*scale[j]))
		}
		if big == 0 {
			big = 1
		}
		for j := range n {
			a.Set(i, j, jac.At(i, j)*scale[j]/big)
		}
		b.SetVec(i, -r[i]/big)
	}
	var lu mat.LU
	lu.Factorize(a)
	info.Cond = lu.Cond()
	if info.Cond <= s.opts.ConditionLimit {
		var y mat.VecDense
		if err := lu.SolveVecTo(&y, false, b); err == nil && finite(&y) {
			return unscale(&y, scale), info, nil
		}
	}
	info.Regularized = true
	y, err := s.regularized(a, b)
	if err != nil {
		return nil, info, fmt.Errorf("%w: condition %.3g: %v", ErrSingularJacobian, info.Cond, err)
	}
	return unscale(y, scale), info, nil
}

// regularized (AᵀA + λI) y = Aᵀb
func (s *Solver) regularized(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	n, _ := a.Dims()
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var diag float64
	for i := range n {
		diag = math.Max(diag, ata.At(i, i))
	}
	if diag == 0 {
		return nil, fmt.Errorf("zero matrix")
	}
	lambda := s.opts.Regularization * diag
	for i := range n {
		ata.Set(i, i, ata.At(i, i)+lambda)
	}
	var atb mat.VecDense
	atb.MulVec(a.T(), b)
	var lu mat.LU
	lu.Factorize(&ata)
	var y mat.VecDense
	if err := lu.SolveVecTo(&y, false, &atb); err != nil && math.IsInf(lu.Cond(), 1) {
		return nil, err
	}
	if !finite(&y) {
		return nil, fmt.Errorf("non-finite step")
	}
	// 线性模型无法消去残差时视为失败
	var res mat.VecDense
	res.MulVec(a, &y)
	res.SubVec(&res, b)
	if bn := mat.Norm(b, 2); bn > 0 && mat.Norm(&res, 2) > linearTolerance*bn {
		return nil, fmt.Errorf("residual outside jacobian range (%.3g)", mat.Norm(&res, 2)/bn)
	}
	return &y, nil
}

func unscale(y *mat.VecDense, scale []float64) []float64 {
	dx := make([]float64, len(scale))
	for j := range dx {
		dx[j] = y.AtVec(j) * scale[j]
	}
	return dx
}

func finite(v *mat.VecDense) bool {
	for i := range v.Len() {
		if x := v.AtVec(i); math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
