package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// solveLU 解 a·x = b，病态但非奇异时只记录警告
func solveLU(a *mat.Dense, b, x []float64, o Options) error {
	var lu mat.LU
	lu.Factorize(a)
	dst := mat.NewVecDense(len(x), x)
	err := lu.SolveVecTo(dst, false, mat.NewVecDense(len(b), b))
	if err == nil {
		return nil
	}
	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) && finite(x) {
		o.Logger.V(1).Info("矩阵病态", "cond", float64(cond))
		return nil
	}
	return fmt.Errorf("矩阵求解失败: %w", err)
}

// Linear 求解线性方程组 J·y = −f(0)
// 对线性系统 f(y) = J·y + f(0)，雅可比与 y 无关。
func Linear(sys Algebraic, opts Options) ([]float64, Statistics, error) {
	o := opts.withDefaults()
	var st Statistics
	eqs, n := sys.Dims()
	if err := checkDims("Linear", eqs, n); err != nil {
		return nil, st, err
	}
	zero := make([]float64, n)
	f0 := make([]float64, n)
	sys.Residual(zero, f0)
	j := mat.NewDense(n, n, nil)
	sys.Jacobian(zero, j)
	st.Evaluations, st.JacobianEvaluations = 1, 1

	b := make([]float64, n)
	floats.ScaleTo(b, -1, f0)
	y := make([]float64, n)
	if err := solveLU(j, b, y, o); err != nil {
		return nil, st, err
	}
	res := make([]float64, n)
	sys.Residual(y, res)
	st.Evaluations++
	st.Residual = floats.Norm(res, math.Inf(1))
	o.Logger.V(1).Info("线性求解完成", "dim", n, "residual", st.Residual)
	return y, st, nil
}
