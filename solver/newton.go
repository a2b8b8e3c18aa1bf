package solver

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"procsim/types"
)

// maxOscillation 残差连续增大的最大次数
const maxOscillation = 8

// newton 阻尼牛顿迭代的工作区
type newton struct {
	n        int
	residual func(y, out []float64)
	jacobian func(y []float64, j *mat.Dense)
	o        Options
	st       *Statistics
	method   string
	time     float64

	j            *mat.Dense
	res, dx, try []float64
}

func newNewton(method string, n int, o Options, st *Statistics) *newton {
	return &newton{
		n:      n,
		o:      o,
		st:     st,
		method: method,
		j:      mat.NewDense(n, n, nil),
		res:    make([]float64, n),
		dx:     make([]float64, n),
		try:    make([]float64, n),
	}
}

// jac 计算雅可比，FiniteDifference 时用中心差分
func (nw *newton) jac(y []float64) {
	nw.st.JacobianEvaluations++
	if nw.o.FiniteDifference || nw.jacobian == nil {
		fd.Jacobian(nw.j, func(out, x []float64) {
			nw.st.Evaluations++
			nw.residual(x, out)
		}, y, &fd.JacobianSettings{Formula: fd.Central})
		return
	}
	nw.jacobian(y, nw.j)
}

// solve 原地迭代 y 直到残差无穷范数不超过容差
func (nw *newton) solve(y []float64) error {
	o := nw.o
	damping := o.MaxDampingFactor
	oscillation := 0
	nw.residual(y, nw.res)
	nw.st.Evaluations++
	norm := floats.Norm(nw.res, math.Inf(1))
	for iter := 0; iter < o.MaxIterations; iter++ {
		nw.st.Residual = norm
		if norm <= o.Tolerance {
			return nil
		}
		nw.st.Iterations++
		nw.jac(y)
		floats.ScaleTo(nw.res, -1, nw.res)
		if err := solveLU(nw.j, nw.res, nw.dx, o); err != nil {
			return err
		}
		// 步长非有限时减小阻尼因子
		for {
			copy(nw.try, y)
			floats.AddScaled(nw.try, damping, nw.dx)
			nw.residual(nw.try, nw.res)
			nw.st.Evaluations++
			if finite(nw.try) && finite(nw.res) {
				break
			}
			damping *= 0.5
			if damping < o.MinDampingFactor {
				return &ConvergenceError{Method: nw.method, Iterations: iter + 1, Residual: math.Inf(1), Time: nw.time}
			}
		}
		copy(y, nw.try)
		next := floats.Norm(nw.res, math.Inf(1))
		if next > norm {
			oscillation++
			if oscillation > maxOscillation {
				return &ConvergenceError{Method: nw.method, Iterations: iter + 1, Residual: next, Time: nw.time}
			}
		} else {
			oscillation = 0
			damping = math.Min(o.MaxDampingFactor, damping*1.2)
		}
		o.Logger.V(2).Info("牛顿迭代", "method", nw.method, "iter", iter, "residual", next, "damping", damping)
		norm = next
	}
	nw.st.Residual = norm
	if norm <= o.Tolerance {
		return nil
	}
	return &ConvergenceError{Method: nw.method, Iterations: o.MaxIterations, Residual: norm, Time: nw.time}
}

// Newton 阻尼牛顿法求解 f(y) = 0，y0 为初值
func Newton(sys Algebraic, y0 []float64, opts Options) ([]float64, Statistics, error) {
	o := opts.withDefaults()
	var st Statistics
	eqs, n := sys.Dims()
	if err := checkDims("Newton", eqs, n); err != nil {
		return nil, st, err
	}
	if len(y0) != n {
		return nil, st, &types.UnexpectedValueError{Context: "Newton 初值维数", Value: len(y0)}
	}
	nw := newNewton("Newton", n, o, &st)
	nw.residual = sys.Residual
	nw.jacobian = sys.Jacobian
	y := append([]float64(nil), y0...)
	if err := nw.solve(y); err != nil {
		return nil, st, err
	}
	o.Logger.V(1).Info("牛顿法收敛", "dim", n, "iterations", st.Iterations, "residual", st.Residual)
	return y, st, nil
}
