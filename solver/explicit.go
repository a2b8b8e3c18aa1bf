package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"procsim/types"
)

// ExplicitODE 把全部为微分方程的残差系统 F(t, y, yd) = 0 转为 dy = f(t, y)
// 每次求值用牛顿法解 yd，初值取上一次的解。返回的统计随求值累计。
func ExplicitODE(sys Implicit, opts Options) (ODE, *Statistics, error) {
	o := opts.withDefaults()
	eqs, ny, nyd := sys.Dims()
	if ny != nyd {
		return nil, nil, &types.UnexpectedValueError{Context: "显式化要求每个变量都是导数变量", Value: fmt.Sprintf("y=%d yd=%d", ny, nyd)}
	}
	if err := checkDims("ExplicitODE", eqs, nyd); err != nil {
		return nil, nil, err
	}
	index := sys.DerivativeMap()
	var st Statistics
	nw := newNewton("ExplicitODE", nyd, o, &st)
	yd := make([]float64, nyd)
	var state []float64
	var now float64
	nw.residual = func(x, out []float64) { sys.Residual(now, state, x, out) }
	nw.jacobian = func(x []float64, j *mat.Dense) { sys.JacobianYd(now, state, x, j) }
	return func(t float64, y, dy []float64) error {
		now, state, nw.time = t, y, t
		if err := nw.solve(yd); err != nil {
			return fmt.Errorf("t=%g 求导数: %w", t, err)
		}
		for k, i := range index {
			dy[i] = yd[k]
		}
		return nil
	}, &st, nil
}
