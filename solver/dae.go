package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"procsim/types"
)

// implicitEuler 隐式欧拉的工作区
type implicitEuler struct {
	sys     Implicit
	ny, nyd int
	index   []int // yd 下标到 y 下标
	alg     []int // 代数变量的 y 下标
	jy, jyd *mat.Dense
}

func newImplicitEuler(sys Implicit) (*implicitEuler, error) {
	eqs, ny, nyd := sys.Dims()
	if err := checkDims("BDF1", eqs, ny); err != nil {
		return nil, err
	}
	index := sys.DerivativeMap()
	if len(index) != nyd {
		return nil, &types.UnresolvedPanicError{Context: "导数下标表长度与导数个数不符"}
	}
	diff := make([]bool, ny)
	for _, i := range index {
		diff[i] = true
	}
	var alg []int
	for i, d := range diff {
		if !d {
			alg = append(alg, i)
		}
	}
	return &implicitEuler{
		sys:   sys,
		ny:    ny,
		nyd:   nyd,
		index: index,
		alg:   alg,
		jy:    mat.NewDense(ny, ny, nil),
		jyd:   mat.NewDense(ny, max(nyd, 1), nil),
	}, nil
}

// initialize 固定导数变量，求解代数变量与导数使 F(t0, y, yd) = 0
func (ie *implicitEuler) initialize(nw *newton, t0 float64, y, yd []float64) error {
	z := make([]float64, ie.ny)
	for k, i := range ie.alg {
		z[k] = y[i]
	}
	copy(z[len(ie.alg):], yd)
	split := func(z []float64) {
		for k, i := range ie.alg {
			y[i] = z[k]
		}
		copy(yd, z[len(ie.alg):])
	}
	nw.residual = func(z, out []float64) {
		split(z)
		ie.sys.Residual(t0, y, yd, out)
	}
	nw.jacobian = func(z []float64, j *mat.Dense) {
		split(z)
		ie.sys.JacobianY(t0, y, yd, ie.jy)
		if ie.nyd > 0 {
			ie.sys.JacobianYd(t0, y, yd, ie.jyd)
		}
		for r := 0; r < ie.ny; r++ {
			for k, i := range ie.alg {
				j.Set(r, k, ie.jy.At(r, i))
			}
			for k := 0; k < ie.nyd; k++ {
				j.Set(r, len(ie.alg)+k, ie.jyd.At(r, k))
			}
		}
	}
	nw.time = t0
	if err := nw.solve(z); err != nil {
		return err
	}
	split(z)
	return nil
}

// step 解 F(t, y, (y − prev)/h) = 0，y 以 prev 为初值
func (ie *implicitEuler) step(nw *newton, t, h float64, prev, y, yd []float64) error {
	derivative := func(y []float64) {
		for k, i := range ie.index {
			yd[k] = (y[i] - prev[i]) / h
		}
	}
	nw.residual = func(y, out []float64) {
		derivative(y)
		ie.sys.Residual(t, y, yd, out)
	}
	nw.jacobian = func(y []float64, j *mat.Dense) {
		derivative(y)
		ie.sys.JacobianY(t, y, yd, j)
		if ie.nyd == 0 {
			return
		}
		ie.sys.JacobianYd(t, y, yd, ie.jyd)
		for r := 0; r < ie.ny; r++ {
			for k, i := range ie.index {
				j.Set(r, i, j.At(r, i)+ie.jyd.At(r, k)/h)
			}
		}
	}
	nw.time = t
	copy(y, prev)
	if err := nw.solve(y); err != nil {
		return err
	}
	derivative(y)
	return nil
}

// BDF1 隐式欧拉积分残差系统 F(t, y, yd) = 0
// y0 给出导数变量的初值和代数变量的猜测值，yd0 为导数的猜测值；
// 积分前先求一致初值。连续 MaxGoodIter 个好步后步长放大，牛顿失败时缩小。
func BDF1(sys Implicit, t0, tEnd float64, y0, yd0 []float64, opts Options, observe Observer) ([]float64, Statistics, error) {
	o := opts.withDefaults()
	var st Statistics
	ie, err := newImplicitEuler(sys)
	if err != nil {
		return nil, st, err
	}
	if len(y0) != ie.ny || len(yd0) != ie.nyd {
		return nil, st, &types.UnexpectedValueError{Context: "BDF1 初值维数", Value: [2]int{len(y0), len(yd0)}}
	}
	if !(tEnd > t0) {
		return nil, st, &types.UnexpectedValueError{Context: "积分区间", Value: [2]float64{t0, tEnd}}
	}
	nw := newNewton("BDF1", ie.ny, o, &st)
	y := append([]float64(nil), y0...)
	yd := append([]float64(nil), yd0...)
	if err := ie.initialize(nw, t0, y, yd); err != nil {
		return nil, st, err
	}
	t := t0
	if observe != nil {
		if err := observe(t, y); err != nil {
			return nil, st, err
		}
	}

	prev := append([]float64(nil), y...)
	prevYd := append([]float64(nil), yd...)
	next := make([]float64, ie.ny)
	h := o.clampStep(math.Min(o.InitialStep, tEnd-t0))
	good := 0
	for t < tEnd {
		if st.Steps+st.Rejected >= o.MaxSteps {
			return nil, st, &ConvergenceError{Method: "BDF1", Iterations: st.Steps, Time: t}
		}
		last := false
		if t+h >= tEnd {
			h = tEnd - t
			last = true
		}
		if err := ie.step(nw, t+h, h, prev, next, yd); err != nil {
			st.Rejected++
			good = 0
			h /= types.StepShrink
			o.Logger.V(1).Info("步长缩小", "t", t, "h", h, "err", err.Error())
			if h < o.MinStep {
				return nil, st, err
			}
			continue
		}
		// 局部截断误差 h/2·|yd(n+1) − yd(n)|
		var sum float64
		for k, i := range ie.index {
			sc := o.AbsTol + o.RelTol*math.Max(math.Abs(prev[i]), math.Abs(next[i]))
			r := 0.5 * h * (yd[k] - prevYd[k]) / sc
			sum += r * r
		}
		errNorm := 0.0
		if ie.nyd > 0 {
			errNorm = math.Sqrt(sum / float64(ie.nyd))
		}
		if errNorm > 1 {
			st.Rejected++
			good = 0
			h *= math.Max(types.MinStepScale, types.Safety/math.Sqrt(errNorm))
			if h < o.MinStep {
				return nil, st, &ConvergenceError{Method: "BDF1", Iterations: st.Steps, Residual: errNorm, Time: t}
			}
			continue
		}
		if last {
			t = tEnd
		} else {
			t += h
		}
		copy(prev, next)
		copy(prevYd, yd)
		st.Steps++
		st.LastStep = h
		if observe != nil {
			if err := observe(t, prev); err != nil {
				return nil, st, err
			}
		}
		good++
		if good > types.MaxGoodIter {
			good = 0
			grow := types.StepGrow
			if errNorm > 0 {
				grow = math.Min(grow, types.Safety/math.Sqrt(errNorm))
			}
			h = o.clampStep(h * math.Max(grow, 1))
		}
	}
	o.Logger.V(1).Info("积分完成", "method", "BDF1", "steps", st.Steps, "rejected", st.Rejected)
	return prev, st, nil
}
