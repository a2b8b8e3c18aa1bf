package solver

import (
	"math"

	"procsim/types"
)

// Dormand–Prince 5(4) 系数
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	// 五阶与四阶权重之差
	dpE = [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	}
)

// DormandPrince 自适应 RK5(4) 积分 dy/dt = f(t, y)，从 t0 到 tEnd
// observe 在初始点和每个接受的步之后调用。
func DormandPrince(f ODE, t0, tEnd float64, y0 []float64, opts Options, observe Observer) ([]float64, Statistics, error) {
	o := opts.withDefaults()
	var st Statistics
	n := len(y0)
	if n == 0 {
		return nil, st, &types.AbsentRequiredObjectError{Object: "状态变量", Context: "DormandPrince"}
	}
	if !(tEnd > t0) {
		return nil, st, &types.UnexpectedValueError{Context: "积分区间", Value: [2]float64{t0, tEnd}}
	}
	y := append([]float64(nil), y0...)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	tmp := make([]float64, n)
	next := make([]float64, n)

	t := t0
	if observe != nil {
		if err := observe(t, y); err != nil {
			return nil, st, err
		}
	}
	if err := f(t, y, k[0]); err != nil {
		return nil, st, err
	}
	st.Evaluations++
	h := o.clampStep(math.Min(o.InitialStep, tEnd-t0))
	for t < tEnd {
		if st.Steps+st.Rejected >= o.MaxSteps {
			return nil, st, &ConvergenceError{Method: "DormandPrince", Iterations: st.Steps, Time: t}
		}
		last := false
		if t+h >= tEnd {
			h = tEnd - t
			last = true
		}
		// 各级斜率
		for s := 1; s < 7; s++ {
			for i := range tmp {
				acc := y[i]
				for j := 0; j < s; j++ {
					acc += h * dpA[s][j] * k[j][i]
				}
				tmp[i] = acc
			}
			if err := f(t+dpC[s]*h, tmp, k[s]); err != nil {
				return nil, st, err
			}
			st.Evaluations++
		}
		copy(next, tmp) // 第七级的输入即五阶解
		// 混合误差范数
		var sum float64
		for i := range y {
			var e float64
			for s := 0; s < 7; s++ {
				e += dpE[s] * k[s][i]
			}
			sc := o.AbsTol + o.RelTol*math.Max(math.Abs(y[i]), math.Abs(next[i]))
			r := h * e / sc
			sum += r * r
		}
		errNorm := math.Sqrt(sum / float64(n))
		if math.IsNaN(errNorm) || !finite(next) {
			errNorm = math.Inf(1)
		}

		scale := types.MaxStepScale
		if errNorm > 0 {
			scale = math.Min(types.MaxStepScale, math.Max(types.MinStepScale, types.Safety*math.Pow(errNorm, -0.2)))
		}
		if errNorm > 1 {
			st.Rejected++
			h *= math.Min(scale, 1)
			if h < o.MinStep {
				return nil, st, &ConvergenceError{Method: "DormandPrince", Iterations: st.Steps, Residual: errNorm, Time: t}
			}
			continue
		}
		if last {
			t = tEnd
		} else {
			t += h
		}
		copy(y, next)
		k[0], k[6] = k[6], k[0] // FSAL
		st.Steps++
		st.LastStep = h
		if observe != nil {
			if err := observe(t, y); err != nil {
				return nil, st, err
			}
		}
		h = o.clampStep(h * scale)
	}
	o.Logger.V(1).Info("积分完成", "method", "DormandPrince", "steps", st.Steps, "rejected", st.Rejected)
	return y, st, nil
}
