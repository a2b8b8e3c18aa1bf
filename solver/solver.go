package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"

	"procsim/types"
)

// ErrConvergence 迭代或积分未能收敛
var ErrConvergence = errors.New("未收敛")

// ConvergenceError 收敛失败信息
type ConvergenceError struct {
	Method     string
	Iterations int
	Residual   float64
	Time       float64 // 积分失败时刻，代数求解为 0
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s 未收敛: iter=%d res=%.3e t=%g", e.Method, e.Iterations, e.Residual, e.Time)
}

func (e *ConvergenceError) Unwrap() error { return ErrConvergence }

// Algebraic 代数方程组 f(y) = 0
type Algebraic interface {
	Dims() (eqs, vars int)
	Residual(y, out []float64)
	Jacobian(y []float64, j *mat.Dense)
}

// Implicit 残差形式 F(t, y, yd) = 0
// DerivativeMap()[k] 为 yd[k] 对应的 y 下标。
type Implicit interface {
	Dims() (eqs, ny, nyd int)
	DerivativeMap() []int
	Residual(t float64, y, yd, out []float64)
	JacobianY(t float64, y, yd []float64, j *mat.Dense)
	JacobianYd(t float64, y, yd []float64, j *mat.Dense)
}

// ODE 显式常微分方程 dy = f(t, y)
type ODE func(t float64, y, dy []float64) error

// Observer 每个接受的积分步回调
type Observer func(t float64, y []float64) error

// Options 求解参数，零值字段由 DefaultOptions 补齐
type Options struct {
	Tolerance        float64 // 非线性收敛容差
	MaxIterations    int
	MinDampingFactor float64
	MaxDampingFactor float64
	FiniteDifference bool // 用有限差分代替解析雅可比

	RelTol      float64
	AbsTol      float64
	InitialStep float64
	MinStep     float64
	MaxStep     float64 // 0 表示不限制
	MaxSteps    int

	Logger logr.Logger
}

// DefaultOptions 默认求解参数
func DefaultOptions() Options {
	return Options{
		Tolerance:        types.Tolerance,
		MaxIterations:    types.MaxIterations,
		MinDampingFactor: types.MinDampingFactor,
		MaxDampingFactor: types.MaxDampingFactor,
		RelTol:           types.RelTolerance,
		AbsTol:           types.AbsTolerance,
		InitialStep:      types.DefaultTimeStep,
		MinStep:          types.MinTimeStep,
		MaxStep:          types.MaxTimeStep,
		MaxSteps:         int(types.MaxSteps),
		Logger:           logr.Discard(),
	}
}

// withDefaults 补齐零值字段
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.MinDampingFactor <= 0 {
		o.MinDampingFactor = d.MinDampingFactor
	}
	if o.MaxDampingFactor <= 0 {
		o.MaxDampingFactor = d.MaxDampingFactor
	}
	if o.RelTol <= 0 {
		o.RelTol = d.RelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = d.AbsTol
	}
	if o.InitialStep <= 0 {
		o.InitialStep = d.InitialStep
	}
	if o.MinStep <= 0 {
		o.MinStep = d.MinStep
	}
	if o.MaxStep < 0 {
		o.MaxStep = 0
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o
}

// clampStep 限制步长上限
func (o Options) clampStep(h float64) float64 {
	if o.MaxStep > 0 && h > o.MaxStep {
		return o.MaxStep
	}
	return h
}

// Statistics 求解统计
type Statistics struct {
	Iterations          int // 非线性迭代总数
	Steps               int // 接受的积分步
	Rejected            int // 拒绝的积分步
	Evaluations         int // 残差或右端函数求值次数
	JacobianEvaluations int
	LastStep            float64
	Residual            float64 // 最后一次残差无穷范数
}

// Merge 累加内层求解的迭代与雅可比次数
func (s *Statistics) Merge(o Statistics) {
	s.Iterations += o.Iterations
	s.JacobianEvaluations += o.JacobianEvaluations
}

// finite 向量全部有限
func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// checkDims 方程数必须等于未知量数
func checkDims(method string, eqs, vars int) error {
	if eqs != vars {
		return &types.UnexpectedValueError{Context: method + " 需要方阵系统", Value: fmt.Sprintf("%d×%d", eqs, vars)}
	}
	if vars == 0 {
		return &types.AbsentRequiredObjectError{Object: "未知量", Context: method}
	}
	return nil
}
