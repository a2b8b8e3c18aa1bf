package optimization

import (
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/optimize"

	"procsim/simulation"
	"procsim/types"
)

// Objective 从一次完成的仿真计算目标值
type Objective func(sim *simulation.Simulation) (float64, error)

// Decision 决策变量：按限定名指定的量及其上下界
type Decision struct {
	Name    string
	Lower   float64
	Upper   float64
	Initial float64
}

// clamp 限制在上下界内
func (d Decision) clamp(x float64) float64 {
	return math.Min(d.Upper, math.Max(d.Lower, x))
}

// Result 优化结果
type Result struct {
	X           map[string]float64
	F           float64
	Evaluations int
	Failures    int // 仿真失败的求值次数
	Status      string
}

// Optimization 无导数优化，每次求值都重建并重新运行仿真
type Optimization struct {
	sim       *simulation.Simulation
	objective Objective
	decisions []Decision
	log       logr.Logger

	maxEvaluations int
	simplexSize    float64

	evaluations int
	failures    int
}

// Option 优化配置
type Option func(*Optimization)

// WithLogger 指定日志
func WithLogger(log logr.Logger) Option {
	return func(o *Optimization) { o.log = log }
}

// WithMaxEvaluations 最大求值次数
func WithMaxEvaluations(n int) Option {
	return func(o *Optimization) { o.maxEvaluations = n }
}

// WithSimplexSize 初始单纯形大小
func WithSimplexSize(size float64) Option {
	return func(o *Optimization) { o.simplexSize = size }
}

// New 创建优化
func New(sim *simulation.Simulation, objective Objective, decisions []Decision, opts ...Option) *Optimization {
	o := &Optimization{
		sim:            sim,
		objective:      objective,
		decisions:      append([]Decision(nil), decisions...),
		log:            logr.Discard(),
		maxEvaluations: 1000,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// validate 检查决策变量
func (o *Optimization) validate() error {
	if o.sim == nil {
		return &types.AbsentRequiredObjectError{Object: "仿真", Context: "优化"}
	}
	if o.objective == nil {
		return &types.AbsentRequiredObjectError{Object: "目标函数", Context: "优化"}
	}
	if len(o.decisions) == 0 {
		return &types.AbsentRequiredObjectError{Object: "决策变量", Context: "优化"}
	}
	seen := make(map[string]bool, len(o.decisions))
	for _, d := range o.decisions {
		if d.Name == "" || seen[d.Name] {
			return &types.UnexpectedValueError{Context: "决策变量名称为空或重复", Value: d.Name}
		}
		seen[d.Name] = true
		if !(d.Lower <= d.Upper) {
			return &types.UnexpectedValueError{Context: "决策变量 " + d.Name + " 上下界", Value: [2]float64{d.Lower, d.Upper}}
		}
	}
	return nil
}

// apply 指定决策变量并运行仿真
func (o *Optimization) apply(x []float64) error {
	p := o.sim.Problem()
	for i, d := range o.decisions {
		p.Specify(d.Name, d.clamp(x[i]))
	}
	o.sim.Reset()
	return o.sim.Run()
}

// evaluate 目标函数，仿真失败记为 +Inf
func (o *Optimization) evaluate(x []float64) float64 {
	o.evaluations++
	if err := o.apply(x); err != nil {
		o.failures++
		o.log.Info("仿真失败", "x", x, "err", err.Error())
		return math.Inf(1)
	}
	f, err := o.objective(o.sim)
	if err != nil || math.IsNaN(f) {
		o.failures++
		o.log.Info("目标函数失败", "x", x, "err", fmt.Sprint(err))
		return math.Inf(1)
	}
	o.log.V(1).Info("求值", "x", x, "f", f)
	return f
}

// Run 以 Nelder–Mead 最小化目标函数，结束后仿真处于最优点
func (o *Optimization) Run() (Result, error) {
	if err := o.validate(); err != nil {
		return Result{}, err
	}
	o.evaluations, o.failures = 0, 0
	x0 := make([]float64, len(o.decisions))
	for i, d := range o.decisions {
		x0[i] = d.clamp(d.Initial)
	}
	// 初始点必须可运行
	if err := o.apply(x0); err != nil {
		return Result{}, fmt.Errorf("优化初始点: %w", err)
	}
	method := &optimize.NelderMead{SimplexSize: o.simplexSize}
	settings := &optimize.Settings{FuncEvaluations: o.maxEvaluations}
	res, err := optimize.Minimize(optimize.Problem{Func: o.evaluate}, x0, settings, method)
	if err != nil && res == nil {
		return Result{}, fmt.Errorf("优化失败: %w", err)
	}
	if err != nil {
		o.log.Info("优化提前结束", "status", res.Status.String(), "err", err.Error())
	}
	out := Result{
		X:           make(map[string]float64, len(o.decisions)),
		F:           res.F,
		Evaluations: o.evaluations,
		Failures:    o.failures,
		Status:      res.Status.String(),
	}
	for i, d := range o.decisions {
		out.X[d.Name] = d.clamp(res.X[i])
	}
	if err := o.apply(res.X); err != nil {
		return out, fmt.Errorf("优化最优点: %w", err)
	}
	o.log.Info("优化完成", "f", out.F, "evaluations", out.Evaluations, "status", out.Status)
	return out, nil
}
