package simulation

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"procsim/block"
	"procsim/equation"
	"procsim/problem"
	"procsim/solver"
	"procsim/types"
)

// Simulation 对问题做一次求解或积分
type Simulation struct {
	name    string
	problem *problem.Problem
	start   float64
	end     float64
	opts    solver.Options
	log     logr.Logger

	initial map[string]float64
	results map[string]float64
	stats   solver.Statistics
	kind    block.Kind
	done    bool
}

// Option 仿真配置
type Option func(*Simulation)

// WithLogger 指定日志
func WithLogger(log logr.Logger) Option {
	return func(s *Simulation) { s.log = log }
}

// WithTimeSpan 积分区间
func WithTimeSpan(start, end float64) Option {
	return func(s *Simulation) { s.start, s.end = start, end }
}

// WithSolverOptions 求解参数
func WithSolverOptions(o solver.Options) Option {
	return func(s *Simulation) { s.opts = o }
}

// New 创建仿真
func New(name string, p *problem.Problem, opts ...Option) *Simulation {
	s := &Simulation{
		name:    name,
		problem: p,
		opts:    solver.DefaultOptions(),
		log:     logr.Discard(),
		initial: make(map[string]float64),
		results: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithValues("simulation", name)
	s.opts.Logger = s.log
	return s
}

// Name 名称
func (s *Simulation) Name() string { return s.name }

// Problem 问题
func (s *Simulation) Problem() *problem.Problem { return s.problem }

// TimeSpan 积分区间
func (s *Simulation) TimeSpan() (start, end float64) { return s.start, s.end }

// SetInitialConditions 按限定名设置初值，导数初值键为 <name>_d
func (s *Simulation) SetInitialConditions(values map[string]float64) {
	for k, v := range values {
		s.initial[k] = v
	}
}

// InitialConditions 已设置的初值
func (s *Simulation) InitialConditions() map[string]float64 {
	out := make(map[string]float64, len(s.initial))
	for k, v := range s.initial {
		out[k] = v
	}
	return out
}

// Kind 最近一次运行的方程组类别
func (s *Simulation) Kind() block.Kind { return s.kind }

// Statistics 最近一次运行的求解统计
func (s *Simulation) Statistics() solver.Statistics { return s.stats }

// Done 是否已运行
func (s *Simulation) Done() bool { return s.done }

// Results 变量限定名到结果的映射
func (s *Simulation) Results() map[string]float64 {
	out := make(map[string]float64, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// Value 按限定名取结果
func (s *Simulation) Value(name string) (float64, error) {
	v, ok := s.results[name]
	if !ok {
		return 0, &types.AbsentRequiredObjectError{Object: "结果 " + name, Context: "仿真 " + s.name}
	}
	return v, nil
}

// Domains 当前工作区中的域
func (s *Simulation) Domains() ([]*equation.Domain, error) {
	ws, err := s.problem.Workspace()
	if err != nil {
		return nil, err
	}
	return ws.Domains(), nil
}

// Reset 清空结果、统计和域记录
func (s *Simulation) Reset() {
	s.results = make(map[string]float64)
	s.stats = solver.Statistics{}
	s.done = false
	if s.problem.Resolved() {
		if ws, err := s.problem.Workspace(); err == nil {
			for _, d := range ws.Domains() {
				d.Reset()
			}
		}
	}
}

// Run 装配问题、检查自由度并按类别分派到求解器
func (s *Simulation) Run() error {
	if s.problem == nil {
		return &types.AbsentRequiredObjectError{Object: "问题", Context: "仿真 " + s.name}
	}
	blk, err := s.problem.Block()
	if err != nil {
		return err
	}
	dof, err := s.problem.DegreesOfFreedom()
	if err != nil {
		return err
	}
	if ps := blk.Parameters(); len(ps) > 0 {
		names := make([]string, len(ps))
		for i, p := range ps {
			names[i] = p.Name()
		}
		return &types.AbsentRequiredObjectError{Object: fmt.Sprint(names), Context: "仿真 " + s.name + " 参数未指定"}
	}
	if dof.Status() != problem.WellPosed {
		return &types.UnexpectedValueError{Context: "仿真 " + s.name + " 自由度 " + dof.Status().String(), Value: dof.Value()}
	}
	for _, d := range blk.Workspace().Domains() {
		d.Reset()
	}
	s.kind = blk.Kind()
	s.log.V(1).Info("开始求解", "kind", s.kind.String(), "variables", len(blk.Variables()))

	var y []float64
	switch s.kind {
	case block.Linear:
		y, err = s.linear(blk)
	case block.Nonlinear:
		y, err = s.nonlinear(blk)
	case block.Differential:
		y, err = s.differential(blk)
	case block.DAE:
		y, err = s.dae(blk)
	default:
		err = &types.UnresolvedPanicError{Context: "未知的方程组类别 " + s.kind.String()}
	}
	if err != nil {
		return fmt.Errorf("仿真 %s: %w", s.name, err)
	}
	s.store(blk, y)
	s.done = true
	s.log.Info("求解完成", "kind", s.kind.String(), "steps", s.stats.Steps, "iterations", s.stats.Iterations)
	return nil
}

func (s *Simulation) linear(blk *block.Block) ([]float64, error) {
	sys, err := blk.AlgebraicSystem()
	if err != nil {
		return nil, err
	}
	y, st, err := solver.Linear(sys, s.opts)
	s.stats = st
	return y, err
}

func (s *Simulation) nonlinear(blk *block.Block) ([]float64, error) {
	sys, err := blk.AlgebraicSystem()
	if err != nil {
		return nil, err
	}
	y0 := make([]float64, len(blk.Variables()))
	for i, v := range blk.Variables() {
		y0[i] = s.guess(v)
	}
	y, st, err := solver.Newton(sys, y0, s.opts)
	s.stats = st
	return y, err
}

func (s *Simulation) differential(blk *block.Block) ([]float64, error) {
	sys, err := blk.ResidualSystem()
	if err != nil {
		return nil, err
	}
	y0, err := s.states(blk)
	if err != nil {
		return nil, err
	}
	f, inner, err := solver.ExplicitODE(sys, s.opts)
	if err != nil {
		return nil, err
	}
	y, st, err := solver.DormandPrince(f, s.start, s.end, y0, s.opts, s.observer(blk))
	st.Merge(*inner)
	s.stats = st
	return y, err
}

func (s *Simulation) dae(blk *block.Block) ([]float64, error) {
	sys, err := blk.ResidualSystem()
	if err != nil {
		return nil, err
	}
	y0, err := s.states(blk)
	if err != nil {
		return nil, err
	}
	yd0 := make([]float64, len(blk.DiffVariables()))
	_, ders := blk.DerivativeNames()
	for k, name := range ders {
		v, ok := s.initial[name]
		if !ok {
			return nil, &types.AbsentRequiredObjectError{Object: "导数初值 " + name, Context: "仿真 " + s.name}
		}
		yd0[k] = v
	}
	y, st, err := solver.BDF1(sys, s.start, s.end, y0, yd0, s.opts, s.observer(blk))
	s.stats = st
	return y, err
}

// guess 代数未知量初值：初值表、变量猜测值、默认值
func (s *Simulation) guess(v *equation.Variable) float64 {
	if x, ok := s.initial[v.Name()]; ok {
		return x
	}
	if g, ok := v.Guess(); ok {
		return g
	}
	return types.DefaultGuess
}

// states 导数变量必须给出初值
func (s *Simulation) states(blk *block.Block) ([]float64, error) {
	if !(s.end > s.start) {
		return nil, &types.UnexpectedValueError{Context: "仿真 " + s.name + " 积分区间", Value: [2]float64{s.start, s.end}}
	}
	y0 := make([]float64, len(blk.Variables()))
	for i, v := range blk.Variables() {
		y0[i] = s.guess(v)
	}
	var missing []string
	for _, v := range blk.DiffVariables() {
		if _, ok := s.initial[v.Name()]; !ok {
			missing = append(missing, v.Name())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &types.AbsentRequiredObjectError{Object: fmt.Sprint(missing), Context: "仿真 " + s.name + " 初值"}
	}
	return y0, nil
}

// observer 把每个接受的步记录到相关的域
func (s *Simulation) observer(blk *block.Block) solver.Observer {
	var domains []*equation.Domain
	for _, v := range blk.Independent() {
		if d := v.IndependentOf(); d != nil {
			domains = append(domains, d)
		}
	}
	return func(t float64, y []float64) error {
		for _, d := range domains {
			deps := d.Dependents()
			row := make([]float64, 0, len(deps)+1)
			row = append(row, t)
			for _, v := range deps {
				if i, ok := blk.Index(v); ok {
					row = append(row, y[i])
				} else {
					row = append(row, v.Value())
				}
			}
			if err := d.Register(row); err != nil {
				return err
			}
		}
		return nil
	}
}

// store 保存结果并写回变量
func (s *Simulation) store(blk *block.Block, y []float64) {
	s.results = make(map[string]float64, len(y)+len(blk.Independent()))
	for i, v := range blk.Variables() {
		v.SetResult(y[i])
		s.results[v.Name()] = y[i]
	}
	if s.kind == block.Differential || s.kind == block.DAE {
		for _, v := range blk.Independent() {
			v.SetResult(s.end)
			s.results[v.Name()] = s.end
		}
	}
}
