package problem

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"procsim/block"
	"procsim/equation"
	"procsim/model"
	"procsim/types"
)

// Status 自由度状态
type Status int

// 自由度状态
const (
	WellPosed Status = iota
	UnderSpecified
	OverSpecified
)

// String 状态名称
func (s Status) String() string {
	switch s {
	case WellPosed:
		return "well-posed"
	case UnderSpecified:
		return "under-specified"
	case OverSpecified:
		return "over-specified"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Connection 模型之间的连接，按短名记录
type Connection struct {
	FromModel, FromVar string
	ToModel, ToVar     string
}

// String 连接描述
func (c Connection) String() string {
	return c.FromModel + "." + c.FromVar + " -> " + c.ToModel + "." + c.ToVar
}

// Problem 问题：一组模型及其连接
// 每次 Resolve 都在新的工作区中重新声明全部模型。
type Problem struct {
	name        string
	description string
	models      []*model.Model
	connections []Connection
	values      map[string]float64
	ids         equation.IDGenerator
	log         logr.Logger

	ws        *equation.Workspace
	equations []*equation.Equation
	block     *block.Block
}

// Option 问题配置
type Option func(*Problem)

// WithLogger 指定日志
func WithLogger(log logr.Logger) Option {
	return func(p *Problem) { p.log = log }
}

// WithIDGenerator 指定编号生成器
func WithIDGenerator(g equation.IDGenerator) Option {
	return func(p *Problem) { p.ids = g }
}

// New 创建问题
func New(name, description string, opts ...Option) *Problem {
	p := &Problem{
		name:        name,
		description: description,
		values:      make(map[string]float64),
		log:         logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithValues("problem", name)
	return p
}

// Name 名称
func (p *Problem) Name() string { return p.name }

// Description 描述
func (p *Problem) Description() string { return p.description }

// Logger 日志
func (p *Problem) Logger() logr.Logger { return p.log }

// AddModels 加入模型，名称不能重复
func (p *Problem) AddModels(models ...*model.Model) error {
	for _, m := range models {
		if m == nil {
			return &types.UnexpectedValueError{Context: "问题 " + p.name + " 加入模型", Value: m}
		}
		if _, ok := p.Model(m.Name()); ok {
			return &types.UnexpectedValueError{Context: "模型名称重复", Value: m.Name()}
		}
		p.models = append(p.models, m)
	}
	p.invalidate()
	return nil
}

// Model 按名称查找模型
func (p *Problem) Model(name string) (*model.Model, bool) {
	for _, m := range p.models {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// Models 全部模型
func (p *Problem) Models() []*model.Model { return append([]*model.Model(nil), p.models...) }

// Connect 连接 fromModel 的输出变量到 toModel 的输入变量，Resolve 时生效
func (p *Problem) Connect(fromModel, fromVar, toModel, toVar string) error {
	for _, name := range []string{fromModel, toModel} {
		if _, ok := p.Model(name); !ok {
			return &types.AbsentRequiredObjectError{Object: "模型 " + name, Context: "问题 " + p.name + " 连接"}
		}
	}
	p.connections = append(p.connections, Connection{FromModel: fromModel, FromVar: fromVar, ToModel: toModel, ToVar: toVar})
	p.invalidate()
	return nil
}

// Connections 全部连接
func (p *Problem) Connections() []Connection { return append([]Connection(nil), p.connections...) }

// Specify 按限定名指定量的值，每次 Resolve 后重新生效
func (p *Problem) Specify(name string, value float64) {
	p.values[name] = value
	p.invalidate()
}

// Unspecify 取消指定
func (p *Problem) Unspecify(name string) {
	delete(p.values, name)
	p.invalidate()
}

// Values 已指定的值
func (p *Problem) Values() map[string]float64 {
	out := make(map[string]float64, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

func (p *Problem) invalidate() {
	p.ws, p.equations, p.block = nil, nil, nil
}

// Resolved 是否已装配
func (p *Problem) Resolved() bool { return p.block != nil }

// Resolve 重新声明全部模型、应用指定值、建立连接并装配方程块
func (p *Problem) Resolve() error {
	p.invalidate()
	if len(p.models) == 0 {
		return &types.AbsentRequiredObjectError{Object: "模型", Context: "问题 " + p.name}
	}
	ws := equation.NewWorkspace(
		equation.WithIDGenerator(p.ids),
		equation.WithLogger(p.log),
		equation.WithValues(p.values),
	)
	var eqs []*equation.Equation
	for _, m := range p.models {
		if err := m.Build(ws); err != nil {
			return fmt.Errorf("问题 %s: %w", p.name, err)
		}
		eqs = append(eqs, m.Equations()...)
	}
	if unused := ws.UnusedValues(); len(unused) > 0 {
		return &types.AbsentRequiredObjectError{Object: fmt.Sprint(unused), Context: "问题 " + p.name + " 指定值没有对应的量"}
	}
	for _, c := range p.connections {
		eq, err := p.connect(c)
		if err != nil {
			return fmt.Errorf("问题 %s 连接 %s: %w", p.name, c, err)
		}
		eqs = append(eqs, eq)
	}
	blk, err := block.New(eqs, block.WithLogger(p.log))
	if err != nil {
		return fmt.Errorf("问题 %s: %w", p.name, err)
	}
	p.ws, p.equations, p.block = ws, eqs, blk
	p.log.V(1).Info("问题装配完成", "models", len(p.models), "equations", len(eqs), "kind", blk.Kind().String())
	return nil
}

// connect 生成连接方程 to == from
func (p *Problem) connect(c Connection) (*equation.Equation, error) {
	from, err := p.variable(c.FromModel, c.FromVar)
	if err != nil {
		return nil, err
	}
	to, err := p.variable(c.ToModel, c.ToVar)
	if err != nil {
		return nil, err
	}
	if from.Exposure() != equation.Output {
		return nil, &types.UnexpectedValueError{Context: "连接起点必须是输出变量", Value: from.Name()}
	}
	if to.Exposure() != equation.Input {
		return nil, &types.UnexpectedValueError{Context: "连接终点必须是输入变量", Value: to.Name()}
	}
	if !from.Unit().Coherent(to.Unit()) {
		return nil, &types.DimensionalCoherenceError{Op: "connect " + c.String(), Left: from.Unit().Dim, Right: to.Unit().Dim}
	}
	return equation.New("connection_"+from.Name()+"_"+to.Name(), c.String(), equation.Eq(to, from))
}

func (p *Problem) variable(modelName, name string) (*equation.Variable, error) {
	m, ok := p.Model(modelName)
	if !ok {
		return nil, &types.AbsentRequiredObjectError{Object: "模型 " + modelName, Context: "问题 " + p.name}
	}
	v, ok := m.Variable(name)
	if !ok {
		return nil, &types.AbsentRequiredObjectError{Object: "变量 " + name, Context: "模型 " + modelName}
	}
	return v, nil
}

// ensure 未装配时先装配
func (p *Problem) ensure() error {
	if p.block != nil {
		return nil
	}
	return p.Resolve()
}

// Block 方程块
func (p *Problem) Block() (*block.Block, error) {
	if err := p.ensure(); err != nil {
		return nil, err
	}
	return p.block, nil
}

// Workspace 当前工作区
func (p *Problem) Workspace() (*equation.Workspace, error) {
	if err := p.ensure(); err != nil {
		return nil, err
	}
	return p.ws, nil
}

// Equations 模型方程与连接方程
func (p *Problem) Equations() ([]*equation.Equation, error) {
	if err := p.ensure(); err != nil {
		return nil, err
	}
	return append([]*equation.Equation(nil), p.equations...), nil
}

// Quantity 按限定名查找量
func (p *Problem) Quantity(name string) (equation.Quantity, error) {
	ws, err := p.Workspace()
	if err != nil {
		return nil, err
	}
	q, ok := ws.Quantity(name)
	if !ok {
		return nil, &types.AbsentRequiredObjectError{Object: name, Context: "问题 " + p.name}
	}
	return q, nil
}

// DOF 自由度分析结果
type DOF struct {
	Variables   int // 未知变量
	Independent int // 自变量
	Parameters  int // 未指定参数
	Equations   int // 方程
	Implicit    int // 自变量出现在导数中时的隐含方程
}

// Value 自由度
func (d DOF) Value() int {
	return d.Variables + d.Independent + d.Parameters - d.Equations - d.Implicit
}

// Status 自由度状态
func (d DOF) Status() Status {
	switch v := d.Value(); {
	case v > 0:
		return UnderSpecified
	case v < 0:
		return OverSpecified
	}
	return WellPosed
}

// DegreesOfFreedom 自由度分析
func (p *Problem) DegreesOfFreedom() (DOF, error) {
	blk, err := p.Block()
	if err != nil {
		return DOF{}, err
	}
	return DOF{
		Variables:   len(blk.Variables()),
		Independent: len(blk.Independent()),
		Parameters:  len(blk.Parameters()),
		Equations:   len(blk.Equations()),
		Implicit:    blk.Implicit(),
	}, nil
}

// Summary 问题摘要，按名称排序的量及其值
func (p *Problem) Summary() ([]string, error) {
	ws, err := p.Workspace()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, q := range ws.Quantities() {
		out = append(out, fmt.Sprintf("%s %s = %g [%s] specified=%t", q.Kind(), q.Name(), q.Value(), q.Unit(), q.IsSpecified()))
	}
	sort.Strings(out)
	return out, nil
}
